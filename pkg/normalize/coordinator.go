// pkg/normalize/coordinator.go
package normalize

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// coordinatorPatch rewrites a known mis-entered coordinator value
type coordinatorPatch struct {
	prefix      string
	replacement string
}

// Values are matched by prefix on the trimmed raw text, before any other
// normalization.
var coordinatorPatches = []coordinatorPatch{
	{prefix: "Coord. Geral dos Cursos em Direito", replacement: "Coordenação Geral dos Cursos de Direito"},
	{prefix: "Renata Alcione de Faria Rodrigues", replacement: "Renata Alcione de Faria Villela de Araújo"},
}

var slashSpacing = regexp.MustCompile(`[\s\p{Zs}]*/[\s\p{Zs}]*`)

// Coordinator returns the canonical identity of a raw coordinator value:
// the first name of a "/"-separated list after Unicode and separator
// normalization. Nil and blank input return nil.
func Coordinator(raw *string) *string {
	if raw == nil {
		return nil
	}
	canonical, ok := CanonicalCoordinator(*raw)
	if !ok {
		return nil
	}
	return &canonical
}

// CanonicalCoordinator is Coordinator for non-nil input; ok is false when
// nothing is left after normalization.
func CanonicalCoordinator(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", false
	}

	for _, p := range coordinatorPatches {
		if strings.HasPrefix(s, p.prefix) {
			s = p.replacement
			break
		}
	}

	s = strings.TrimSpace(norm.NFKC.String(s))
	s = strings.ReplaceAll(s, "\u00a0", "")
	s = slashSpacing.ReplaceAllString(s, "/")
	s = strings.ReplaceAll(s, "\u2019", "'")

	if i := strings.IndexByte(s, '/'); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimSpace(s)

	return s, s != ""
}
