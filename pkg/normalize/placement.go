// pkg/normalize/placement.go
package normalize

import (
	"strings"
)

// SkipReason explains why an issue produced no record. The zero value
// means the issue was accepted.
type SkipReason string

const (
	SkipNone                SkipReason = ""
	SkipMissingEntityCourse SkipReason = "missing_entity_course"
	SkipEntityNotAllowed    SkipReason = "entity_not_allowed"
	SkipUndergraduate       SkipReason = "undergraduate"
	SkipMissingCourse       SkipReason = "missing_course"
	SkipNoiseCourse         SkipReason = "noise_course"
)

// entityMarker precedes the entity name in the composite field
const entityMarker = "Fac. Unyleya | "

const undergraduate = "Fac. Unyleya | Graduação"

// AllowedEntityPrefixes lists the composite prefixes of tracked entities
var AllowedEntityPrefixes = []string{
	"Fac. Unyleya | CETEC",
	"Fac. Unyleya | CEAB",
	"Fac. Unyleya | CECA",
	"Fac. Unyleya | CECaV",
	"Fac. Unyleya | CECOMEX",
	"Fac. Unyleya | CECONF",
	"Fac. Unyleya | CEDAC",
	"Fac. Unyleya | CEDUC",
	"Fac. Unyleya | CEENG",
	"Fac. Unyleya | CEGEP",
	"Fac. Unyleya | CEJUR",
	"Fac. Unyleya | CEPÓS",
	"Fac. Unyleya | CES",
	"Fac. Unyleya | NEPIC",
	"Fac. Unyleya | Pós | 3R Capacita",
	"Fac. Unyleya | Pós | Bioforense",
	"Fac. Unyleya | Pós-Graduação",
	"Fac. Unyleya | YMED",
	"Fac. Unyleya | YODONTO",
	"Fac. Unyleya | YVET",
}

// Course values that are free text typed into the description, not a name
var noiseCoursePrefixes = []string{"Bom dia", "*", "OBS:"}

const coursePrefix = "CURSO: "

// EntityCourse is the cascading "Entidade e Curso" select: the entity in
// Main and, optionally, the course in Child
type EntityCourse struct {
	Main  string
	Child string
}

// Composite returns "{main} - {child}", or main alone without a child
func (ec EntityCourse) Composite() string {
	main := strings.TrimSpace(ec.Main)
	child := strings.TrimSpace(ec.Child)
	if child == "" {
		return main
	}
	return main + " - " + child
}

// Placement is where a ticket belongs: its entity and course
type Placement struct {
	EntityCourse string
	Entity       string
	Course       string
}

// CheckEntity validates the composite against the allow-list and returns
// the entity name.
func CheckEntity(ec EntityCourse) (composite, entity string, reason SkipReason) {
	composite = ec.Composite()
	if composite == "" {
		return "", "", SkipMissingEntityCourse
	}
	if !hasAnyPrefix(composite, AllowedEntityPrefixes) {
		return composite, "", SkipEntityNotAllowed
	}
	if strings.Contains(ec.Main, undergraduate) {
		return composite, "", SkipUndergraduate
	}

	entity = EntityName(composite)
	if entity == "" {
		return composite, "", SkipEntityNotAllowed
	}
	return composite, entity, SkipNone
}

// ExtractPlacement resolves entity and course of a ticket. The course is
// the child value or, without one, the text between the first "}" and
// the next "{" of the description.
func ExtractPlacement(ec EntityCourse, description string) (Placement, SkipReason) {
	composite, entity, reason := CheckEntity(ec)
	if reason != SkipNone {
		return Placement{}, reason
	}

	course := strings.TrimSpace(ec.Child)
	if course == "" {
		var ok bool
		if course, ok = courseFromDescription(description); !ok {
			return Placement{}, SkipMissingCourse
		}
	}

	if hasAnyPrefix(course, noiseCoursePrefixes) {
		return Placement{}, SkipNoiseCourse
	}
	course = strings.TrimSpace(strings.TrimPrefix(course, coursePrefix))
	if course == "" {
		return Placement{}, SkipMissingCourse
	}

	return Placement{EntityCourse: composite, Entity: entity, Course: course}, SkipNone
}

// EntityName extracts the entity from a composite value:
// "Fac. Unyleya | Pós | Bioforense - Perícia" is "Bioforense".
func EntityName(composite string) string {
	head, _, _ := strings.Cut(composite, " - ")
	head = strings.TrimSpace(head)

	if _, after, found := strings.Cut(head, entityMarker); found {
		head = after
	}
	if i := strings.LastIndex(head, " | "); i >= 0 {
		head = head[i+len(" | "):]
	}
	return strings.TrimSpace(head)
}

func courseFromDescription(description string) (string, bool) {
	if !strings.Contains(description, "}") || !strings.Contains(description, "{") {
		return "", false
	}
	_, rest, _ := strings.Cut(description, "}")
	course, _, _ := strings.Cut(rest, "{")
	course = strings.TrimSpace(course)
	return course, course != ""
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
