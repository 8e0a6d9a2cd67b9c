// pkg/converter/values.go
package converter

import (
	"strings"

	"go.uber.org/zap"

	"github.com/danexplore/JiraSQL/pkg/jira"
	"github.com/danexplore/JiraSQL/pkg/model"
)

// nullable returns nil for blank text
func nullable(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}

// joined joins values with ", ", nil when there are none
func joined(values []string) *string {
	return nullable(strings.Join(values, ", "))
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// parseDate truncates an ISO-8601 field to its date; unparsable values
// are logged and stored as NULL
func (c *IssueConverter) parseDate(key, field, value string) model.Date {
	d, err := model.ParseDate(value)
	if err != nil {
		c.logger.Warn("Ignoring unparsable date",
			zap.String("issueKey", key),
			zap.String("field", field),
			zap.String("value", value))
		return model.Date{}
	}
	return d
}

// earliestRelease returns the earliest release date among fix versions
func (c *IssueConverter) earliestRelease(key string, versions []jira.FixVersion) model.Date {
	var earliest model.Date
	for _, v := range versions {
		d := c.parseDate(key, "releaseDate", v.ReleaseDate)
		if d.Before(earliest) {
			earliest = d
		}
	}
	return earliest
}

func versionNames(versions []jira.FixVersion) []string {
	names := make([]string, 0, len(versions))
	for _, v := range versions {
		names = append(names, v.Name)
	}
	return names
}

func containsSubstring(values []string, token string) bool {
	for _, v := range values {
		if strings.Contains(v, token) {
			return true
		}
	}
	return false
}
