// pkg/jira/types.go
package jira

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

// SearchResult is one page of /rest/api/2/search
type SearchResult struct {
	StartAt    int     `json:"startAt"`
	MaxResults int     `json:"maxResults"`
	Total      int     `json:"total"`
	Issues     []Issue `json:"issues"`
}

// Issue is a Jira issue with the fields requested by the query
type Issue struct {
	ID     string      `json:"id"`
	Key    string      `json:"key"`
	Fields IssueFields `json:"fields"`
}

// IssueFields holds the standard fields the synchronizer reads. Custom
// fields are kept raw, keyed by id, since their shape is instance specific.
type IssueFields struct {
	Summary        string       `json:"summary"`
	Description    *string      `json:"description"`
	Created        string       `json:"created"`
	Updated        string       `json:"updated"`
	DueDate        string       `json:"duedate"`
	ResolutionDate string       `json:"resolutiondate"`
	Labels         []string     `json:"labels"`
	FixVersions    []FixVersion `json:"fixVersions"`
	Components     []Named      `json:"components"`
	IssueType      *Named       `json:"issuetype"`
	Status         *Named       `json:"status"`
	Subtasks       []Subtask    `json:"subtasks"`
	Parent         *ParentRef   `json:"parent"`

	Custom map[string]json.RawMessage `json:"-"`
}

// Named is any Jira object identified by a display name
type Named struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
}

// FixVersion is a project version an issue is planned for
type FixVersion struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Released    bool   `json:"released"`
	ReleaseDate string `json:"releaseDate"`
}

// Subtask is the summary view of a child issue embedded in its parent
type Subtask struct {
	ID     string `json:"id"`
	Key    string `json:"key"`
	Fields struct {
		Summary string `json:"summary"`
		Status  *Named `json:"status"`
	} `json:"fields"`
}

// ParentRef points a sub-task at its parent issue
type ParentRef struct {
	ID  string `json:"id"`
	Key string `json:"key"`
}

// CascadingSelect is the value of a cascading select custom field
type CascadingSelect struct {
	Value string `json:"value"`
	Child *struct {
		Value string `json:"value"`
	} `json:"child"`
}

// ChildValue returns the second level value, or "" when there is none
func (c *CascadingSelect) ChildValue() string {
	if c == nil || c.Child == nil {
		return ""
	}
	return c.Child.Value
}

const customFieldPrefix = "customfield_"

// UnmarshalJSON decodes the standard fields and keeps every custom field
func (f *IssueFields) UnmarshalJSON(data []byte) error {
	type plain IssueFields
	var std plain
	if err := json.Unmarshal(data, &std); err != nil {
		return err
	}

	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}

	*f = IssueFields(std)
	f.Custom = make(map[string]json.RawMessage)
	for k, v := range all {
		if strings.HasPrefix(k, customFieldPrefix) && !isNull(v) {
			f.Custom[k] = v
		}
	}
	return nil
}

// CustomText returns a custom field as text. Strings are returned as is;
// option and user objects yield their value, display name or name; arrays
// are joined with ", ". Absent and null fields return nil.
func (f *IssueFields) CustomText(id string) *string {
	raw, ok := f.Custom[id]
	if !ok {
		return nil
	}
	text, ok := rawText(raw)
	if !ok {
		return nil
	}
	return &text
}

// CustomCascade decodes a cascading select custom field. Absent, null and
// undecodable fields return nil.
func (f *IssueFields) CustomCascade(id string) *CascadingSelect {
	raw, ok := f.Custom[id]
	if !ok {
		return nil
	}
	var c CascadingSelect
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil
	}
	return &c
}

// StatusName returns the status name or nil when the issue has none
func (f *IssueFields) StatusName() *string {
	if f.Status == nil || f.Status.Name == "" {
		return nil
	}
	name := f.Status.Name
	return &name
}

func rawText(raw json.RawMessage) (string, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || isNull(raw) {
		return "", false
	}

	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", false
		}
		return s, true
	case '{':
		var obj struct {
			Value       string `json:"value"`
			DisplayName string `json:"displayName"`
			Name        string `json:"name"`
		}
		if err := json.Unmarshal(raw, &obj); err != nil {
			return "", false
		}
		for _, s := range []string{obj.Value, obj.DisplayName, obj.Name} {
			if s != "" {
				return s, true
			}
		}
		return "", false
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return "", false
		}
		var parts []string
		for _, item := range items {
			if s, ok := rawText(item); ok {
				parts = append(parts, s)
			}
		}
		if len(parts) == 0 {
			return "", false
		}
		return strings.Join(parts, ", "), true
	default:
		s := string(raw)
		if _, err := strconv.ParseFloat(s, 64); err == nil {
			return s, true
		}
		if b, err := strconv.ParseBool(s); err == nil {
			return strconv.FormatBool(b), true
		}
		return "", false
	}
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
