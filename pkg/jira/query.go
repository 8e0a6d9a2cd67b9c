// pkg/jira/query.go
package jira

import (
	"regexp"
	"strings"

	"github.com/danexplore/JiraSQL/pkg/config"
	"github.com/danexplore/JiraSQL/pkg/model"
)

// Query is a search request: the JQL filter, the fields to return and the
// page size
type Query struct {
	JQL      string
	Fields   []string
	PageSize int
}

// JQL builds a conjunction of clauses
type JQL struct {
	clauses []string
	orderBy string
}

// NewJQL starts an empty filter
func NewJQL() *JQL {
	return &JQL{}
}

// Equals adds "field = value"
func (j *JQL) Equals(field, value string) *JQL {
	j.clauses = append(j.clauses, quote(field)+" = "+quote(value))
	return j
}

// NotEquals adds "field != value"
func (j *JQL) NotEquals(field, value string) *JQL {
	j.clauses = append(j.clauses, quote(field)+" != "+quote(value))
	return j
}

// In adds "field in (v1, v2, ...)"
func (j *JQL) In(field string, values ...string) *JQL {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = quote(v)
	}
	j.clauses = append(j.clauses, quote(field)+" in ("+strings.Join(quoted, ", ")+")")
	return j
}

// OnOrAfter adds `field >= "YYYY-MM-DD"`; an absent date adds nothing
func (j *JQL) OnOrAfter(field string, d model.Date) *JQL {
	if !d.Valid() {
		return j
	}
	j.clauses = append(j.clauses, quote(field)+` >= "`+d.String()+`"`)
	return j
}

// OrderBy sets the sort clause, e.g. OrderBy("duedate", "DESC")
func (j *JQL) OrderBy(field, direction string) *JQL {
	j.orderBy = quote(field) + " " + direction
	return j
}

func (j *JQL) String() string {
	s := strings.Join(j.clauses, " AND ")
	if j.orderBy != "" {
		s += " ORDER BY " + j.orderBy
	}
	return s
}

var bareWord = regexp.MustCompile(`^[A-Za-z0-9_\-]+$`)

func quote(s string) string {
	if bareWord.MatchString(s) {
		return s
	}
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return `"` + s + `"`
}

// Sub-task components tracked as disciplines
var disciplineComponents = []string{"CONTEÚDO - ENTREGAR", "VÍDEO - GRAVAR"}

const (
	entityCourseFieldName = "Entidade e Curso"
	undergraduateValue    = "Fac. Unyleya | Graduação"
	baseDueDate           = "2020-01-01"
)

// IssueQuery selects production tickets updated on or after since. An
// absent since selects every ticket.
func IssueQuery(cfg *config.JiraConfig, since model.Date) Query {
	due, _ := model.ParseDate(baseDueDate)

	itemTypes := make([]string, len(model.ItemTypes))
	for i, t := range model.ItemTypes {
		itemTypes[i] = string(t)
	}

	jql := NewJQL().
		Equals("project", cfg.Project).
		In("issuetype", itemTypes...).
		OnOrAfter("due", due).
		OnOrAfter("updated", since).
		OrderBy("duedate", "DESC")

	return Query{
		JQL: jql.String(),
		Fields: append([]string{
			"summary", "description", "created", "updated", "duedate",
			"labels", "fixVersions", "issuetype", "status", "subtasks",
		}, customFieldIDs(cfg.Fields)...),
		PageSize: cfg.PageSize,
	}
}

// DisciplineQuery selects content and video sub-tasks updated on or after
// since. An absent since selects every sub-task.
func DisciplineQuery(cfg *config.JiraConfig, since model.Date) Query {
	jql := NewJQL().
		Equals("project", cfg.Project).
		NotEquals(entityCourseFieldName, undergraduateValue).
		Equals("issuetype", "Sub-task").
		In("component", disciplineComponents...).
		OnOrAfter("updated", since).
		OrderBy("duedate", "DESC")

	return Query{
		JQL: jql.String(),
		Fields: append([]string{
			"parent", "summary", "created", "updated", "resolutiondate",
			"duedate", "labels", "components", "issuetype", "status",
		}, customFieldIDs(cfg.Fields)...),
		PageSize: cfg.PageSize,
	}
}

func customFieldIDs(f config.CustomFields) []string {
	var ids []string
	for _, id := range []string{f.EntityCourse, f.Coordinator, f.CoordinatorMaster, f.ContentistaCPF, f.Contentista} {
		if id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}
