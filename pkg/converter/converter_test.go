package converter

import (
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/danexplore/JiraSQL/pkg/jira"
	"github.com/danexplore/JiraSQL/pkg/model"
	"github.com/danexplore/JiraSQL/pkg/normalize"
)

func newTestConverter(now time.Time) *IssueConverter {
	return NewIssueConverter(nil, IssueConverterConfig{
		BrowseURL: func(key string) string { return "https://jira.example.com/browse/" + key },
		Now:       func() time.Time { return now },
	})
}

func decodeIssue(t *testing.T, raw string) jira.Issue {
	t.Helper()
	var issue jira.Issue
	if err := json.Unmarshal([]byte(raw), &issue); err != nil {
		t.Fatalf("Failed to decode issue: %v", err)
	}
	return issue
}

func str(p *string) string {
	if p == nil {
		return "<nil>"
	}
	return *p
}

func status(p *model.WorkstreamStatus) string {
	if p == nil {
		return "<nil>"
	}
	return string(*p)
}

func TestConvertIssueEndToEnd(t *testing.T) {
	issue := decodeIssue(t, `{
		"key": "PROC-100",
		"fields": {
			"summary": "Ética Profissional",
			"created": "2025-01-10T09:30:00.000-0300",
			"updated": "2025-06-02T18:00:00.000-0300",
			"duedate": "2025-07-01",
			"labels": ["prioridade"],
			"fixVersions": [
				{"name": "062025-CETEC", "releaseDate": "2025-06-30"},
				{"name": "Extra", "releaseDate": "2025-05-15"}
			],
			"issuetype": {"name": "SR-Completa"},
			"status": {"name": "Em andamento"},
			"customfield_10808": {"value": "Fac. Unyleya | CETEC", "child": {"value": "Course X"}},
			"customfield_10803": "Ana Souza / Bruno Lima",
			"customfield_10804": {"value": "InsBE"},
			"customfield_11303": "123.456.789-00",
			"customfield_10802": {"displayName": "Carla Dias"},
			"subtasks": [
				{"key": "PROC-101", "fields": {"summary": "CONTEÚDO - ENTREGAR", "status": {"name": "Resolvido"}}}
			]
		}
	}`)

	out := newTestConverter(time.Date(2025, 7, 15, 0, 0, 0, 0, time.UTC)).ConvertIssue(issue)
	if out.Skipped() {
		t.Fatalf("Expected a record, got skip %q", out.Reason)
	}
	item := out.Record

	checks := []struct {
		field    string
		got      string
		expected string
	}{
		{"key", item.Key, "PROC-100"},
		{"link", item.Link, "https://jira.example.com/browse/PROC-100"},
		{"entity", item.Entity, "CETEC"},
		{"course", item.Course, "Course X"},
		{"entityCourse", item.EntityCourse, "Fac. Unyleya | CETEC - Course X"},
		{"contentStatus", status(item.ContentStatus), "Fechado"},
		{"contractStatus", status(item.ContractStatus), "<nil>"},
		{"videoStatus", status(item.VideoStatus), "<nil>"},
		{"migration", string(item.Migration), "SV"},
		{"launchCode", item.LaunchCode, "062025"},
		{"year", str(item.LaunchYear), "2025"},
		{"month", str(item.LaunchMonth), "06"},
		{"launchStatus", string(item.LaunchStatus), "Lançado"},
		{"created", item.Created.String(), "2025-01-10"},
		{"updated", item.Updated.String(), "2025-06-02"},
		{"due", item.DueDate.String(), "2025-07-01"},
		{"release", item.ReleaseDate.String(), "2025-05-15"},
		{"labels", str(item.Labels), "prioridade"},
		{"versions", str(item.FixVersions), "062025-CETEC, Extra"},
		{"itemType", string(item.ItemType), "SR-Completa"},
		{"status", str(item.Status), "Em andamento"},
		{"coordinator", str(item.Coordinator), "Ana Souza / Bruno Lima"},
		{"canonical", str(item.CanonicalCoordinator), "Ana Souza"},
		{"master", str(item.CoordinatorMaster), "InsBE"},
		{"cpf", str(item.ContentistaCPF), "123.456.789-00"},
		{"contentista", str(item.Contentista), "Carla Dias"},
		{"description", str(item.Description), "<nil>"},
	}
	for _, c := range checks {
		if c.got != c.expected {
			t.Errorf("Expected %s %q, got %q", c.field, c.expected, c.got)
		}
	}
	if item.CourseID != nil || item.CoordinatorID != nil {
		t.Error("Expected foreign keys to be left for reconciliation")
	}
}

func TestConvertIssueSkipsUndergraduate(t *testing.T) {
	issue := decodeIssue(t, `{
		"key": "PROC-5",
		"fields": {
			"issuetype": {"name": "SR-Completa"},
			"customfield_10808": {"value": "Fac. Unyleya | Graduação", "child": {"value": "Pedagogia"}}
		}
	}`)

	out := newTestConverter(time.Now()).ConvertIssue(issue)
	if !out.Skipped() {
		t.Fatal("Expected the issue to be skipped")
	}
	if out.Reason != normalize.SkipEntityNotAllowed {
		t.Errorf("Expected reason %q, got %q", normalize.SkipEntityNotAllowed, out.Reason)
	}
	if out.Detail != "Fac. Unyleya | Graduação - Pedagogia" {
		t.Errorf("Expected composite as detail, got %q", out.Detail)
	}
}

func TestConvertIssueMigration(t *testing.T) {
	testCases := []struct {
		name     string
		labels   string
		subtask  string
		expected model.Migration
	}{
		{"label wins over video", `["x-SV>CV-y"]`, "VÍDEO - GRAVAR", model.MigrationToVideo},
		{"video sub-task", `[]`, "Vídeo - Gravar: aula 1", model.MigrationVideo},
		{"no video", `[]`, "CONTEÚDO - ENTREGAR", model.MigrationNoVideo},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			issue := decodeIssue(t, `{
				"key": "PROC-9",
				"fields": {
					"labels": `+tc.labels+`,
					"issuetype": {"name": "SR-Modificada"},
					"customfield_10808": {"value": "Fac. Unyleya | CEJUR", "child": {"value": "Direito Penal"}},
					"subtasks": [{"key": "PROC-10", "fields": {"summary": "`+tc.subtask+`", "status": {"name": "Aberto"}}}]
				}
			}`)
			out := newTestConverter(time.Now()).ConvertIssue(issue)
			if out.Skipped() {
				t.Fatalf("Unexpected skip %q", out.Reason)
			}
			if out.Record.Migration != tc.expected {
				t.Errorf("Expected %q, got %q", tc.expected, out.Record.Migration)
			}
		})
	}
}

func TestConvertIssueWithoutForecast(t *testing.T) {
	issue := decodeIssue(t, `{
		"key": "PROC-11",
		"fields": {
			"issuetype": {"name": "SR-Reuso"},
			"fixVersions": [{"name": "Backlog"}],
			"customfield_10808": {"value": "Fac. Unyleya | YVET", "child": {"value": "Clínica"}}
		}
	}`)

	item := newTestConverter(time.Now()).ConvertIssue(issue).Record
	if item == nil {
		t.Fatal("Expected a record")
	}
	if item.LaunchStatus != model.LaunchNoForecast || item.LaunchCode != string(model.LaunchNoForecast) {
		t.Errorf("Expected no forecast, got %q/%q", item.LaunchStatus, item.LaunchCode)
	}
	if item.LaunchYear != nil || item.LaunchMonth != nil {
		t.Error("Expected nil launch year and month")
	}
	if item.ReleaseDate.Valid() || item.Created.Valid() {
		t.Error("Expected absent dates")
	}
	if item.Labels != nil {
		t.Errorf("Expected nil labels, got %q", *item.Labels)
	}
	if status(item.ContentStatus) != string(model.StatusReuse) {
		t.Errorf("Expected REUSO content status, got %s", status(item.ContentStatus))
	}
}

func TestParseLaunch(t *testing.T) {
	now := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	testCases := []struct {
		versions string
		expected model.LaunchStatus
		code     string
	}{
		{"062025-CETEC", model.LaunchLaunched, "062025"},
		{"072025-CETEC", model.LaunchLaunched, "072025"},
		{"082025-CETEC", model.LaunchUpcoming, "082025"},
		{"122024-YVET", model.LaunchLaunched, "122024"},
		{"012026-YVET", model.LaunchUpcoming, "012026"},
		{"Backlog, 092025-CEJUR", model.LaunchUpcoming, "092025"},
		{"062025-cetec", model.LaunchNoForecast, ""},
		{"", model.LaunchNoForecast, ""},
	}

	for _, tc := range testCases {
		launch := ParseLaunch(tc.versions, now)
		if launch.Status != tc.expected || launch.Code != tc.code {
			t.Errorf("Expected %q/%q for %q, got %q/%q", tc.expected, tc.code, tc.versions, launch.Status, launch.Code)
		}
	}

	boundary := ParseLaunch("062025-CETEC", now)
	if boundary.Year != "2025" || boundary.Month != "06" {
		t.Errorf("Expected year 2025 month 06, got %s/%s", boundary.Year, boundary.Month)
	}
}

func TestConvertSubtask(t *testing.T) {
	issue := decodeIssue(t, `{
		"key": "PROC-201",
		"fields": {
			"parent": {"key": "PROC-200"},
			"summary": "Ética Profissional: Conteúdo - Entregar",
			"created": "2025-02-01T08:00:00.000-0300",
			"updated": "2025-02-03T08:00:00.000-0300",
			"resolutiondate": "2025-02-03T07:59:00.000-0300",
			"components": [{"name": "VÍDEO - GRAVAR"}],
			"status": {"name": "Resolvido"},
			"labels": ["a", "b"],
			"customfield_10808": {"value": "Fac. Unyleya | Pós-Graduação"},
			"customfield_10803": "Coord. Geral dos Cursos em Direito / Outro"
		}
	}`)

	out := newTestConverter(time.Now()).ConvertSubtask(issue)
	if out.Skipped() {
		t.Fatalf("Unexpected skip %q", out.Reason)
	}
	d := out.Record

	checks := []struct {
		field    string
		got      string
		expected string
	}{
		{"name", d.Name, "Ética Profissional"},
		{"parent", str(d.ParentKey), "PROC-200"},
		{"kind", str(d.Kind), "VÍDEO"},
		{"course", str(d.Course), "<nil>"},
		{"entity", d.Entity, "Pós-Graduação"},
		{"migration", string(d.Migration), "SV"},
		{"resolution", d.ResolutionDate.String(), "2025-02-03"},
		{"labels", str(d.Labels), "a, b"},
		{"canonical", str(d.CanonicalCoordinator), "Coordenação Geral dos Cursos de Direito"},
		{"status", str(d.Status), "Resolvido"},
	}
	for _, c := range checks {
		if c.got != c.expected {
			t.Errorf("Expected %s %q, got %q", c.field, c.expected, c.got)
		}
	}
}

func TestConvertSubtaskWithCourseAndNoComponents(t *testing.T) {
	issue := decodeIssue(t, `{
		"key": "PROC-301",
		"fields": {
			"summary": "Direito Civil",
			"customfield_10808": {"value": "Fac. Unyleya | CEJUR", "child": {"value": "Direito"}}
		}
	}`)

	d := newTestConverter(time.Now()).ConvertSubtask(issue).Record
	if d == nil {
		t.Fatal("Expected a record")
	}
	if str(d.Course) != "Direito" || d.Kind != nil || d.ParentKey != nil {
		t.Errorf("Unexpected record %+v", d)
	}
	if d.Migration != model.MigrationVideo {
		t.Errorf("Expected CV, got %q", d.Migration)
	}
}

func TestConvertSubtaskSkipsUnknownEntity(t *testing.T) {
	issue := decodeIssue(t, `{"key": "PROC-401", "fields": {"summary": "x"}}`)
	out := newTestConverter(time.Now()).ConvertSubtask(issue)
	if !out.Skipped() || out.Reason != normalize.SkipMissingEntityCourse {
		t.Errorf("Expected skip for missing entity course, got %+v", out)
	}
}
