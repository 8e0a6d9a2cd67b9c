package transfer

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/danexplore/JiraSQL/pkg/config"
	"github.com/danexplore/JiraSQL/pkg/connector"
	"github.com/danexplore/JiraSQL/pkg/model"
	"github.com/danexplore/JiraSQL/pkg/store"
)

func newVerifierStore(t *testing.T) (*store.Engine, *sqlx.DB) {
	t.Helper()
	conn, err := connector.NewStoreConnector(context.Background(), &config.StoreConfig{
		Driver:      config.DriverSQLite,
		SQLitePath:  filepath.Join(t.TempDir(), "store.db"),
		PingTimeout: 5 * time.Second,
	})
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	engine, err := store.NewEngine(conn.DB(), store.WithLogger(zap.NewNop()))
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}
	return engine, conn.DB()
}

func date(t *testing.T, s string) model.Date {
	t.Helper()
	d, err := model.ParseDate(s)
	if err != nil {
		t.Fatalf("Invalid date %q: %v", s, err)
	}
	return d
}

func issueTypes(report *VerificationReport) map[string]int64 {
	found := make(map[string]int64)
	for _, issue := range report.IntegrityIssues {
		found[issue.IssueType] = issue.AffectedRows
	}
	return found
}

func TestVerifyIssues(t *testing.T) {
	engine, db := newVerifierStore(t)
	ctx := context.Background()

	coordinator := "Ana Souza"
	items := []model.WorkItem{
		{
			Key: "PROC-1", Link: "l1", Updated: date(t, "2025-07-10"),
			LaunchCode: string(model.LaunchNoForecast), LaunchStatus: model.LaunchNoForecast,
			ItemType: model.ItemTypeComplete, EntityCourse: "CETEC - Enfermagem", Entity: "CETEC",
			Migration: model.MigrationNoVideo, Course: "Enfermagem",
			Coordinator: &coordinator, CanonicalCoordinator: &coordinator,
		},
		{
			Key: "PROC-2", Link: "l2", Updated: date(t, "2025-07-10"),
			LaunchCode: string(model.LaunchNoForecast), LaunchStatus: model.LaunchNoForecast,
			ItemType: model.ItemTypeComplete, EntityCourse: "CEJUR - Direito", Entity: "CEJUR",
			Migration: model.MigrationNoVideo, Course: "Direito",
		},
	}
	if _, err := engine.ApplyWorkItems(ctx, items, store.Scope{}); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	report, err := NewVerifier(db, zap.NewNop()).Verify(ctx, config.KindIssues, store.Scope{})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	found := issueTypes(report)
	if len(found) != 1 || found["course_without_coordinator"] != 1 {
		t.Errorf("Expected only the Direito course without coordinator, got %v", found)
	}
	if report.Passed() {
		t.Error("Expected the report to fail")
	}
}

func TestVerifyDisciplines(t *testing.T) {
	engine, db := newVerifierStore(t)
	ctx := context.Background()

	parent := "PROC-404"
	subtasks := []model.Discipline{{
		Key: "PROC-405", ParentKey: &parent, Link: "l", Updated: date(t, "2025-07-10"),
		Name: "Anatomia", EntityCourse: "Fac. Unyleya | CETEC", Entity: "CETEC",
		Migration: model.MigrationVideo,
	}}
	if _, err := engine.ApplyDisciplines(ctx, subtasks, store.Scope{}); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	verifier := NewVerifier(db, zap.NewNop()).WithTimeout(10 * time.Second)

	report, err := verifier.Verify(ctx, config.KindDisciplines, store.Scope{})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	found := issueTypes(report)
	if found["orphan_subtask"] != 1 || found["unlinked_course"] != 1 {
		t.Errorf("Expected an orphan sub-task without course, got %v", found)
	}
	if _, ok := found["unlinked_coordinator"]; ok {
		t.Errorf("Expected no coordinator finding, got %v", found)
	}

	scoped, err := verifier.Verify(ctx, config.KindDisciplines, store.Scope{Watermark: date(t, "2025-07-11")})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !scoped.Scoped || !scoped.Passed() {
		t.Errorf("Expected a clean scoped report, got %+v", scoped.IntegrityIssues)
	}
}

func TestVerifyUnknownKind(t *testing.T) {
	_, db := newVerifierStore(t)
	if _, err := NewVerifier(db, zap.NewNop()).Verify(context.Background(), "epics", store.Scope{}); err == nil {
		t.Error("Expected an error for an unknown kind")
	}
}
