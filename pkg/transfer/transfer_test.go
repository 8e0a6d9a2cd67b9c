package transfer

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/danexplore/JiraSQL/pkg/checkpoint"
	"github.com/danexplore/JiraSQL/pkg/config"
	"github.com/danexplore/JiraSQL/pkg/connector"
	"github.com/danexplore/JiraSQL/pkg/converter"
	"github.com/danexplore/JiraSQL/pkg/jira"
	"github.com/danexplore/JiraSQL/pkg/model"
	"github.com/danexplore/JiraSQL/pkg/normalize"
	"github.com/danexplore/JiraSQL/pkg/store"
)

var testNow = time.Date(2025, 7, 15, 12, 0, 0, 0, time.UTC)

const ticketJSON = `{
	"key": "PROC-100",
	"fields": {
		"summary": "Ética Profissional",
		"created": "2025-01-10T09:30:00.000-0300",
		"updated": "2025-06-02T18:00:00.000-0300",
		"duedate": "2025-07-01",
		"issuetype": {"name": "SR-Completa"},
		"status": {"name": "Em andamento"},
		"customfield_10808": {"value": "Fac. Unyleya | CETEC", "child": {"value": "Enfermagem"}},
		"customfield_10803": "Ana Souza / Bruno Lima",
		"customfield_10804": {"value": "InsBE"}
	}
}`

const undergraduateJSON = `{
	"key": "PROC-101",
	"fields": {
		"summary": "Cálculo I",
		"issuetype": {"name": "SR-Completa"},
		"customfield_10808": {"value": "Fac. Unyleya | Graduação", "child": {"value": "Engenharia"}}
	}
}`

const subtaskJSON = `{
	"key": "PROC-150",
	"fields": {
		"parent": {"key": "PROC-100"},
		"summary": "Anatomia: Conteúdo - Entregar",
		"updated": "2025-06-03T08:00:00.000-0300",
		"components": [{"name": "CONTEÚDO - ENTREGAR"}],
		"status": {"name": "Resolvido"},
		"customfield_10808": {"value": "Fac. Unyleya | CETEC"},
		"customfield_10803": "Ana Souza"
	}
}`

func page(issues ...string) string {
	return fmt.Sprintf(`{"startAt":0,"maxResults":50,"total":%d,"issues":[%s]}`, len(issues), strings.Join(issues, ","))
}

// fakeJira answers issue and sub-task searches and records every JQL
type fakeJira struct {
	mu       sync.Mutex
	queries  []string
	issues   string
	subtasks string
	status   int
}

func (f *fakeJira) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	jql := r.URL.Query().Get("jql")
	f.mu.Lock()
	f.queries = append(f.queries, jql)
	f.mu.Unlock()

	if f.status != 0 {
		w.WriteHeader(f.status)
		return
	}
	if strings.Contains(jql, "Sub-task") {
		fmt.Fprint(w, f.subtasks)
		return
	}
	fmt.Fprint(w, f.issues)
}

func (f *fakeJira) JQL() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.queries...)
}

type testEnv struct {
	manager *Manager
	db      *sqlx.DB
	cfg     *config.Config
	dir     string
	jira    *fakeJira
}

func newTestEnv(t *testing.T, fake *fakeJira) *testEnv {
	t.Helper()
	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)

	dir := t.TempDir()
	cfg := &config.Config{
		Jira: &config.JiraConfig{
			BaseURL:        server.URL,
			Cookie:         "JSESSIONID=test",
			Project:        "PROCONTEUD",
			PageSize:       50,
			RetryAttempts:  2,
			RetryDelay:     time.Millisecond,
			RequestTimeout: 5 * time.Second,
			Fields:         config.DefaultCustomFields(),
		},
		Store: &config.StoreConfig{
			Driver:      config.DriverSQLite,
			SQLitePath:  filepath.Join(dir, "store.db"),
			PingTimeout: 5 * time.Second,
		},
		Sync: &config.SyncConfig{
			CheckpointDir:   dir,
			Kinds:           []string{config.KindIssues, config.KindDisciplines},
			MetricsTextfile: filepath.Join(dir, "jirasync.prom"),
			Location:        time.UTC,
		},
	}

	conn, err := connector.NewStoreConnector(context.Background(), cfg.Store)
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	client, err := jira.NewClient(cfg.Jira)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	logger := zap.NewNop()
	metrics := NewSyncMetrics(logger)
	engine, err := store.NewEngine(conn.DB(), store.WithLogger(logger), store.WithStageObserver(metrics.ObserveStage))
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}

	manager := NewManager(Deps{
		Config:      cfg,
		Source:      client,
		Store:       engine,
		Verifier:    NewVerifier(conn.DB(), logger),
		Checkpoints: checkpoint.NewFileStore(dir),
		Converter: converter.NewIssueConverter(logger, converter.IssueConverterConfig{
			BrowseURL: client.BrowseURL,
			Now:       func() time.Time { return testNow },
		}),
		Metrics: metrics,
		Logger:  logger,
		Now:     func() time.Time { return testNow },
	})

	return &testEnv{manager: manager, db: conn.DB(), cfg: cfg, dir: dir, jira: fake}
}

func (e *testEnv) checkpoint(t *testing.T, kind string) (string, bool) {
	t.Helper()
	d, ok, err := checkpoint.NewFileStore(e.dir).Read(kind)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	return d.String(), ok
}

func TestRunSynchronizesBothKinds(t *testing.T) {
	env := newTestEnv(t, &fakeJira{
		issues:   page(ticketJSON, undergraduateJSON),
		subtasks: page(subtaskJSON),
	})

	summary, err := env.manager.Run(context.Background(), RunOptions{})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !summary.Succeeded() || len(summary.Results) != 2 {
		t.Fatalf("Expected two successful results, got %+v", summary.Results)
	}

	issues := summary.Results[0]
	if issues.Kind != config.KindIssues || issues.Fetched != 2 || issues.Converted != 1 {
		t.Errorf("Unexpected issues result %+v", issues)
	}
	if issues.Skipped[string(normalize.SkipEntityNotAllowed)] != 1 {
		t.Errorf("Expected one entity_not_allowed skip, got %v", issues.Skipped)
	}
	if len(summary.Rejections) != 1 || summary.Rejections[0].IssueKey != "PROC-101" {
		t.Errorf("Expected PROC-101 rejected, got %+v", summary.Rejections)
	}

	var course string
	if err := env.db.Get(&course, "SELECT curso FROM db_dpc_jira_disciplinas WHERE chave = 'PROC-150'"); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if course != "Enfermagem" {
		t.Errorf("Expected sub-task to inherit the parent course, got %q", course)
	}

	for _, kind := range []string{config.KindIssues, config.KindDisciplines} {
		if got, ok := env.checkpoint(t, kind); !ok || got != "2025-07-15" {
			t.Errorf("Expected %s checkpoint 2025-07-15, got %q", kind, got)
		}
	}

	for _, jql := range env.jira.JQL() {
		if strings.Contains(jql, "updated >=") {
			t.Errorf("Expected no watermark on a first run, got %s", jql)
		}
	}

	metrics, err := os.ReadFile(env.cfg.Sync.MetricsTextfile)
	if err != nil {
		t.Fatalf("Expected metrics textfile: %v", err)
	}
	if !strings.Contains(string(metrics), `jirasync_issues_fetched_total{kind="issues"} 2`) {
		t.Errorf("Expected fetched counter in textfile, got:\n%s", metrics)
	}
}

func TestRunSkipsKindsAlreadySynchronizedToday(t *testing.T) {
	env := newTestEnv(t, &fakeJira{issues: page(ticketJSON), subtasks: page()})

	checkpoints := checkpoint.NewFileStore(env.dir)
	today, _ := model.ParseDate("2025-07-15")
	if err := checkpoints.Write(config.KindIssues, today); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	summary, err := env.manager.Run(context.Background(), RunOptions{})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !summary.Results[0].AlreadySynced {
		t.Error("Expected issues to be skipped as already synchronized")
	}
	if summary.Results[1].AlreadySynced {
		t.Error("Expected disciplinas to run")
	}
	if n := len(env.jira.JQL()); n != 1 {
		t.Errorf("Expected a single search, got %d", n)
	}

	summary, err = env.manager.Run(context.Background(), RunOptions{Kinds: []string{config.KindIssues}, Force: true})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if summary.Results[0].AlreadySynced || summary.Results[0].Converted != 1 {
		t.Errorf("Expected a forced run to synchronize, got %+v", summary.Results[0])
	}
}

func TestRunUsesCheckpointAsWatermark(t *testing.T) {
	env := newTestEnv(t, &fakeJira{issues: page(ticketJSON), subtasks: page()})

	yesterday, _ := model.ParseDate("2025-07-14")
	if err := checkpoint.NewFileStore(env.dir).Write(config.KindIssues, yesterday); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	opts := RunOptions{Kinds: []string{config.KindIssues}}
	summary, err := env.manager.Run(context.Background(), opts)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if summary.Results[0].Since != "2025-07-14" {
		t.Errorf("Expected watermark 2025-07-14, got %q", summary.Results[0].Since)
	}
	if jql := env.jira.JQL()[0]; !strings.Contains(jql, `updated >= "2025-07-14"`) {
		t.Errorf("Expected watermark in JQL, got %s", jql)
	}

	opts.Full, opts.Force = true, true
	if _, err := env.manager.Run(context.Background(), opts); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if jql := env.jira.JQL()[1]; strings.Contains(jql, "updated >=") {
		t.Errorf("Expected a full run without watermark, got %s", jql)
	}
}

func TestDryRunWritesNothing(t *testing.T) {
	env := newTestEnv(t, &fakeJira{issues: page(ticketJSON), subtasks: page(subtaskJSON)})

	summary, err := env.manager.Run(context.Background(), RunOptions{DryRun: true})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if summary.Results[0].Converted != 1 || summary.Results[1].Converted != 1 {
		t.Errorf("Expected records converted, got %+v", summary.Results)
	}

	for _, kind := range []string{config.KindIssues, config.KindDisciplines} {
		if _, ok := env.checkpoint(t, kind); ok {
			t.Errorf("Expected no %s checkpoint after a dry run", kind)
		}
	}

	var tables int
	if err := env.db.Get(&tables, "SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'db_dpc_jira'"); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if tables != 0 {
		t.Error("Expected the store untouched by a dry run")
	}
}

func TestRunAbortsOnTransportFailure(t *testing.T) {
	env := newTestEnv(t, &fakeJira{status: http.StatusBadGateway})

	summary, err := env.manager.Run(context.Background(), RunOptions{})
	if err == nil {
		t.Fatal("Expected an error")
	}
	if CategorizeError(err) != ErrorCategoryTransientTransport {
		t.Errorf("Expected TransientTransport, got %s", CategorizeError(err))
	}

	var retryErr *jira.RetryError
	if !errors.As(err, &retryErr) || retryErr.Attempts != 2 {
		t.Errorf("Expected RetryError after 2 attempts, got %v", err)
	}
	if len(summary.Results) != 1 || summary.Results[0].Success {
		t.Errorf("Expected the run to stop at the failed kind, got %+v", summary.Results)
	}
	if _, ok := env.checkpoint(t, config.KindIssues); ok {
		t.Error("Expected no checkpoint after a failed run")
	}
	if summary.ErrorCategories[ErrorCategoryTransientTransport.String()] != 1 {
		t.Errorf("Expected one transport error, got %v", summary.ErrorCategories)
	}
}

func TestTruncatedResultKeepsCheckpoint(t *testing.T) {
	env := newTestEnv(t, &fakeJira{issues: `{"startAt":0,"total":5}`, subtasks: page()})

	summary, err := env.manager.Run(context.Background(), RunOptions{Kinds: []string{config.KindIssues}})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	result := summary.Results[0]
	if !result.Success || !result.Truncated {
		t.Errorf("Expected a successful truncated run, got %+v", result)
	}
	if _, ok := env.checkpoint(t, config.KindIssues); ok {
		t.Error("Expected the checkpoint not to advance past a truncated result")
	}
}

func TestOrderKinds(t *testing.T) {
	testCases := []struct {
		name     string
		kinds    []string
		expected []string
		wantErr  bool
	}{
		{name: "dependency order", kinds: []string{"disciplinas", "issues"}, expected: []string{"issues", "disciplinas"}},
		{name: "duplicates", kinds: []string{"issues", "issues"}, expected: []string{"issues"}},
		{name: "unknown", kinds: []string{"epics"}, wantErr: true},
		{name: "empty", kinds: nil, wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := orderKinds(tc.kinds)
			if (err != nil) != tc.wantErr {
				t.Fatalf("Expected error %v, got %v", tc.wantErr, err)
			}
			if !tc.wantErr && strings.Join(got, ",") != strings.Join(tc.expected, ",") {
				t.Errorf("Expected %v, got %v", tc.expected, got)
			}
		})
	}
}

// failingApplier fails every work item batch at the fact upsert
type failingApplier struct {
	workItemCalls   int
	disciplineCalls int
}

func (a *failingApplier) ApplyWorkItems(ctx context.Context, items []model.WorkItem, scope store.Scope) (*store.ApplyResult, error) {
	a.workItemCalls++
	return nil, &store.StageError{Stage: store.StageUpsertFacts, Err: errors.New("duplicate key")}
}

func (a *failingApplier) ApplyDisciplines(ctx context.Context, items []model.Discipline, scope store.Scope) (*store.ApplyResult, error) {
	a.disciplineCalls++
	return &store.ApplyResult{Records: len(items)}, nil
}

func TestRunKeepsCheckpointOnPersistenceFailure(t *testing.T) {
	env := newTestEnv(t, &fakeJira{issues: page(ticketJSON), subtasks: page(subtaskJSON)})
	applier := &failingApplier{}
	env.manager.store = applier

	summary, err := env.manager.Run(context.Background(), RunOptions{})
	if err == nil {
		t.Fatal("Expected an error")
	}
	if got := CategorizeError(err); got != ErrorCategoryPersistenceFailure {
		t.Errorf("Expected PersistenceFailure, got %s", got)
	}

	var stageErr *store.StageError
	if !errors.As(err, &stageErr) || stageErr.Stage != store.StageUpsertFacts {
		t.Errorf("Expected StageError at %s, got %v", store.StageUpsertFacts, err)
	}

	path, _ := checkpoint.NewFileStore(env.dir).Path(config.KindIssues)
	if _, statErr := os.Stat(path); !os.IsNotExist(statErr) {
		t.Errorf("Expected no checkpoint file at %s, got %v", path, statErr)
	}

	if applier.workItemCalls != 1 || applier.disciplineCalls != 0 {
		t.Errorf("Expected disciplinas not attempted, got %d/%d calls", applier.workItemCalls, applier.disciplineCalls)
	}
	for _, jql := range env.jira.JQL() {
		if strings.Contains(jql, "Sub-task") {
			t.Errorf("Expected no sub-task search, got %s", jql)
		}
	}
	if len(summary.Results) != 1 || summary.Results[0].Success {
		t.Errorf("Expected a single failed result, got %+v", summary.Results)
	}
	if summary.ErrorCategories[ErrorCategoryPersistenceFailure.String()] != 1 {
		t.Errorf("Expected one persistence error, got %v", summary.ErrorCategories)
	}
}
