package transfer

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/danexplore/JiraSQL/pkg/checkpoint"
	"github.com/danexplore/JiraSQL/pkg/config"
	"github.com/danexplore/JiraSQL/pkg/converter"
	"github.com/danexplore/JiraSQL/pkg/jira"
	"github.com/danexplore/JiraSQL/pkg/model"
	"github.com/danexplore/JiraSQL/pkg/store"
)

// IssueSource searches the issue tracker
type IssueSource interface {
	Search(ctx context.Context, q jira.Query, progress jira.ProgressFunc) *jira.IssueIterator
}

// Applier writes converted batches to the relational store
type Applier interface {
	ApplyWorkItems(ctx context.Context, items []model.WorkItem, scope store.Scope) (*store.ApplyResult, error)
	ApplyDisciplines(ctx context.Context, items []model.Discipline, scope store.Scope) (*store.ApplyResult, error)
}

// Deps holds the collaborators of a Manager
type Deps struct {
	Config      *config.Config
	Source      IssueSource
	Store       Applier
	Verifier    *Verifier // optional
	Checkpoints *checkpoint.FileStore
	Converter   *converter.IssueConverter
	Metrics     *SyncMetrics     // created when nil
	Logger      *zap.Logger      // zap.L() when nil
	Now         func() time.Time // time.Now when nil
}

// RunOptions selects what a run does
type RunOptions struct {
	Kinds  []string // record kinds; the configured kinds when empty
	Force  bool     // run even if already synchronized today
	Full   bool     // ignore checkpoints and reconcile every row
	DryRun bool     // fetch and convert, write nothing
}

// Manager orchestrates the synchronization of every record kind: fetch
// since the checkpoint, convert, apply, verify, advance the checkpoint
type Manager struct {
	cfg          *config.Config
	source       IssueSource
	store        Applier
	verifier     *Verifier
	checkpoints  *checkpoint.FileStore
	converter    *converter.IssueConverter
	errorHandler *ErrorHandler
	metrics      *SyncMetrics
	logger       *zap.Logger
	now          func() time.Time
}

// NewManager creates a new manager
func NewManager(deps Deps) *Manager {
	logger := deps.Logger
	if logger == nil {
		logger = zap.L().Named("transfer")
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	metrics := deps.Metrics
	if metrics == nil {
		metrics = NewSyncMetrics(logger)
	}

	return &Manager{
		cfg:          deps.Config,
		source:       deps.Source,
		store:        deps.Store,
		verifier:     deps.Verifier,
		checkpoints:  deps.Checkpoints,
		converter:    deps.Converter,
		errorHandler: NewErrorHandler(logger, deps.Config.Jira.StrictPagination),
		metrics:      metrics,
		logger:       logger,
		now:          now,
	}
}

// Run synchronizes the requested kinds in dependency order and stops at
// the first failed kind
func (m *Manager) Run(ctx context.Context, opts RunOptions) (*SyncSummary, error) {
	requested := opts.Kinds
	if len(requested) == 0 {
		requested = m.cfg.Sync.Kinds
	}
	kinds, err := orderKinds(requested)
	if err != nil {
		return nil, err
	}

	m.logger.Info("Starting synchronization",
		zap.Strings("kinds", kinds),
		zap.Bool("force", opts.Force),
		zap.Bool("full", opts.Full),
		zap.Bool("dryRun", opts.DryRun))

	summary := NewSyncSummary()
	today := m.today()

	var runErr error
	for _, kind := range kinds {
		job := NewSyncJob(kind, today).WithOptions(opts)

		result, err := m.RunJob(ctx, job)
		summary.AddResult(*result)
		m.metrics.RecordResult(*result)
		if err != nil {
			runErr = err
			break
		}
	}

	summary.Complete(m.errorHandler)
	m.finish(summary)
	return summary, runErr
}

// RunJob synchronizes one record kind
func (m *Manager) RunJob(ctx context.Context, job SyncJob) (*SyncResult, error) {
	result := NewSyncResult(job)
	logger := m.logger.With(zap.String("kind", job.Kind), zap.String("jobID", job.ID))

	if !job.Force {
		synced, err := m.checkpoints.SyncedOn(job.Kind, job.Today)
		if err != nil {
			return m.fail(result, fmt.Errorf("failed to read checkpoint: %w", err))
		}
		if synced {
			logger.Info("Already synchronized today, skipping", zap.String("today", job.Today.String()))
			result.AlreadySynced = true
			result.Complete(true)
			return result, nil
		}
	}

	if !job.Full {
		since, ok, err := m.checkpoints.Read(job.Kind)
		if err != nil {
			return m.fail(result, fmt.Errorf("failed to read checkpoint: %w", err))
		}
		if ok {
			job = job.WithSince(since)
			result.Since = since.String()
		}
	}

	logger.Info("Fetching issues",
		zap.String("since", job.Since.String()),
		zap.Bool("full", !job.Since.Valid()))

	var apply func() (*store.ApplyResult, error)
	switch job.Kind {
	case config.KindIssues:
		items, err := collect(ctx, m, job, result, jira.IssueQuery(m.cfg.Jira, job.Since), m.converter.ConvertIssue)
		if err != nil {
			return m.fail(result, fmt.Errorf("failed to fetch issues: %w", err))
		}
		apply = func() (*store.ApplyResult, error) {
			return m.store.ApplyWorkItems(ctx, items, job.Scope())
		}
	case config.KindDisciplines:
		items, err := collect(ctx, m, job, result, jira.DisciplineQuery(m.cfg.Jira, job.Since), m.converter.ConvertSubtask)
		if err != nil {
			return m.fail(result, fmt.Errorf("failed to fetch disciplines: %w", err))
		}
		apply = func() (*store.ApplyResult, error) {
			return m.store.ApplyDisciplines(ctx, items, job.Scope())
		}
	default:
		return m.fail(result, fmt.Errorf("unknown record kind %q", job.Kind))
	}

	logger.Info("Issues converted",
		zap.Int("fetched", result.Fetched),
		zap.Int("converted", result.Converted),
		zap.Int("skipped", result.SkippedTotal()))

	if job.DryRun {
		logger.Info("Dry run, nothing written")
		result.Complete(true)
		return result, nil
	}

	applied, err := apply()
	if err != nil {
		return m.fail(result, fmt.Errorf("failed to apply %s: %w", job.Kind, err))
	}
	result.Applied = applied
	m.metrics.RecordUpserted(job.Kind, applied.Records)

	if m.verifier != nil {
		report, err := m.verifier.Verify(ctx, job.Kind, job.Scope())
		if err != nil {
			logger.Warn("Verification failed", zap.Error(err))
		} else {
			result.Verification = report
		}
	}

	if result.Truncated {
		logger.Warn("Result set was truncated, checkpoint not advanced")
	} else if err := m.checkpoints.Write(job.Kind, job.Today); err != nil {
		return m.fail(result, fmt.Errorf("failed to write checkpoint: %w", err))
	}

	result.Complete(true)
	logger.Info("Synchronization completed",
		zap.Int("records", applied.Records),
		zap.Int("courses", applied.Courses),
		zap.Int("coordinators", applied.Coordinators),
		zap.Duration("duration", result.Duration))

	return result, nil
}

// collect walks a search, converting every issue and counting the skipped
// ones. A truncated result set is kept, and flagged on result.
func collect[T any](
	ctx context.Context,
	m *Manager,
	job SyncJob,
	result *SyncResult,
	q jira.Query,
	convert func(jira.Issue) converter.Outcome[T],
) ([]T, error) {
	it := m.source.Search(ctx, q, m.progress(job.Kind))

	var records []T
	for it.Next() {
		issue := it.Issue()
		result.Fetched++

		outcome := convert(issue)
		if outcome.Skipped() {
			reason := string(outcome.Reason)
			result.Skipped[reason]++
			m.metrics.RecordSkipped(job.Kind, reason)
			m.errorHandler.RecordRejection(model.Rejection{
				Kind:       job.Kind,
				IssueKey:   issue.Key,
				Reason:     reason,
				Detail:     outcome.Detail,
				RejectedAt: m.now(),
			})
			continue
		}
		records = append(records, *outcome.Record)
	}

	result.Total = it.Total()
	m.metrics.RecordFetched(job.Kind, result.Fetched)

	if err := it.Err(); err != nil {
		return nil, err
	}

	if err := it.Truncated(); err != nil {
		record := NewErrorRecord(err, ErrorCategoryMalformedResponse).WithKind(job.Kind)
		result.AddError(record)
		m.metrics.RecordError(record.Category)
		if m.errorHandler.HandleError(record) == ActionAbort {
			return nil, err
		}
		result.Truncated = true
	}

	result.Converted = len(records)
	return records, nil
}

func (m *Manager) progress(kind string) jira.ProgressFunc {
	return func(fetched, total int) {
		m.logger.Info("Fetched page",
			zap.String("kind", kind),
			zap.Int("fetched", fetched),
			zap.Int("total", total))
	}
}

// fail records err on result and returns it
func (m *Manager) fail(result *SyncResult, err error) (*SyncResult, error) {
	record := NewErrorRecord(err, CategorizeError(err)).WithKind(result.Kind)
	result.AddError(record)
	m.errorHandler.HandleError(record)
	m.metrics.RecordError(record.Category)
	result.Complete(false)
	return result, err
}

// finish logs the run summary and writes the metrics textfile
func (m *Manager) finish(summary *SyncSummary) {
	m.metrics.Complete()

	if report, err := m.metrics.SummaryJSON(summary); err != nil {
		m.logger.Warn("Failed to render run summary", zap.Error(err))
	} else {
		m.logger.Info("Run summary",
			zap.Bool("success", summary.Succeeded()),
			zap.Duration("duration", summary.Duration),
			zap.ByteString("summary", report))
	}

	if path := m.cfg.Sync.MetricsTextfile; path != "" {
		if err := m.metrics.WriteTextfile(path); err != nil {
			m.logger.Warn("Failed to write metrics", zap.Error(err))
		}
	}
}

func (m *Manager) today() model.Date {
	now := m.now()
	if loc := m.cfg.Sync.Location; loc != nil {
		now = now.In(loc)
	}
	return model.DateOf(now)
}

// kindOrder is the dependency order of the record kinds: sub-tasks
// inherit their course from stored tickets
var kindOrder = []string{config.KindIssues, config.KindDisciplines}

// orderKinds deduplicates kinds and sorts them in dependency order
func orderKinds(kinds []string) ([]string, error) {
	requested := make(map[string]bool, len(kinds))
	for _, kind := range kinds {
		if kind != config.KindIssues && kind != config.KindDisciplines {
			return nil, fmt.Errorf("unknown record kind %q", kind)
		}
		requested[kind] = true
	}

	var ordered []string
	for _, kind := range kindOrder {
		if requested[kind] {
			ordered = append(ordered, kind)
		}
	}
	if len(ordered) == 0 {
		return nil, fmt.Errorf("no record kind requested")
	}
	return ordered, nil
}
