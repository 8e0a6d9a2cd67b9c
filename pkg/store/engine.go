// pkg/store/engine.go
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/danexplore/JiraSQL/pkg/model"
)

// Stage is one step of an apply transaction
type Stage string

const (
	StageIdle                        Stage = "idle"
	StageBegin                       Stage = "begin"
	StageEnsureSchema                Stage = "ensure_schema"
	StageUpsertFacts                 Stage = "upsert_facts"
	StageUpsertCourseDimension       Stage = "upsert_course_dimension"
	StageBackfillFactCourseFK        Stage = "backfill_fact_course_fk"
	StageUpsertCoordinatorDimension  Stage = "upsert_coordinator_dimension"
	StageBackfillFactCoordinatorFK   Stage = "backfill_fact_coordinator_fk"
	StageBackfillCourseCoordinatorFK Stage = "backfill_course_coordinator_fk"
	StageUpsertDisciplines           Stage = "upsert_disciplines"
	StageFillParentCourse            Stage = "fill_parent_course"
	StageBackfillDisciplineCourseFK  Stage = "backfill_discipline_course_fk"
	StageBackfillDisciplineCoordFK   Stage = "backfill_discipline_coordinator_fk"
	StageCommit                      Stage = "commit"
	StageCommitted                   Stage = "committed"
	StageRolledBack                  Stage = "rolled_back"
)

// StageError reports the stage at which an apply failed. The transaction
// has been rolled back when it is returned.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("store stage %s failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Scope restricts the backfills to rows updated on or after Watermark.
// The zero Scope is unscoped and reconciles every row.
type Scope struct {
	Watermark model.Date
}

// Scoped reports whether the scope has a watermark
func (s Scope) Scoped() bool {
	return s.Watermark.Valid()
}

// ApplyResult summarizes one committed apply
type ApplyResult struct {
	Records      int
	Courses      int
	Coordinators int
	Linked       map[Stage]int64 // rows touched per backfill stage
	Duration     time.Duration
}

// StageObserver is notified of the duration of every completed stage
type StageObserver func(kind string, stage Stage, d time.Duration)

// Option configures an Engine
type Option func(*Engine)

// WithLogger sets the engine logger
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithStageObserver registers a stage duration observer
func WithStageObserver(observer StageObserver) Option {
	return func(e *Engine) {
		e.observer = observer
	}
}

// Engine applies record batches to the store, one transaction per batch
type Engine struct {
	db       *sqlx.DB
	dialect  Dialect
	logger   *zap.Logger
	observer StageObserver
}

// NewEngine creates an engine over db
func NewEngine(db *sqlx.DB, opts ...Option) (*Engine, error) {
	dialect, err := DialectFor(db.DriverName())
	if err != nil {
		return nil, err
	}

	e := &Engine{
		db:      db,
		dialect: dialect,
		logger:  zap.L().Named("store"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// step is one stage of an apply run inside the transaction
type step struct {
	stage Stage
	run   func(ctx context.Context, tx *sqlx.Tx) (int64, error)
}

// ApplyWorkItems upserts a batch of tickets and reconciles the course and
// coordinator dimensions in one transaction
func (e *Engine) ApplyWorkItems(ctx context.Context, items []model.WorkItem, scope Scope) (*ApplyResult, error) {
	result := &ApplyResult{Records: len(items), Linked: make(map[Stage]int64)}
	courses := distinctCourses(items)
	coordinators := latestCoordinators(items)
	result.Courses = len(courses)
	result.Coordinators = len(coordinators)

	steps := []step{
		{StageEnsureSchema, e.ensureSchemaStep},
		{StageUpsertFacts, func(ctx context.Context, tx *sqlx.Tx) (int64, error) {
			return upsertRecords(ctx, tx, WorkItemTable, items)
		}},
		{StageUpsertCourseDimension, func(ctx context.Context, tx *sqlx.Tx) (int64, error) {
			return upsertCourses(ctx, tx, courses)
		}},
		{StageBackfillFactCourseFK, func(ctx context.Context, tx *sqlx.Tx) (int64, error) {
			return backfillCourseFK(ctx, tx, TableWorkItems, scope)
		}},
		{StageUpsertCoordinatorDimension, func(ctx context.Context, tx *sqlx.Tx) (int64, error) {
			return upsertCoordinators(ctx, tx, coordinators)
		}},
		{StageBackfillFactCoordinatorFK, func(ctx context.Context, tx *sqlx.Tx) (int64, error) {
			return backfillCoordinatorFK(ctx, tx, TableWorkItems, scope)
		}},
		{StageBackfillCourseCoordinatorFK, func(ctx context.Context, tx *sqlx.Tx) (int64, error) {
			return backfillCourseCoordinator(ctx, tx, scope)
		}},
	}

	if err := e.run(ctx, "issues", steps, result); err != nil {
		return nil, err
	}
	return result, nil
}

// ApplyDisciplines upserts a batch of discipline sub-tasks, inherits the
// parent course where missing and links them to the dimensions
func (e *Engine) ApplyDisciplines(ctx context.Context, items []model.Discipline, scope Scope) (*ApplyResult, error) {
	result := &ApplyResult{Records: len(items), Linked: make(map[Stage]int64)}

	steps := []step{
		{StageEnsureSchema, e.ensureSchemaStep},
		{StageUpsertDisciplines, func(ctx context.Context, tx *sqlx.Tx) (int64, error) {
			return upsertRecords(ctx, tx, DisciplineTable, items)
		}},
		{StageFillParentCourse, func(ctx context.Context, tx *sqlx.Tx) (int64, error) {
			return fillParentCourse(ctx, tx, scope)
		}},
		{StageBackfillDisciplineCourseFK, func(ctx context.Context, tx *sqlx.Tx) (int64, error) {
			return backfillCourseFK(ctx, tx, TableDisciplines, scope)
		}},
		{StageBackfillDisciplineCoordFK, func(ctx context.Context, tx *sqlx.Tx) (int64, error) {
			return backfillCoordinatorFK(ctx, tx, TableDisciplines, scope)
		}},
	}

	if err := e.run(ctx, "disciplinas", steps, result); err != nil {
		return nil, err
	}
	return result, nil
}

// EnsureSchema creates or extends the managed tables and the view outside
// of an apply
func (e *Engine) EnsureSchema(ctx context.Context) error {
	tx, err := e.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin schema transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := e.ensureSchemaStep(ctx, tx); err != nil {
		return err
	}
	return tx.Commit()
}

func (e *Engine) run(ctx context.Context, kind string, steps []step, result *ApplyResult) error {
	start := time.Now()
	current := StageIdle
	transition := func(next Stage) {
		e.logger.Info("Sync stage changed",
			zap.String("kind", kind),
			zap.String("from", string(current)),
			zap.String("to", string(next)))
		current = next
	}

	transition(StageBegin)
	tx, err := e.db.BeginTxx(ctx, nil)
	if err != nil {
		return &StageError{Stage: StageBegin, Err: err}
	}

	for _, s := range steps {
		transition(s.stage)
		stageStart := time.Now()

		rows, err := s.run(ctx, tx)
		if err != nil {
			failed := current
			if rbErr := tx.Rollback(); rbErr != nil {
				e.logger.Error("Rollback failed", zap.String("kind", kind), zap.Error(rbErr))
			}
			transition(StageRolledBack)
			return &StageError{Stage: failed, Err: err}
		}

		if s.stage != StageEnsureSchema && s.stage != StageUpsertFacts && s.stage != StageUpsertDisciplines {
			result.Linked[s.stage] = rows
		}
		e.observe(kind, s.stage, time.Since(stageStart))
		e.logger.Debug("Stage completed",
			zap.String("kind", kind),
			zap.String("stage", string(s.stage)),
			zap.Int64("rowsAffected", rows))
	}

	transition(StageCommit)
	if err := tx.Commit(); err != nil {
		transition(StageRolledBack)
		return &StageError{Stage: StageCommit, Err: err}
	}
	transition(StageCommitted)

	result.Duration = time.Since(start)
	return nil
}

func (e *Engine) observe(kind string, stage Stage, d time.Duration) {
	if e.observer != nil {
		e.observer(kind, stage, d)
	}
}
