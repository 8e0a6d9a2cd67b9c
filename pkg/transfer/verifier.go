package transfer

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/danexplore/JiraSQL/pkg/config"
	"github.com/danexplore/JiraSQL/pkg/store"
)

// IntegrityIssue represents a data integrity issue found after a commit
type IntegrityIssue struct {
	IssueType    string
	Table        string
	Description  string
	AffectedRows int64
}

func (i IntegrityIssue) String() string {
	return fmt.Sprintf("%s: %d rows in %s (%s)", i.IssueType, i.AffectedRows, i.Table, i.Description)
}

// VerificationReport contains the results of a post-commit verification
type VerificationReport struct {
	Kind             string
	VerificationTime time.Time
	Scoped           bool
	IntegrityIssues  []IntegrityIssue
	Duration         time.Duration
}

// Passed reports whether no issue was found
func (r *VerificationReport) Passed() bool {
	return len(r.IntegrityIssues) == 0
}

// integrityCheck counts rows of table matching where. Scoped checks only
// look at rows updated on or after the watermark.
type integrityCheck struct {
	issueType   string
	table       string
	description string
	where       string
	scoped      bool
}

var integrityChecks = map[string][]integrityCheck{
	config.KindIssues: {
		{
			issueType:   "unlinked_course",
			table:       store.TableWorkItems,
			description: "tickets without a course id",
			where:       "curso_id IS NULL",
			scoped:      true,
		},
		{
			issueType:   "unlinked_coordinator",
			table:       store.TableWorkItems,
			description: "tickets with a coordinator but no coordinator id",
			where:       "coordenador_canonico IS NOT NULL AND coordenador_id IS NULL",
			scoped:      true,
		},
		{
			issueType:   "course_without_coordinator",
			table:       store.TableCourses,
			description: "courses without a coordinator",
			where:       "coordenador_id IS NULL",
		},
	},
	config.KindDisciplines: {
		{
			issueType:   "unlinked_course",
			table:       store.TableDisciplines,
			description: "sub-tasks without a course id",
			where:       "curso_id IS NULL",
			scoped:      true,
		},
		{
			issueType:   "unlinked_coordinator",
			table:       store.TableDisciplines,
			description: "sub-tasks with a coordinator but no coordinator id",
			where:       "coordenador_canonico IS NOT NULL AND coordenador_id IS NULL",
			scoped:      true,
		},
		{
			issueType:   "orphan_subtask",
			table:       store.TableDisciplines,
			description: "sub-tasks whose parent ticket is not stored",
			where:       "chave_pai IS NOT NULL AND chave_pai NOT IN (SELECT chave FROM " + store.TableWorkItems + ")",
			scoped:      true,
		},
	},
}

// Verifier checks the reconciliation of a committed batch. Findings are
// reported, never fatal.
type Verifier struct {
	db      *sqlx.DB
	logger  *zap.Logger
	timeout time.Duration
}

// NewVerifier creates a new verifier
func NewVerifier(db *sqlx.DB, logger *zap.Logger) *Verifier {
	return &Verifier{
		db:      db,
		logger:  logger,
		timeout: time.Minute * 5, // Default 5-minute timeout
	}
}

// WithTimeout sets a custom timeout for verification operations
func (v *Verifier) WithTimeout(timeout time.Duration) *Verifier {
	v.timeout = timeout
	return v
}

// Verify runs the integrity checks of kind within scope
func (v *Verifier) Verify(ctx context.Context, kind string, scope store.Scope) (*VerificationReport, error) {
	checks, ok := integrityChecks[kind]
	if !ok {
		return nil, fmt.Errorf("unknown record kind %q", kind)
	}

	startTime := time.Now()
	report := &VerificationReport{
		Kind:             kind,
		VerificationTime: startTime,
		Scoped:           scope.Scoped(),
	}

	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	for _, check := range checks {
		count, err := v.count(ctx, check, scope)
		if err != nil {
			return nil, fmt.Errorf("failed to run check %s: %w", check.issueType, err)
		}
		if count > 0 {
			report.IntegrityIssues = append(report.IntegrityIssues, IntegrityIssue{
				IssueType:    check.issueType,
				Table:        check.table,
				Description:  check.description,
				AffectedRows: count,
			})
		}
	}

	report.Duration = time.Since(startTime)

	if report.Passed() {
		v.logger.Info("Data integrity verification successful",
			zap.String("kind", kind),
			zap.Bool("scoped", report.Scoped))
	} else {
		for _, issue := range report.IntegrityIssues {
			v.logger.Warn("Data integrity issue found",
				zap.String("kind", kind),
				zap.String("issueType", issue.IssueType),
				zap.String("table", issue.Table),
				zap.Int64("affectedRows", issue.AffectedRows))
		}
	}

	return report, nil
}

func (v *Verifier) count(ctx context.Context, check integrityCheck, scope store.Scope) (int64, error) {
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s", check.table, check.where)
	var args []interface{}
	if check.scoped && scope.Scoped() {
		query += " AND data_atualizacao >= ?"
		args = append(args, scope.Watermark.String())
	}

	var count int64
	if err := v.db.GetContext(ctx, &count, v.db.Rebind(query), args...); err != nil {
		return 0, err
	}
	return count, nil
}
