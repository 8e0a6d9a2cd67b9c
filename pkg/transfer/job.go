package transfer

import (
	"time"

	"github.com/google/uuid"

	"github.com/danexplore/JiraSQL/pkg/model"
	"github.com/danexplore/JiraSQL/pkg/store"
)

// SyncJob represents the synchronization of one record kind
type SyncJob struct {
	ID        string     // Unique job identifier
	Kind      string     // Record kind (issues, disciplinas)
	Today     model.Date // Run date, written as the checkpoint on success
	Since     model.Date // Watermark; absent for a full reload
	Force     bool       // Ignore the once-a-day guard
	Full      bool       // Ignore the checkpoint
	DryRun    bool       // Fetch and convert without writing
	CreatedAt time.Time  // Job creation timestamp
}

// NewSyncJob creates a new job for kind with defaults
func NewSyncJob(kind string, today model.Date) SyncJob {
	return SyncJob{
		ID:        uuid.New().String(),
		Kind:      kind,
		Today:     today,
		CreatedAt: time.Now(),
	}
}

// WithOptions applies the run options and returns the modified job
func (j SyncJob) WithOptions(opts RunOptions) SyncJob {
	j.Force = opts.Force
	j.Full = opts.Full
	j.DryRun = opts.DryRun
	return j
}

// WithSince sets the watermark and returns the modified job
func (j SyncJob) WithSince(since model.Date) SyncJob {
	j.Since = since
	return j
}

// Scope returns the reconciliation scope of the job
func (j SyncJob) Scope() store.Scope {
	return store.Scope{Watermark: j.Since}
}

// SyncResult represents the result of one job
type SyncResult struct {
	JobID         string
	Kind          string
	Success       bool
	AlreadySynced bool
	DryRun        bool
	Since         string
	Total         int // reported by the server
	Fetched       int
	Converted     int
	Skipped       map[string]int // reason -> count
	Truncated     bool
	Applied       *store.ApplyResult
	Verification  *VerificationReport
	Errors        []ErrorRecord
	StartTime     time.Time
	EndTime       time.Time
	Duration      time.Duration
}

// NewSyncResult initializes a result for a job
func NewSyncResult(job SyncJob) *SyncResult {
	return &SyncResult{
		JobID:     job.ID,
		Kind:      job.Kind,
		DryRun:    job.DryRun,
		Since:     job.Since.String(),
		Skipped:   make(map[string]int),
		Errors:    make([]ErrorRecord, 0),
		StartTime: time.Now(),
	}
}

// Complete marks the job as complete and calculates duration
func (r *SyncResult) Complete(success bool) {
	r.EndTime = time.Now()
	r.Duration = r.EndTime.Sub(r.StartTime)
	r.Success = success
}

// AddError adds an error to the result
func (r *SyncResult) AddError(err ErrorRecord) {
	r.Errors = append(r.Errors, err)
}

// SkippedTotal returns the number of skipped issues
func (r *SyncResult) SkippedTotal() int {
	total := 0
	for _, n := range r.Skipped {
		total += n
	}
	return total
}

// SyncSummary represents the outcome of a run over every requested kind
type SyncSummary struct {
	Results         []SyncResult
	ErrorCategories map[string]int
	ErrorSamples    map[string][]string // category -> first messages
	RejectionCounts map[string]int      // reason -> count
	Rejections      []model.Rejection
	StartTime       time.Time
	EndTime         time.Time
	Duration        time.Duration
}

// NewSyncSummary initializes a new summary
func NewSyncSummary() *SyncSummary {
	return &SyncSummary{
		Results:         make([]SyncResult, 0),
		ErrorCategories: make(map[string]int),
		ErrorSamples:    make(map[string][]string),
		StartTime:       time.Now(),
	}
}

// AddResult incorporates a job result into the summary
func (s *SyncSummary) AddResult(result SyncResult) {
	s.Results = append(s.Results, result)
}

// Complete marks the run as complete
func (s *SyncSummary) Complete(handler *ErrorHandler) {
	s.EndTime = time.Now()
	s.Duration = s.EndTime.Sub(s.StartTime)
	for category, count := range handler.GetErrorSummary() {
		s.ErrorCategories[category.String()] = count
	}
	for category, records := range handler.GetErrorSamples() {
		if category == ErrorCategoryValidationReject {
			continue // reported as rejections
		}
		for _, r := range records {
			s.ErrorSamples[category.String()] = append(s.ErrorSamples[category.String()], r.String())
		}
	}
	s.RejectionCounts = handler.GetRejectionCounts()
	s.Rejections = handler.GetRejectionSamples()
}

// Succeeded reports whether every job succeeded
func (s *SyncSummary) Succeeded() bool {
	for _, r := range s.Results {
		if !r.Success {
			return false
		}
	}
	return true
}
