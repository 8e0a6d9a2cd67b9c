package transfer

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/danexplore/JiraSQL/pkg/store"
)

// SyncMetrics tracks the metrics of a run on a private registry, so a
// batch process can dump them to a node-exporter textfile
type SyncMetrics struct {
	mu        sync.Mutex
	logger    *zap.Logger
	registry  *prometheus.Registry
	StartTime time.Time
	EndTime   time.Time

	fetched       *prometheus.CounterVec
	skipped       *prometheus.CounterVec
	upserted      *prometheus.CounterVec
	errors        *prometheus.CounterVec
	stageDuration *prometheus.GaugeVec
	runDuration   *prometheus.GaugeVec
	lastSuccess   *prometheus.GaugeVec

	stageTimes map[string]map[store.Stage]time.Duration
}

// NewSyncMetrics creates a new SyncMetrics instance
func NewSyncMetrics(logger *zap.Logger) *SyncMetrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &SyncMetrics{
		logger:    logger,
		registry:  registry,
		StartTime: time.Now(),

		fetched: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "jirasync_issues_fetched_total",
			Help: "Total number of issues read from the Jira search API",
		}, []string{"kind"}),

		skipped: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "jirasync_issues_skipped_total",
			Help: "Total number of issues rejected during conversion",
		}, []string{"kind", "reason"}),

		upserted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "jirasync_records_upserted_total",
			Help: "Total number of records written to the store",
		}, []string{"kind"}),

		errors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "jirasync_errors_total",
			Help: "Total number of run errors by category",
		}, []string{"category"}),

		stageDuration: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "jirasync_stage_duration_seconds",
			Help: "Duration of the last run of each store stage",
		}, []string{"kind", "stage"}),

		runDuration: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "jirasync_run_duration_seconds",
			Help: "Duration of the last synchronization of each kind",
		}, []string{"kind"}),

		lastSuccess: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "jirasync_last_success_timestamp_seconds",
			Help: "Unix time of the last successful synchronization",
		}, []string{"kind"}),

		stageTimes: make(map[string]map[store.Stage]time.Duration),
	}
}

// Registry returns the registry holding the run metrics
func (m *SyncMetrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordFetched counts issues read from Jira
func (m *SyncMetrics) RecordFetched(kind string, n int) {
	m.fetched.WithLabelValues(kind).Add(float64(n))
}

// RecordSkipped counts an issue rejected during conversion
func (m *SyncMetrics) RecordSkipped(kind, reason string) {
	m.skipped.WithLabelValues(kind, reason).Inc()
}

// RecordUpserted counts records written to the store
func (m *SyncMetrics) RecordUpserted(kind string, n int) {
	m.upserted.WithLabelValues(kind).Add(float64(n))
}

// RecordError counts a run error
func (m *SyncMetrics) RecordError(category ErrorCategory) {
	m.errors.WithLabelValues(category.String()).Inc()
}

// ObserveStage records the duration of a store stage. Its signature
// matches store.StageObserver.
func (m *SyncMetrics) ObserveStage(kind string, stage store.Stage, d time.Duration) {
	m.stageDuration.WithLabelValues(kind, string(stage)).Set(d.Seconds())

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stageTimes[kind] == nil {
		m.stageTimes[kind] = make(map[store.Stage]time.Duration)
	}
	m.stageTimes[kind][stage] = d
}

// RecordResult records the outcome of a job
func (m *SyncMetrics) RecordResult(result SyncResult) {
	m.runDuration.WithLabelValues(result.Kind).Set(result.Duration.Seconds())
	if result.Success && !result.DryRun && !result.AlreadySynced {
		m.lastSuccess.WithLabelValues(result.Kind).Set(float64(result.EndTime.Unix()))
	}
}

// Complete marks the end of the run
func (m *SyncMetrics) Complete() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.EndTime = time.Now()
}

// WriteTextfile writes the registry in the text exposition format,
// atomically, for the node-exporter textfile collector
func (m *SyncMetrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile %s: %w", path, err)
	}
	if m.logger != nil {
		m.logger.Info("Metrics written", zap.String("path", path))
	}
	return nil
}

// StageTimes returns the last duration of every stage of kind, sorted by
// stage name
func (m *SyncMetrics) StageTimes(kind string) []StageTime {
	m.mu.Lock()
	defer m.mu.Unlock()

	times := make([]StageTime, 0, len(m.stageTimes[kind]))
	for stage, d := range m.stageTimes[kind] {
		times = append(times, StageTime{Stage: string(stage), Duration: formatDuration(d)})
	}
	sort.Slice(times, func(i, j int) bool {
		return times[i].Stage < times[j].Stage
	})
	return times
}

// StageTime is the duration of one stage in the run report
type StageTime struct {
	Stage    string `json:"stage"`
	Duration string `json:"duration"`
}

// kindReport is the per-kind section of the JSON run summary
type kindReport struct {
	Kind          string         `json:"kind"`
	JobID         string         `json:"jobId"`
	Success       bool           `json:"success"`
	AlreadySynced bool           `json:"alreadySynced,omitempty"`
	DryRun        bool           `json:"dryRun,omitempty"`
	Since         string         `json:"since,omitempty"`
	Total         int            `json:"total"`
	Fetched       int            `json:"fetched"`
	Converted     int            `json:"converted"`
	Skipped       map[string]int `json:"skipped,omitempty"`
	Truncated     bool           `json:"truncated,omitempty"`
	Courses       int            `json:"courses,omitempty"`
	Coordinators  int            `json:"coordinators,omitempty"`
	Integrity     []string       `json:"integrityIssues,omitempty"`
	Stages        []StageTime    `json:"stages,omitempty"`
	Duration      string         `json:"duration"`
}

type runReport struct {
	StartTime    time.Time           `json:"startTime"`
	Duration     string              `json:"duration"`
	Kinds        []kindReport        `json:"kinds"`
	Errors       map[string]int      `json:"errors,omitempty"`
	ErrorSamples map[string][]string `json:"errorSamples,omitempty"`
	Rejections   map[string]int      `json:"rejections,omitempty"`
}

// SummaryJSON renders the run summary logged at the end of every run
func (m *SyncMetrics) SummaryJSON(summary *SyncSummary) ([]byte, error) {
	report := runReport{
		StartTime: summary.StartTime,
		Duration:  formatDuration(summary.Duration),
		Kinds:     make([]kindReport, 0, len(summary.Results)),
		Errors:    summary.ErrorCategories,

		ErrorSamples: summary.ErrorSamples,
		Rejections:   summary.RejectionCounts,
	}

	for _, r := range summary.Results {
		kr := kindReport{
			Kind:          r.Kind,
			JobID:         r.JobID,
			Success:       r.Success,
			AlreadySynced: r.AlreadySynced,
			DryRun:        r.DryRun,
			Since:         r.Since,
			Total:         r.Total,
			Fetched:       r.Fetched,
			Converted:     r.Converted,
			Skipped:       r.Skipped,
			Truncated:     r.Truncated,
			Stages:        m.StageTimes(r.Kind),
			Duration:      formatDuration(r.Duration),
		}
		if r.Applied != nil {
			kr.Courses = r.Applied.Courses
			kr.Coordinators = r.Applied.Coordinators
		}
		if r.Verification != nil {
			for _, issue := range r.Verification.IntegrityIssues {
				kr.Integrity = append(kr.Integrity, issue.String())
			}
		}
		report.Kinds = append(report.Kinds, kr)
	}

	return json.Marshal(report)
}

// formatDuration formats a duration in a human-readable form
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
}
