package transfer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/danexplore/JiraSQL/pkg/config"
	"github.com/danexplore/JiraSQL/pkg/jira"
	"github.com/danexplore/JiraSQL/pkg/model"
	"github.com/danexplore/JiraSQL/pkg/store"
)

// Action defines the recommended action after an error
type Action int

const (
	// ActionContinue indicates processing should continue despite the error
	ActionContinue Action = iota
	// ActionSkipRecord indicates the current issue should be dropped
	ActionSkipRecord
	// ActionEndPagination indicates the fetch should stop with what it has
	ActionEndPagination
	// ActionAbort indicates the run should be aborted
	ActionAbort
)

func (a Action) String() string {
	switch a {
	case ActionContinue:
		return "Continue"
	case ActionSkipRecord:
		return "SkipRecord"
	case ActionEndPagination:
		return "EndPagination"
	case ActionAbort:
		return "Abort"
	default:
		return fmt.Sprintf("Unknown(%d)", a)
	}
}

// ErrorCategory defines categories of errors during a run
type ErrorCategory int

const (
	ErrorCategoryNone ErrorCategory = iota
	ErrorCategoryValidationReject
	ErrorCategoryMalformedResponse
	ErrorCategoryTransientTransport
	ErrorCategoryPersistenceFailure
	ErrorCategoryConfigurationMissing
	ErrorCategoryCancelled
	ErrorCategoryUnknown
)

// String returns a string representation of the error category
func (ec ErrorCategory) String() string {
	switch ec {
	case ErrorCategoryNone:
		return "None"
	case ErrorCategoryValidationReject:
		return "ValidationReject"
	case ErrorCategoryMalformedResponse:
		return "MalformedResponse"
	case ErrorCategoryTransientTransport:
		return "TransientTransport"
	case ErrorCategoryPersistenceFailure:
		return "PersistenceFailure"
	case ErrorCategoryConfigurationMissing:
		return "ConfigurationMissing"
	case ErrorCategoryCancelled:
		return "Cancelled"
	case ErrorCategoryUnknown:
		return "Unknown"
	default:
		return fmt.Sprintf("Unknown(%d)", ec)
	}
}

// CategorizeError determines the category of an error from its type
func CategorizeError(err error) ErrorCategory {
	if err == nil {
		return ErrorCategoryNone
	}

	var (
		validationErr *config.ValidationError
		stageErr      *store.StageError
		retryErr      *jira.RetryError
		httpErr       *jira.HTTPError
	)

	switch {
	case errors.As(err, &validationErr):
		return ErrorCategoryConfigurationMissing
	case errors.As(err, &stageErr):
		return ErrorCategoryPersistenceFailure
	case errors.Is(err, jira.ErrMalformedResponse):
		return ErrorCategoryMalformedResponse
	case errors.As(err, &retryErr), errors.As(err, &httpErr):
		return ErrorCategoryTransientTransport
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ErrorCategoryCancelled
	default:
		return ErrorCategoryUnknown
	}
}

// ErrorRecord represents a single error during a run
type ErrorRecord struct {
	Category  ErrorCategory
	Kind      string
	IssueKey  string
	Error     error
	Message   string // Derived from Error but stored for serialization
	Timestamp time.Time
}

// NewErrorRecord creates a new error record with current timestamp
func NewErrorRecord(err error, category ErrorCategory) ErrorRecord {
	record := ErrorRecord{
		Category:  category,
		Error:     err,
		Timestamp: time.Now(),
	}

	if err != nil {
		record.Message = err.Error()
	}

	return record
}

// WithKind adds the record kind to the error record
func (r ErrorRecord) WithKind(kind string) ErrorRecord {
	r.Kind = kind
	return r
}

// WithIssue adds the issue key to the error record
func (r ErrorRecord) WithIssue(key string) ErrorRecord {
	r.IssueKey = key
	return r
}

// String returns a formatted error message
func (r ErrorRecord) String() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("[%s] ", r.Category))

	if r.Kind != "" {
		sb.WriteString(fmt.Sprintf("Kind: %s ", r.Kind))
	}
	if r.IssueKey != "" {
		sb.WriteString(fmt.Sprintf("Issue: %s ", r.IssueKey))
	}
	sb.WriteString("Error: " + r.Message)

	return sb.String()
}

// ErrorHandler counts errors and rejections of a run and decides how the
// run proceeds
type ErrorHandler struct {
	logger       *zap.Logger
	strict       bool
	errorCounts  map[ErrorCategory]int
	sampleErrors map[ErrorCategory][]ErrorRecord
	rejections   map[string]int // reason -> count
	samples      []model.Rejection
	mu           sync.Mutex
	maxSamples   int
}

// NewErrorHandler creates a new error handler. In strict mode a malformed
// response aborts the run instead of ending pagination.
func NewErrorHandler(logger *zap.Logger, strict bool) *ErrorHandler {
	return &ErrorHandler{
		logger:       logger,
		strict:       strict,
		errorCounts:  make(map[ErrorCategory]int),
		sampleErrors: make(map[ErrorCategory][]ErrorRecord),
		rejections:   make(map[string]int),
		maxSamples:   20,
	}
}

// HandleError records an error and determines the action
func (eh *ErrorHandler) HandleError(record ErrorRecord) Action {
	eh.RecordError(record)

	switch record.Category {
	case ErrorCategoryNone:
		return ActionContinue
	case ErrorCategoryValidationReject:
		return ActionSkipRecord
	case ErrorCategoryMalformedResponse:
		if eh.strict {
			return ActionAbort
		}
		return ActionEndPagination
	default:
		// transport retries happen inside the client; by now they are spent
		return ActionAbort
	}
}

// RecordRejection counts an issue that was not turned into a record
func (eh *ErrorHandler) RecordRejection(rejection model.Rejection) {
	eh.mu.Lock()
	defer eh.mu.Unlock()

	eh.errorCounts[ErrorCategoryValidationReject]++
	eh.rejections[rejection.Reason]++
	if len(eh.samples) < eh.maxSamples {
		eh.samples = append(eh.samples, rejection)
	}

	if eh.logger != nil {
		eh.logger.Debug("Issue skipped",
			zap.String("kind", rejection.Kind),
			zap.String("issueKey", rejection.IssueKey),
			zap.String("reason", rejection.Reason),
			zap.String("detail", rejection.Detail))
	}
}

// RecordError saves an error occurrence
func (eh *ErrorHandler) RecordError(record ErrorRecord) {
	eh.mu.Lock()
	defer eh.mu.Unlock()

	eh.errorCounts[record.Category]++

	samples := eh.sampleErrors[record.Category]
	if len(samples) < eh.maxSamples {
		eh.sampleErrors[record.Category] = append(samples, record)
	}

	if eh.logger != nil {
		logLevel := zap.ErrorLevel
		switch record.Category {
		case ErrorCategoryValidationReject:
			logLevel = zap.DebugLevel
		case ErrorCategoryMalformedResponse:
			if !eh.strict {
				logLevel = zap.WarnLevel
			}
		}

		eh.logger.Log(logLevel, "Sync error",
			zap.String("category", record.Category.String()),
			zap.String("kind", record.Kind),
			zap.String("issueKey", record.IssueKey),
			zap.String("error", record.Message))
	}
}

// GetErrorSummary returns the error counts by category
func (eh *ErrorHandler) GetErrorSummary() map[ErrorCategory]int {
	eh.mu.Lock()
	defer eh.mu.Unlock()

	summary := make(map[ErrorCategory]int)
	for category, count := range eh.errorCounts {
		summary[category] = count
	}
	return summary
}

// GetErrorSamples returns sample errors for each category
func (eh *ErrorHandler) GetErrorSamples() map[ErrorCategory][]ErrorRecord {
	eh.mu.Lock()
	defer eh.mu.Unlock()

	samples := make(map[ErrorCategory][]ErrorRecord)
	for category, records := range eh.sampleErrors {
		categorySamples := make([]ErrorRecord, len(records))
		copy(categorySamples, records)
		samples[category] = categorySamples
	}
	return samples
}

// GetRejectionCounts returns the skipped issue counts by reason
func (eh *ErrorHandler) GetRejectionCounts() map[string]int {
	eh.mu.Lock()
	defer eh.mu.Unlock()

	counts := make(map[string]int)
	for reason, count := range eh.rejections {
		counts[reason] = count
	}
	return counts
}

// GetRejectionSamples returns the first rejections of the run
func (eh *ErrorHandler) GetRejectionSamples() []model.Rejection {
	eh.mu.Lock()
	defer eh.mu.Unlock()

	samples := make([]model.Rejection, len(eh.samples))
	copy(samples, eh.samples)
	return samples
}
