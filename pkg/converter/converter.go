// pkg/converter/converter.go
package converter

import (
	"time"

	"go.uber.org/zap"

	"github.com/danexplore/JiraSQL/pkg/config"
	"github.com/danexplore/JiraSQL/pkg/jira"
	"github.com/danexplore/JiraSQL/pkg/normalize"
)

// IssueConverter turns Jira issues into fact and discipline records
type IssueConverter struct {
	logger *zap.Logger
	config IssueConverterConfig
}

// IssueConverterConfig provides configuration options for conversion
type IssueConverterConfig struct {
	// Custom field ids of the project
	Fields config.CustomFields
	// BrowseURL builds the web link of an issue key
	BrowseURL func(key string) string
	// Now is the reference time for launch status
	Now func() time.Time
}

// DefaultConfig returns the configuration of the production project
func DefaultConfig() IssueConverterConfig {
	return IssueConverterConfig{
		Fields: config.DefaultCustomFields(),
		BrowseURL: func(key string) string {
			return "https://jira.unyleya.com.br/browse/" + key
		},
		Now: time.Now,
	}
}

// NewIssueConverter creates an IssueConverter, filling unset options from
// DefaultConfig
func NewIssueConverter(logger *zap.Logger, cfg IssueConverterConfig) *IssueConverter {
	defaults := DefaultConfig()
	if cfg.Fields == (config.CustomFields{}) {
		cfg.Fields = defaults.Fields
	}
	if cfg.BrowseURL == nil {
		cfg.BrowseURL = defaults.BrowseURL
	}
	if cfg.Now == nil {
		cfg.Now = defaults.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &IssueConverter{
		logger: logger,
		config: cfg,
	}
}

// Outcome is the result of converting one issue: a record, or the reason
// the issue was skipped
type Outcome[T any] struct {
	Record *T
	Reason normalize.SkipReason
	// Detail carries the value that caused the skip
	Detail string
}

// Skipped reports whether the issue produced no record
func (o Outcome[T]) Skipped() bool {
	return o.Record == nil
}

func accept[T any](record *T) Outcome[T] {
	return Outcome[T]{Record: record}
}

func skip[T any](reason normalize.SkipReason, detail string) Outcome[T] {
	return Outcome[T]{Reason: reason, Detail: detail}
}

func (c *IssueConverter) entityCourse(f *jira.IssueFields) normalize.EntityCourse {
	cascade := f.CustomCascade(c.config.Fields.EntityCourse)
	if cascade == nil {
		return normalize.EntityCourse{}
	}
	return normalize.EntityCourse{Main: cascade.Value, Child: cascade.ChildValue()}
}
