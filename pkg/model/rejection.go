// pkg/model/rejection.go
package model

import "time"

// Rejection records an upstream issue that was not turned into a record
type Rejection struct {
	Kind       string    // Record kind (issues, disciplinas)
	IssueKey   string    // Jira key of the rejected issue
	Reason     string    // Why the issue was skipped
	Detail     string    // Offending value, when useful
	RejectedAt time.Time // When the rejection happened
}
