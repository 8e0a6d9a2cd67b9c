// pkg/jira/iterator.go
package jira

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// ProgressFunc observes pagination: issues fetched so far out of the total
// reported by the server
type ProgressFunc func(fetched, total int)

// IssueIterator walks every page of a search lazily
type IssueIterator struct {
	client   *Client
	ctx      context.Context
	query    Query
	progress ProgressFunc

	startAt   int
	total     int
	current   []Issue
	index     int
	issue     Issue
	done      bool
	err       error
	truncated error
}

// Search returns an iterator over every issue matching q. Pages are
// requested as the iterator advances. progress may be nil.
func (c *Client) Search(ctx context.Context, q Query, progress ProgressFunc) *IssueIterator {
	return &IssueIterator{
		client:   c,
		ctx:      ctx,
		query:    q,
		progress: progress,
	}
}

// Next advances to the next issue, fetching a page when needed
func (it *IssueIterator) Next() bool {
	if it.err != nil {
		return false
	}

	if it.index >= len(it.current) {
		if it.done {
			return false
		}
		if err := it.fetchPage(); err != nil {
			it.err = err
			return false
		}
		if it.index >= len(it.current) {
			return false
		}
	}

	it.issue = it.current[it.index]
	it.index++
	return true
}

func (it *IssueIterator) fetchPage() error {
	page, err := it.client.searchPage(it.ctx, it.query, it.startAt)
	if err != nil {
		if errors.Is(err, ErrMalformedResponse) && !it.client.strictPagination {
			it.client.logger.Warn("Malformed search page, ending pagination",
				zap.Int("startAt", it.startAt),
				zap.Error(err))
			it.truncated = err
			it.current = nil
			it.index = 0
			it.done = true
			return nil
		}
		return err
	}

	it.total = page.Total
	it.current = page.Issues
	it.index = 0
	it.startAt += len(page.Issues)

	if len(page.Issues) == 0 || it.startAt >= it.total {
		it.done = true
	}

	if it.progress != nil {
		it.progress(it.startAt, it.total)
	}

	return nil
}

// Issue returns the current issue
func (it *IssueIterator) Issue() Issue {
	return it.issue
}

// Err returns the error that stopped the iteration, if any
func (it *IssueIterator) Err() error {
	return it.err
}

// Total returns the result count reported by the last page
func (it *IssueIterator) Total() int {
	return it.total
}

// Truncated returns the malformed-page error that ended pagination early,
// or nil when the result set was read to the end
func (it *IssueIterator) Truncated() error {
	return it.truncated
}
