// cmd/jirasync/exit.go
package main

import (
	"errors"

	"github.com/danexplore/JiraSQL/pkg/transfer"
)

// Process exit codes
const (
	exitOK          = 0
	exitFailure     = 1
	exitUsage       = 2
	exitConfig      = 3
	exitTransport   = 4
	exitPersistence = 5
)

// codedError pins the exit code of an error
type codedError struct {
	code int
	err  error
}

func (e *codedError) Error() string {
	return e.err.Error()
}

func (e *codedError) Unwrap() error {
	return e.err
}

func withCode(code int, err error) error {
	if err == nil {
		return nil
	}
	return &codedError{code: code, err: err}
}

// exitCodeOf returns the pinned code of err, or derives one from its
// category
func exitCodeOf(err error) int {
	if err == nil {
		return exitOK
	}

	var coded *codedError
	if errors.As(err, &coded) {
		return coded.code
	}

	switch transfer.CategorizeError(err) {
	case transfer.ErrorCategoryConfigurationMissing:
		return exitConfig
	case transfer.ErrorCategoryTransientTransport, transfer.ErrorCategoryMalformedResponse:
		return exitTransport
	case transfer.ErrorCategoryPersistenceFailure:
		return exitPersistence
	default:
		return exitFailure
	}
}
