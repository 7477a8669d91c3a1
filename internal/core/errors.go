package core

import (
	"errors"
	"fmt"
)

// ErrUnexpectedStatus is the cause of a FetchError or SubmitError raised
// for a non-success HTTP status.
var ErrUnexpectedStatus = errors.New("unexpected status")

// FetchError reports a failed list retrieval. Status is zero when the
// transport itself failed.
type FetchError struct {
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch expenses: status %d: %v", e.Status, e.Err)
	}
	return fmt.Sprintf("fetch expenses: %v", e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// SubmitError reports a failed create request. Status is zero when the
// transport itself failed.
type SubmitError struct {
	Status int
	Err    error
}

func (e *SubmitError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("submit expense: status %d: %v", e.Status, e.Err)
	}
	return fmt.Sprintf("submit expense: %v", e.Err)
}

func (e *SubmitError) Unwrap() error { return e.Err }
