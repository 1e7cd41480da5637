// Package runerrors contains the error types shared by the partitioner, the submitter and
// the orchestrator. Callers should look for these types with errors.As rather than
// matching on messages.
//
// The taxonomy is:
//   - ErrInvalidArgument: configuration errors, fatal and never retried.
//   - ErrNothingToRun: the run produced no submission tasks.
//   - RemoteError: a failed backend call; IsTransient decides whether it is retried.
//   - ErrRetriesExhausted: a transient failure that outlived the attempt ceiling.
//   - ErrSubmission: a failed submission task, tagged with the context it belongs to.
package runerrors

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"syscall"

	"github.com/pkg/errors"
)

// ErrInvalidArgument is returned on invalid configuration or input.
// Message is optional and is omitted from the error message if not provided.
type ErrInvalidArgument struct {
	Name    string      // Name of the field referred to, e.g., "maxTestsPerShard"
	Value   interface{} // The invalid value that was provided
	Message string      // An optional message explaining why the value is invalid
}

func (err *ErrInvalidArgument) Error() string {
	if err.Message == "" {
		return fmt.Sprintf("value %v is invalid for field %q", err.Value, err.Name)
	}
	return fmt.Sprintf("value %v is invalid for field %q; %s", err.Value, err.Name, err.Message)
}

// ErrNothingToRun is returned when a run has no submission tasks at all,
// e.g. an empty or fully filtered test suite.
type ErrNothingToRun struct {
	Contexts int
	RunCount int
}

func (err *ErrNothingToRun) Error() string {
	return fmt.Sprintf("there are no tests to run (%d context(s), repeat %d)", err.Contexts, err.RunCount)
}

// RemoteError is a non-2xx answer from the backend.
// Retryable, when set by the backend, overrides the status code classification.
type RemoteError struct {
	StatusCode int
	Code       string
	Message    string
	Retryable  *bool
}

func (err *RemoteError) Error() string {
	s := fmt.Sprintf("backend returned %d", err.StatusCode)
	if err.Code != "" {
		s += " " + err.Code
	}
	if err.Message != "" {
		s += ": " + err.Message
	}
	return s
}

// ErrRetriesExhausted wraps the last failure of an operation that failed on every attempt.
type ErrRetriesExhausted struct {
	Attempts int
	Err      error
}

func (err *ErrRetriesExhausted) Error() string {
	return fmt.Sprintf("giving up after %d attempt(s): %s", err.Attempts, err.Err)
}

func (err *ErrRetriesExhausted) Unwrap() error {
	return err.Err
}

// ErrSubmission identifies the context and repeat of a submission task that failed.
type ErrSubmission struct {
	ContextIndex int
	ShardIndex   int
	Target       string
	Repeat       int
	Err          error
}

func (err *ErrSubmission) Error() string {
	return fmt.Sprintf(
		"matrix_%d (target %q, shard %d, repeat %d) failed: %s",
		err.ContextIndex, err.Target, err.ShardIndex, err.Repeat, err.Err,
	)
}

func (err *ErrSubmission) Unwrap() error {
	return err.Err
}

type transientError struct {
	err error
}

func (err *transientError) Error() string { return err.err.Error() }
func (err *transientError) Unwrap() error { return err.err }

// Transient marks err as safe to retry.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &transientError{err: err}
}

// IsTransient reports whether a failed backend call may succeed if retried.
//
// Transient: errors marked with Transient, RemoteError with status 408, 429 or 5xx (unless
// the backend says otherwise), socket and DNS errors, timeouts, connection resets and
// refusals, and truncated responses. Cancellation of the caller's context is never transient.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	{
		var e *transientError
		if errors.As(err, &e) {
			return true
		}
	}
	{
		var e *RemoteError
		if errors.As(err, &e) {
			if e.Retryable != nil {
				return *e.Retryable
			}
			return isTransientStatus(e.StatusCode)
		}
	}
	if errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}
	// *url.Error is itself a net.Error, so only the failures underneath it count:
	// socket and DNS errors and timeouts. Bad schemes, TLS verification and redirect
	// errors are permanent.
	{
		var e *net.OpError
		if errors.As(err, &e) {
			return true
		}
	}
	{
		var e *net.DNSError
		if errors.As(err, &e) {
			return true
		}
	}
	{
		var e net.Error
		if errors.As(err, &e) && e.Timeout() {
			return true
		}
	}
	return false
}

func isTransientStatus(code int) bool {
	switch {
	case code == http.StatusRequestTimeout, code == http.StatusTooManyRequests:
		return true
	case code >= 500:
		return true
	}
	return false
}
