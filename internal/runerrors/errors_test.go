package runerrors

import (
	"context"
	"crypto/x509"
	"fmt"
	"io"
	"net"
	"net/url"
	"syscall"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

func TestIsTransient(t *testing.T) {
	no := false
	yes := true
	tests := map[string]struct {
		err       error
		transient bool
	}{
		"nil":                   {err: nil, transient: false},
		"plain error":           {err: fmt.Errorf("boom"), transient: false},
		"too many requests":     {err: &RemoteError{StatusCode: 429}, transient: true},
		"request timeout":       {err: &RemoteError{StatusCode: 408}, transient: true},
		"internal server error": {err: &RemoteError{StatusCode: 500}, transient: true},
		"service unavailable":   {err: &RemoteError{StatusCode: 503}, transient: true},
		"bad request":           {err: &RemoteError{StatusCode: 400}, transient: false},
		"unauthenticated":       {err: &RemoteError{StatusCode: 401}, transient: false},
		"forbidden":             {err: &RemoteError{StatusCode: 403}, transient: false},
		"quota marked permanent": {
			err:       &RemoteError{StatusCode: 429, Code: "RESOURCE_EXHAUSTED", Retryable: &no},
			transient: false,
		},
		"conflict marked retryable": {err: &RemoteError{StatusCode: 409, Retryable: &yes}, transient: true},
		"wrapped remote error":      {err: errors.Wrap(&RemoteError{StatusCode: 502}, "create matrix"), transient: true},
		"unexpected eof":            {err: errors.WithStack(io.ErrUnexpectedEOF), transient: true},
		"connection reset":          {err: &net.OpError{Op: "read", Err: syscall.ECONNRESET}, transient: true},
		"connection refused":        {err: fmt.Errorf("dial: %w", syscall.ECONNREFUSED), transient: true},
		"dns error":                 {err: &net.DNSError{Err: "no such host", Name: "lab"}, transient: true},
		"explicitly transient":      {err: Transient(fmt.Errorf("flaky")), transient: true},
		"cancelled":                 {err: errors.Wrap(context.Canceled, "create matrix"), transient: false},
		"http unsupported scheme": {
			err:       &url.Error{Op: "Get", URL: "ftp2://lab/x", Err: errors.New(`unsupported protocol scheme "ftp2"`)},
			transient: false,
		},
		"http unknown authority": {
			err:       &url.Error{Op: "Post", URL: "https://lab/v1", Err: x509.UnknownAuthorityError{}},
			transient: false,
		},
		"http redirect refused": {
			err:       &url.Error{Op: "Get", URL: "https://lab/v1", Err: errors.New("stopped after 10 redirects")},
			transient: false,
		},
		"http connection reset": {
			err:       &url.Error{Op: "Post", URL: "https://lab/v1", Err: &net.OpError{Op: "read", Err: syscall.ECONNRESET}},
			transient: true,
		},
		"http dial failure": {
			err:       &url.Error{Op: "Post", URL: "https://lab/v1", Err: &net.OpError{Op: "dial", Err: &net.DNSError{Err: "no such host", Name: "lab"}}},
			transient: true,
		},
		"http call timeout": {
			err:       errors.WithStack(&url.Error{Op: "Get", URL: "https://lab/v1", Err: timeoutError{}}),
			transient: true,
		},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.transient, IsTransient(tc.err))
		})
	}
}

func TestTransient_Nil(t *testing.T) {
	assert.NoError(t, Transient(nil))
}

func TestErrorMessages(t *testing.T) {
	assert.Equal(
		t,
		`value -1 is invalid for field "maxTestsPerShard"; must be at least 1`,
		(&ErrInvalidArgument{Name: "maxTestsPerShard", Value: -1, Message: "must be at least 1"}).Error(),
	)
	assert.Equal(t, "backend returned 503 UNAVAILABLE: try later",
		(&RemoteError{StatusCode: 503, Code: "UNAVAILABLE", Message: "try later"}).Error())

	inner := &RemoteError{StatusCode: 500}
	err := &ErrSubmission{ContextIndex: 2, ShardIndex: 1, Target: "app", Repeat: 0, Err: &ErrRetriesExhausted{Attempts: 3, Err: inner}}
	assert.Contains(t, err.Error(), "matrix_2")
	assert.Contains(t, err.Error(), "giving up after 3 attempt(s)")

	var remote *RemoteError
	assert.True(t, errors.As(err, &remote))
	assert.Same(t, inner, remote)
}
