package execution

import (
	"context"
	"time"

	"github.com/avast/retry-go"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"shardrun/internal/domain"
	"shardrun/internal/runerrors"
)

const (
	DefaultAttempts  = 3
	DefaultDelay     = time.Second
	DefaultMaxDelay  = 30 * time.Second
	DefaultMaxJitter = 500 * time.Millisecond
)

// RetryPolicy bounds how a failed matrix creation is retried.
type RetryPolicy struct {
	Attempts  int
	Delay     time.Duration
	MaxDelay  time.Duration
	MaxJitter time.Duration
}

// DefaultRetryPolicy returns three attempts with exponential backoff and jitter.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Attempts:  DefaultAttempts,
		Delay:     DefaultDelay,
		MaxDelay:  DefaultMaxDelay,
		MaxJitter: DefaultMaxJitter,
	}
}

// Validate checks that the policy can run at least once.
func (p RetryPolicy) Validate() error {
	if p.Attempts < 1 {
		return errors.WithStack(&runerrors.ErrInvalidArgument{
			Name:    "attempts",
			Value:   p.Attempts,
			Message: "at least one attempt is required",
		})
	}
	if p.Delay < 0 || p.MaxDelay < 0 || p.MaxJitter < 0 {
		return errors.WithStack(&runerrors.ErrInvalidArgument{
			Name:    "delay",
			Value:   p.Delay,
			Message: "retry delays must not be negative",
		})
	}
	return nil
}

// CreateJobFunc creates one remote matrix.
type CreateJobFunc func(ctx context.Context) (domain.MatrixHandle, error)

// Submitter creates remote matrices, retrying transient failures.
type Submitter struct {
	policy RetryPolicy
}

// NewSubmitter creates a Submitter. An invalid policy is rejected.
func NewSubmitter(policy RetryPolicy) (*Submitter, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	return &Submitter{policy: policy}, nil
}

// ExecuteWithRetry runs createJob until it succeeds, fails permanently or runs out of attempts.
//
// A permanent error is returned unchanged after one attempt. Running out of attempts on
// transient errors returns *runerrors.ErrRetriesExhausted wrapping the last failure.
// Cancelling ctx stops retrying and returns the context error.
func (s *Submitter) ExecuteWithRetry(ctx context.Context, createJob CreateJobFunc) (domain.MatrixHandle, error) {
	if err := ctx.Err(); err != nil {
		return domain.MatrixHandle{}, err
	}

	var handle domain.MatrixHandle
	attempts := 0
	start := time.Now()
	var delayType retry.DelayTypeFunc = retry.BackOffDelay
	if s.policy.MaxJitter > 0 {
		delayType = retry.CombineDelay(retry.BackOffDelay, retry.RandomDelay)
	}
	err := retry.Do(
		func() error {
			attempts++
			h, err := createJob(ctx)
			if err != nil {
				return err
			}
			handle = h
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(uint(s.policy.Attempts)),
		retry.Delay(s.policy.Delay),
		retry.MaxDelay(s.policy.MaxDelay),
		retry.MaxJitter(s.policy.MaxJitter),
		retry.DelayType(delayType),
		retry.RetryIf(runerrors.IsTransient),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			if int(n)+1 >= s.policy.Attempts {
				return
			}
			recordRetry()
			log.WithField("attempt", n+1).Warnf("matrix creation failed, retrying: %s", err)
		}),
	)
	recordSubmission(err, time.Since(start))

	switch {
	case err == nil:
		return handle, nil
	case ctx.Err() != nil:
		return domain.MatrixHandle{}, ctx.Err()
	case runerrors.IsTransient(err) && attempts >= s.policy.Attempts:
		return domain.MatrixHandle{}, &runerrors.ErrRetriesExhausted{Attempts: attempts, Err: err}
	default:
		return domain.MatrixHandle{}, err
	}
}

// WithRetry wraps createJob so every call goes through ExecuteWithRetry with policy.
func WithRetry(createJob CreateJobFunc, policy RetryPolicy) (CreateJobFunc, error) {
	s, err := NewSubmitter(policy)
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context) (domain.MatrixHandle, error) {
		return s.ExecuteWithRetry(ctx, createJob)
	}, nil
}
