package execution

import (
	"context"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"shardrun/internal/domain"
	"shardrun/internal/runerrors"
)

const (
	DefaultPollInterval    = 10 * time.Second
	DefaultPollParallelism = 8
	// DefaultMaxPollFailures is how many transient read errors in a row a matrix may see
	DefaultMaxPollFailures = 5
)

// MatrixGetter reads the latest state of a remote matrix.
type MatrixGetter interface {
	GetMatrix(ctx context.Context, id string) (domain.MatrixHandle, error)
}

// Poller waits for submitted matrices to reach a terminal state.
type Poller struct {
	interval    time.Duration
	parallelism int
	timeout     time.Duration
	maxFailures int
}

// NewPoller creates a Poller. timeout <= 0 waits until ctx is done.
func NewPoller(interval time.Duration, parallelism int, timeout time.Duration) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if parallelism <= 0 {
		parallelism = DefaultPollParallelism
	}
	return &Poller{interval: interval, parallelism: parallelism, timeout: timeout, maxFailures: DefaultMaxPollFailures}
}

// SetMaxFailures sets how many consecutive transient read errors a matrix may see before
// the wait fails. n < 1 restores the default.
func (p *Poller) SetMaxFailures(n int) {
	if n < 1 {
		n = DefaultMaxPollFailures
	}
	p.maxFailures = n
}

// Wait polls every submission until its matrix is terminal and returns the submissions
// with their final handles, in the order given.
// Transient read failures are logged and polled again, up to maxFailures in a row for
// one matrix. Any other failure stops the wait.
func (p *Poller) Wait(ctx context.Context, submissions []domain.Submission, getter MatrixGetter) ([]domain.Submission, error) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	final := make([]domain.Submission, len(submissions))
	copy(final, submissions)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.parallelism)
	for i := range final {
		i := i
		g.Go(func() error {
			handle, err := p.waitOne(ctx, final[i].Handle, getter)
			if err != nil {
				return err
			}
			final[i].Handle = handle
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return final, nil
}

func (p *Poller) waitOne(ctx context.Context, handle domain.MatrixHandle, getter MatrixGetter) (domain.MatrixHandle, error) {
	logger := log.WithFields(log.Fields{"matrix": handle.ID, "context": handle.ContextIndex, "repeat": handle.Repeat})
	failures := 0
	for !handle.State.IsTerminal() {
		select {
		case <-ctx.Done():
			return domain.MatrixHandle{}, errors.Wrapf(ctx.Err(), "waiting for matrix %s", handle.ID)
		case <-time.After(p.interval):
		}

		latest, err := getter.GetMatrix(ctx, handle.ID)
		if err != nil {
			if runerrors.IsTransient(err) && ctx.Err() == nil {
				failures++
				if failures >= p.maxFailures {
					return domain.MatrixHandle{}, errors.WithMessagef(
						&runerrors.ErrRetriesExhausted{Attempts: failures, Err: err}, "polling matrix %s", handle.ID)
				}
				logger.Warnf("polling failed (%d/%d), will try again: %s", failures, p.maxFailures, err)
				continue
			}
			return domain.MatrixHandle{}, errors.WithMessagef(err, "polling matrix %s", handle.ID)
		}
		failures = 0
		if latest.State != handle.State {
			logger.Debugf("%s -> %s", handle.State, latest.State)
		}
		latest.ContextIndex = handle.ContextIndex
		latest.Repeat = handle.Repeat
		if latest.ResultsPath == "" {
			latest.ResultsPath = handle.ResultsPath
		}
		handle = latest
	}
	recordMatrixState(handle.State)
	logger.Infof("matrix finished: %s %s", handle.State, handle.Outcome)
	return handle, nil
}
