package remote

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"shardrun/internal/domain"
	"shardrun/internal/runerrors"
)

// FakeBackend is an in-memory Backend for dry runs and tests.
// Every matrix finishes after PollsToFinish reads with Outcome.
type FakeBackend struct {
	PollsToFinish int
	Outcome       domain.MatrixOutcome

	mu       sync.Mutex
	failures []error
	matrices map[string]*fakeMatrix
	created  []domain.JobConfig
}

type fakeMatrix struct {
	handle domain.MatrixHandle
	polls  int
}

// NewFakeBackend creates a FakeBackend whose matrices succeed after pollsToFinish reads.
func NewFakeBackend(pollsToFinish int) *FakeBackend {
	return &FakeBackend{
		PollsToFinish: pollsToFinish,
		Outcome:       domain.OutcomeSuccess,
		matrices:      make(map[string]*fakeMatrix),
	}
}

// FailNext makes the next CreateMatrix calls fail with errs, in order.
func (b *FakeBackend) FailNext(errs ...error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = append(b.failures, errs...)
}

// Created returns the job configs of every matrix created so far
func (b *FakeBackend) Created() []domain.JobConfig {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]domain.JobConfig, len(b.created))
	copy(out, b.created)
	return out
}

func (b *FakeBackend) CreateMatrix(ctx context.Context, config domain.JobConfig) (domain.MatrixHandle, error) {
	if err := ctx.Err(); err != nil {
		return domain.MatrixHandle{}, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.failures) > 0 {
		err := b.failures[0]
		b.failures = b.failures[1:]
		return domain.MatrixHandle{}, err
	}

	handle := domain.MatrixHandle{
		ID:           "matrix-" + uuid.NewString()[:8],
		State:        domain.MatrixPending,
		ResultsPath:  config.ResultsPath,
		ContextIndex: config.ContextIndex,
		Repeat:       config.Repeat,
	}
	if b.PollsToFinish <= 0 {
		handle.State = domain.MatrixFinished
		handle.Outcome = b.Outcome
	}
	b.matrices[handle.ID] = &fakeMatrix{handle: handle}
	b.created = append(b.created, config)
	return handle, nil
}

func (b *FakeBackend) GetMatrix(ctx context.Context, id string) (domain.MatrixHandle, error) {
	if err := ctx.Err(); err != nil {
		return domain.MatrixHandle{}, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	m, ok := b.matrices[id]
	if !ok {
		return domain.MatrixHandle{}, errors.WithStack(&runerrors.RemoteError{
			StatusCode: 404,
			Code:       "NOT_FOUND",
			Message:    "matrix " + id + " does not exist",
		})
	}
	if !m.handle.State.IsTerminal() {
		m.polls++
		switch {
		case m.polls >= b.PollsToFinish:
			m.handle.State = domain.MatrixFinished
			m.handle.Outcome = b.Outcome
		default:
			m.handle.State = domain.MatrixRunning
		}
	}
	return m.handle, nil
}
