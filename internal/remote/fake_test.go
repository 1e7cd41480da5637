package remote

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shardrun/internal/domain"
	"shardrun/internal/runerrors"
)

func TestFakeBackend_Lifecycle(t *testing.T) {
	backend := NewFakeBackend(2)
	ctx := context.Background()

	handle, err := backend.CreateMatrix(ctx, domain.JobConfig{ResultsPath: "r/matrix_0", ContextIndex: 0})
	require.NoError(t, err)
	assert.Equal(t, domain.MatrixPending, handle.State)
	assert.Equal(t, "r/matrix_0", handle.ResultsPath)

	h, err := backend.GetMatrix(ctx, handle.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.MatrixRunning, h.State)

	h, err = backend.GetMatrix(ctx, handle.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.MatrixFinished, h.State)
	assert.Equal(t, domain.OutcomeSuccess, h.Outcome)

	assert.Len(t, backend.Created(), 1)
}

func TestFakeBackend_InjectedFailures(t *testing.T) {
	backend := NewFakeBackend(0)
	injected := &runerrors.RemoteError{StatusCode: 500}
	backend.FailNext(injected)

	_, err := backend.CreateMatrix(context.Background(), domain.JobConfig{})
	assert.Equal(t, injected, err)

	handle, err := backend.CreateMatrix(context.Background(), domain.JobConfig{})
	require.NoError(t, err)
	assert.Equal(t, domain.MatrixFinished, handle.State)
}

func TestFakeBackend_UnknownMatrix(t *testing.T) {
	_, err := NewFakeBackend(1).GetMatrix(context.Background(), "missing")
	var remote *runerrors.RemoteError
	require.True(t, errors.As(err, &remote))
	assert.Equal(t, 404, remote.StatusCode)
}
