// Package history records each run so its matrices can be grouped under one history entry.
package history

import (
	"context"
	"sync"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"shardrun/internal/domain"
)

// Recorder creates the history record a run's results are grouped under.
type Recorder interface {
	Create(ctx context.Context, name string) (domain.HistoryRef, error)
}

// LocalRecorder keeps history records in memory
type LocalRecorder struct {
	mu      sync.Mutex
	records []domain.HistoryRef
}

// NewLocalRecorder creates an empty LocalRecorder
func NewLocalRecorder() *LocalRecorder {
	return &LocalRecorder{}
}

// Create returns a new record with a random id
func (r *LocalRecorder) Create(ctx context.Context, name string) (domain.HistoryRef, error) {
	ref := domain.HistoryRef{ID: uuid.NewString(), Name: name}
	r.mu.Lock()
	r.records = append(r.records, ref)
	r.mu.Unlock()
	log.WithField("history", ref.ID).Debugf("created local history record %q", name)
	return ref, nil
}

// Records returns every record created so far
func (r *LocalRecorder) Records() []domain.HistoryRef {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.HistoryRef, len(r.records))
	copy(out, r.records)
	return out
}
