package storage

import (
	"context"
	"time"

	"shardrun/internal/config"
	"shardrun/internal/domain"
)

// Storage persists and loads run results (e.g. for the result viewer).
type Storage interface {
	Save(result *domain.RunResult, meta domain.ResultsMeta, duration time.Duration) error
	Load() (*domain.ResultsOutput, error)
}

// Uploader copies local artifacts to the results bucket.
type Uploader interface {
	Upload(ctx context.Context, paths []string, destination string) ([]domain.RemoteRef, error)
}

// JSONStorage stores results in a JSON file under the configured output path.
type JSONStorage struct {
	cfg *config.Config
}

// NewJSONStorage returns a Storage that reads/writes the config's output JSON path.
func NewJSONStorage(cfg *config.Config) *JSONStorage {
	return &JSONStorage{cfg: cfg}
}
