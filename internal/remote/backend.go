// Package remote talks to the device lab that runs test matrices.
package remote

import (
	"context"

	"shardrun/internal/domain"
)

// Backend creates test matrices and reports their progress.
type Backend interface {
	CreateMatrix(ctx context.Context, config domain.JobConfig) (domain.MatrixHandle, error)
	GetMatrix(ctx context.Context, id string) (domain.MatrixHandle, error)
}
