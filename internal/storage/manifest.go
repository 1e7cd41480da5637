package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"shardrun/internal/domain"
)

// ManifestEntry records what one matrix runs. Keys are stable per context index so the
// manifest lines up with the remote matrix_<n> results directories.
type ManifestEntry struct {
	Target     string       `json:"target"`
	Kind       string       `json:"kind"`
	App        string       `json:"app"`
	Test       string       `json:"test,omitempty"`
	ShardIndex int          `json:"shard_index"`
	Tests      domain.Chunk `json:"tests"`
	Ignored    []string     `json:"ignored,omitempty"`
}

// Manifest maps "matrix-<contextIndex>" to its entry
type Manifest map[string]ManifestEntry

// ManifestKey returns the manifest key for a context index
func ManifestKey(contextIndex int) string {
	return fmt.Sprintf("matrix-%d", contextIndex)
}

// NewManifest builds the manifest for a set of contexts
func NewManifest(contexts []domain.TestContext) Manifest {
	manifest := make(Manifest, len(contexts))
	for _, c := range contexts {
		tests := c.Chunk
		if tests == nil {
			tests = domain.Chunk{}
		}
		manifest[ManifestKey(c.Index)] = ManifestEntry{
			Target:     c.Target.Name,
			Kind:       string(c.Kind),
			App:        c.Target.App,
			Test:       c.Target.Test,
			ShardIndex: c.ShardIndex,
			Tests:      tests,
			Ignored:    c.IgnoredTests,
		}
	}
	return manifest
}

// ManifestStore writes the shard manifest locally and copies it next to the remote results
type ManifestStore struct {
	localPath string
	uploader  Uploader
}

// NewManifestStore creates a ManifestStore. uploader may be nil to keep the manifest local.
func NewManifestStore(localPath string, uploader Uploader) *ManifestStore {
	return &ManifestStore{localPath: localPath, uploader: uploader}
}

// Persist writes the manifest for contexts and uploads it to destination.
// It returns the remote location, or the local path when there is no uploader.
func (m *ManifestStore) Persist(ctx context.Context, contexts []domain.TestContext, destination string) (string, error) {
	if err := writeJSON(m.localPath, NewManifest(contexts)); err != nil {
		return "", errors.WithMessage(err, "writing shard manifest")
	}
	if m.uploader == nil || destination == "" {
		return m.localPath, nil
	}
	refs, err := m.uploader.Upload(ctx, []string{m.localPath}, destination)
	if err != nil {
		return "", errors.WithMessage(err, "uploading shard manifest")
	}
	return refs[0].Remote, nil
}

// LoadManifest reads a manifest written by Persist
func LoadManifest(path string) (Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read shard manifest")
	}
	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, errors.Wrapf(err, "parse shard manifest %s", filepath.Base(path))
	}
	return manifest, nil
}
