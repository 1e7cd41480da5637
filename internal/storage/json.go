package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"

	"shardrun/internal/domain"
)

// Save writes the run result to the configured JSON output file.
func (s *JSONStorage) Save(result *domain.RunResult, meta domain.ResultsMeta, duration time.Duration) error {
	meta.Matrices = result.Handles()
	meta.TestCases = len(result.TestCases)
	meta.IgnoredTests = len(result.IgnoredTests)
	meta.Outcome = string(result.Outcome())
	meta.Duration = duration.String()
	meta.DurationSeconds = duration.Seconds()
	if meta.Timestamp == "" {
		meta.Timestamp = time.Now().Format(time.RFC3339)
	}

	output := domain.ResultsOutput{Meta: meta, Result: *result}
	return writeJSON(s.cfg.GetOutputPath(), output)
}

// Load reads the last run result from the configured JSON output file.
func (s *JSONStorage) Load() (*domain.ResultsOutput, error) {
	path := s.cfg.GetOutputPath()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read results file")
	}
	var output domain.ResultsOutput
	if err := json.Unmarshal(data, &output); err != nil {
		return nil, errors.Wrap(err, "parse results")
	}
	return &output, nil
}

func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "create output dir")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrapf(err, "write %s", path)
	}
	return nil
}
