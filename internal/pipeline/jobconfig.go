package pipeline

import (
	"fmt"
	"path/filepath"
	"sort"

	"shardrun/internal/domain"
)

// ResultsDir is the directory, under the run path, that a context's matrices write to.
func ResultsDir(contextIndex int) string {
	return fmt.Sprintf("matrix_%d", contextIndex)
}

// JobConfigBuilder assembles backend job configs from a context and the run's shared settings.
type JobConfigBuilder struct {
	Project        string
	RunPath        string
	Devices        []domain.Device
	History        domain.HistoryRef
	AdditionalApps []string
	OtherFiles     map[string]string
	TimeoutSeconds int
	// Artifacts maps local app and test paths to their uploaded location.
	Artifacts map[string]string
}

// Build returns the job config for one repeat of a context
func (b *JobConfigBuilder) Build(c domain.TestContext, repeat int) domain.JobConfig {
	config := domain.JobConfig{
		Project:        b.Project,
		ResultsPath:    filepath.Join(b.RunPath, ResultsDir(c.Index)),
		Kind:           c.Kind,
		App:            b.artifact(c.Target.App),
		Devices:        b.Devices,
		AdditionalApps: b.AdditionalApps,
		OtherFiles:     b.OtherFiles,
		History:        b.History,
		ContextIndex:   c.Index,
		ShardIndex:     c.ShardIndex,
		Repeat:         repeat,
		TimeoutSeconds: b.TimeoutSeconds,
	}
	if c.IsInstrumentation() {
		config.Test = b.artifact(c.Target.Test)
		config.TestTargets = TestTargets(c.Chunk)
	}
	return config
}

func (b *JobConfigBuilder) artifact(local string) string {
	if remote, ok := b.Artifacts[local]; ok {
		return remote
	}
	return local
}

// TestTargets turns a chunk into the backend's "class <id>" test target list
func TestTargets(chunk domain.Chunk) []string {
	targets := make([]string, len(chunk))
	for i, id := range chunk {
		targets[i] = "class " + id
	}
	return targets
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
