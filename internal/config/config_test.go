package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shardrun/internal/runerrors"
)

const sampleConfig = `
project: demo-project
apiUrl: https://testing.example.com
shardCount: 4
useTiming: true
defaultTestTime: 1.5
runCount: 2
pollInterval: 5s
retry:
  attempts: 5
  delay: 200ms
targets:
  - name: app
    app: app/build/app.apk
    test: app/build/app-test.apk
    sourceDir: app/src/androidTest
  - name: smoke
    type: robo
    app: app/build/app.apk
devices:
  - model=Pixel2,version=28
`

func writeConfig(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "shardrun.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func validConfig() *Config {
	cfg := New()
	cfg.Project = "demo"
	cfg.APIURL = "https://testing.example.com"
	cfg.Targets = []Target{{Name: "app", App: "app.apk", Test: "test.apk", SourceDir: "src"}}
	return cfg
}

func TestLoadFile(t *testing.T) {
	cfg, err := LoadFile(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, "demo-project", cfg.Project)
	assert.Equal(t, 4, cfg.ShardCount)
	assert.True(t, cfg.UseTiming)
	assert.Equal(t, 1.5, cfg.DefaultTestTime)
	assert.Equal(t, 2, cfg.RunCount)
	assert.Equal(t, 5*time.Second, cfg.PollInterval)
	assert.Equal(t, 5, cfg.Retry.Attempts)
	assert.Equal(t, 200*time.Millisecond, cfg.Retry.Delay)
	assert.Equal(t, 30*time.Second, cfg.Retry.MaxDelay)
	require.Len(t, cfg.Targets, 2)
	assert.Equal(t, "app/src/androidTest", cfg.Targets[0].SourceDir)
	assert.Equal(t, "robo", cfg.Targets[1].Type)
	assert.Equal(t, []string{"model=Pixel2,version=28"}, cfg.Devices)
	// untouched defaults survive
	assert.Equal(t, DefaultMaxTestsPerShard, cfg.MaxTestsPerShard)
	assert.Equal(t, DefaultHistoryBackend, cfg.HistoryBackend)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFile_EnvOverride(t *testing.T) {
	t.Setenv("SHARDRUN_TOKEN", "from-env")
	t.Setenv("SHARDRUN_SHARDCOUNT", "9")

	cfg, err := LoadFile(writeConfig(t, sampleConfig))
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Token)
	assert.Equal(t, 9, cfg.ShardCount)
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yml"))
	assert.Error(t, err)
}

func TestLoad_FlagsOverrideFile(t *testing.T) {
	cfg, err := Load(Flags{
		ConfigFile:   writeConfig(t, sampleConfig),
		ShardCount:   2,
		RunCount:     3,
		Filter:       "!*flaky",
		TimingReport: "report.xml",
		DryRun:       true,
	})
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.ShardCount)
	assert.Equal(t, 3, cfg.RunCount)
	assert.Equal(t, "!*flaky", cfg.Filter)
	assert.Equal(t, "report.xml", cfg.TimingReport)
	assert.True(t, cfg.UseTiming)
	assert.True(t, cfg.DryRun)
	assert.Equal(t, "report.xml", cfg.Flags.TimingReport)
}

func TestLoad_NoFile(t *testing.T) {
	cfg, err := Load(Flags{})
	require.NoError(t, err)
	assert.Equal(t, New(), cfg)
}

func TestConfig_Paths(t *testing.T) {
	cfg := New()
	cfg.ProjectPath = "/project"

	assert.Equal(t, "/project/results/run-results.json", cfg.GetOutputPath())
	assert.Equal(t, "/project/results/shards.json", cfg.GetManifestPath())
	assert.Equal(t, "/project/results/bucket", cfg.GetResultsBucket())
	assert.Equal(t, "/abs/app.apk", cfg.ResolvePath("/abs/app.apk"))
	assert.Equal(t, "/project/app.apk", cfg.ResolvePath("app.apk"))
}

func TestConfig_Validate(t *testing.T) {
	tests := map[string]struct {
		modify func(cfg *Config)
		field  string
	}{
		"no targets":         {modify: func(c *Config) { c.Targets = nil }, field: "targets"},
		"duplicate target":   {modify: func(c *Config) { c.Targets = append(c.Targets, c.Targets[0]) }, field: "targets.name"},
		"missing test":       {modify: func(c *Config) { c.Targets[0].Test = "" }, field: "targets.test"},
		"missing sources":    {modify: func(c *Config) { c.Targets[0].SourceDir = "" }, field: "targets.sourceDir"},
		"unknown type":       {modify: func(c *Config) { c.Targets[0].Type = "game-loop" }, field: "targets.type"},
		"no project":         {modify: func(c *Config) { c.Project = "" }, field: "project"},
		"negative shards":    {modify: func(c *Config) { c.ShardCount = -1 }, field: "shardCount"},
		"zero shard size":    {modify: func(c *Config) { c.MaxTestsPerShard = 0 }, field: "maxTestsPerShard"},
		"zero run count":     {modify: func(c *Config) { c.RunCount = 0 }, field: "runCount"},
		"negative test time": {modify: func(c *Config) { c.DefaultTestTime = -1 }, field: "defaultTestTime"},
		"bad history":        {modify: func(c *Config) { c.HistoryBackend = "redis" }, field: "historyBackend"},
		"no retry attempts":  {modify: func(c *Config) { c.Retry.Attempts = 0 }, field: "attempts"},
		"negative poll cap":  {modify: func(c *Config) { c.PollMaxFailures = -1 }, field: "pollMaxFailures"},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := validConfig()
			tc.modify(cfg)
			err := cfg.Validate()
			var invalid *runerrors.ErrInvalidArgument
			require.True(t, errors.As(err, &invalid), "expected ErrInvalidArgument, got %v", err)
			assert.Equal(t, tc.field, invalid.Name)
		})
	}
}

func TestConfig_ValidateDryRunNeedsNoProject(t *testing.T) {
	cfg := validConfig()
	cfg.Project, cfg.APIURL = "", ""
	cfg.DryRun = true
	assert.NoError(t, cfg.Validate())
}

func TestConfig_ValidateWarnsWhenShardSizeIgnored(t *testing.T) {
	tests := map[string]struct {
		shardCount       int
		maxTestsPerShard int
		warned           bool
	}{
		"shard count overrides custom size": {shardCount: 4, maxTestsPerShard: 10, warned: true},
		"shard count with default size":     {shardCount: 4, maxTestsPerShard: DefaultMaxTestsPerShard, warned: false},
		"size mode":                         {shardCount: 0, maxTestsPerShard: 10, warned: false},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			hook := test.NewGlobal()
			defer hook.Reset()

			cfg := validConfig()
			cfg.ShardCount = tc.shardCount
			cfg.MaxTestsPerShard = tc.maxTestsPerShard
			require.NoError(t, cfg.Validate())

			warned := false
			for _, entry := range hook.AllEntries() {
				if entry.Level == log.WarnLevel && entry.Data["maxTestsPerShard"] == tc.maxTestsPerShard {
					warned = true
				}
			}
			assert.Equal(t, tc.warned, warned)
		})
	}
}
