package config

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// LoadFile reads a YAML/JSON/TOML config file on top of the defaults.
// SHARDRUN_* environment variables override file values, e.g. SHARDRUN_TOKEN.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, New())

	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrapf(err, "reading config file %s", path)
	}
	cfg := New()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrapf(err, "parsing config file %s", path)
	}
	return cfg, nil
}

// setDefaults registers every scalar default so AutomaticEnv can see the keys.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("projectPath", cfg.ProjectPath)
	v.SetDefault("project", cfg.Project)
	v.SetDefault("apiUrl", cfg.APIURL)
	v.SetDefault("token", cfg.Token)
	v.SetDefault("shardCount", cfg.ShardCount)
	v.SetDefault("maxTestsPerShard", cfg.MaxTestsPerShard)
	v.SetDefault("useTiming", cfg.UseTiming)
	v.SetDefault("timingReport", cfg.TimingReport)
	v.SetDefault("defaultTestTime", cfg.DefaultTestTime)
	v.SetDefault("filter", cfg.Filter)
	v.SetDefault("runCount", cfg.RunCount)
	v.SetDefault("maxInFlight", cfg.MaxInFlight)
	v.SetDefault("async", cfg.Async)
	v.SetDefault("dryRun", cfg.DryRun)
	v.SetDefault("matrixTimeout", cfg.MatrixTimeout)
	v.SetDefault("pollInterval", cfg.PollInterval)
	v.SetDefault("pollTimeout", cfg.PollTimeout)
	v.SetDefault("pollMaxFailures", cfg.PollMaxFailures)
	v.SetDefault("callTimeout", cfg.CallTimeout)
	v.SetDefault("retry.attempts", cfg.Retry.Attempts)
	v.SetDefault("retry.delay", cfg.Retry.Delay)
	v.SetDefault("retry.maxDelay", cfg.Retry.MaxDelay)
	v.SetDefault("retry.maxJitter", cfg.Retry.MaxJitter)
	v.SetDefault("historyName", cfg.HistoryName)
	v.SetDefault("historyBackend", cfg.HistoryBackend)
	v.SetDefault("resultsBucket", cfg.ResultsBucket)
	v.SetDefault("outputJsonFile", cfg.OutputJSONFile)
	v.SetDefault("outputJsonDir", cfg.OutputJSONDir)
	v.SetDefault("manifestFile", cfg.ManifestFile)
	v.SetDefault("pathsToIgnore", cfg.PathsToIgnore)
	v.SetDefault("logLevel", cfg.LogLevel)
	v.SetDefault("logFormat", cfg.LogFormat)
	v.SetDefault("metricsAddr", cfg.MetricsAddr)
}
