package cli

import "shardrun/internal/config"

// Flags holds command-line flags
type Flags struct {
	ConfigFile       string
	ShardCount       int
	MaxTestsPerShard int
	UseTiming        bool
	TimingReport     string
	Filter           string
	Repeat           int
	MaxInFlight      int
	Async            bool
	DryRun           bool
	LogLevel         string
	MetricsAddr      string
	WriteManifest    bool
	TestCases        bool
	FromManifest     string
}

// ToConfigFlags converts CLI flags to config flags
func (f *Flags) ToConfigFlags() config.Flags {
	return config.Flags{
		ConfigFile:       f.ConfigFile,
		ShardCount:       f.ShardCount,
		MaxTestsPerShard: f.MaxTestsPerShard,
		UseTiming:        f.UseTiming,
		TimingReport:     f.TimingReport,
		Filter:           f.Filter,
		RunCount:         f.Repeat,
		MaxInFlight:      f.MaxInFlight,
		Async:            f.Async,
		DryRun:           f.DryRun,
		LogLevel:         f.LogLevel,
		MetricsAddr:      f.MetricsAddr,
		WriteManifest:    f.WriteManifest,
	}
}
