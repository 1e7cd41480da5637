package config

import (
	"path/filepath"
	"time"

	"shardrun/internal/execution"
)

// Target is one app under test, with the test sources it is sharded from
type Target struct {
	Name      string `mapstructure:"name"`
	Type      string `mapstructure:"type"`
	App       string `mapstructure:"app"`
	Test      string `mapstructure:"test"`
	SourceDir string `mapstructure:"sourceDir"`
	TestList  string `mapstructure:"testList"`
}

// Config holds all configuration for the application
type Config struct {
	// Project settings
	ProjectPath string `mapstructure:"projectPath"`
	Project     string `mapstructure:"project"`
	APIURL      string `mapstructure:"apiUrl"`
	Token       string `mapstructure:"token"`

	// What runs where
	Targets        []Target          `mapstructure:"targets"`
	Devices        []string          `mapstructure:"devices"`
	AdditionalApps []string          `mapstructure:"additionalApps"`
	OtherFiles     map[string]string `mapstructure:"otherFiles"`

	// Sharding
	ShardCount       int     `mapstructure:"shardCount"`
	MaxTestsPerShard int     `mapstructure:"maxTestsPerShard"`
	UseTiming        bool    `mapstructure:"useTiming"`
	TimingReport     string  `mapstructure:"timingReport"`
	DefaultTestTime  float64 `mapstructure:"defaultTestTime"`
	Filter           string  `mapstructure:"filter"`

	// Execution settings
	RunCount      int                   `mapstructure:"runCount"`
	MaxInFlight   int                   `mapstructure:"maxInFlight"`
	Async         bool                  `mapstructure:"async"`
	DryRun        bool                  `mapstructure:"dryRun"`
	MatrixTimeout time.Duration         `mapstructure:"matrixTimeout"`
	PollInterval  time.Duration         `mapstructure:"pollInterval"`
	PollTimeout   time.Duration         `mapstructure:"pollTimeout"`
	CallTimeout   time.Duration         `mapstructure:"callTimeout"`
	Retry         execution.RetryPolicy `mapstructure:"retry"`
	// PollMaxFailures bounds consecutive transient read errors per matrix
	PollMaxFailures int `mapstructure:"pollMaxFailures"`

	// History
	HistoryName    string `mapstructure:"historyName"`
	HistoryBackend string `mapstructure:"historyBackend"`

	// Output settings
	ResultsBucket  string `mapstructure:"resultsBucket"`
	OutputJSONFile string `mapstructure:"outputJsonFile"`
	OutputJSONDir  string `mapstructure:"outputJsonDir"`
	ManifestFile   string `mapstructure:"manifestFile"`

	// Paths to ignore when scanning
	PathsToIgnore []string `mapstructure:"pathsToIgnore"`

	LogLevel    string `mapstructure:"logLevel"`
	LogFormat   string `mapstructure:"logFormat"`
	MetricsAddr string `mapstructure:"metricsAddr"`

	// Command flags
	Flags Flags `mapstructure:"-"`
}

// Flags holds command-line flags. Zero values leave the configured value alone.
type Flags struct {
	ConfigFile       string
	ShardCount       int
	MaxTestsPerShard int
	UseTiming        bool
	TimingReport     string
	Filter           string
	RunCount         int
	MaxInFlight      int
	Async            bool
	DryRun           bool
	LogLevel         string
	MetricsAddr      string
	WriteManifest    bool
}

// New creates a new Config with defaults
func New() *Config {
	cfg := &Config{
		ProjectPath:      DefaultProjectPath,
		MaxTestsPerShard: DefaultMaxTestsPerShard,
		DefaultTestTime:  DefaultTestTime,
		RunCount:         DefaultRunCount,
		MatrixTimeout:    DefaultMatrixTimeout,
		PollInterval:     DefaultPollInterval,
		PollMaxFailures:  DefaultPollMaxFailures,
		CallTimeout:      DefaultCallTimeout,
		Retry:            execution.DefaultRetryPolicy(),
		HistoryBackend:   DefaultHistoryBackend,
		ResultsBucket:    DefaultResultsBucket,
		OutputJSONFile:   DefaultOutputJSONFile,
		OutputJSONDir:    DefaultOutputJSONDir,
		ManifestFile:     DefaultManifestFile,
		LogLevel:         DefaultLogLevel,
		LogFormat:        DefaultLogFormat,
		OtherFiles:       map[string]string{},
	}
	// Copy default paths to ignore
	cfg.PathsToIgnore = make([]string, len(DefaultPathsToIgnore))
	copy(cfg.PathsToIgnore, DefaultPathsToIgnore)
	return cfg
}

// Load reads the config file named by flags, if any, and applies the flag overrides
func Load(flags Flags) (*Config, error) {
	cfg := New()
	if flags.ConfigFile != "" {
		var err error
		if cfg, err = LoadFile(flags.ConfigFile); err != nil {
			return nil, err
		}
	}
	cfg.Apply(flags)
	return cfg, nil
}

// Apply overrides configured values with the flags that were set
func (c *Config) Apply(flags Flags) {
	c.Flags = flags

	if flags.ShardCount > 0 {
		c.ShardCount = flags.ShardCount
	}
	if flags.MaxTestsPerShard > 0 {
		c.MaxTestsPerShard = flags.MaxTestsPerShard
	}
	if flags.UseTiming {
		c.UseTiming = true
	}
	if flags.TimingReport != "" {
		c.TimingReport = flags.TimingReport
		c.UseTiming = true
	}
	if flags.Filter != "" {
		c.Filter = flags.Filter
	}
	if flags.RunCount > 0 {
		c.RunCount = flags.RunCount
	}
	if flags.MaxInFlight > 0 {
		c.MaxInFlight = flags.MaxInFlight
	}
	if flags.Async {
		c.Async = true
	}
	if flags.DryRun {
		c.DryRun = true
	}
	if flags.LogLevel != "" {
		c.LogLevel = flags.LogLevel
	}
	if flags.MetricsAddr != "" {
		c.MetricsAddr = flags.MetricsAddr
	}
}

// ResolvePath makes p relative to the project path unless it is absolute
func (c *Config) ResolvePath(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.ProjectPath, p)
}

// GetOutputPath returns the absolute path of the results JSON file, so run and view
// read and write the same file regardless of cwd.
func (c *Config) GetOutputPath() string {
	p := filepath.Join(c.ResolvePath(c.OutputJSONDir), c.OutputJSONFile)
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}

// GetManifestPath returns the local path of the shard manifest
func (c *Config) GetManifestPath() string {
	return filepath.Join(c.ResolvePath(c.OutputJSONDir), c.ManifestFile)
}

// GetResultsBucket returns the bucket directory matrices write to
func (c *Config) GetResultsBucket() string {
	return c.ResolvePath(c.ResultsBucket)
}
