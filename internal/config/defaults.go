package config

import "time"

const (
	// DefaultProjectPath is the default project path
	DefaultProjectPath = "."
	// DefaultOutputJSONFile is the default output JSON file name
	DefaultOutputJSONFile = "run-results.json"
	// DefaultOutputJSONDir is the default output directory
	DefaultOutputJSONDir = "results"
	// DefaultManifestFile is the local name of the shard manifest
	DefaultManifestFile = "shards.json"
	// DefaultResultsBucket is the directory matrices write their results under
	DefaultResultsBucket = "results/bucket"
	// DefaultRunCount is how many times each shard runs
	DefaultRunCount = 1
	// DefaultMaxTestsPerShard is the shard size when no shard count is set
	DefaultMaxTestsPerShard = 50
	// DefaultTestTime is the weight, in seconds, of a test without history
	DefaultTestTime = 2.0
	// DefaultMatrixTimeout bounds a single matrix on the backend
	DefaultMatrixTimeout = 15 * time.Minute
	// DefaultPollInterval is the delay between matrix state reads
	DefaultPollInterval = 10 * time.Second
	// DefaultPollMaxFailures is how many transient poll errors in a row fail a matrix
	DefaultPollMaxFailures = 5
	// DefaultCallTimeout bounds a single backend call
	DefaultCallTimeout = 60 * time.Second
	// DefaultHistoryBackend keeps history records in memory
	DefaultHistoryBackend = HistoryLocal
	// DefaultLogLevel is the default logrus level
	DefaultLogLevel = "info"
	// DefaultLogFormat is the default log format
	DefaultLogFormat = "text"
	// EnvPrefix prefixes environment overrides, e.g. SHARDRUN_PROJECT
	EnvPrefix = "SHARDRUN"
)

// History backends
const (
	HistoryLocal = "local"
	HistoryMySQL = "mysql"
)

// DefaultPathsToIgnore are the default directories to ignore when scanning for tests
var DefaultPathsToIgnore = []string{
	"vendor",
	"node_modules",
	"build",
	"out",
	"target",
	"bin",
}
