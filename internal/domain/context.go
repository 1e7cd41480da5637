package domain

// ContextKind distinguishes sharded test contexts from app-only runs
type ContextKind string

const (
	// InstrumentationContext runs a chunk of test cases against an app
	InstrumentationContext ContextKind = "instrumentation"
	// RoboContext exercises the app without test cases and is never sharded
	RoboContext ContextKind = "robo"
)

// TestTarget holds the artifacts a context runs
type TestTarget struct {
	Name string `json:"name"`
	Type string `json:"type"`
	App  string `json:"app"`
	Test string `json:"test,omitempty"`
}

// TestContext binds one shard to its execution configuration.
// Index is global across the run and keys the remote results path.
type TestContext struct {
	Index        int
	Kind         ContextKind
	Target       TestTarget
	ShardIndex   int
	Chunk        Chunk
	IgnoredTests []string
}

// IsInstrumentation reports whether the context carries shard data
func (c TestContext) IsInstrumentation() bool {
	return c.Kind == InstrumentationContext
}

// Device is one entry of the device matrix
type Device struct {
	Model       string `json:"model"`
	Version     string `json:"version"`
	Locale      string `json:"locale"`
	Orientation string `json:"orientation"`
}

// RemoteRef maps a local artifact to its uploaded location
type RemoteRef struct {
	Local  string `json:"local"`
	Remote string `json:"remote"`
}

// HistoryRef identifies the history record results are grouped under
type HistoryRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// JobConfig is everything the backend needs to create one test matrix
type JobConfig struct {
	Project        string            `json:"project"`
	ResultsPath    string            `json:"results_path"`
	Kind           ContextKind       `json:"kind"`
	App            string            `json:"app"`
	Test           string            `json:"test,omitempty"`
	TestTargets    []string          `json:"test_targets,omitempty"`
	Devices        []Device          `json:"devices"`
	AdditionalApps []string          `json:"additional_apps,omitempty"`
	OtherFiles     map[string]string `json:"other_files,omitempty"`
	History        HistoryRef        `json:"history"`
	ContextIndex   int               `json:"context_index"`
	ShardIndex     int               `json:"shard_index"`
	Repeat         int               `json:"repeat"`
	TimeoutSeconds int               `json:"timeout_seconds,omitempty"`
}
