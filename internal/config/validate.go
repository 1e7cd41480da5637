package config

import (
	"math"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"shardrun/internal/domain"
	"shardrun/internal/runerrors"
)

// Validate checks the configuration before anything is discovered or submitted
func (c *Config) Validate() error {
	invalid := func(name string, value interface{}, message string) error {
		return errors.WithStack(&runerrors.ErrInvalidArgument{Name: name, Value: value, Message: message})
	}

	if len(c.Targets) == 0 {
		return invalid("targets", len(c.Targets), "at least one target is required")
	}
	names := make(map[string]bool, len(c.Targets))
	for _, t := range c.Targets {
		if t.Name == "" {
			return invalid("targets.name", t.Name, "every target needs a name")
		}
		if names[t.Name] {
			return invalid("targets.name", t.Name, "target names must be unique")
		}
		names[t.Name] = true
		if t.App == "" {
			return invalid("targets.app", t.Name, "every target needs an app")
		}
		switch domain.ContextKind(t.Type) {
		case domain.InstrumentationContext, "":
			if t.Test == "" {
				return invalid("targets.test", t.Name, "instrumentation targets need a test artifact")
			}
			if t.SourceDir == "" && t.TestList == "" {
				return invalid("targets.sourceDir", t.Name, "instrumentation targets need a source dir or a test list")
			}
		case domain.RoboContext:
		default:
			return invalid("targets.type", t.Type, "type must be instrumentation or robo")
		}
	}

	if !c.DryRun {
		if c.Project == "" {
			return invalid("project", c.Project, "a project is required unless --dry-run is set")
		}
		if c.APIURL == "" {
			return invalid("apiUrl", c.APIURL, "an API url is required unless --dry-run is set")
		}
	}
	if c.ShardCount < 0 {
		return invalid("shardCount", c.ShardCount, "shard count must not be negative")
	}
	if c.ShardCount == 0 && c.MaxTestsPerShard < 1 {
		return invalid("maxTestsPerShard", c.MaxTestsPerShard, "must be at least 1 when no shard count is set")
	}
	if c.ShardCount > 0 && c.MaxTestsPerShard != DefaultMaxTestsPerShard {
		log.WithFields(log.Fields{"shardCount": c.ShardCount, "maxTestsPerShard": c.MaxTestsPerShard}).
			Warn("shard count is set, so the max tests per shard bound is ignored")
	}
	if c.DefaultTestTime < 0 || math.IsNaN(c.DefaultTestTime) || math.IsInf(c.DefaultTestTime, 0) {
		return invalid("defaultTestTime", c.DefaultTestTime, "must be a finite, non-negative number of seconds")
	}
	if c.RunCount < 1 {
		return invalid("runCount", c.RunCount, "every shard must run at least once")
	}
	if c.PollMaxFailures < 0 {
		return invalid("pollMaxFailures", c.PollMaxFailures, "must not be negative")
	}
	if c.MaxInFlight < 0 {
		return invalid("maxInFlight", c.MaxInFlight, "must not be negative")
	}
	switch c.HistoryBackend {
	case HistoryLocal, HistoryMySQL:
	default:
		return invalid("historyBackend", c.HistoryBackend, "must be local or mysql")
	}
	return c.Retry.Validate()
}
