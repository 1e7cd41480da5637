package pipeline

import (
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"shardrun/internal/config"
	"shardrun/internal/discovery"
	"shardrun/internal/domain"
	"shardrun/internal/shard"
	"shardrun/internal/timing"
)

// ContextBuilder turns the configured targets into test contexts, one per shard.
type ContextBuilder struct {
	cfg         *config.Config
	discoverer  *discovery.Discoverer
	partitioner shard.Partitioner
	timing      timing.Provider
}

// NewContextBuilder creates a ContextBuilder. provider may be nil when timing is not used.
func NewContextBuilder(cfg *config.Config, discoverer *discovery.Discoverer, partitioner shard.Partitioner, provider timing.Provider) *ContextBuilder {
	return &ContextBuilder{
		cfg:         cfg,
		discoverer:  discoverer,
		partitioner: partitioner,
		timing:      provider,
	}
}

// Policy returns the partition policy configured for the run
func (b *ContextBuilder) Policy() shard.Policy {
	return shard.Policy{
		ShardCount:          b.cfg.ShardCount,
		MaxTestsPerShard:    b.cfg.MaxTestsPerShard,
		UseHistoricalTiming: b.cfg.UseTiming,
		FilterExpression:    b.cfg.Filter,
	}
}

// Build returns the contexts of every target, with indexes that are global across the
// run, plus the shard set of each instrumentation target by target name.
// A target's ignored tests travel with its first context.
func (b *ContextBuilder) Build() ([]domain.TestContext, map[string]domain.ShardSet, error) {
	var contexts []domain.TestContext
	sets := make(map[string]domain.ShardSet)

	for _, target := range b.cfg.Targets {
		testTarget := domain.TestTarget{
			Name: target.Name,
			Type: target.Type,
			App:  b.cfg.ResolvePath(target.App),
			Test: b.cfg.ResolvePath(target.Test),
		}
		if domain.ContextKind(target.Type) == domain.RoboContext {
			contexts = append(contexts, domain.TestContext{
				Index:  len(contexts),
				Kind:   domain.RoboContext,
				Target: testTarget,
			})
			continue
		}
		testTarget.Type = string(domain.InstrumentationContext)

		set, err := b.partition(target)
		if err != nil {
			return nil, nil, errors.WithMessagef(err, "target %s", target.Name)
		}
		sets[target.Name] = set
		if set.Size() == 0 {
			log.WithField("target", target.Name).Warnf("no test cases left to run, %d ignored", len(set.Ignored))
			continue
		}

		for i, chunk := range set.Chunks {
			c := domain.TestContext{
				Index:      len(contexts),
				Kind:       domain.InstrumentationContext,
				Target:     testTarget,
				ShardIndex: i,
				Chunk:      chunk,
			}
			if i == 0 {
				c.IgnoredTests = set.Ignored
			}
			contexts = append(contexts, c)
		}
		log.WithField("target", target.Name).Infof(
			"%d test case(s) in %d shard(s), %d ignored", len(set.TestCases()), set.Size(), len(set.Ignored))
	}
	return contexts, sets, nil
}

func (b *ContextBuilder) partition(target config.Target) (domain.ShardSet, error) {
	var cases []domain.TestCase
	var err error
	if target.TestList != "" {
		cases, err = discovery.LoadList(b.cfg.ResolvePath(target.TestList))
	} else {
		cases, err = b.discoverer.Discover(b.cfg.ResolvePath(target.SourceDir))
	}
	if err != nil {
		return domain.ShardSet{}, err
	}

	if b.cfg.UseTiming {
		if cases, err = timing.Apply(cases, b.timing, b.cfg.DefaultTestTime); err != nil {
			return domain.ShardSet{}, err
		}
	}
	return b.partitioner.Partition(cases, b.Policy())
}
