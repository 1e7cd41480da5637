package commands

import (
	"context"
	"fmt"
	"sort"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"shardrun/internal/cli"
	"shardrun/internal/config"
	"shardrun/internal/domain"
	"shardrun/internal/storage"
	"shardrun/internal/ui"
)

// ShardsCommand prints the shards a run would submit
type ShardsCommand struct {
	cfg   func() *config.Config
	flags *cli.Flags
}

// Execute runs the command
func (sc *ShardsCommand) Execute(cmd *cobra.Command, args []string) error {
	formatter := ui.NewFormatter()

	if sc.flags.FromManifest != "" {
		manifest, err := storage.LoadManifest(sc.flags.FromManifest)
		if err != nil {
			return err
		}
		formatter.PrintShards(contextsFromManifest(manifest), sc.flags.TestCases)
		return nil
	}

	cfg := sc.cfg()
	cfg.DryRun = true
	if err := cfg.Validate(); err != nil {
		return err
	}

	builder, err := contextBuilder(cfg)
	if err != nil {
		return err
	}
	contexts, _, err := builder.Build()
	if err != nil {
		return err
	}
	formatter.PrintShards(contexts, sc.flags.TestCases)

	if cfg.Flags.WriteManifest {
		location, err := storage.NewManifestStore(cfg.GetManifestPath(), nil).Persist(context.Background(), contexts, "")
		if err != nil {
			return err
		}
		log.Infof("shard manifest written to %s", location)
	}
	return nil
}

// contextsFromManifest rebuilds the contexts a manifest was written from, in index order.
// Entries with unrecognised keys are skipped.
func contextsFromManifest(manifest storage.Manifest) []domain.TestContext {
	contexts := make([]domain.TestContext, 0, len(manifest))
	for key, entry := range manifest {
		var index int
		if _, err := fmt.Sscanf(key, "matrix-%d", &index); err != nil {
			log.Warnf("skipping manifest entry %q", key)
			continue
		}
		contexts = append(contexts, domain.TestContext{
			Index:        index,
			Kind:         domain.ContextKind(entry.Kind),
			Target:       domain.TestTarget{Name: entry.Target, App: entry.App, Test: entry.Test},
			ShardIndex:   entry.ShardIndex,
			Chunk:        entry.Tests,
			IgnoredTests: entry.Ignored,
		})
	}
	sort.Slice(contexts, func(i, j int) bool { return contexts[i].Index < contexts[j].Index })
	return contexts
}
