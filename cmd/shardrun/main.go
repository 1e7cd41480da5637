package main

import (
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"shardrun/internal/cli"
	"shardrun/internal/cli/commands"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:           "shardrun",
		Short:         "Sharded test runner for remote device labs",
		Long:          `Split instrumentation suites into shards and run every shard as a test matrix on a remote device lab, then collect the outcomes into one result.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	var flags cli.Flags
	commands.NewCommands(&flags).Register(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		log.Errorf("%+v", err)
		os.Exit(1)
	}
}
