package commands

import (
	"github.com/spf13/cobra"

	"shardrun/internal/cli"
	"shardrun/internal/config"
	"shardrun/internal/discovery"
	"shardrun/internal/logging"
	"shardrun/internal/pipeline"
	"shardrun/internal/shard"
	"shardrun/internal/timing"
)

// Commands holds all CLI commands
type Commands struct {
	Run     *RunCommand
	Shards  *ShardsCommand
	View    *ViewCommand
	History *HistoryCommand

	flags *cli.Flags
	cfg   *config.Config
}

// NewCommands creates all commands. They share cfg, which is loaded before each command runs.
func NewCommands(flags *cli.Flags) *Commands {
	c := &Commands{flags: flags, cfg: config.New()}
	c.Run = &RunCommand{cfg: c.current}
	c.Shards = &ShardsCommand{cfg: c.current, flags: flags}
	c.View = &ViewCommand{cfg: c.current}
	c.History = &HistoryCommand{cfg: c.current}
	return c
}

func (c *Commands) current() *config.Config {
	return c.cfg
}

// load reads the config file and flags and sets up logging
func (c *Commands) load(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(c.flags.ToConfigFlags())
	if err != nil {
		return err
	}
	if err := logging.Configure(cfg.LogLevel, cfg.LogFormat); err != nil {
		return err
	}
	c.cfg = cfg
	return nil
}

// Register registers all commands with cobra
func (c *Commands) Register(rootCmd *cobra.Command) {
	flags := c.flags
	rootCmd.PersistentFlags().StringVarP(&flags.ConfigFile, "config", "c", "", "Path to the run configuration file (yaml, json or toml)")
	rootCmd.PersistentFlags().StringVar(&flags.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")

	addShardFlags := func(cmd *cobra.Command) {
		cmd.Flags().IntVarP(&flags.ShardCount, "shards", "s", 0, "Number of shards per target (overrides --max-tests-per-shard)")
		cmd.Flags().IntVar(&flags.MaxTestsPerShard, "max-tests-per-shard", 0, "Maximum number of test cases in a shard")
		cmd.Flags().BoolVar(&flags.UseTiming, "use-timing", false, "Balance shards by historical test duration")
		cmd.Flags().StringVar(&flags.TimingReport, "timing-report", "", "JUnit XML report to read historical durations from (implies --use-timing)")
		cmd.Flags().StringVarP(&flags.Filter, "filter", "f", "", "Filter test cases (wildcards, '!' excludes, class: and package: prefixes)")
	}

	runCmd := &cobra.Command{
		Use:     "run",
		Short:   "Shard tests and run them on the device lab",
		Long:    "Discover test cases, split them into shards and submit one test matrix per shard and repeat",
		RunE:    c.Run.Execute,
		PreRunE: c.load,
	}
	addShardFlags(runCmd)
	runCmd.Flags().IntVarP(&flags.Repeat, "repeat", "r", 0, "Run every shard this many times")
	runCmd.Flags().IntVar(&flags.MaxInFlight, "max-in-flight", 0, "Maximum number of concurrent matrix submissions (0 for no limit)")
	runCmd.Flags().BoolVar(&flags.Async, "async", false, "Do not wait for matrices to finish")
	runCmd.Flags().BoolVar(&flags.DryRun, "dry-run", false, "Simulate matrices instead of calling the device lab")
	runCmd.Flags().StringVar(&flags.MetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address during the run, e.g. :9090")
	rootCmd.AddCommand(runCmd)

	shardsCmd := &cobra.Command{
		Use:     "shards",
		Short:   "Print the shards a run would submit",
		Long:    "Discover and shard test cases without calling the device lab",
		RunE:    c.Shards.Execute,
		PreRunE: c.load,
	}
	addShardFlags(shardsCmd)
	shardsCmd.Flags().BoolVarP(&flags.TestCases, "test-cases", "t", false, "List the test cases of every shard")
	shardsCmd.Flags().StringVar(&flags.FromManifest, "from", "", "Print the shards recorded in a saved manifest instead of discovering tests")
	shardsCmd.Flags().BoolVar(&flags.WriteManifest, "write-manifest", false, "Write the shard manifest to the output directory")
	rootCmd.AddCommand(shardsCmd)

	viewCmd := &cobra.Command{
		Use:     "view",
		Short:   "Browse the last run interactively",
		Long:    "Display the matrices of the last saved run, with the tests of each shard, in an interactive viewer",
		RunE:    c.View.Execute,
		PreRunE: c.load,
	}
	rootCmd.AddCommand(viewCmd)

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Manage the run history database",
	}
	historyCmd.AddCommand(&cobra.Command{
		Use:     "init",
		Short:   "Create the MySQL history database and table",
		Long:    "Create the database named by DB_DATABASE and its run_history table, reading DB_* settings from .env",
		RunE:    c.History.Init,
		PreRunE: c.load,
	})
	rootCmd.AddCommand(historyCmd)
}

// contextBuilder wires discovery, timing and the partitioner for cfg
func contextBuilder(cfg *config.Config) (*pipeline.ContextBuilder, error) {
	scanner := discovery.NewScanner(cfg.PathsToIgnore, nil)
	discoverer := discovery.NewDiscoverer(scanner, discovery.NewParser())

	var provider timing.Provider
	if cfg.TimingReport != "" {
		report, err := timing.LoadJUnit(cfg.ResolvePath(cfg.TimingReport))
		if err != nil {
			return nil, err
		}
		provider = report
	}
	return pipeline.NewContextBuilder(cfg, discoverer, shard.New(), provider), nil
}
