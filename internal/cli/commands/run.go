package commands

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"shardrun/internal/config"
	"shardrun/internal/devices"
	"shardrun/internal/execution"
	"shardrun/internal/history"
	"shardrun/internal/pipeline"
	"shardrun/internal/remote"
	"shardrun/internal/storage"
	"shardrun/internal/ui"
)

// RunCommand handles the run command
type RunCommand struct {
	cfg func() *config.Config
}

// Execute runs the command
func (rc *RunCommand) Execute(cmd *cobra.Command, args []string) error {
	cfg := rc.cfg()
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.MetricsAddr != "" {
		shutdownMetricServer := serveMetrics(cfg.MetricsAddr)
		defer shutdownMetricServer()
	}

	deps, closeDeps, err := buildDeps(cfg)
	if err != nil {
		return err
	}
	defer closeDeps()

	_, err = pipeline.NewRunner(cfg, deps).Run(ctx)
	return err
}

// buildDeps wires the collaborators of a run from cfg. The returned func releases them.
func buildDeps(cfg *config.Config) (pipeline.Deps, func(), error) {
	noop := func() {}

	contexts, err := contextBuilder(cfg)
	if err != nil {
		return pipeline.Deps{}, noop, err
	}

	var backend remote.Backend
	if cfg.DryRun {
		log.Info("dry run, matrices are simulated")
		backend = remote.NewFakeBackend(0)
	} else {
		httpBackend, err := remote.NewHTTPBackend(cfg.APIURL, cfg.Project, cfg.Token, cfg.CallTimeout)
		if err != nil {
			return pipeline.Deps{}, noop, err
		}
		backend = httpBackend
	}

	submitter, err := execution.NewSubmitter(cfg.Retry)
	if err != nil {
		return pipeline.Deps{}, noop, err
	}

	recorder, closeRecorder, err := historyRecorder(cfg)
	if err != nil {
		return pipeline.Deps{}, noop, err
	}

	poller := execution.NewPoller(cfg.PollInterval, execution.DefaultPollParallelism, cfg.PollTimeout)
	poller.SetMaxFailures(cfg.PollMaxFailures)

	uploader := storage.NewFileUploader(cfg.GetResultsBucket())
	formatter := ui.NewFormatter()
	deps := pipeline.Deps{
		Contexts:     contexts,
		Catalog:      devices.NewCatalog(),
		History:      recorder,
		Uploader:     uploader,
		Manifests:    storage.NewManifestStore(cfg.GetManifestPath(), uploader),
		Backend:      backend,
		Orchestrator: execution.NewOrchestrator(cfg.MaxInFlight),
		Submitter:    submitter,
		Poller:       poller,
		Storage:      storage.NewJSONStorage(cfg),
		Reporter:     formatter,
		NewProgress: func(total int) execution.Progress {
			return ui.NewProgressBar(total)
		},
	}
	return deps, closeRecorder, nil
}

func historyRecorder(cfg *config.Config) (history.Recorder, func(), error) {
	if cfg.HistoryBackend != config.HistoryMySQL || cfg.DryRun {
		return history.NewLocalRecorder(), func() {}, nil
	}
	recorder, err := history.NewMySQLRecorder(history.LoadDBSettings(cfg.ProjectPath))
	if err != nil {
		return nil, nil, err
	}
	return recorder, func() {
		if err := recorder.Close(); err != nil {
			log.WithError(err).Warn("closing history database")
		}
	}, nil
}

// HistoryCommand manages the history database
type HistoryCommand struct {
	cfg func() *config.Config
}

// Init creates the history database and table
func (hc *HistoryCommand) Init(cmd *cobra.Command, args []string) error {
	cfg := hc.cfg()
	settings := history.LoadDBSettings(cfg.ProjectPath)
	recorder, err := history.NewMySQLRecorder(settings)
	if err != nil {
		return err
	}
	defer recorder.Close()

	if err := recorder.Init(cmd.Context()); err != nil {
		return errors.WithMessage(err, "history init failed")
	}
	log.Infof("history database %s is ready", settings.Database)
	return nil
}
