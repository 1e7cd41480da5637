// Package pipeline wires discovery, sharding, submission and aggregation into one run.
package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"shardrun/internal/aggregate"
	"shardrun/internal/config"
	"shardrun/internal/devices"
	"shardrun/internal/domain"
	"shardrun/internal/execution"
	"shardrun/internal/history"
	"shardrun/internal/remote"
	"shardrun/internal/runerrors"
	"shardrun/internal/storage"
)

// Plan describes a run before anything is submitted
type Plan struct {
	RunID    string
	RunPath  string
	Contexts []domain.TestContext
	RunCount int
	Devices  []domain.Device
	Async    bool
	DryRun   bool
}

// Reporter prints a run to the user
type Reporter interface {
	BeforeRun(plan Plan)
	Summary(output domain.ResultsOutput)
}

// Deps are the collaborators a Runner drives
type Deps struct {
	Contexts     *ContextBuilder
	Catalog      *devices.Catalog
	History      history.Recorder
	Uploader     storage.Uploader
	Manifests    *storage.ManifestStore
	Backend      remote.Backend
	Orchestrator *execution.Orchestrator
	Submitter    *execution.Submitter
	Poller       *execution.Poller
	Storage      storage.Storage
	Reporter     Reporter
	// NewProgress, when set, creates the progress observer once the task count is known
	NewProgress func(total int) execution.Progress
}

// Runner executes one complete run
type Runner struct {
	cfg  *config.Config
	deps Deps
	now  func() time.Time
}

// NewRunner creates a Runner
func NewRunner(cfg *config.Config, deps Deps) *Runner {
	return &Runner{cfg: cfg, deps: deps, now: time.Now}
}

// RunDir names the directory of a run under the results bucket
func RunDir(start time.Time, runID string) string {
	return fmt.Sprintf("%s_%s", start.Format("2006-01-02_15-04-05"), runID[:8])
}

// Run shards every target, submits each shard RunCount times, waits for the matrices
// unless the run is async, and saves the aggregated result.
// Configuration and partition errors are returned before the backend is called.
func (r *Runner) Run(ctx context.Context) (*domain.RunResult, error) {
	start := r.now()
	runID := uuid.NewString()
	runDir := RunDir(start, runID)
	runPath := filepath.Join(r.cfg.GetResultsBucket(), runDir)
	logger := log.WithField("run", runID)

	contexts, sets, err := r.deps.Contexts.Build()
	if err != nil {
		return nil, err
	}
	deviceList, err := r.deps.Catalog.Build(r.cfg.Devices)
	if err != nil {
		return nil, err
	}
	total := execution.TaskCount(contexts, r.cfg.RunCount)
	if total == 0 {
		return nil, errors.WithStack(&runerrors.ErrNothingToRun{Contexts: len(contexts), RunCount: r.cfg.RunCount})
	}

	plan := Plan{
		RunID:    runID,
		RunPath:  runPath,
		Contexts: contexts,
		RunCount: r.cfg.RunCount,
		Devices:  deviceList,
		Async:    r.cfg.Async,
		DryRun:   r.cfg.DryRun,
	}
	if r.deps.Reporter != nil {
		r.deps.Reporter.BeforeRun(plan)
	}

	historyRef, err := r.deps.History.Create(ctx, r.historyName())
	if err != nil {
		return nil, errors.WithMessage(err, "creating history record")
	}

	builder, err := r.uploadArtifacts(ctx, runDir, runPath, contexts)
	if err != nil {
		return nil, err
	}
	builder.Devices = deviceList
	builder.History = historyRef

	if location, err := r.deps.Manifests.Persist(ctx, contexts, runDir); err != nil {
		logger.Warnf("could not save shard manifest: %s", err)
	} else {
		logger.Infof("shard manifest saved to %s", location)
	}

	submit := func(ctx context.Context, c domain.TestContext, repeat int) (domain.MatrixHandle, error) {
		job := builder.Build(c, repeat)
		return r.deps.Submitter.ExecuteWithRetry(ctx, func(ctx context.Context) (domain.MatrixHandle, error) {
			return r.deps.Backend.CreateMatrix(ctx, job)
		})
	}
	if r.deps.NewProgress != nil {
		r.deps.Orchestrator.SetProgress(r.deps.NewProgress(total))
	}
	submissions, err := r.deps.Orchestrator.RunAll(ctx, contexts, r.cfg.RunCount, submit)
	if err != nil {
		return nil, err
	}

	if r.cfg.Async {
		logger.Info("async run, not waiting for matrices to finish")
	} else if submissions, err = r.deps.Poller.Wait(ctx, submissions, r.deps.Backend); err != nil {
		return nil, err
	}

	result, err := aggregate.Aggregate(submissions, contexts)
	if err != nil {
		return nil, err
	}

	shards := 0
	for _, set := range sets {
		shards += set.Size()
	}
	meta := domain.ResultsMeta{
		RunID:       runID,
		RunPath:     runPath,
		Shards:      shards,
		RepeatTests: r.cfg.RunCount,
		Timestamp:   start.Format(time.RFC3339),
	}
	duration := r.now().Sub(start)
	if err := r.deps.Storage.Save(result, meta, duration); err != nil {
		return nil, errors.WithMessage(err, "failed to save run results")
	}

	if r.deps.Reporter != nil {
		output, err := r.deps.Storage.Load()
		if err != nil {
			return nil, err
		}
		r.deps.Reporter.Summary(*output)
	}
	return result, nil
}

func (r *Runner) historyName() string {
	if r.cfg.HistoryName != "" {
		return r.cfg.HistoryName
	}
	return r.cfg.Targets[0].Name
}

// uploadArtifacts copies shared files, additional apps and every target's app and test
// artifacts to the run directory.
func (r *Runner) uploadArtifacts(ctx context.Context, runDir, runPath string, contexts []domain.TestContext) (*JobConfigBuilder, error) {
	builder := &JobConfigBuilder{
		Project:        r.cfg.Project,
		RunPath:        runPath,
		TimeoutSeconds: int(r.cfg.MatrixTimeout.Seconds()),
		OtherFiles:     make(map[string]string, len(r.cfg.OtherFiles)),
		Artifacts:      make(map[string]string),
	}

	devicePaths := sortedKeys(r.cfg.OtherFiles)
	if len(devicePaths) > 0 {
		locals := make([]string, len(devicePaths))
		for i, devicePath := range devicePaths {
			locals[i] = r.cfg.ResolvePath(r.cfg.OtherFiles[devicePath])
		}
		refs, err := r.deps.Uploader.Upload(ctx, locals, filepath.Join(runDir, "other-files"))
		if err != nil {
			return nil, errors.WithMessage(err, "uploading other files")
		}
		for i, ref := range refs {
			builder.OtherFiles[devicePaths[i]] = ref.Remote
		}
	}

	if len(r.cfg.AdditionalApps) > 0 {
		locals := make([]string, len(r.cfg.AdditionalApps))
		for i, app := range r.cfg.AdditionalApps {
			locals[i] = r.cfg.ResolvePath(app)
		}
		refs, err := r.deps.Uploader.Upload(ctx, locals, filepath.Join(runDir, "additional-apps"))
		if err != nil {
			return nil, errors.WithMessage(err, "uploading additional apps")
		}
		for _, ref := range refs {
			builder.AdditionalApps = append(builder.AdditionalApps, ref.Remote)
		}
	}

	for _, c := range contexts {
		paths := []string{c.Target.App}
		if c.IsInstrumentation() {
			paths = append(paths, c.Target.Test)
		}
		var pending []string
		for _, p := range paths {
			if _, done := builder.Artifacts[p]; !done {
				pending = append(pending, p)
			}
		}
		if len(pending) == 0 {
			continue
		}
		refs, err := r.deps.Uploader.Upload(ctx, pending, filepath.Join(runDir, c.Target.Name))
		if err != nil {
			return nil, errors.WithMessagef(err, "uploading artifacts of target %s", c.Target.Name)
		}
		for _, ref := range refs {
			builder.Artifacts[ref.Local] = ref.Remote
		}
	}
	return builder, nil
}
