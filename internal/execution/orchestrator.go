package execution

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"shardrun/internal/domain"
	"shardrun/internal/runerrors"
)

// SubmitFunc creates the remote matrix for one repeat of one context.
type SubmitFunc func(ctx context.Context, testContext domain.TestContext, repeat int) (domain.MatrixHandle, error)

// Progress observes submission tasks as they finish.
type Progress interface {
	Update(succeeded, failed int)
	Finish()
}

// Orchestrator fans out one submission task per context and repeat and joins them.
type Orchestrator struct {
	maxInFlight int
	progress    Progress
}

// NewOrchestrator creates an Orchestrator. maxInFlight <= 0 launches every task at once.
func NewOrchestrator(maxInFlight int) *Orchestrator {
	return &Orchestrator{maxInFlight: maxInFlight}
}

// SetProgress sets the observer notified as tasks finish
func (o *Orchestrator) SetProgress(progress Progress) {
	o.progress = progress
}

// TaskCount returns the number of submission tasks RunAll launches
func TaskCount(contexts []domain.TestContext, runCount int) int {
	return len(contexts) * runCount
}

// RunAll submits every context runCount times and waits for all submissions to finish.
//
// Tasks are never cancelled because a sibling failed. Once all tasks are done, any failure
// discards every result and the failures are returned together, each as a
// *runerrors.ErrSubmission. Results are ordered by context, then repeat.
func (o *Orchestrator) RunAll(ctx context.Context, contexts []domain.TestContext, runCount int, submit SubmitFunc) ([]domain.Submission, error) {
	if runCount < 0 {
		return nil, errors.WithStack(&runerrors.ErrInvalidArgument{
			Name:    "runCount",
			Value:   runCount,
			Message: "repeat count must not be negative",
		})
	}
	total := TaskCount(contexts, runCount)
	if total == 0 {
		return nil, errors.WithStack(&runerrors.ErrNothingToRun{Contexts: len(contexts), RunCount: runCount})
	}

	submissions := make([]domain.Submission, total)
	failures := make([]error, total)
	tracker := &taskTracker{progress: o.progress}

	var g errgroup.Group
	if o.maxInFlight > 0 {
		g.SetLimit(o.maxInFlight)
	}

	start := time.Now()
	log.Infof("submitting %d matrices (%d context(s) x %d)", total, len(contexts), runCount)
	for i, testContext := range contexts {
		for repeat := 0; repeat < runCount; repeat++ {
			slot := i*runCount + repeat
			testContext, repeat := testContext, repeat
			g.Go(func() error {
				handle, err := submit(ctx, testContext, repeat)
				if err != nil {
					failures[slot] = &runerrors.ErrSubmission{
						ContextIndex: testContext.Index,
						ShardIndex:   testContext.ShardIndex,
						Target:       testContext.Target.Name,
						Repeat:       repeat,
						Err:          err,
					}
					log.WithFields(log.Fields{
						"context": testContext.Index,
						"shard":   testContext.ShardIndex,
						"repeat":  repeat,
					}).Errorf("submission failed: %s", err)
					tracker.done(false)
					return nil
				}
				handle.ContextIndex = testContext.Index
				handle.Repeat = repeat
				submissions[slot] = domain.Submission{ContextIndex: testContext.Index, Repeat: repeat, Handle: handle}
				tracker.done(true)
				return nil
			})
		}
	}
	// Tasks record their failures in their slots and always return nil.
	_ = g.Wait()
	tracker.finish()

	var result *multierror.Error
	for _, err := range failures {
		if err != nil {
			result = multierror.Append(result, err)
		}
	}
	if err := result.ErrorOrNil(); err != nil {
		return nil, err
	}
	log.Infof("submitted %d matrices in %s", total, time.Since(start).Round(time.Millisecond))
	return submissions, nil
}

type taskTracker struct {
	mu        sync.Mutex
	progress  Progress
	succeeded int
	failed    int
}

func (t *taskTracker) done(ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if ok {
		t.succeeded++
	} else {
		t.failed++
	}
	if t.progress != nil {
		t.progress.Update(t.succeeded, t.failed)
	}
}

func (t *taskTracker) finish() {
	if t.progress != nil {
		t.progress.Finish()
	}
}
