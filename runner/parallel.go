package runner

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/log"

	"github.com/gbhanda/volttron-ci/metrics"
	"github.com/gbhanda/volttron-ci/types"
)

// ErrFailFast is the cancellation cause used when a failing job cancels its
// siblings under the fail-fast policy.
var ErrFailFast = errors.New("fail-fast: sibling job failed")

// JobWork represents a unit of work that can be executed in parallel
type JobWork struct {
	Spec types.JobSpec
}

// ParallelExecutor manages parallel job execution across multiple workers
type ParallelExecutor struct {
	runner      *runner
	concurrency int
	log         log.Logger
	ui          ProgressIndicator
}

// NewParallelExecutor creates a new parallel job executor with validation
func NewParallelExecutor(runner *runner, concurrency int, ui ProgressIndicator) *ParallelExecutor {
	if runner == nil {
		panic("runner cannot be nil")
	}
	if concurrency <= 0 {
		panic("concurrency must be positive")
	}

	return &ParallelExecutor{
		runner:      runner,
		concurrency: concurrency,
		log:         runner.log.New("component", "parallel-executor"),
		ui:          ui,
	}
}

// ExecuteJobs runs the provided jobs on the worker pool and returns the
// aggregated run result. Every job gets exactly one result: jobs not yet
// started when fail-fast cancellation hits are recorded as canceled.
func (pe *ParallelExecutor) ExecuteJobs(ctx context.Context, jobs []types.JobSpec) (*RunResult, error) {
	start := time.Now()

	result := newRunResult(pe.runner.runID, start)
	if len(jobs) == 0 {
		pe.log.Debug("No jobs to execute")
		return result, nil
	}

	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	pe.log.Info("Starting parallel job execution", "totalJobs", len(jobs),
		"concurrency", pe.concurrency, "failFast", pe.runner.failFast)

	if pe.ui != nil {
		pe.ui.StartRun(pe.runner.runID, len(jobs))
	}

	bufferSize := min(pe.concurrency*2, 100)
	workChan := make(chan JobWork, bufferSize)
	resultChan := make(chan *types.JobResult, bufferSize)

	var wg sync.WaitGroup
	for i := 0; i < pe.concurrency; i++ {
		wg.Add(1)
		go pe.worker(ctx, &wg, workChan, resultChan, cancel)
	}

	go func() {
		defer close(workChan)
		for _, job := range jobs {
			workChan <- JobWork{Spec: job}
		}
	}()

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	for jobResult := range resultChan {
		result.addJob(jobResult)
	}

	result.finalize(time.Now())

	if pe.ui != nil {
		pe.ui.CompleteRun(pe.runner.runID, result.Status)
	}

	pe.log.Info("Parallel job execution completed",
		"duration", time.Since(start),
		"status", result.Status,
		"totalJobs", result.Stats.Total,
		"passed", result.Stats.Passed,
		"failed", result.Stats.Failed,
		"canceled", result.Stats.Canceled)

	return result, nil
}

// worker processes jobs until the work channel is closed. Once the context
// is canceled it keeps draining the channel, recording the remaining jobs as
// canceled so the run accounts for every matrix entry.
func (pe *ParallelExecutor) worker(ctx context.Context, wg *sync.WaitGroup, workChan <-chan JobWork, resultChan chan<- *types.JobResult, cancel context.CancelCauseFunc) {
	defer wg.Done()

	for work := range workChan {
		var jobResult *types.JobResult

		if ctx.Err() != nil {
			jobResult = &types.JobResult{
				Spec:   work.Spec,
				Status: types.JobStatusCanceled,
				Error:  context.Cause(ctx),
			}
			pe.log.Debug("Job canceled before start", "job", work.Spec.ID,
				"cause", context.Cause(ctx))
			// RunJob never runs for these, so record the outcome here.
			metrics.RecordJob(pe.runner.runID, jobResult)
		} else {
			if pe.ui != nil {
				pe.ui.StartJob(work.Spec.ID)
			}

			jobResult = pe.runner.RunJob(ctx, work.Spec)

			if pe.ui != nil {
				pe.ui.UpdateJob(work.Spec.ID, jobResult.Status)
			}

			// One failing job cancels the rest only under fail-fast; the
			// default leaves sibling jobs fully decoupled.
			if jobResult.Status == types.JobStatusFail && pe.runner.failFast {
				pe.log.Warn("Job failed with fail-fast enabled, canceling remaining jobs",
					"job", work.Spec.ID)
				cancel(ErrFailFast)
			}
		}

		resultChan <- jobResult
	}
}
