package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/gbhanda/volttron-ci/artifacts"
	"github.com/gbhanda/volttron-ci/metrics"
	"github.com/gbhanda/volttron-ci/provision"
	"github.com/gbhanda/volttron-ci/registry"
	"github.com/gbhanda/volttron-ci/types"
)

// JobRunner defines the interface for running matrix jobs
type JobRunner interface {
	RunAllJobs(ctx context.Context) (*RunResult, error)
	RunJob(ctx context.Context, spec types.JobSpec) *types.JobResult
}

// runner struct implements JobRunner interface
type runner struct {
	registry    *registry.Registry
	jobs        []types.JobSpec
	workDir     string // scratch directory holding per-job workspaces
	log         log.Logger
	runID       string
	store       *artifacts.Store
	steps       StepSet
	failFast    bool
	maxParallel int
	progress    ProgressIndicator
	tracer      trace.Tracer
}

// Config holds configuration for creating a new runner
type Config struct {
	Registry    *registry.Registry
	WorkDir     string
	Log         log.Logger
	Store       *artifacts.Store
	GitBinary   string             // path to the git binary used for checkout
	Locator     *provision.Locator // interpreter locator for the provision step
	FailFast    bool               // cancel sibling jobs after the first failure
	MaxParallel int                // number of concurrent job workers (0 = auto-determine)
	Progress    ProgressIndicator  // optional progress updates
	Steps       *StepSet           // overrides the default step executors
}

// NewJobRunner creates a new job runner instance
func NewJobRunner(cfg Config) (JobRunner, error) {
	if cfg.Registry == nil {
		return nil, fmt.Errorf("registry is required")
	}
	if cfg.WorkDir == "" {
		return nil, fmt.Errorf("work directory is required")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("artifact store is required")
	}
	if cfg.Log == nil {
		cfg.Log = log.New()
		cfg.Log.Error("No logger provided, using default")
	}

	jobs := cfg.Registry.GetJobs()
	if len(jobs) == 0 {
		return nil, fmt.Errorf("no jobs found")
	}

	if cfg.GitBinary == "" {
		cfg.GitBinary = DefaultGitBinary
	}

	steps := defaultSteps(cfg.Log, cfg.GitBinary, cfg.Locator)
	if cfg.Steps != nil {
		steps = *cfg.Steps
	}

	progress := cfg.Progress
	if progress == nil {
		progress = NewNoOpProgressIndicator()
	}

	cfg.Log.Debug("NewJobRunner()", "workDir", cfg.WorkDir, "jobs", len(jobs),
		"failFast", cfg.FailFast, "maxParallel", cfg.MaxParallel)

	return &runner{
		registry:    cfg.Registry,
		jobs:        jobs,
		workDir:     cfg.WorkDir,
		log:         cfg.Log,
		store:       cfg.Store,
		steps:       steps,
		failFast:    cfg.FailFast,
		maxParallel: cfg.MaxParallel,
		progress:    progress,
		tracer:      otel.Tracer("job runner"),
	}, nil
}

// RunAllJobs implements the JobRunner interface
func (r *runner) RunAllJobs(ctx context.Context) (*RunResult, error) {
	r.runID = r.store.RunID()
	start := time.Now()
	r.log.Debug("Running all jobs", "run_id", r.runID)

	executor := NewParallelExecutor(r, r.concurrency(), r.progress)
	result, err := executor.ExecuteJobs(ctx, r.jobs)
	if err != nil {
		return nil, err
	}

	result.Workflow = r.registry.Workflow().Name
	result.Duration = time.Since(start)
	result.Stats.EndTime = time.Now()

	metrics.RecordRun(result.Workflow, r.runID, string(result.Status),
		result.Stats.Total, result.Stats.Passed, result.Stats.Failed,
		result.Stats.Canceled, result.Duration)

	return result, nil
}

// concurrency resolves the worker count: the configured max-parallel, or the
// smaller of job count and CPU count, bounded either way.
func (r *runner) concurrency() int {
	c := r.maxParallel
	if c <= 0 {
		c = runtime.NumCPU()
	}
	if c > MaxReasonableParallel {
		r.log.Warn("Very high parallelism requested", "maxParallel", c,
			"cap", MaxReasonableParallel)
		c = MaxReasonableParallel
	}
	if c > len(r.jobs) {
		c = len(r.jobs)
	}
	return c
}

// RunJob implements the JobRunner interface. It executes the checkout,
// provision and test steps in order; the archive step is registered as a
// deferred action before the first step starts, so it runs no matter how the
// pipeline exits.
func (r *runner) RunJob(ctx context.Context, spec types.JobSpec) *types.JobResult {
	ctx, span := r.tracer.Start(ctx, fmt.Sprintf("job %s", spec.ID))
	defer span.End()

	start := time.Now()
	result := &types.JobResult{
		Spec:   spec,
		Status: types.JobStatusPass,
	}

	r.log.Info("Running job", "job", spec.ID, "os", spec.Matrix.OS,
		"python", spec.Matrix.PythonVersion)

	workspace, err := r.prepareWorkspace(spec)
	if err != nil {
		result.Status = types.JobStatusFail
		result.Error = fmt.Errorf("preparing workspace: %w", err)
		result.Duration = time.Since(start)
		return result
	}

	// Registered before any step runs: archival happens on success, failure,
	// timeout and panic alike.
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error("Panic in job pipeline", "job", spec.ID, "error", rec)
			result.Status = types.JobStatusFail
			result.Error = fmt.Errorf("runtime error: %v", rec)
		}

		r.archive(ctx, spec, workspace, result)
		result.Duration = time.Since(start)
		r.persistJobLog(result)
		metrics.RecordJob(r.runID, result)
	}()

	if !r.runStep(ctx, result, types.StepCheckout, func(ctx context.Context) (string, error) {
		return r.steps.Checkout.Run(ctx, spec, workspace)
	}) {
		return result
	}

	var interp provision.Interpreter
	if !r.runStep(ctx, result, types.StepProvision, func(ctx context.Context) (string, error) {
		var err error
		interp, err = r.steps.Provision.Run(ctx, spec)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("resolved python %s at %s\n", interp.Version, interp.Path), nil
	}) {
		return result
	}

	r.runTestStep(ctx, result, spec, workspace, interp)
	return result
}

// runStep executes one pipeline stage and records its outcome. It returns
// false when the stage failed, which terminates the remaining test-related
// steps (but never the deferred archive).
func (r *runner) runStep(ctx context.Context, result *types.JobResult, kind types.StepKind, fn func(context.Context) (string, error)) bool {
	ctx, span := r.tracer.Start(ctx, fmt.Sprintf("step %s", kind))
	defer span.End()

	start := time.Now()
	step := &types.StepResult{Kind: kind, Status: types.StepStatusPass}
	result.Steps = append(result.Steps, step)

	output, err := fn(ctx)
	step.Output = output
	step.Duration = time.Since(start)

	if err != nil {
		step.Status = types.StepStatusFail
		step.Error = err
		result.Status = types.JobStatusFail
		result.Error = fmt.Errorf("%s: %w", kind, err)
		r.log.Error("Job step failed", "job", result.Spec.ID, "step", kind, "error", err)
		metrics.RecordStepFailure(string(kind))
		return false
	}

	r.log.Debug("Job step completed", "job", result.Spec.ID, "step", kind,
		"duration", step.Duration)
	return true
}

// runTestStep wraps the test executor with the job's wall-clock timeout.
func (r *runner) runTestStep(ctx context.Context, result *types.JobResult, spec types.JobSpec, workspace string, interp provision.Interpreter) {
	timeout := spec.Timeout
	if timeout <= 0 {
		timeout = DefaultJobTimeout
	}

	testCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	r.runStep(ctx, result, types.StepTest, func(context.Context) (string, error) {
		output, err := r.steps.Test.Run(testCtx, spec, workspace, interp)
		if err != nil && errors.Is(testCtx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("test step timed out after %v", timeout)
		}
		return output, err
	})

	if step := result.Step(types.StepTest); step != nil && errors.Is(testCtx.Err(), context.DeadlineExceeded) {
		step.TimedOut = true
	}
}

// archive is the unconditional fourth step. It parses the report when one
// exists, uploads it to the store, and fails only when the expected file is
// absent. Its own failure never retroactively changes the job's status.
func (r *runner) archive(ctx context.Context, spec types.JobSpec, workspace string, result *types.JobResult) {
	_, span := r.tracer.Start(ctx, "step archive")
	defer span.End()

	start := time.Now()
	step := &types.StepResult{Kind: types.StepArchive, Status: types.StepStatusPass}
	result.Steps = append(result.Steps, step)

	reportPath := filepath.Join(workspace, SourceDirName, spec.ReportPath())

	if report, err := ParseReportFile(reportPath); err == nil {
		result.Report = report
	} else {
		r.log.Debug("No parsable report for job", "job", spec.ID, "error", err)
	}

	dest, err := r.store.SaveArtifact(spec.ArtifactKey()+".xml", reportPath)
	if err != nil {
		step.Status = types.StepStatusFail
		step.Error = fmt.Errorf("archiving report: %w", err)
		r.log.Warn("Archival step failed", "job", spec.ID, "report", reportPath, "error", err)
		metrics.RecordStepFailure(string(types.StepArchive))
	} else {
		result.Archived = dest
		r.log.Info("Archived job report", "job", spec.ID, "artifact", dest)
	}
	step.Duration = time.Since(start)
}

// prepareWorkspace creates a fresh per-job directory under the work dir.
func (r *runner) prepareWorkspace(spec types.JobSpec) (string, error) {
	workspace := filepath.Join(r.workDir, "jobs", spec.ID)
	if err := os.RemoveAll(workspace); err != nil {
		return "", fmt.Errorf("cleaning workspace %s: %w", workspace, err)
	}
	if err := os.MkdirAll(workspace, 0755); err != nil {
		return "", fmt.Errorf("creating workspace %s: %w", workspace, err)
	}
	return workspace, nil
}

// persistJobLog writes the concatenated step output to the artifact store.
func (r *runner) persistJobLog(result *types.JobResult) {
	var b strings.Builder
	for _, step := range result.Steps {
		if step.Output == "" && step.Error == nil {
			continue
		}
		fmt.Fprintf(&b, "--- step: %s (%s) ---\n", step.Kind, step.Status)
		if step.Output != "" {
			b.WriteString(step.Output)
			if !strings.HasSuffix(step.Output, "\n") {
				b.WriteString("\n")
			}
		}
		if step.Error != nil {
			fmt.Fprintf(&b, "error: %v\n", step.Error)
		}
	}
	if b.Len() == 0 {
		return
	}

	failed := result.Status == types.JobStatusFail
	if _, err := r.store.WriteJobLog(result.Spec.ID, b.String(), failed); err != nil {
		r.log.Error("Failed to persist job log", "job", result.Spec.ID, "error", err)
	}
}

// Make sure the runner type implements the interface
var _ JobRunner = &runner{}
