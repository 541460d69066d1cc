package vci

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/log"
	"github.com/google/uuid"

	"github.com/gbhanda/volttron-ci/artifacts"
	"github.com/gbhanda/volttron-ci/provision"
	"github.com/gbhanda/volttron-ci/registry"
	"github.com/gbhanda/volttron-ci/runner"
)

// WorkflowExecutor is responsible for executing one full matrix run.
type WorkflowExecutor interface {
	Execute(ctx context.Context) (*runner.RunResult, error)
}

// DefaultWorkflowExecutor implements the WorkflowExecutor interface. Each
// Execute call gets its own run ID and artifact store, so periodic runs
// never overwrite each other's reports.
type DefaultWorkflowExecutor struct {
	config   *Config
	registry *registry.Registry
	locator  *provision.Locator
	logger   log.Logger
	steps    *runner.StepSet // swapped in tests
}

// NewWorkflowExecutor creates a new DefaultWorkflowExecutor.
func NewWorkflowExecutor(config *Config, reg *registry.Registry, locator *provision.Locator) *DefaultWorkflowExecutor {
	return &DefaultWorkflowExecutor{
		config:   config,
		registry: reg,
		locator:  locator,
		logger:   config.Log,
	}
}

// Execute runs every job of the workflow matrix and returns the aggregated
// result.
func (e *DefaultWorkflowExecutor) Execute(ctx context.Context) (*runner.RunResult, error) {
	runID := uuid.New().String()

	store, err := artifacts.NewStore(e.config.ArtifactDir, runID)
	if err != nil {
		return nil, fmt.Errorf("creating artifact store: %w", err)
	}
	defer func() {
		if err := store.Complete(); err != nil {
			e.logger.Error("Failed to finalize artifact store", "run_id", runID, "error", err)
		}
	}()

	// CLI flags override the workflow strategy; fail-fast can only be turned
	// on, never off, from the command line.
	strategy := e.registry.Workflow().Strategy
	failFast := strategy.FailFast || e.config.FailFast
	maxParallel := e.config.MaxParallel
	if maxParallel == 0 {
		maxParallel = strategy.MaxParallel
	}

	var progress runner.ProgressIndicator
	if e.config.ShowProgress {
		progress = runner.NewConsoleProgressIndicator(e.logger, e.config.ProgressInterval)
		if stopper, ok := progress.(interface{ Stop() }); ok {
			defer stopper.Stop()
		}
	}

	jobRunner, err := runner.NewJobRunner(runner.Config{
		Registry:    e.registry,
		WorkDir:     e.config.WorkDir,
		Log:         e.logger,
		Store:       store,
		GitBinary:   e.config.GitBinary,
		Locator:     e.locator,
		FailFast:    failFast,
		MaxParallel: maxParallel,
		Progress:    progress,
		Steps:       e.steps,
	})
	if err != nil {
		return nil, fmt.Errorf("creating job runner: %w", err)
	}

	e.logger.Info("Executing workflow", "workflow", e.registry.Workflow().Name,
		"run_id", runID, "jobs", len(e.registry.GetJobs()), "failFast", failFast)

	result, err := jobRunner.RunAllJobs(ctx)
	if err != nil {
		return nil, err
	}

	if err := store.WriteSummary(result.String()); err != nil {
		e.logger.Warn("Failed to write run summary", "run_id", runID, "error", err)
	}

	e.logger.Info("Workflow run completed", "run_id", result.RunID,
		"status", result.Status, "passed", result.Stats.Passed,
		"failed", result.Stats.Failed, "artifacts", store.RunDir())
	return result, nil
}
