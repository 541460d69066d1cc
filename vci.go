package vci

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/urfave/cli/v2"

	"github.com/gbhanda/volttron-ci/exitcodes"
	"github.com/gbhanda/volttron-ci/provision"
	"github.com/gbhanda/volttron-ci/registry"
	"github.com/gbhanda/volttron-ci/runner"
	"github.com/gbhanda/volttron-ci/types"
)

// Lifecycle is implemented by the long-lived service the CLI driver starts
// and stops.
type Lifecycle interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Stopped() bool
}

// ci implements the Lifecycle interface.
var _ Lifecycle = &ci{}

// ci is the matrix CI service: it expands the workflow matrix into jobs and
// runs them, once or on an interval.
type ci struct {
	ctx       context.Context
	config    *Config
	version   string
	registry  *registry.Registry
	executor  WorkflowExecutor
	scheduler RunScheduler
	formatter ResultFormatter

	mu     sync.Mutex
	result *runner.RunResult

	shutdownCallback func(error) // Callback to signal application shutdown
}

func New(ctx context.Context, config *Config, version string, shutdownCallback func(error)) (*ci, error) {
	if config == nil {
		return nil, errors.New("config is required")
	}

	config.Log.Debug("Creating matrix CI service with config",
		"workflow", config.WorkflowFile,
		"workDir", config.WorkDir,
		"artifactDir", config.ArtifactDir,
		"runInterval", config.RunInterval,
		"runOnce", config.RunOnce,
		"failFast", config.FailFast)

	reg, err := registry.NewRegistry(registry.Config{
		Log:            config.Log,
		WorkflowFile:   config.WorkflowFile,
		DefaultTimeout: config.DefaultTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create registry: %w", err)
	}

	locator := provision.NewLocator(config.Log, config.ToolDirs)

	config.Log.Info("Loaded workflow", "workflow", reg.Workflow().Name,
		"jobs", len(reg.GetJobs()))

	return &ci{
		ctx:              ctx,
		config:           config,
		version:          version,
		registry:         reg,
		executor:         NewWorkflowExecutor(config, reg, locator),
		scheduler:        NewDefaultRunScheduler(config.RunInterval, config.RunOnce, config.Log),
		formatter:        NewConsoleResultFormatter(config.Log),
		shutdownCallback: shutdownCallback,
	}, nil
}

// Start runs the workflow, once or periodically at the configured interval.
// Start implements the Lifecycle interface.
func (c *ci) Start(ctx context.Context) error {
	// Set up panic recovery to ensure we exit with code 2 for runtime errors
	defer func() {
		if r := recover(); r != nil {
			c.config.Log.Error("Runtime error occurred", "error", r)
			os.Exit(exitcodes.RuntimeErr)
		}
	}()

	c.ctx = ctx
	c.scheduler.RegisterCallback(c.runWorkflow)

	if c.config.RunOnce {
		c.config.Log.Info("Starting volttron-ci in run-once mode")
	} else {
		c.config.Log.Info("Starting volttron-ci in continuous mode", "interval", c.config.RunInterval)
	}

	err := c.scheduler.Start(ctx)
	if err != nil {
		// For runtime errors (like configuration issues), return exit code 2
		c.config.Log.Error("Runtime error running workflow", "error", err)
		return cli.Exit(err.Error(), exitcodes.RuntimeErr)
	}

	// If in run-once mode, trigger shutdown and return
	if c.config.RunOnce {
		c.config.Log.Info("Workflow completed, exiting (run-once mode)")

		// Check if any jobs failed and return the appropriate exit code
		result := c.Result()
		if result != nil && result.Status == types.JobStatusFail {
			c.config.Log.Warn("Run-once workflow completed with failures, returning exit code 1")
			return NewJobFailureError(result.String())
		}

		// Only need to call this when we're in run-once mode and all jobs passed
		go func() {
			c.shutdownCallback(nil)
		}()
		return nil // Success (exit code 0)
	}

	c.config.Log.Debug("volttron-ci started successfully")
	return nil
}

// runWorkflow runs one full matrix run and displays the results
func (c *ci) runWorkflow() error {
	result, err := c.executor.Execute(c.ctx)
	if err != nil {
		// This is a runtime error (not a job failure)
		c.config.Log.Error("Runtime error running workflow", "error", err)
		return NewRuntimeError(err)
	}

	c.mu.Lock()
	c.result = result
	c.mu.Unlock()

	if err := c.formatter.FormatResults(result); err != nil {
		c.config.Log.Warn("Failed to format results", "error", err)
	}
	fmt.Println(result.String())

	c.config.Log.Info("Workflow run completed", "run_id", result.RunID, "status", result.Status)
	return nil
}

// Result returns the most recent run result.
func (c *ci) Result() *runner.RunResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.result
}

// Stop stops the volttron-ci service.
// Stop implements the Lifecycle interface.
func (c *ci) Stop(ctx context.Context) error {
	c.config.Log.Info("Stopping volttron-ci")

	if err := c.scheduler.Stop(); err != nil {
		return err
	}

	c.config.Log.Info("volttron-ci stopped successfully")
	return nil
}

// Stopped returns true if the volttron-ci service is stopped.
// Stopped implements the Lifecycle interface.
func (c *ci) Stopped() bool {
	return c.scheduler.Stopped()
}

// WaitForShutdown blocks until all goroutines have terminated.
// This is useful in tests to ensure complete cleanup before moving to the next test.
func (c *ci) WaitForShutdown(ctx context.Context) error {
	return c.scheduler.WaitForShutdown(ctx)
}
