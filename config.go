package vci

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"

	"github.com/gbhanda/volttron-ci/flags"
)

// Config holds the application configuration
type Config struct {
	WorkflowFile     string        // Path to the workflow config file
	WorkDir          string        // Scratch directory for per-job checkouts
	ArtifactDir      string        // Directory where run artifacts are stored
	GitBinary        string        // Path to the git binary for the checkout step
	ToolDirs         []string      // Extra directories scanned for interpreters
	RunInterval      time.Duration // Interval between workflow runs
	RunOnce          bool          // Indicates if the service should exit after one run
	FailFast         bool          // Cancel remaining jobs after the first failure
	MaxParallel      int           // Number of concurrent job workers (0 = auto-determine)
	DefaultTimeout   time.Duration // Default timeout for the test step, workflow config overrides
	ShowProgress     bool          // Whether to show periodic progress updates during execution
	ProgressInterval time.Duration // Interval between progress updates when ShowProgress is 'true'
	Log              log.Logger
}

// NewConfig creates a new Config from cli context
func NewConfig(ctx *cli.Context, log log.Logger, workflowFile string) (*Config, error) {
	// Parse flags
	if err := flags.CheckRequired(ctx); err != nil {
		return nil, fmt.Errorf("missing required flags: %w", err)
	}
	if workflowFile == "" {
		return nil, errors.New("workflow file is required")
	}

	absWorkflowFile, err := filepath.Abs(workflowFile)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path for workflow file '%s': %w", workflowFile, err)
	}

	runInterval := ctx.Duration(flags.RunInterval.Name)
	runOnce := runInterval == 0

	workDir, err := filepath.Abs(ctx.String(flags.WorkDir.Name))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path for work directory: %w", err)
	}
	artifactDir, err := filepath.Abs(ctx.String(flags.ArtifactDir.Name))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path for artifact directory: %w", err)
	}

	return &Config{
		WorkflowFile:     absWorkflowFile,
		WorkDir:          workDir,
		ArtifactDir:      artifactDir,
		GitBinary:        ctx.String(flags.GitBinary.Name),
		ToolDirs:         ctx.StringSlice(flags.ToolDirs.Name),
		RunInterval:      runInterval,
		RunOnce:          runOnce,
		FailFast:         ctx.Bool(flags.FailFast.Name),
		MaxParallel:      ctx.Int(flags.MaxParallel.Name),
		DefaultTimeout:   ctx.Duration(flags.DefaultTimeout.Name),
		ShowProgress:     ctx.Bool(flags.ShowProgress.Name),
		ProgressInterval: ctx.Duration(flags.ProgressInterval.Name),
		Log:              log,
	}, nil
}
