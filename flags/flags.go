package flags

import (
	"fmt"
	"strings"
	"time"

	"github.com/urfave/cli/v2"
)

const EnvVarPrefix = "VOLTTRON_CI"

// prefixEnvVars derives the env var name for a flag from its CLI name.
func prefixEnvVars(name string) []string {
	return []string{EnvVarPrefix + "_" + strings.ReplaceAll(strings.ToUpper(name), "-", "_")}
}

var (
	WorkflowFile = &cli.StringFlag{
		Name:     "workflow",
		Value:    "",
		Required: true,
		EnvVars:  prefixEnvVars("workflow"),
		Usage:    "Path to the workflow config file (eg. 'pytest-dbutils.yaml')",
	}
	WorkDir = &cli.StringFlag{
		Name:    "workdir",
		Value:   "work",
		EnvVars: prefixEnvVars("workdir"),
		Usage:   "Scratch directory holding the per-job checkout workspaces",
	}
	ArtifactDir = &cli.StringFlag{
		Name:    "artifact-dir",
		Value:   "artifacts",
		EnvVars: prefixEnvVars("artifact-dir"),
		Usage:   "Directory where run artifacts and job logs are stored",
	}
	GitBinary = &cli.StringFlag{
		Name:    "git-binary",
		Value:   "git",
		EnvVars: prefixEnvVars("git-binary"),
		Usage:   "Path to the git binary used for the checkout step",
	}
	ToolDirs = &cli.StringSliceFlag{
		Name:    "tool-dirs",
		EnvVars: prefixEnvVars("tool-dirs"),
		Usage:   "Extra directories to scan for python interpreters, in addition to PATH",
	}
	RunInterval = &cli.DurationFlag{
		Name:    "run-interval",
		Value:   0,
		EnvVars: prefixEnvVars("run-interval"),
		Usage:   "Interval between workflow runs (e.g. '1h', '30m'). Set to 0 or omit for run-once mode.",
	}
	FailFast = &cli.BoolFlag{
		Name:    "fail-fast",
		Value:   false,
		EnvVars: prefixEnvVars("fail-fast"),
		Usage:   "Cancel remaining matrix jobs after the first failure, overriding the workflow strategy",
	}
	MaxParallel = &cli.IntFlag{
		Name:    "max-parallel",
		Value:   0,
		EnvVars: prefixEnvVars("max-parallel"),
		Usage:   "Number of concurrent job workers (0 = use workflow strategy, then CPU count)",
	}
	DefaultTimeout = &cli.DurationFlag{
		Name:    "default-timeout",
		Value:   600 * time.Minute,
		EnvVars: prefixEnvVars("default-timeout"),
		Usage:   "Timeout for a job's test step when the workflow does not set one",
	}
	ShowProgress = &cli.BoolFlag{
		Name:    "progress",
		Value:   false,
		EnvVars: prefixEnvVars("progress"),
		Usage:   "Show periodic progress updates during job execution",
	}
	ProgressInterval = &cli.DurationFlag{
		Name:    "progress-interval",
		Value:   30 * time.Second,
		EnvVars: prefixEnvVars("progress-interval"),
		Usage:   "Interval between progress updates when --progress is set",
	}
	LogLevel = &cli.StringFlag{
		Name:    "log.level",
		Value:   "info",
		EnvVars: prefixEnvVars("log-level"),
		Usage:   "Log level: debug, info, warn, error",
	}
	LogFormat = &cli.StringFlag{
		Name:    "log.format",
		Value:   "text",
		EnvVars: prefixEnvVars("log-format"),
		Usage:   "Log format: text, json",
	}
)

var requiredFlags = []cli.Flag{
	WorkflowFile,
}

var optionalFlags = []cli.Flag{
	WorkDir,
	ArtifactDir,
	GitBinary,
	ToolDirs,
	RunInterval,
	FailFast,
	MaxParallel,
	DefaultTimeout,
	ShowProgress,
	ProgressInterval,
	LogLevel,
	LogFormat,
}

var Flags []cli.Flag

func init() {
	Flags = append(requiredFlags, optionalFlags...)
}

func CheckRequired(ctx *cli.Context) error {
	for _, f := range requiredFlags {
		if !ctx.IsSet(f.Names()[0]) {
			return fmt.Errorf("flag %s is required", f.Names()[0])
		}
	}
	return nil
}
