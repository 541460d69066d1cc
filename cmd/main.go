package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/log"
	"github.com/honeycombio/otel-config-go/otelconfig"
	"github.com/urfave/cli/v2"

	vci "github.com/gbhanda/volttron-ci"
	"github.com/gbhanda/volttron-ci/exitcodes"
	"github.com/gbhanda/volttron-ci/flags"
	"github.com/gbhanda/volttron-ci/service"
)

var (
	Version   = "v0.1.0"
	GitCommit = ""
	GitDate   = ""
)

func main() {
	app := cli.NewApp()
	app.Version = fmt.Sprintf("%s-%s-%s", Version, GitCommit, GitDate)
	app.Name = "volttron-ci"
	app.Usage = "VOLTTRON Matrix CI Runner"
	app.Description = "volttron-ci expands a pytest workflow matrix and runs every job"
	app.Flags = flags.Flags
	app.Action = lifecycleCmd(run)
	app.ExitErrHandler = func(c *cli.Context, err error) {
		var exitErr cli.ExitCoder
		if errors.As(err, &exitErr) {
			// Use the exit code from the ExitCoder
			cli.HandleExitCoder(exitErr)
		} else if err != nil {
			cli.HandleExitCoder(cli.Exit(err.Error(), exitCodeForError(err)))
		}
	}

	// Start telemetry
	otelShutdown, err := otelconfig.ConfigureOpenTelemetry(
		otelconfig.WithServiceName(app.Name),
		otelconfig.WithServiceVersion(app.Version),
	)
	if err != nil {
		log.Crit("Failed to setup open telemetry", "message", err)
	}
	defer otelShutdown()

	// Start healthz and metrics servers
	ctx := context.Background()
	svc := service.New()
	svc.Start(ctx)
	defer svc.Shutdown()

	// Start CLI
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	err = app.RunContext(ctx, os.Args)
	if err != nil {
		log.Crit("Application failed", "message", err)
	}
}

// exitCodeForError maps typed service errors onto the exit code contract:
// job failures are exit code 1, runtime errors are exit code 2.
func exitCodeForError(err error) int {
	if vci.IsRuntimeError(err) {
		return exitcodes.RuntimeErr
	}
	if vci.IsJobFailureError(err) {
		return exitcodes.JobFailure
	}
	// Unspecified errors default to a job failure
	return exitcodes.JobFailure
}

func run(ctx *cli.Context, closeApp context.CancelCauseFunc) (vci.Lifecycle, error) {
	logger, err := setupLogging(ctx)
	if err != nil {
		return nil, vci.NewRuntimeError(err)
	}

	cfg, err := vci.NewConfig(ctx, logger, ctx.String(flags.WorkflowFile.Name))
	if err != nil {
		// Wrap in RuntimeError to signal this should exit with code 2
		return nil, vci.NewRuntimeError(fmt.Errorf("failed to create config: %w", err))
	}

	cfg.Log.Debug("Config", "config", cfg)

	svc, err := vci.New(ctx.Context, cfg, Version, closeApp)
	if err != nil {
		// Wrap in RuntimeError to signal this should exit with code 2
		return nil, vci.NewRuntimeError(fmt.Errorf("failed to create service: %w", err))
	}

	return svc, nil
}

// setupLogging builds the logger from the log.level and log.format flags and
// installs it as the default.
func setupLogging(ctx *cli.Context) (log.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(ctx.String(flags.LogLevel.Name))); err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	var handler slog.Handler
	switch format := ctx.String(flags.LogFormat.Name); format {
	case "json":
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	case "text":
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	default:
		return nil, fmt.Errorf("invalid log format: %s", format)
	}

	logger := log.NewLogger(handler)
	log.SetDefault(logger)
	return logger, nil
}
