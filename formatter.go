package vci

import (
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/log"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/gbhanda/volttron-ci/runner"
	"github.com/gbhanda/volttron-ci/types"
)

// ResultFormatter is responsible for formatting and displaying run results.
type ResultFormatter interface {
	FormatResults(result *runner.RunResult) error
}

// ConsoleResultFormatter implements the ResultFormatter interface.
type ConsoleResultFormatter struct {
	logger log.Logger
}

// NewConsoleResultFormatter creates a new ConsoleResultFormatter.
func NewConsoleResultFormatter(logger log.Logger) *ConsoleResultFormatter {
	return &ConsoleResultFormatter{
		logger: logger,
	}
}

// FormatResults formats and displays the matrix run results.
func (f *ConsoleResultFormatter) FormatResults(result *runner.RunResult) error {
	f.logger.Info("Printing results...")
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle(fmt.Sprintf("Matrix Run Results (%s)", formatDuration(result.Duration)))

	// Configure columns
	t.AppendHeader(table.Row{
		"Type", "ID", "Duration", "Tests", "Passed", "Failed", "Skipped", "Status", "Error",
	})

	// Set column configurations for better readability
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Type", AutoMerge: true},
		{Name: "ID", WidthMax: 50, WidthMaxEnforcer: text.WrapSoft},
		{Name: "Duration", Align: text.AlignRight},
		{Name: "Tests", Align: text.AlignRight},
		{Name: "Passed", Align: text.AlignRight},
		{Name: "Failed", Align: text.AlignRight},
		{Name: "Skipped", Align: text.AlignRight},
		{Name: "Error", WidthMax: 80, WidthMaxEnforcer: text.WrapSoft},
	})

	for _, job := range result.SortedJobs() {
		// Job row - per-case counts come from the parsed report when the
		// test step produced one.
		tests, passed, failed, skipped := "-", "-", "-", "-"
		if job.Report != nil {
			tests = fmt.Sprintf("%d", job.Report.Tests)
			passed = fmt.Sprintf("%d", job.Report.Passed())
			failed = fmt.Sprintf("%d", job.Report.Failures+job.Report.Errors)
			skipped = fmt.Sprintf("%d", job.Report.Skipped)
		}

		t.AppendRow(table.Row{
			"Job",
			job.Spec.ID,
			formatDuration(job.Duration),
			tests,
			passed,
			failed,
			skipped,
			getResultString(job.Status),
			extractKeyErrorMessage(job.Error),
		})

		// Print the pipeline steps for this job
		for i, step := range job.Steps {
			prefix := "├──"
			if i == len(job.Steps)-1 {
				prefix = "└──"
			}

			name := string(step.Kind)
			if step.TimedOut {
				name += " (timed out)"
			}

			t.AppendRow(table.Row{
				"Step",
				fmt.Sprintf("%s %s", prefix, name),
				formatDuration(step.Duration),
				"-",
				"-",
				"-",
				"-",
				getStepResultString(step.Status),
				extractKeyErrorMessage(step.Error),
			})
		}

		t.AppendSeparator()
	}

	// Update the table style setting based on result status
	if result.Status == types.JobStatusPass {
		t.SetStyle(table.StyleColoredBlackOnGreenWhite)
	} else {
		t.SetStyle(table.StyleColoredBlackOnRedWhite)
	}

	// Add summary footer
	t.AppendFooter(table.Row{
		"TOTAL",
		fmt.Sprintf("%d jobs", result.Stats.Total),
		formatDuration(result.Duration),
		result.Stats.TestsTotal,
		result.Stats.TestsPassed,
		result.Stats.TestsFailed,
		result.Stats.TestsSkipped,
		getResultString(result.Status),
		"",
	})

	t.Render()
	return nil
}

// extractKeyErrorMessage extracts the most pertinent part of the error message for display
func extractKeyErrorMessage(err error) string {
	if err == nil {
		return ""
	}

	errStr := err.Error()

	// Surface the first assertion line from pytest output when present
	for _, pattern := range []string{"assert", "FAILED", "ERROR", "Error:"} {
		if idx := strings.Index(errStr, pattern); idx != -1 {
			start := idx
			for start > 0 && errStr[start-1] != '\n' {
				start--
			}
			end := len(errStr)
			if newLine := strings.Index(errStr[idx:], "\n"); newLine != -1 {
				end = idx + newLine
			}
			return strings.TrimSpace(errStr[start:end])
		}
	}

	// Otherwise limit to the first line or 80 chars
	if idx := strings.Index(errStr, "\n"); idx != -1 {
		return errStr[:idx]
	} else if len(errStr) > 80 {
		return errStr[:70] + "..."
	}

	return errStr
}
