package vci

import (
	"fmt"
	"time"

	"github.com/gbhanda/volttron-ci/types"
)

// getResultString returns a colored string representing the job result
func getResultString(status types.JobStatus) string {
	switch status {
	case types.JobStatusPass:
		return "✓ pass"
	case types.JobStatusCanceled:
		return "- canceled"
	default:
		return "✗ fail"
	}
}

// getStepResultString returns a colored string representing a step result
func getStepResultString(status types.StepStatus) string {
	if status == types.StepStatusPass {
		return "✓ pass"
	}
	return "✗ fail"
}

// Helper function to format duration to seconds with 1 decimal place
func formatDuration(d time.Duration) string {
	return fmt.Sprintf("%.1fs", d.Seconds())
}
