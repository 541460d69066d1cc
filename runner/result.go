package runner

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/gbhanda/volttron-ci/types"
)

// RunResult captures the complete matrix run results
type RunResult struct {
	RunID    string
	Workflow string
	Jobs     map[string]*types.JobResult
	Status   types.JobStatus
	Duration time.Duration
	Stats    RunStats
}

// RunStats tracks job and test-case statistics for a run
type RunStats struct {
	Total    int
	Passed   int
	Failed   int
	Canceled int

	TestsTotal   int
	TestsPassed  int
	TestsFailed  int
	TestsSkipped int

	StartTime time.Time
	EndTime   time.Time
}

func newRunResult(runID string, start time.Time) *RunResult {
	return &RunResult{
		RunID:  runID,
		Jobs:   make(map[string]*types.JobResult),
		Status: types.JobStatusPass,
		Stats:  RunStats{StartTime: start},
	}
}

// addJob folds one job result into the run.
func (r *RunResult) addJob(job *types.JobResult) {
	r.Jobs[job.Spec.ID] = job

	r.Stats.Total++
	switch job.Status {
	case types.JobStatusPass:
		r.Stats.Passed++
	case types.JobStatusFail:
		r.Stats.Failed++
	case types.JobStatusCanceled:
		r.Stats.Canceled++
	}

	if job.Report != nil {
		r.Stats.TestsTotal += job.Report.Tests
		r.Stats.TestsPassed += job.Report.Passed()
		r.Stats.TestsFailed += job.Report.Failures + job.Report.Errors
		r.Stats.TestsSkipped += job.Report.Skipped
	}
}

// finalize computes the overall status once all jobs are accounted for.
func (r *RunResult) finalize(end time.Time) {
	r.Stats.EndTime = end
	r.Status = determineRunStatus(r)
}

// determineRunStatus determines the overall status of the run. Canceled jobs
// only appear under fail-fast, which requires a failure to trigger.
func determineRunStatus(result *RunResult) types.JobStatus {
	if result.Stats.Failed > 0 || result.Stats.Canceled > 0 {
		return types.JobStatusFail
	}
	return types.JobStatusPass
}

// SortedJobs returns the job results ordered by job ID for stable output.
func (r *RunResult) SortedJobs() []*types.JobResult {
	jobs := make([]*types.JobResult, 0, len(r.Jobs))
	for _, job := range r.Jobs {
		jobs = append(jobs, job)
	}
	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].Spec.ID < jobs[j].Spec.ID
	})
	return jobs
}

// formatDuration formats the duration to seconds with 1 decimal place
func formatDuration(d time.Duration) string {
	return fmt.Sprintf("%.1fs", d.Seconds())
}

// String returns a formatted string representation of the run results
func (r *RunResult) String() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Matrix Run Results (%s):\n", formatDuration(r.Duration)))
	b.WriteString(fmt.Sprintf("Jobs: %d, Passed: %d, Failed: %d, Canceled: %d\n",
		r.Stats.Total, r.Stats.Passed, r.Stats.Failed, r.Stats.Canceled))
	if r.Stats.TestsTotal > 0 {
		b.WriteString(fmt.Sprintf("Tests: %d, Passed: %d, Failed: %d, Skipped: %d\n",
			r.Stats.TestsTotal, r.Stats.TestsPassed, r.Stats.TestsFailed, r.Stats.TestsSkipped))
	}

	for _, job := range r.SortedJobs() {
		b.WriteString(fmt.Sprintf("\nJob: %s (%s) [status=%s]\n",
			job.Spec.ID, formatDuration(job.Duration), job.Status))

		for i, step := range job.Steps {
			prefix := "├──"
			if i == len(job.Steps)-1 {
				prefix = "└──"
			}
			line := fmt.Sprintf("%s %s (%s) [%s]", prefix, step.Kind,
				formatDuration(step.Duration), step.Status)
			if step.TimedOut {
				line += " [timed out]"
			}
			b.WriteString(line + "\n")
			if step.Error != nil {
				b.WriteString(fmt.Sprintf("│       └── Error: %s\n", firstLine(step.Error.Error())))
			}
		}

		if job.Report != nil {
			b.WriteString(fmt.Sprintf("    Report: %d tests, %d passed, %d failed, %d errored, %d skipped\n",
				job.Report.Tests, job.Report.Passed(), job.Report.Failures,
				job.Report.Errors, job.Report.Skipped))
		}
		if job.Archived != "" {
			b.WriteString(fmt.Sprintf("    Artifact: %s\n", job.Archived))
		}
	}
	return b.String()
}

// firstLine truncates multi-line error output for the tree view.
func firstLine(s string) string {
	if idx := strings.Index(s, "\n"); idx != -1 {
		return s[:idx]
	}
	if len(s) > 80 {
		return s[:70] + "..."
	}
	return s
}
