package metrics

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/gbhanda/volttron-ci/types"
)

const (
	MetricsNamespace = "volttron_ci"
)

var (
	Debug                bool = true
	validStatuses             = []types.JobStatus{types.JobStatusPass, types.JobStatusFail, types.JobStatusCanceled}
	nonAlphanumericRegex      = regexp.MustCompile(`[^a-zA-Z ]+`)

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "errors_total",
		Help:      "Count of errors",
	}, []string{
		"error",
	})

	jobsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "jobs_total",
		Help:      "Count of matrix jobs by outcome",
	}, []string{
		"run_id",
		"os",
		"python_version",
		"status",
	})

	jobDuration = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "job_duration_seconds",
		Help:      "Duration of matrix jobs",
	}, []string{
		"run_id",
		"os",
		"python_version",
	})

	stepFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "step_failures_total",
		Help:      "Count of failed pipeline steps",
	}, []string{
		"step",
	})

	runResults = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "run_results",
		Help:      "Result of workflow runs",
	}, []string{
		"workflow",
		"run_id",
		"result",
	})

	runJobsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "run_jobs_total",
		Help:      "Total number of jobs in a run",
	}, []string{
		"workflow",
		"run_id",
	})

	runJobsPassed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "run_jobs_passed",
		Help:      "Number of passed jobs in a run",
	}, []string{
		"workflow",
		"run_id",
	})

	runJobsFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "run_jobs_failed",
		Help:      "Number of failed jobs in a run",
	}, []string{
		"workflow",
		"run_id",
	})

	runJobsCanceled = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "run_jobs_canceled",
		Help:      "Number of canceled jobs in a run",
	}, []string{
		"workflow",
		"run_id",
	})

	runDuration = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "run_duration_seconds",
		Help:      "Duration of workflow runs",
	}, []string{
		"workflow",
		"run_id",
	})
)

// errToLabel tries to make the error string a more valid Prometheus label
func errToLabel(err error) string {
	if err == nil {
		return "nil"
	}
	errClean := nonAlphanumericRegex.ReplaceAllString(err.Error(), "")
	errClean = strings.ReplaceAll(errClean, " ", "_")
	errClean = strings.ReplaceAll(errClean, "__", "_")
	return errClean
}

func RecordError(error string) {
	if Debug {
		log.Debug("metric inc",
			"m", "errors_total",
			"error", error,
		)
	}
	errorsTotal.WithLabelValues(error).Inc()
}

// RecordErrorDetails concats the error message to the label
// and also tries to clean the label to be a valid Prometheus label
func RecordErrorDetails(label string, err error) {
	if err == nil {
		return
	}
	label = fmt.Sprintf("%s.%s", label, errToLabel(err))
	RecordError(label)
}

func RecordJob(runID string, result *types.JobResult) {
	if !isValidStatus(result.Status) {
		log.Error("RecordJob - invalid status", "status", result.Status)
		return
	}
	if Debug {
		log.Debug("metric inc",
			"m", "jobs_total",
			"run_id", runID,
			"os", result.Spec.Matrix.OS,
			"python_version", result.Spec.Matrix.PythonVersion,
			"status", result.Status)
	}
	jobsTotal.WithLabelValues(runID, result.Spec.Matrix.OS, result.Spec.Matrix.PythonVersion, string(result.Status)).Inc()
	jobDuration.WithLabelValues(runID, result.Spec.Matrix.OS, result.Spec.Matrix.PythonVersion).Set(result.Duration.Seconds())
}

func RecordStepFailure(step string) {
	if Debug {
		log.Debug("metric inc",
			"m", "step_failures_total",
			"step", step,
		)
	}
	stepFailuresTotal.WithLabelValues(step).Inc()
}

func RecordRun(
	workflow string,
	runID string,
	result string,
	total int,
	passed int,
	failed int,
	canceled int,
	duration time.Duration,
) {
	runResults.WithLabelValues(workflow, runID, result).Set(1)
	runJobsTotal.WithLabelValues(workflow, runID).Add(float64(total))
	runJobsPassed.WithLabelValues(workflow, runID).Add(float64(passed))
	runJobsFailed.WithLabelValues(workflow, runID).Add(float64(failed))
	runJobsCanceled.WithLabelValues(workflow, runID).Add(float64(canceled))
	runDuration.WithLabelValues(workflow, runID).Set(duration.Seconds())
}

func isValidStatus(status types.JobStatus) bool {
	return slices.Contains(validStatuses, status)
}
