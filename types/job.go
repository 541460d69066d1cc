package types

import (
	"fmt"
	"path/filepath"
	"sort"
	"time"
)

// JobStatus represents the terminal state of a matrix job.
type JobStatus string

const (
	JobStatusPass     JobStatus = "pass"
	JobStatusFail     JobStatus = "fail"
	JobStatusCanceled JobStatus = "canceled"
)

// StepKind identifies a stage of the job pipeline.
type StepKind string

const (
	StepCheckout  StepKind = "checkout"
	StepProvision StepKind = "provision"
	StepTest      StepKind = "test"
	StepArchive   StepKind = "archive"
)

// StepStatus represents the outcome of a single pipeline step.
type StepStatus string

const (
	StepStatusPass StepStatus = "pass"
	StepStatusFail StepStatus = "fail"
)

// JobSpec is an independent, fully bound job descriptor produced by matrix
// expansion. Specs carry everything a worker needs; they share no state.
type JobSpec struct {
	ID       string
	Workflow string
	Matrix   MatrixEntry
	TestType string
	TestPath string
	Timeout  time.Duration
	Checkout CheckoutConfig
	Artifact string

	env map[string]string
}

// NewJobSpec binds one matrix combination into a job descriptor. The
// environment is copied once here and is immutable for the job's lifetime.
func NewJobSpec(w *WorkflowConfig, entry MatrixEntry, defaultTimeout time.Duration) JobSpec {
	timeout := defaultTimeout
	if w.Test.Timeout != nil {
		timeout = w.Test.Timeout.Std()
	}

	env := make(map[string]string, len(w.Env)+1)
	for k, v := range w.Env {
		env[k] = v
	}
	if _, ok := env[EnvCI]; !ok {
		env[EnvCI] = "true"
	}

	return JobSpec{
		ID:       fmt.Sprintf("%s-%s-%s", w.TestType(), entry.OS, entry.PythonVersion),
		Workflow: w.Name,
		Matrix:   entry,
		TestType: w.TestType(),
		TestPath: w.Test.Path,
		Timeout:  timeout,
		Checkout: w.Checkout,
		Artifact: w.ArtifactName(),
		env:      env,
	}
}

// Env returns the value of a job environment binding.
func (j JobSpec) Env(key string) string {
	return j.env[key]
}

// Environ returns the job environment as sorted KEY=VALUE pairs. The result
// is a copy; callers cannot mutate the job's bindings.
func (j JobSpec) Environ() []string {
	pairs := make([]string, 0, len(j.env))
	for k, v := range j.env {
		pairs = append(pairs, k+"="+v)
	}
	sort.Strings(pairs)
	return pairs
}

// ReportPath returns the workspace-relative path where the test step writes
// its report: output/{TEST_TYPE}-{os}-{python-version}-results.xml.
func (j JobSpec) ReportPath() string {
	return filepath.Join("output",
		fmt.Sprintf("%s-%s-%s-results.xml", j.TestType, j.Matrix.OS, j.Matrix.PythonVersion))
}

// ArtifactKey returns the per-job artifact name, namespaced by the matrix
// combination so sibling jobs never collide in the store.
func (j JobSpec) ArtifactKey() string {
	return fmt.Sprintf("%s-%s-%s", j.Artifact, j.Matrix.OS, j.Matrix.PythonVersion)
}

// StepResult captures the outcome of one pipeline step.
type StepResult struct {
	Kind     StepKind
	Status   StepStatus
	Error    error
	Duration time.Duration
	Output   string
	TimedOut bool
}

// JobResult captures the outcome of a single matrix job.
type JobResult struct {
	Spec     JobSpec
	Status   JobStatus
	Steps    []*StepResult
	Error    error
	Duration time.Duration
	Report   *TestReport // parsed report, nil when the file was never produced
	Archived string      // path of the stored artifact, empty when archival failed
}

// Step returns the recorded result for a step kind, or nil if it never ran.
func (r *JobResult) Step(kind StepKind) *StepResult {
	for _, s := range r.Steps {
		if s.Kind == kind {
			return s
		}
	}
	return nil
}

// TimedOut reports whether the test step was terminated by its timeout.
func (r *JobResult) TimedOut() bool {
	if s := r.Step(StepTest); s != nil {
		return s.TimedOut
	}
	return false
}

// TestReport holds the per-case counts folded out of a job's report file.
type TestReport struct {
	Tests    int
	Failures int
	Errors   int
	Skipped  int
	Duration time.Duration
	Cases    []TestCase
}

// Passed returns the number of passing cases.
func (r *TestReport) Passed() int {
	return r.Tests - r.Failures - r.Errors - r.Skipped
}

// CaseStatus represents the outcome of an individual test case.
type CaseStatus string

const (
	CaseStatusPass  CaseStatus = "pass"
	CaseStatusFail  CaseStatus = "fail"
	CaseStatusSkip  CaseStatus = "skip"
	CaseStatusError CaseStatus = "error"
)

// TestCase is a single case from a job's report.
type TestCase struct {
	Name      string
	ClassName string
	Status    CaseStatus
	Message   string
	Duration  time.Duration
}
