package vci

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gbhanda/volttron-ci/provision"
	"github.com/gbhanda/volttron-ci/registry"
	"github.com/gbhanda/volttron-ci/runner"
	"github.com/gbhanda/volttron-ci/types"
)

const testWorkflow = `
name: pytest-dbutils
on: pull_request
env:
  TEST_TYPE: dbutils
strategy:
  matrix:
    os: [ubuntu-18.04, ubuntu-20.04]
    python-version: ["3.7"]
checkout:
  repository: https://example.com/volttron.git
test:
  path: volttrontesting/testutils
  timeout: 5s
artifact:
  name: pytest-report
`

// stubStep passes every pipeline stage without touching the network.
type stubStep struct {
	testErr error
}

func (s *stubStep) Run(ctx context.Context, spec types.JobSpec, workspace string) (string, error) {
	return "cloned\n", nil
}

type stubProvision struct{}

func (s *stubProvision) Run(ctx context.Context, spec types.JobSpec) (provision.Interpreter, error) {
	return provision.Interpreter{Version: spec.Matrix.PythonVersion, Path: "/usr/bin/python3"}, nil
}

type stubTest struct {
	err error
}

func (s *stubTest) Run(ctx context.Context, spec types.JobSpec, workspace string, interp provision.Interpreter) (string, error) {
	report := `<testsuite name="pytest" tests="2" failures="0" errors="0" skipped="0" time="0.5">
  <testcase classname="t" name="test_a" time="0.25"/>
  <testcase classname="t" name="test_b" time="0.25"/>
</testsuite>`
	reportPath := filepath.Join(workspace, "src", spec.ReportPath())
	if err := os.MkdirAll(filepath.Dir(reportPath), 0755); err != nil {
		return "", err
	}
	if err := os.WriteFile(reportPath, []byte(report), 0644); err != nil {
		return "", err
	}
	return "2 passed\n", s.err
}

func newTestExecutor(t *testing.T, testErr error) *DefaultWorkflowExecutor {
	t.Helper()

	workflowFile := filepath.Join(t.TempDir(), "workflow.yaml")
	require.NoError(t, os.WriteFile(workflowFile, []byte(testWorkflow), 0644))

	logger := log.New()
	cfg := &Config{
		WorkflowFile:   workflowFile,
		WorkDir:        t.TempDir(),
		ArtifactDir:    t.TempDir(),
		DefaultTimeout: time.Minute,
		Log:            logger,
	}

	reg, err := registry.NewRegistry(registry.Config{
		Log:            logger,
		WorkflowFile:   cfg.WorkflowFile,
		DefaultTimeout: cfg.DefaultTimeout,
	})
	require.NoError(t, err)

	executor := NewWorkflowExecutor(cfg, reg, provision.NewLocator(logger, nil))
	executor.steps = &runner.StepSet{
		Checkout:  &stubStep{},
		Provision: &stubProvision{},
		Test:      &stubTest{err: testErr},
	}
	return executor
}

func TestWorkflowExecutor_Execute(t *testing.T) {
	executor := newTestExecutor(t, nil)

	result, err := executor.Execute(context.Background())
	require.NoError(t, err)

	assert.Equal(t, types.JobStatusPass, result.Status)
	assert.Equal(t, 2, result.Stats.Total)
	assert.Equal(t, 4, result.Stats.TestsTotal)
	assert.NotEmpty(t, result.RunID)

	// The run directory holds the uploaded reports and the summary.
	runDir := filepath.Join(executor.config.ArtifactDir, "run-"+result.RunID)
	assert.DirExists(t, runDir)
	assert.FileExists(t, filepath.Join(runDir, "artifacts", "pytest-report-ubuntu-18.04-3.7.xml"))
	assert.FileExists(t, filepath.Join(runDir, "artifacts", "pytest-report-ubuntu-20.04-3.7.xml"))
	assert.FileExists(t, filepath.Join(runDir, "summary.log"))
	assert.FileExists(t, filepath.Join(runDir, "manifest.json"))

	// Job output streamed into the combined run log as jobs completed.
	data, err := os.ReadFile(filepath.Join(runDir, "all.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "==== job dbutils-ubuntu-18.04-3.7 ====")
}

func TestWorkflowExecutor_Execute_JobFailures(t *testing.T) {
	executor := newTestExecutor(t, errors.New("exit status 1"))

	result, err := executor.Execute(context.Background())
	require.NoError(t, err)

	assert.Equal(t, types.JobStatusFail, result.Status)
	assert.Equal(t, 2, result.Stats.Failed)

	// Reports are archived even though the jobs failed.
	runDir := filepath.Join(executor.config.ArtifactDir, "run-"+result.RunID)
	assert.FileExists(t, filepath.Join(runDir, "artifacts", "pytest-report-ubuntu-18.04-3.7.xml"))
}

func TestWorkflowExecutor_Execute_FreshRunPerCall(t *testing.T) {
	executor := newTestExecutor(t, nil)

	first, err := executor.Execute(context.Background())
	require.NoError(t, err)
	second, err := executor.Execute(context.Background())
	require.NoError(t, err)

	assert.NotEqual(t, first.RunID, second.RunID)
	assert.DirExists(t, filepath.Join(executor.config.ArtifactDir, "run-"+first.RunID))
	assert.DirExists(t, filepath.Join(executor.config.ArtifactDir, "run-"+second.RunID))
}
