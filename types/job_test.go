package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testWorkflow() *WorkflowConfig {
	return &WorkflowConfig{
		Name:    "pytest-dbutils",
		Trigger: "pull_request",
		Env: map[string]string{
			EnvTestType: "dbutils",
			EnvCI:       "true",
		},
		Strategy: StrategyConfig{
			Matrix: MatrixConfig{
				OS:            []string{"ubuntu-18.04"},
				PythonVersion: []string{"3.7"},
			},
		},
		Checkout: CheckoutConfig{Repository: "."},
		Test:     TestConfig{Path: "volttrontesting/testutils"},
	}
}

func TestJobSpec_ReportPath(t *testing.T) {
	spec := NewJobSpec(testWorkflow(), MatrixEntry{OS: "ubuntu-18.04", PythonVersion: "3.7"}, time.Hour)

	// The report path is fully determined by the three substituted values.
	assert.Equal(t, "output/dbutils-ubuntu-18.04-3.7-results.xml", spec.ReportPath())
}

func TestJobSpec_Identity(t *testing.T) {
	spec := NewJobSpec(testWorkflow(), MatrixEntry{OS: "ubuntu-20.04", PythonVersion: "3.8"}, time.Hour)

	assert.Equal(t, "dbutils-ubuntu-20.04-3.8", spec.ID)
	assert.Equal(t, "pytest-report-ubuntu-20.04-3.8", spec.ArtifactKey())
}

func TestJobSpec_Timeout(t *testing.T) {
	w := testWorkflow()
	spec := NewJobSpec(w, MatrixEntry{OS: "ubuntu-18.04", PythonVersion: "3.7"}, 600*time.Minute)
	assert.Equal(t, 600*time.Minute, spec.Timeout)

	override := Duration(30 * time.Minute)
	w.Test.Timeout = &override
	spec = NewJobSpec(w, MatrixEntry{OS: "ubuntu-18.04", PythonVersion: "3.7"}, 600*time.Minute)
	assert.Equal(t, 30*time.Minute, spec.Timeout)
}

func TestJobSpec_EnvironIsImmutableCopy(t *testing.T) {
	spec := NewJobSpec(testWorkflow(), MatrixEntry{OS: "ubuntu-18.04", PythonVersion: "3.7"}, time.Hour)

	env := spec.Environ()
	require.Contains(t, env, "TEST_TYPE=dbutils")
	require.Contains(t, env, "CI=true")

	// Mutating the returned slice must not affect later reads.
	env[0] = "TEST_TYPE=broken"
	assert.Contains(t, spec.Environ(), "TEST_TYPE=dbutils")
	assert.Equal(t, "dbutils", spec.Env(EnvTestType))
}

func TestJobSpec_CIDefaulted(t *testing.T) {
	w := testWorkflow()
	delete(w.Env, EnvCI)

	spec := NewJobSpec(w, MatrixEntry{OS: "ubuntu-18.04", PythonVersion: "3.7"}, time.Hour)
	assert.Equal(t, "true", spec.Env(EnvCI))
}

func TestJobResult_Step(t *testing.T) {
	res := &JobResult{
		Steps: []*StepResult{
			{Kind: StepCheckout, Status: StepStatusPass},
			{Kind: StepTest, Status: StepStatusFail, TimedOut: true},
		},
	}

	require.NotNil(t, res.Step(StepCheckout))
	assert.Nil(t, res.Step(StepProvision))
	assert.True(t, res.TimedOut())
}

func TestTestReport_Passed(t *testing.T) {
	r := &TestReport{Tests: 10, Failures: 2, Errors: 1, Skipped: 3}
	assert.Equal(t, 4, r.Passed())
}

func TestWorkflowValidate(t *testing.T) {
	w := testWorkflow()
	require.NoError(t, w.Validate())

	w.Env = map[string]string{}
	err := w.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TEST_TYPE")

	w = testWorkflow()
	w.Test.Path = ""
	require.Error(t, w.Validate())

	w = testWorkflow()
	w.Checkout.Repository = ""
	require.Error(t, w.Validate())

	w = testWorkflow()
	w.Strategy.MaxParallel = -1
	require.Error(t, w.Validate())
}

func TestWorkflowArtifactName(t *testing.T) {
	w := testWorkflow()
	assert.Equal(t, DefaultArtifactName, w.ArtifactName())

	w.Artifact.Name = "coverage-report"
	assert.Equal(t, "coverage-report", w.ArtifactName())
}
