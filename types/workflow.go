// Package types contains shared types used across the volttron-ci matrix runner.
package types

import (
	"fmt"
)

// WorkflowConfig represents the complete workflow definition loaded from YAML.
type WorkflowConfig struct {
	Name     string            `yaml:"name"`
	Trigger  string            `yaml:"on,omitempty"`
	Env      map[string]string `yaml:"env,omitempty"`
	Strategy StrategyConfig    `yaml:"strategy"`
	Checkout CheckoutConfig    `yaml:"checkout"`
	Test     TestConfig        `yaml:"test"`
	Artifact ArtifactConfig    `yaml:"artifact,omitempty"`
}

// StrategyConfig controls how matrix jobs are scheduled.
type StrategyConfig struct {
	// FailFast cancels the remaining jobs after the first failure.
	// The default leaves matrix jobs fully decoupled.
	FailFast    bool         `yaml:"fail-fast,omitempty"`
	MaxParallel int          `yaml:"max-parallel,omitempty"`
	Matrix      MatrixConfig `yaml:"matrix"`
}

// CheckoutConfig identifies the source to acquire for each job.
type CheckoutConfig struct {
	Repository string `yaml:"repository"`
	Ref        string `yaml:"ref,omitempty"`
	Depth      int    `yaml:"depth,omitempty"`
}

// TestConfig describes the test invocation shared by every job.
type TestConfig struct {
	Path    string    `yaml:"path"`
	Timeout *Duration `yaml:"timeout,omitempty"`
}

// ArtifactConfig names the report archived after each job.
type ArtifactConfig struct {
	Name string `yaml:"name,omitempty"`
}

// EnvTestType is the job environment key selecting the test subdirectory.
// EnvCI marks the environment as a CI run for the test suite.
const (
	EnvTestType = "TEST_TYPE"
	EnvCI       = "CI"
)

// DefaultArtifactName is used when the workflow does not name its artifact.
const DefaultArtifactName = "pytest-report"

// Validate checks the workflow for the fields every job depends on.
func (w *WorkflowConfig) Validate() error {
	if w.Test.Path == "" {
		return fmt.Errorf("workflow %q: test path is required", w.Name)
	}
	if w.Env[EnvTestType] == "" {
		return fmt.Errorf("workflow %q: env.%s is required", w.Name, EnvTestType)
	}
	if w.Checkout.Repository == "" {
		return fmt.Errorf("workflow %q: checkout repository is required", w.Name)
	}
	if w.Strategy.MaxParallel < 0 {
		return fmt.Errorf("workflow %q: max-parallel cannot be negative", w.Name)
	}
	return w.Strategy.Matrix.Validate()
}

// TestType returns the configured test subdirectory identifier.
func (w *WorkflowConfig) TestType() string {
	return w.Env[EnvTestType]
}

// ArtifactName returns the configured artifact name or the default.
func (w *WorkflowConfig) ArtifactName() string {
	if w.Artifact.Name != "" {
		return w.Artifact.Name
	}
	return DefaultArtifactName
}
