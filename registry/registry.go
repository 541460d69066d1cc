package registry

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"gopkg.in/yaml.v3"

	"github.com/gbhanda/volttron-ci/types"
)

// Registry loads the workflow definition and owns the expanded job set.
type Registry struct {
	config   Config
	workflow *types.WorkflowConfig
	jobs     []types.JobSpec
	mu       sync.RWMutex
}

// Config contains registry configuration
type Config struct {
	Log            log.Logger
	WorkflowFile   string
	DefaultTimeout time.Duration
}

// NewRegistry creates a new registry instance
func NewRegistry(cfg Config) (*Registry, error) {
	if cfg.WorkflowFile == "" {
		return nil, fmt.Errorf("workflow file is required")
	}
	if cfg.Log == nil {
		cfg.Log = log.New()
		cfg.Log.Error("No logger provided, using default")
	}

	r := &Registry{
		config: cfg,
	}

	if err := r.loadWorkflow(cfg.WorkflowFile); err != nil {
		return nil, fmt.Errorf("failed to load workflow: %w", err)
	}

	cfg.Log.Debug("Registry loaded", "workflow", r.workflow.Name, "len(jobs)", len(r.jobs))

	return r, nil
}

// loadWorkflow reads the workflow file, validates it and expands the matrix.
func (r *Registry) loadWorkflow(path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	workflow, err := loadConfig(path)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := workflow.Validate(); err != nil {
		return fmt.Errorf("invalid workflow: %w", err)
	}

	jobs, err := r.expandJobs(workflow)
	if err != nil {
		return fmt.Errorf("failed to expand matrix: %w", err)
	}

	r.workflow = workflow
	r.jobs = jobs

	return nil
}

// expandJobs turns the matrix product into independent job descriptors.
func (r *Registry) expandJobs(workflow *types.WorkflowConfig) ([]types.JobSpec, error) {
	entries, err := workflow.Strategy.Matrix.Expand()
	if err != nil {
		return nil, err
	}

	jobs := make([]types.JobSpec, 0, len(entries))
	for _, entry := range entries {
		jobs = append(jobs, types.NewJobSpec(workflow, entry, r.config.DefaultTimeout))
	}
	return jobs, nil
}

// Workflow returns the loaded workflow definition.
func (r *Registry) Workflow() *types.WorkflowConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.workflow
}

// GetJobs returns all expanded job descriptors.
func (r *Registry) GetJobs() []types.JobSpec {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.jobs
}

// GetJobsByOS returns the jobs for a specific operating system label.
func (r *Registry) GetJobsByOS(os string) []types.JobSpec {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var jobs []types.JobSpec
	for _, job := range r.jobs {
		if job.Matrix.OS == os {
			jobs = append(jobs, job)
		}
	}
	return jobs
}

// GetConfig returns the registry configuration
func (r *Registry) GetConfig() Config {
	return r.config
}

// loadConfig loads a workflow definition from a file
func loadConfig(path string) (*types.WorkflowConfig, error) {
	log.Debug("Reading workflow file", "path", path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading workflow file: %w", err)
	}

	var cfg types.WorkflowConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing workflow file: %w", err)
	}

	return &cfg, nil
}
