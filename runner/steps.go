package runner

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	"github.com/ethereum/go-ethereum/log"

	"github.com/gbhanda/volttron-ci/provision"
	"github.com/gbhanda/volttron-ci/types"
)

// CheckoutStep acquires the job's source into the workspace source directory.
type CheckoutStep interface {
	Run(ctx context.Context, spec types.JobSpec, workspace string) (output string, err error)
}

// ProvisionStep binds the requested interpreter version for the job.
type ProvisionStep interface {
	Run(ctx context.Context, spec types.JobSpec) (provision.Interpreter, error)
}

// TestStep invokes the test suite inside the checked-out source tree.
type TestStep interface {
	Run(ctx context.Context, spec types.JobSpec, workspace string, interp provision.Interpreter) (output string, err error)
}

// StepSet bundles the executors for the first three pipeline stages. The
// archive stage is not swappable: its always-run guarantee belongs to the
// runner itself.
type StepSet struct {
	Checkout  CheckoutStep
	Provision ProvisionStep
	Test      TestStep
}

// defaultSteps wires the production step executors.
func defaultSteps(logger log.Logger, gitBinary string, locator *provision.Locator) StepSet {
	return StepSet{
		Checkout:  &gitCheckout{log: logger, gitBinary: gitBinary},
		Provision: &interpreterProvision{locator: locator},
		Test:      &pytestExec{log: logger},
	}
}

// gitCheckout clones the configured repository into <workspace>/src.
type gitCheckout struct {
	log       log.Logger
	gitBinary string
}

func (g *gitCheckout) Run(ctx context.Context, spec types.JobSpec, workspace string) (string, error) {
	dest := filepath.Join(workspace, SourceDirName)

	depth := spec.Checkout.Depth
	if depth <= 0 {
		depth = DefaultCloneDepth
	}

	args := []string{CloneCommand, CloneDepthFlag, strconv.Itoa(depth)}
	if spec.Checkout.Ref != "" {
		args = append(args, CloneBranchFlag, spec.Checkout.Ref)
	}
	args = append(args, spec.Checkout.Repository, dest)

	cmd := exec.CommandContext(ctx, g.gitBinary, args...)

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	g.log.Debug("Checking out source", "job", spec.ID, "command", cmd.String())

	if err := cmd.Run(); err != nil {
		return out.String(), fmt.Errorf("source checkout failed: %w\n%s", err, out.String())
	}
	return out.String(), nil
}

// interpreterProvision resolves the matrix python version to an executable.
type interpreterProvision struct {
	locator *provision.Locator
}

func (p *interpreterProvision) Run(ctx context.Context, spec types.JobSpec) (provision.Interpreter, error) {
	if err := ctx.Err(); err != nil {
		return provision.Interpreter{}, err
	}
	return p.locator.Resolve(spec.Matrix.PythonVersion)
}

// pytestExec runs pytest against the job's test path, writing the JUnit
// report to the path the archive step expects.
type pytestExec struct {
	log log.Logger
}

func (p *pytestExec) Run(ctx context.Context, spec types.JobSpec, workspace string, interp provision.Interpreter) (string, error) {
	srcDir := filepath.Join(workspace, SourceDirName)
	reportPath := filepath.Join(srcDir, spec.ReportPath())

	if err := os.MkdirAll(filepath.Dir(reportPath), 0755); err != nil {
		return "", fmt.Errorf("creating output directory: %w", err)
	}

	args := []string{
		PytestModuleFlag, PytestModule,
		spec.TestPath,
		VerboseFlag,
		JUnitXMLFlag + "=" + reportPath,
	}

	cmd := exec.CommandContext(ctx, interp.Path, args...)
	cmd.Dir = srcDir
	cmd.Env = append(os.Environ(), spec.Environ()...)

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	p.log.Debug("Running test command", "job", spec.ID, "dir", cmd.Dir,
		"command", cmd.String(), "timeout", spec.Timeout)

	if err := cmd.Run(); err != nil {
		return out.String(), fmt.Errorf("test execution failed: %w", err)
	}
	return out.String(), nil
}
