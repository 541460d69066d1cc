package runner

import "time"

// Job execution constants
const (
	// DefaultJobTimeout bounds the test step of a job when the workflow does
	// not set its own timeout.
	DefaultJobTimeout = 600 * time.Minute

	// Default binaries used by the pipeline steps
	DefaultGitBinary = "git"

	// Checkout arguments
	CloneCommand      = "clone"
	CloneDepthFlag    = "--depth"
	CloneBranchFlag   = "--branch"
	DefaultCloneDepth = 1

	// Test invocation arguments
	PytestModuleFlag = "-m"
	PytestModule     = "pytest"
	VerboseFlag      = "-v"
	JUnitXMLFlag     = "--junit-xml"

	// Workspace layout
	SourceDirName = "src"

	// MaxReasonableParallel caps auto-determined parallelism to avoid
	// resource exhaustion
	MaxReasonableParallel = 32
)
