// Package exitcodes defines the standard exit codes used by volttron-ci.
package exitcodes

// Exit code constants used by volttron-ci
// These constants define the exit codes that the application uses to indicate
// various states when it exits:
//
// * Success (0): Used when every matrix job passes
// * JobFailure (1): Used when one or more jobs fail
// * RuntimeErr (2): Used for runtime errors such as panics, bad configuration or other failures
const (
	Success    = 0 // All jobs pass
	JobFailure = 1 // Job failures
	RuntimeErr = 2 // Runtime errors or bad configuration
)
