// Package runner executes matrix jobs. Each job is an independent four-step
// pipeline (checkout, provision, test, archive); the archive step is a
// structured deferred guarantee that runs on every exit path of the pipeline,
// including test failures, timeouts and panics. Jobs run in parallel on a
// bounded worker pool; the fail-fast policy decides whether one job's failure
// cancels its siblings.
package runner
