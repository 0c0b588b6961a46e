// Package wbtest provides public constants for scripts and CI jobs that
// consume the wbtest exit status.
package wbtest

// Exit codes returned by the wbtest CLI.
// A run's outcome is carried by ExitSuccess and ExitFailure only; the
// remaining codes mean the run could not start.
const (
	// ExitSuccess indicates every test in the suite passed.
	ExitSuccess = 0

	// ExitFailure indicates at least one test failed (or a probe failed).
	ExitFailure = 1

	// ExitConfigError indicates an invalid suite file or command-line usage.
	ExitConfigError = 2

	// ExitEnvError indicates an environment problem (browser driver missing,
	// report directory not writable, server port never opened).
	ExitEnvError = 3
)
