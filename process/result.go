package process

import "time"

// Result describes a child that ran to completion.
type Result struct {
	// ID identifies the invocation in logs and spans.
	ID string
	// PID is the child's process id.
	PID int
	// ExitCode is the child's exit status. -1 if it was killed.
	ExitCode int
	// Duration is the time from spawn to the end of teardown.
	Duration time.Duration
	// CommandLine is the rendered command with masked arguments hidden.
	CommandLine string
}

// Success reports whether the child exited with status 0.
func (r *Result) Success() bool {
	return r != nil && r.ExitCode == 0
}
