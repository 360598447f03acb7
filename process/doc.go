// Package process launches a child process from a cmdline.Command, relays
// its stdin, stdout and stderr concurrently, enforces an optional timeout
// and tears everything down in a fixed order.
//
// Basic use:
//
//	cmd := cmdline.New("git").AddArguments("log", "--oneline")
//	out := &stream.LineCollector{}
//	res, err := process.Execute(ctx, cmd, process.Options{
//		Stdout:  out,
//		Timeout: 30 * time.Second,
//	})
//
// A non-zero exit code is reported in Result.ExitCode, not as an error.
// Errors are *errors.AppError values: INVALID_INPUT for a malformed command,
// SPAWN_FAILED when nothing was started, TIMEOUT or CANCELED when the child
// was killed, STREAM_FAILED when a relay failed.
//
// The OS boundary is the Spawner interface. ExecSpawner is the os/exec
// implementation; tests substitute their own.
package process
