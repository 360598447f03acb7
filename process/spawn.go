package process

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
)

// SpawnRequest is everything the OS needs to launch a child.
type SpawnRequest struct {
	// Tokens is argv. Tokens[0] is the program.
	Tokens []string
	// Env is the complete child environment as NAME=value entries.
	Env []string
	// Dir is the working directory. Empty means the parent's.
	Dir string
	// Stdin requests a writable stdin pipe. Without it the child reads from
	// the null device.
	Stdin bool
}

// Spawner launches child processes.
type Spawner interface {
	Spawn(req SpawnRequest) (Handle, error)
}

// SpawnerFunc adapts a function to Spawner.
type SpawnerFunc func(req SpawnRequest) (Handle, error)

// Spawn calls f(req).
func (f SpawnerFunc) Spawn(req SpawnRequest) (Handle, error) { return f(req) }

// Handle is a live child process.
type Handle interface {
	PID() int
	// Stdin is nil unless the request asked for it.
	Stdin() io.WriteCloser
	Stdout() io.ReadCloser
	Stderr() io.ReadCloser
	// Done is closed once the child has exited and been reaped.
	Done() <-chan struct{}
	Alive() bool
	// ExitCode is -1 while running and when the child was killed by a signal.
	ExitCode() int
	// Destroy kills the child immediately. It is idempotent and safe for
	// concurrent use.
	Destroy() error
}

// ExecSpawner spawns children with os/exec. Each stream gets its own
// os.Pipe so that reaping the child never closes the parent's read ends.
type ExecSpawner struct{}

var _ Spawner = ExecSpawner{}

// Spawn starts req.Tokens[0] with the remaining tokens as arguments.
func (ExecSpawner) Spawn(req SpawnRequest) (Handle, error) {
	if len(req.Tokens) == 0 {
		return nil, errors.New("process: nothing to spawn")
	}

	cmd := exec.Command(req.Tokens[0], req.Tokens[1:]...) //nolint:gosec // dynamic args are the purpose of this package
	cmd.Env = req.Env
	cmd.Dir = req.Dir
	prepare(cmd, req.Tokens)

	var parentEnds, childEnds []*os.File
	fail := func(err error) (Handle, error) {
		closeFiles(parentEnds)
		closeFiles(childEnds)
		return nil, err
	}

	stdoutR, stdoutW, err := os.Pipe()
	if err != nil {
		return fail(fmt.Errorf("stdout pipe: %w", err))
	}
	parentEnds, childEnds = append(parentEnds, stdoutR), append(childEnds, stdoutW)

	stderrR, stderrW, err := os.Pipe()
	if err != nil {
		return fail(fmt.Errorf("stderr pipe: %w", err))
	}
	parentEnds, childEnds = append(parentEnds, stderrR), append(childEnds, stderrW)

	h := &execHandle{
		cmd:    cmd,
		stdout: stdoutR,
		stderr: stderrR,
		done:   make(chan struct{}),
	}
	h.exitCode.Store(-1)

	if req.Stdin {
		stdinR, stdinW, err := os.Pipe()
		if err != nil {
			return fail(fmt.Errorf("stdin pipe: %w", err))
		}
		parentEnds, childEnds = append(parentEnds, stdinW), append(childEnds, stdinR)
		cmd.Stdin = stdinR
		h.stdin = stdinW
	}
	cmd.Stdout = stdoutW
	cmd.Stderr = stderrW

	if err := cmd.Start(); err != nil {
		return fail(err)
	}
	// the child holds its own copies now
	closeFiles(childEnds)

	go h.reap()
	return h, nil
}

func closeFiles(files []*os.File) {
	for _, f := range files {
		_ = f.Close()
	}
}

type execHandle struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout *os.File
	stderr *os.File

	done     chan struct{}
	exitCode atomic.Int32

	destroyOnce sync.Once
	destroyErr  error
}

func (h *execHandle) reap() {
	_ = h.cmd.Wait()
	if st := h.cmd.ProcessState; st != nil {
		h.exitCode.Store(int32(st.ExitCode()))
	}
	close(h.done)
}

func (h *execHandle) PID() int { return h.cmd.Process.Pid }
func (h *execHandle) Stdin() io.WriteCloser { return h.stdin }
func (h *execHandle) Stdout() io.ReadCloser { return h.stdout }
func (h *execHandle) Stderr() io.ReadCloser { return h.stderr }
func (h *execHandle) Done() <-chan struct{} { return h.done }
func (h *execHandle) ExitCode() int { return int(h.exitCode.Load()) }

func (h *execHandle) Alive() bool {
	select {
	case <-h.done:
		return false
	default:
		return true
	}
}

func (h *execHandle) killGroup() error { return killGroup(h.cmd.Process.Pid) }

func (h *execHandle) Destroy() error {
	h.destroyOnce.Do(func() {
		if !h.Alive() {
			return
		}
		if err := kill(h.cmd.Process); err != nil && !errors.Is(err, os.ErrProcessDone) {
			h.destroyErr = err
		}
	})
	return h.destroyErr
}
