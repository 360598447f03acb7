package process

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/execkit/cmdline"
	"github.com/kbukum/execkit/errors"
	"github.com/kbukum/execkit/logger"
	"github.com/kbukum/execkit/observability"
	"github.com/kbukum/execkit/stream"
)

// reapTimeout bounds the wait for a killed child to be reaped.
const reapTimeout = 5 * time.Second

// Invocation is a running child and the relays attached to it.
type Invocation struct {
	id          string
	executable  string
	commandLine string
	opts        Options
	log         *logger.Logger

	ctx     context.Context
	span    trace.Span
	started time.Time

	handle Handle
	feeder *stream.Feeder
	stdout *stream.Pumper
	stderr *stream.Pumper

	awaitOnce sync.Once
	result    *Result
	err       error
}

// Start spawns the child described by cmd and starts its relays. It
// returns once the child is running; call Await to collect the outcome.
// ctx bounds the whole invocation: canceling it kills the child.
func Start(ctx context.Context, cmd *cmdline.Command, opts Options) (*Invocation, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if cmd == nil {
		return nil, errors.InvalidInput("command", "command is nil")
	}
	opts.applyDefaults()

	tokens, err := cmd.Tokens()
	if err != nil {
		return nil, setupError(err)
	}
	enc, err := stream.LookupEncoding(opts.Encoding)
	if err != nil {
		return nil, errors.InvalidInput("encoding", err.Error()).WithCause(err)
	}

	inv := &Invocation{
		id:          uuid.NewString(),
		executable:  cmd.Executable(),
		commandLine: cmd.String(),
		opts:        opts,
	}
	inv.log = opts.Logger.WithComponent("process").WithFields(logger.Fields(
		logger.FieldInvocationID, inv.id,
	))
	inv.ctx, inv.span = observability.StartSpan(ctx, observability.SpanExecute, trace.WithAttributes(
		attribute.String(observability.AttrInvocationID, inv.id),
		attribute.String(observability.AttrExecutable, inv.executable),
	))

	handle, err := inv.spawn(cmd, tokens)
	if err != nil {
		inv.abort(err)
		return nil, err
	}
	inv.handle = handle
	inv.started = time.Now()
	inv.span.SetAttributes(attribute.Int(observability.AttrPID, handle.PID()))

	opts.Guard.Register(inv.id, handle)
	opts.Metrics.RecordStart(inv.ctx)

	if opts.Stdin != nil && handle.Stdin() != nil {
		inv.feeder = stream.NewFeeder(opts.Stdin, handle.Stdin())
		inv.feeder.Start()
	}
	inv.stdout = stream.NewPumper(handle.Stdout(), opts.Stdout,
		stream.WithEncoding(enc), stream.WithName("stdout"))
	inv.stderr = stream.NewPumper(handle.Stderr(), opts.Stderr,
		stream.WithEncoding(enc), stream.WithName("stderr"))
	inv.stdout.Start()
	inv.stderr.Start()

	inv.log.Debug("process started", logger.Fields(
		logger.FieldCommand, inv.commandLine,
		logger.FieldPID, handle.PID(),
	))
	return inv, nil
}

func (inv *Invocation) spawn(cmd *cmdline.Command, tokens []string) (Handle, error) {
	if err := checkWorkingDir(cmd.WorkingDir()); err != nil {
		return nil, errors.SpawnFailed(inv.executable, err).WithDetail("working_dir", cmd.WorkingDir())
	}
	if err := checkExecutable(cmd); err != nil {
		return nil, errors.SpawnFailed(inv.executable, err)
	}
	handle, err := inv.opts.Spawner.Spawn(SpawnRequest{
		Tokens: tokens,
		Env:    cmd.Environment(),
		Dir:    cmd.WorkingDir(),
		Stdin:  inv.opts.Stdin != nil,
	})
	if err != nil {
		return nil, errors.SpawnFailed(inv.executable, err)
	}
	return handle, nil
}

// abort closes out an invocation that never produced a child.
func (inv *Invocation) abort(err error) {
	inv.log.Warn("process not started", logger.Fields(
		logger.FieldCommand, inv.commandLine,
		logger.FieldError, err.Error(),
	))
	observability.SetSpanError(inv.span, err)
	inv.span.SetAttributes(attribute.String(observability.AttrOutcome, outcome(err)))
	inv.span.End()
	inv.opts.Metrics.RecordFailedSpawn(inv.ctx, inv.executable, outcome(err))
}

// ID returns the invocation id used for logs, spans and guard registration.
func (inv *Invocation) ID() string { return inv.id }

// PID returns the child's process id.
func (inv *Invocation) PID() int { return inv.handle.PID() }

// CommandLine returns the masked rendering of the command.
func (inv *Invocation) CommandLine() string { return inv.commandLine }

// Alive reports whether the child is still running.
func (inv *Invocation) Alive() bool { return inv.handle.Alive() }

// Done is closed when the child exits.
func (inv *Invocation) Done() <-chan struct{} { return inv.handle.Done() }

// Await blocks until the child exits, the timeout fires or the context
// ends, then tears the invocation down. Only the first call does the work;
// later calls return the same outcome. The Result is non-nil whenever the
// child was started, including alongside a TIMEOUT or CANCELED error.
func (inv *Invocation) Await() (*Result, error) {
	inv.awaitOnce.Do(func() {
		inv.result, inv.err = inv.await()
	})
	return inv.result, inv.err
}

func (inv *Invocation) await() (*Result, error) {
	failure := inv.waitForExit()
	inv.teardown(failure != nil)
	inv.join()
	if failure == nil {
		failure = inv.relayFailure()
	}

	res := &Result{
		ID:          inv.id,
		PID:         inv.handle.PID(),
		ExitCode:    inv.handle.ExitCode(),
		Duration:    time.Since(inv.started),
		CommandLine: inv.commandLine,
	}
	inv.finish(res, failure)
	return res, failure
}

// groupKiller is implemented by handles whose descendants can outlive
// the child itself.
type groupKiller interface {
	killGroup() error
}

// waitForExit waits for the child to exit and both output streams to
// drain. Descendants still running when the child exits are killed so
// they cannot hold the output pipes open. It returns a TIMEOUT or
// CANCELED error if either bound is hit first, nil otherwise.
func (inv *Invocation) waitForExit() error {
	var deadline <-chan time.Time
	if inv.opts.Timeout > 0 {
		timer := time.NewTimer(time.Until(inv.started.Add(inv.opts.Timeout)))
		defer timer.Stop()
		deadline = timer.C
	}
	wait := func(done <-chan struct{}) error {
		select {
		case <-done:
			return nil
		case <-deadline:
			return errors.Timeout(inv.executable, inv.opts.Timeout)
		case <-inv.ctx.Done():
			return errors.Canceled(inv.executable, inv.ctx.Err())
		}
	}

	if err := wait(inv.handle.Done()); err != nil {
		return err
	}
	if gk, ok := inv.handle.(groupKiller); ok {
		if err := gk.killGroup(); err != nil {
			inv.log.Debug("killing process group", logger.ErrorFields("kill_group", err))
		}
	}
	for _, done := range []<-chan struct{}{inv.stdout.Done(), inv.stderr.Done()} {
		if err := wait(done); err != nil {
			return err
		}
	}
	return nil
}

// teardown runs in a fixed order: disable relays, run the hook, unregister
// and destroy the child, close stdin. After a forced kill the output read
// ends are closed too, since a descendant may still hold the write ends.
func (inv *Invocation) teardown(forced bool) {
	if inv.feeder != nil {
		inv.feeder.Disable()
	}
	inv.stdout.Disable()
	inv.stderr.Disable()

	if inv.opts.OnTerminate != nil {
		inv.runHook()
	}

	inv.opts.Guard.Unregister(inv.id)
	if err := inv.handle.Destroy(); err != nil {
		inv.log.Warn("destroying process", logger.ErrorFields("destroy", err))
	}
	select {
	case <-inv.handle.Done():
	case <-time.After(reapTimeout):
		inv.log.Warn("process not reaped after kill", logger.Fields(logger.FieldPID, inv.handle.PID()))
	}

	if inv.feeder != nil {
		inv.feeder.Close()
	}
	if forced {
		if err := inv.stdout.Close(); err != nil {
			inv.log.Debug("closing stdout", logger.ErrorFields("close", err))
		}
		if err := inv.stderr.Close(); err != nil {
			inv.log.Debug("closing stderr", logger.ErrorFields("close", err))
		}
	}
}

func (inv *Invocation) runHook() {
	defer func() {
		if r := recover(); r != nil {
			inv.log.Error("terminate hook panicked", logger.Fields("panic", r))
		}
	}()
	inv.opts.OnTerminate()
}

func (inv *Invocation) join() {
	if inv.feeder != nil {
		inv.feeder.Wait()
	}
	inv.stdout.Wait()
	inv.stderr.Wait()
}

// relayFailure returns the first relay error in stdin, stdout, stderr order.
func (inv *Invocation) relayFailure() error {
	if inv.feeder != nil {
		if err := inv.feeder.Err(); err != nil {
			return errors.StreamFailed("stdin", err)
		}
	}
	if err := inv.stdout.Err(); err != nil {
		return errors.StreamFailed("stdout", err)
	}
	if err := inv.stderr.Err(); err != nil {
		return errors.StreamFailed("stderr", err)
	}
	return nil
}

func (inv *Invocation) finish(res *Result, err error) {
	fields := logger.MergeWithDuration(logger.Fields(
		logger.FieldPID, res.PID,
		logger.FieldExitCode, res.ExitCode,
	), res.Duration)

	inv.span.SetAttributes(
		attribute.Int(observability.AttrExitCode, res.ExitCode),
		attribute.String(observability.AttrOutcome, outcome(err)),
	)
	if err != nil {
		fields[logger.FieldError] = err.Error()
		inv.log.Warn("process failed", fields)
		observability.SetSpanError(inv.span, err)
	} else {
		inv.log.Debug("process finished", fields)
	}
	inv.span.End()
	inv.opts.Metrics.RecordEnd(inv.ctx, inv.executable, outcome(err), res.Duration)
}

// setupError maps a command resolution failure to INVALID_INPUT.
func setupError(err error) error {
	if errors.IsAppError(err) {
		return err
	}
	return errors.InvalidInput("command", err.Error()).WithCause(err)
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	if appErr, ok := errors.AsAppError(err); ok {
		return strings.ToLower(string(appErr.Code))
	}
	return "error"
}
