//go:build !windows

package process_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kbukum/execkit/cmdline"
	apperrors "github.com/kbukum/execkit/errors"
	"github.com/kbukum/execkit/logger"
	"github.com/kbukum/execkit/process"
	"github.com/kbukum/execkit/shell"
	"github.com/kbukum/execkit/shutdown"
	"github.com/kbukum/execkit/stream"
)

func newOptions() (process.Options, *stream.LineCollector, *stream.LineCollector) {
	stdout, stderr := &stream.LineCollector{}, &stream.LineCollector{}
	return process.Options{
		Stdout: stdout,
		Stderr: stderr,
		Guard:  shutdown.New(shutdown.WithoutSignals()),
		Logger: logger.Nop(),
	}, stdout, stderr
}

func posix(exe string) *cmdline.Command {
	return cmdline.New(exe, cmdline.WithProfile(shell.POSIX()))
}

func direct(exe string) *cmdline.Command {
	return cmdline.New(exe, cmdline.WithProfile(shell.Direct()))
}

func TestExecute_Echo(t *testing.T) {
	opts, stdout, _ := newOptions()

	res, err := process.Execute(context.Background(), posix("echo").AddArgument("hello"), opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.ExitCode != 0 || !res.Success() {
		t.Errorf("expected exit code 0, got %d", res.ExitCode)
	}
	if got := stdout.Lines(); len(got) != 1 || got[0] != "hello" {
		t.Errorf("expected [hello], got %q", got)
	}
	if res.ID == "" || res.PID <= 0 {
		t.Errorf("expected id and pid, got %q %d", res.ID, res.PID)
	}
	if res.CommandLine != "echo hello" {
		t.Errorf("expected command line 'echo hello', got %q", res.CommandLine)
	}
}

func TestExecute_ShellQuotingKeepsArgumentsLiteral(t *testing.T) {
	opts, stdout, _ := newOptions()
	cmd := posix("echo").AddArguments("a  b", "$HOME", "x;y")

	if _, err := process.Execute(context.Background(), cmd, opts); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "a  b $HOME x;y"
	if got := stdout.Lines(); len(got) != 1 || got[0] != want {
		t.Errorf("expected [%q], got %q", want, got)
	}
}

func TestExecute_NonexistentBinary(t *testing.T) {
	for name, cmd := range map[string]*cmdline.Command{
		"shell":  posix("nonexistent-binary-xyz"),
		"direct": direct("nonexistent-binary-xyz"),
		"path":   posix("./nonexistent-binary-xyz"),
	} {
		t.Run(name, func(t *testing.T) {
			opts, _, _ := newOptions()
			res, err := process.Execute(context.Background(), cmd, opts)
			if !apperrors.IsSpawnFailure(err) {
				t.Fatalf("expected spawn failure, got %v", err)
			}
			if res != nil {
				t.Errorf("expected no result, got %+v", res)
			}
			if opts.Guard.Len() != 0 {
				t.Errorf("expected nothing registered, got %d", opts.Guard.Len())
			}
		})
	}
}

func TestExecute_MissingWorkingDir(t *testing.T) {
	opts, _, _ := newOptions()
	cmd := posix("echo").AddArgument("x")
	cmd.SetWorkingDir(filepath.Join(t.TempDir(), "missing"))

	_, err := process.Execute(context.Background(), cmd, opts)
	if !apperrors.IsSpawnFailure(err) {
		t.Fatalf("expected spawn failure, got %v", err)
	}
}

func TestExecute_WorkingDirIsFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(file, nil, 0o600); err != nil {
		t.Fatal(err)
	}
	opts, _, _ := newOptions()
	cmd := posix("pwd")
	cmd.SetWorkingDir(file)

	if _, err := process.Execute(context.Background(), cmd, opts); !apperrors.IsSpawnFailure(err) {
		t.Fatalf("expected spawn failure, got %v", err)
	}
}

func TestExecute_WorkingDir(t *testing.T) {
	dir, err := filepath.EvalSymlinks(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	opts, stdout, _ := newOptions()
	cmd := posix("pwd")
	cmd.SetWorkingDir(dir)

	if _, err := process.Execute(context.Background(), cmd, opts); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := stdout.Lines(); len(got) != 1 || got[0] != dir {
		t.Errorf("expected [%s], got %q", dir, got)
	}
}

func TestExecute_LargeOutputOnBothStreams(t *testing.T) {
	const lines = 2000
	script := fmt.Sprintf(`i=0; while [ $i -lt %d ]; do
echo "out $i abcdefghijklmnopqrstuvwxyz0123456789"
echo "err $i abcdefghijklmnopqrstuvwxyz0123456789" >&2
i=$((i+1)); done`, lines)

	opts, stdout, stderr := newOptions()
	opts.Timeout = 30 * time.Second
	cmd := direct("/bin/sh").AddArguments("-c", script)

	res, err := process.Execute(context.Background(), cmd, opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.ExitCode != 0 {
		t.Errorf("expected exit code 0, got %d", res.ExitCode)
	}
	if stdout.Len() != lines || stderr.Len() != lines {
		t.Fatalf("expected %d lines on each stream, got %d and %d", lines, stdout.Len(), stderr.Len())
	}
	if last := stdout.Lines()[lines-1]; !strings.HasPrefix(last, fmt.Sprintf("out %d ", lines-1)) {
		t.Errorf("unexpected last stdout line %q", last)
	}
}

func TestExecute_Timeout(t *testing.T) {
	opts, _, _ := newOptions()
	opts.Timeout = time.Second

	start := time.Now()
	inv, err := process.Start(context.Background(), posix("sleep").AddArgument("10"), opts)
	if err != nil {
		t.Fatalf("unexpected start error: %v", err)
	}
	res, err := inv.Await()
	elapsed := time.Since(start)

	if !apperrors.IsTimeout(err) {
		t.Fatalf("expected timeout, got %v", err)
	}
	if elapsed > 2*time.Second {
		t.Errorf("expected failure within 2s, took %v", elapsed)
	}
	if inv.Alive() {
		t.Error("expected child to be dead after timeout")
	}
	if res == nil || res.ExitCode != -1 {
		t.Errorf("expected result with exit code -1, got %+v", res)
	}
	if opts.Guard.Len() != 0 {
		t.Errorf("expected guard to be empty, got %d", opts.Guard.Len())
	}
}

func TestExecute_TimeoutWithDescendantHoldingPipe(t *testing.T) {
	opts, _, _ := newOptions()
	opts.Timeout = 500 * time.Millisecond
	cmd := direct("/bin/sh").AddArguments("-c", "sleep 10 & sleep 10")

	start := time.Now()
	_, err := process.Execute(context.Background(), cmd, opts)
	if !apperrors.IsTimeout(err) {
		t.Fatalf("expected timeout, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("expected teardown within 2s, took %v", elapsed)
	}
}

func TestExecute_BackgroundDescendantKilledOnExit(t *testing.T) {
	opts, stdout, _ := newOptions()
	cmd := direct("/bin/sh").AddArguments("-c", "sleep 10 & echo started")

	start := time.Now()
	res, err := process.Execute(context.Background(), cmd, opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("expected return once the shell exits, took %v", elapsed)
	}
	if res.ExitCode != 0 {
		t.Errorf("expected exit code 0, got %d", res.ExitCode)
	}
	if got := stdout.Lines(); len(got) != 1 || got[0] != "started" {
		t.Errorf("unexpected stdout %q", got)
	}
}

func TestExecute_NonZeroExitIsNotAnError(t *testing.T) {
	opts, _, _ := newOptions()
	res, err := process.Execute(context.Background(), direct("/bin/sh").AddArguments("-c", "exit 3"), opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.ExitCode != 3 {
		t.Errorf("expected exit code 3, got %d", res.ExitCode)
	}
	if res.Success() {
		t.Error("expected Success to be false")
	}
}

func TestExecute_Stdin(t *testing.T) {
	opts, stdout, _ := newOptions()
	opts.Stdin = strings.NewReader("first\nsecond\n")

	if _, err := process.Execute(context.Background(), posix("cat"), opts); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := stdout.Lines()
	if len(got) != 2 || got[0] != "first" || got[1] != "second" {
		t.Errorf("expected [first second], got %q", got)
	}
}

func TestExecute_StdinWithoutTrailingNewline(t *testing.T) {
	opts, stdout, _ := newOptions()
	opts.Stdin = strings.NewReader("no newline")

	if _, err := process.Execute(context.Background(), posix("cat"), opts); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := stdout.Lines(); len(got) != 1 || got[0] != "no newline" {
		t.Errorf("expected [no newline], got %q", got)
	}
}

func TestExecute_Environment(t *testing.T) {
	opts, stdout, _ := newOptions()
	cmd := direct("/bin/sh").AddArguments("-c", `echo "$EXECKIT_TEST_VAR"`)
	cmd.SetEnv("EXECKIT_TEST_VAR", "value with spaces")

	if _, err := process.Execute(context.Background(), cmd, opts); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := stdout.Lines(); len(got) != 1 || got[0] != "value with spaces" {
		t.Errorf("expected [value with spaces], got %q", got)
	}
}

func TestExecute_IsolatedEnvironment(t *testing.T) {
	t.Setenv("EXECKIT_PARENT_VAR", "leaked")
	opts, stdout, _ := newOptions()
	cmd := cmdline.New("/bin/sh", cmdline.WithProfile(shell.Direct()), cmdline.WithoutInheritedEnv())
	cmd.AddArguments("-c", `echo "[$EXECKIT_PARENT_VAR]"`)

	if _, err := process.Execute(context.Background(), cmd, opts); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := stdout.Lines(); len(got) != 1 || got[0] != "[]" {
		t.Errorf("expected [[]], got %q", got)
	}
}

func TestExecute_Canceled(t *testing.T) {
	opts, _, _ := newOptions()
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := process.Execute(ctx, posix("sleep").AddArgument("10"), opts)
	if !apperrors.HasCode(err, apperrors.ErrCodeCanceled) {
		t.Fatalf("expected canceled, got %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected cause context.DeadlineExceeded, got %v", err)
	}
	if time.Since(start) > 2*time.Second {
		t.Error("expected cancellation to be prompt")
	}
}

func TestExecute_OnTerminateRuns(t *testing.T) {
	opts, _, _ := newOptions()
	called := 0
	opts.OnTerminate = func() { called++ }

	if _, err := process.Execute(context.Background(), posix("true"), opts); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if called != 1 {
		t.Errorf("expected hook to run once, ran %d times", called)
	}
}

func TestExecute_ConsumerFailure(t *testing.T) {
	opts, _, _ := newOptions()
	boom := errors.New("consumer boom")
	seen := 0
	opts.Stdout = stream.LineConsumerFunc(func(string) error {
		seen++
		return boom
	})
	cmd := direct("/bin/sh").AddArguments("-c", "echo a; echo b; echo c; exit 5")

	res, err := process.Execute(context.Background(), cmd, opts)
	if !apperrors.HasCode(err, apperrors.ErrCodeStreamFailed) {
		t.Fatalf("expected stream failure, got %v", err)
	}
	if !errors.Is(err, boom) {
		t.Errorf("expected cause to be consumer error, got %v", err)
	}
	if seen != 1 {
		t.Errorf("expected forwarding to stop after the failure, consumer saw %d lines", seen)
	}
	if res == nil || res.ExitCode != 5 {
		t.Errorf("expected child to complete with exit code 5, got %+v", res)
	}
}

func TestExecute_Latin1(t *testing.T) {
	opts, stdout, _ := newOptions()
	opts.Encoding = "latin1"
	cmd := direct("/bin/sh").AddArguments("-c", `printf 'caf\351\n'`)

	if _, err := process.Execute(context.Background(), cmd, opts); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := stdout.Lines(); len(got) != 1 || got[0] != "café" {
		t.Errorf("expected [café], got %q", got)
	}
}

func TestExecute_UnknownEncoding(t *testing.T) {
	opts, _, _ := newOptions()
	opts.Encoding = "no-such-charset"

	_, err := process.Execute(context.Background(), posix("true"), opts)
	if !apperrors.HasCode(err, apperrors.ErrCodeInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestExecute_UnbalancedArgumentLine(t *testing.T) {
	_, err := cmdline.Parse(`echo "unterminated`)
	if !apperrors.HasCode(err, apperrors.ErrCodeInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestExecute_MaskedArgumentHiddenFromResult(t *testing.T) {
	opts, stdout, _ := newOptions()
	cmd := posix("echo").AddArgument("user").AddMaskedArgument("s3cret")

	res, err := process.Execute(context.Background(), cmd, opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(res.CommandLine, "s3cret") || !strings.Contains(res.CommandLine, cmdline.MaskMarker) {
		t.Errorf("expected masked command line, got %q", res.CommandLine)
	}
	if got := stdout.Lines(); len(got) != 1 || got[0] != "user s3cret" {
		t.Errorf("expected the real value on the wire, got %q", got)
	}
}

func TestInvocation_AwaitIsOneShot(t *testing.T) {
	opts, _, _ := newOptions()
	inv, err := process.Start(context.Background(), posix("echo").AddArgument("once"), opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	first, err1 := inv.Await()
	second, err2 := inv.Await()
	if first != second || err1 != err2 {
		t.Error("expected repeated Await to return the cached outcome")
	}
	select {
	case <-inv.Done():
	default:
		t.Error("expected Done to be closed after Await")
	}
}

func TestInvocation_GuardRegistration(t *testing.T) {
	opts, _, _ := newOptions()
	inv, err := process.Start(context.Background(), posix("sleep").AddArgument("10"), opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opts.Guard.Len() != 1 {
		t.Errorf("expected 1 registered child, got %d", opts.Guard.Len())
	}

	opts.Guard.DestroyAll()
	select {
	case <-inv.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("expected guard to kill the child")
	}

	res, _ := inv.Await()
	if res.ExitCode != -1 {
		t.Errorf("expected killed child exit code -1, got %d", res.ExitCode)
	}
	if opts.Guard.Len() != 0 {
		t.Errorf("expected guard to be empty, got %d", opts.Guard.Len())
	}
}
