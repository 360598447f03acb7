// Command execkit runs one external command the way the execkit library
// does: quoted through the host shell, relayed line by line, killed on
// timeout and cleaned up on interrupt.
//
//	execkit [flags] -- command [args...]
//	execkit [flags] -- "command line"
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/kbukum/execkit/cmdline"
	"github.com/kbukum/execkit/config"
	"github.com/kbukum/execkit/errors"
	"github.com/kbukum/execkit/logger"
	"github.com/kbukum/execkit/observability"
	"github.com/kbukum/execkit/process"
	"github.com/kbukum/execkit/shutdown"
	"github.com/kbukum/execkit/stream"
	"github.com/kbukum/execkit/version"
)

// Exit codes for failures that leave no child exit code.
const (
	exitTimeout = 124
	exitFailure = 125
)

const shutdownTimeout = 5 * time.Second

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

type flags struct {
	configFile      string
	timeout         time.Duration
	dir             string
	env             []string
	mask            []string
	stdin           string
	encoding        string
	preserveEnvCase bool
	inheritEnv      bool
	showVersion     bool
}

func parseFlags(args []string, stderr io.Writer) (*pflag.FlagSet, *flags, error) {
	var f flags
	fs := pflag.NewFlagSet("execkit", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.SetInterspersed(false)

	fs.StringVarP(&f.configFile, "config", "c", "", "path to execkit.yml")
	fs.DurationVarP(&f.timeout, "timeout", "t", 0, "kill the command after this long (0 disables)")
	fs.StringVarP(&f.dir, "dir", "C", "", "working directory")
	fs.StringArrayVarP(&f.env, "env", "e", nil, "set an environment variable, KEY=VALUE (repeatable)")
	fs.StringArrayVar(&f.mask, "mask", nil, "append an argument hidden from logs (repeatable)")
	fs.StringVar(&f.stdin, "stdin", "", "file fed to the command's stdin, - for our own stdin")
	fs.StringVar(&f.encoding, "encoding", "", "charset of the command's output")
	fs.BoolVar(&f.preserveEnvCase, "preserve-env-case", false, "keep variable name case on case-insensitive hosts")
	fs.BoolVar(&f.inheritEnv, "inherit-env", true, "start from this process's environment")
	fs.BoolVarP(&f.showVersion, "version", "v", false, "print version and exit")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: execkit [flags] -- command [args...]\n\nFlags:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	return fs, &f, nil
}

func run(args []string, stdout, stderr io.Writer) int {
	fs, f, err := parseFlags(args, stderr)
	if err != nil {
		if err == pflag.ErrHelp {
			return 0
		}
		return exitFailure
	}
	if f.showVersion {
		fmt.Fprintln(stdout, version.Get().String())
		return 0
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return exitFailure
	}

	var loadOpts []config.LoaderOption
	if f.configFile != "" {
		loadOpts = append(loadOpts, config.WithConfigFile(f.configFile))
	}
	cfg, err := config.Load(loadOpts...)
	if err != nil {
		fmt.Fprintf(stderr, "execkit: %v\n", err)
		return exitFailure
	}
	applyFlags(fs, f, &cfg.Process)

	log := logger.NewWithWriter(&cfg.Logging, logWriter(cfg.Logging.Output, stderr), "execkit")
	logger.SetGlobalLogger(log)

	ctx := context.Background()
	metrics, stopTelemetry := startTelemetry(ctx, cfg, log)
	defer stopTelemetry()

	guard := shutdown.New(shutdown.WithLogger(log.WithComponent("shutdown")))
	defer guard.Close()

	adapter, err := process.NewAdapter(cfg.Process,
		process.WithLogger(log),
		process.WithGuard(guard),
		process.WithMetrics(metrics),
	)
	if err != nil {
		fmt.Fprintf(stderr, "execkit: %v\n", err)
		return exitFailure
	}

	cmd, err := buildCommand(adapter, fs.Args(), f)
	if err != nil {
		fmt.Fprintf(stderr, "execkit: %v\n", err)
		return exitFailure
	}

	opts := process.Options{
		Stdout: stream.WriterConsumer(stdout),
		Stderr: stream.WriterConsumer(stderr),
	}
	if f.stdin != "" {
		in, err := openStdin(f.stdin)
		if err != nil {
			fmt.Fprintf(stderr, "execkit: %v\n", err)
			return exitFailure
		}
		defer in.Close()
		opts.Stdin = in
	}

	res, err := process.NewRunner(adapter).Run(ctx, cmd, opts)
	return exitCode(res, err, stderr)
}

// applyFlags overrides configuration with the flags set on the command line.
func applyFlags(fs *pflag.FlagSet, f *flags, cfg *process.Config) {
	if fs.Changed("timeout") {
		cfg.Timeout = f.timeout
	}
	if fs.Changed("encoding") {
		cfg.Encoding = f.encoding
	}
	if fs.Changed("preserve-env-case") {
		cfg.PreserveEnvCase = f.preserveEnvCase
	}
	if fs.Changed("inherit-env") {
		cfg.InheritEnv = f.inheritEnv
	}
}

// buildCommand treats a single positional argument as a command line and
// several as pre-split tokens.
func buildCommand(adapter *process.Adapter, args []string, f *flags) (*cmdline.Command, error) {
	var cmd *cmdline.Command
	if len(args) == 1 {
		parsed, err := adapter.Parse(args[0])
		if err != nil {
			return nil, err
		}
		cmd = parsed
	} else {
		cmd = adapter.Command(args[0]).AddArguments(args[1:]...)
	}

	for _, m := range f.mask {
		cmd.AddMaskedArgument(m)
	}
	for _, kv := range f.env {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || name == "" {
			return nil, errors.InvalidInput("env", fmt.Sprintf("expected KEY=VALUE, got %q", kv))
		}
		cmd.SetEnv(name, value)
	}
	if f.dir != "" {
		cmd.SetWorkingDir(f.dir)
	}
	return cmd, nil
}

// openStdin opens the stdin source. Our own stdin is wrapped so the runner
// does not try to rewind a pipe between attempts.
func openStdin(path string) (io.ReadCloser, error) {
	if path == "-" {
		return struct{ io.ReadCloser }{os.Stdin}, nil
	}
	return os.Open(path)
}

func exitCode(res *process.Result, err error, stderr io.Writer) int {
	if err == nil {
		return res.ExitCode
	}
	fmt.Fprintf(stderr, "execkit: %v\n", err)
	if errors.IsTimeout(err) {
		return exitTimeout
	}
	return exitFailure
}

func logWriter(output string, stderr io.Writer) io.Writer {
	if output == "stdout" {
		return os.Stdout
	}
	return stderr
}

// startTelemetry installs OTLP providers when an endpoint is configured and
// returns the instruments invocations record to.
func startTelemetry(ctx context.Context, cfg *config.ExecConfig, log *logger.Logger) (*observability.InvocationMetrics, func()) {
	noop := func() {}
	if !cfg.Tracing.Enabled() {
		return observability.DefaultInvocationMetrics(), noop
	}

	if cfg.Tracing.ServiceVersion == "" {
		cfg.Tracing.ServiceVersion = version.Get().Short()
	}
	tp, err := observability.InitTracer(ctx, cfg.Tracing)
	if err != nil {
		log.Warn("tracing disabled", logger.ErrorFields("init_tracer", err))
		return observability.DefaultInvocationMetrics(), noop
	}
	mp, err := observability.InitMeter(ctx, observability.MeterConfig{
		ServiceName:    cfg.Tracing.ServiceName,
		ServiceVersion: cfg.Tracing.ServiceVersion,
		Endpoint:       cfg.Tracing.Endpoint,
		Insecure:       cfg.Tracing.Insecure,
	})
	if err != nil {
		log.Warn("metrics disabled", logger.ErrorFields("init_meter", err))
	}

	metrics, err := observability.NewInvocationMetrics(observability.Meter())
	if err != nil {
		log.Warn("invocation metrics unavailable", logger.ErrorFields("new_metrics", err))
		metrics = observability.DefaultInvocationMetrics()
	}

	return metrics, func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if mp != nil {
			if err := mp.Shutdown(sctx); err != nil {
				log.Warn("meter shutdown failed", logger.ErrorFields("shutdown", err))
			}
		}
		if err := tp.Shutdown(sctx); err != nil {
			log.Warn("tracer shutdown failed", logger.ErrorFields("shutdown", err))
		}
	}
}
