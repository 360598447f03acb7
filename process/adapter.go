package process

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kbukum/execkit/cmdline"
	"github.com/kbukum/execkit/logger"
	"github.com/kbukum/execkit/observability"
	"github.com/kbukum/execkit/resilience"
	"github.com/kbukum/execkit/shell"
	"github.com/kbukum/execkit/shutdown"
)

// Config holds process defaults loaded from configuration.
type Config struct {
	// Name identifies this adapter in logs.
	Name string `yaml:"name,omitempty" mapstructure:"name"`
	// Timeout is the default execution timeout. Zero means no timeout.
	Timeout time.Duration `yaml:"timeout,omitempty" mapstructure:"timeout" validate:"gte=0"`
	// Encoding is the default output charset.
	Encoding string `yaml:"encoding,omitempty" mapstructure:"encoding"`
	// Shell selects the quoting profile: auto, posix, windows or direct.
	Shell           string `yaml:"shell,omitempty" mapstructure:"shell" validate:"omitempty,oneof=auto posix windows direct"`
	PreserveEnvCase bool   `yaml:"preserve_env_case,omitempty" mapstructure:"preserve_env_case"`
	InheritEnv      bool   `yaml:"inherit_env" mapstructure:"inherit_env"`

	Retry resilience.RetryConfig   `yaml:"retry" mapstructure:"retry"`
	Limit resilience.LimiterConfig `yaml:"limit" mapstructure:"limit"`
}

// DefaultConfig returns the host shell, inherited environment and a single
// attempt per run.
func DefaultConfig() Config {
	return Config{
		Name:       "process",
		Shell:      "auto",
		InheritEnv: true,
		Retry:      resilience.RetryConfig{MaxAttempts: 1},
	}
}

// ResolveProfile maps a shell name to its profile.
func ResolveProfile(name string) (shell.Profile, error) {
	if strings.EqualFold(name, "direct") {
		return shell.Direct(), nil
	}
	family, err := shell.ParseFamily(name)
	if err != nil {
		return shell.Profile{}, err
	}
	return shell.ForFamily(family), nil
}

// Adapter applies configured defaults to commands and invocations.
type Adapter struct {
	config  Config
	profile shell.Profile
	log     *logger.Logger
	guard   *shutdown.Guard
	spawner Spawner
	metrics *observability.InvocationMetrics
}

// AdapterOption configures an Adapter.
type AdapterOption func(*Adapter)

// WithLogger sets the logger handed to every invocation.
func WithLogger(l *logger.Logger) AdapterOption {
	return func(a *Adapter) { a.log = l }
}

// WithGuard sets the shutdown guard children register with.
func WithGuard(g *shutdown.Guard) AdapterOption {
	return func(a *Adapter) { a.guard = g }
}

// WithSpawner replaces the OS spawner.
func WithSpawner(s Spawner) AdapterOption {
	return func(a *Adapter) { a.spawner = s }
}

// WithMetrics sets the invocation instruments.
func WithMetrics(m *observability.InvocationMetrics) AdapterOption {
	return func(a *Adapter) { a.metrics = m }
}

// NewAdapter creates an adapter. It fails when cfg names an unknown shell.
func NewAdapter(cfg Config, opts ...AdapterOption) (*Adapter, error) {
	profile, err := ResolveProfile(cfg.Shell)
	if err != nil {
		return nil, fmt.Errorf("process: %w", err)
	}
	a := &Adapter{config: cfg, profile: profile}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Name returns the configured adapter name.
func (a *Adapter) Name() string { return a.config.Name }

// Config returns the adapter configuration.
func (a *Adapter) Config() Config { return a.config }

// Profile returns the shell profile commands are bound to.
func (a *Adapter) Profile() shell.Profile { return a.profile }

func (a *Adapter) commandOptions() []cmdline.Option {
	opts := []cmdline.Option{cmdline.WithProfile(a.profile)}
	if a.config.PreserveEnvCase {
		opts = append(opts, cmdline.WithPreserveEnvCase())
	}
	if !a.config.InheritEnv {
		opts = append(opts, cmdline.WithoutInheritedEnv())
	}
	return opts
}

// Command creates a command bound to the adapter's shell and environment
// policy.
func (a *Adapter) Command(executable string, opts ...cmdline.Option) *cmdline.Command {
	return cmdline.New(executable, append(a.commandOptions(), opts...)...)
}

// Parse tokenizes line into a command bound to the adapter's policy.
func (a *Adapter) Parse(line string, opts ...cmdline.Option) (*cmdline.Command, error) {
	return cmdline.Parse(line, append(a.commandOptions(), opts...)...)
}

// Options fills the unset fields of opts from the adapter.
func (a *Adapter) Options(opts Options) Options {
	if opts.Timeout == 0 {
		opts.Timeout = a.config.Timeout
	}
	if opts.Encoding == "" {
		opts.Encoding = a.config.Encoding
	}
	if opts.Logger == nil && a.log != nil {
		opts.Logger = a.log
	}
	if opts.Guard == nil {
		opts.Guard = a.guard
	}
	if opts.Spawner == nil {
		opts.Spawner = a.spawner
	}
	if opts.Metrics == nil {
		opts.Metrics = a.metrics
	}
	return opts
}

// Start spawns cmd with the adapter's defaults applied.
func (a *Adapter) Start(ctx context.Context, cmd *cmdline.Command, opts Options) (*Invocation, error) {
	return Start(ctx, cmd, a.Options(opts))
}

// Execute runs cmd to completion with the adapter's defaults applied.
func (a *Adapter) Execute(ctx context.Context, cmd *cmdline.Command, opts Options) (*Result, error) {
	return Execute(ctx, cmd, a.Options(opts))
}
