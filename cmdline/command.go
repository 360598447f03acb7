package cmdline

import (
	"strings"

	"github.com/kbukum/execkit/errors"
	"github.com/kbukum/execkit/shell"
)

// MaskMarker replaces masked argument values in String.
const MaskMarker = "*****"

// Command describes a process to launch.
type Command struct {
	executable      string
	args            []*Argument
	env             map[string]string
	workingDir      string
	profile         shell.Profile
	preserveEnvCase bool
	inheritEnv      bool
}

// Option configures a Command.
type Option func(*Command)

// WithProfile binds an explicit shell profile.
func WithProfile(p shell.Profile) Option {
	return func(c *Command) { c.profile = p }
}

// WithFamily binds the shell profile of an OS family.
func WithFamily(f shell.Family) Option {
	return func(c *Command) { c.profile = shell.ForFamily(f) }
}

// WithWorkingDir sets the working directory.
func WithWorkingDir(dir string) Option {
	return func(c *Command) { c.workingDir = dir }
}

// WithPreserveEnvCase keeps environment names as given on profiles with
// case-insensitive environments.
func WithPreserveEnvCase() Option {
	return func(c *Command) { c.preserveEnvCase = true }
}

// WithoutInheritedEnv starts the child with only the explicit variables.
func WithoutInheritedEnv() Option {
	return func(c *Command) { c.inheritEnv = false }
}

// New creates a command for executable bound to the host shell profile.
func New(executable string, opts ...Option) *Command {
	c := &Command{
		executable: executable,
		env:        make(map[string]string),
		profile:    shell.Host(),
		inheritEnv: true,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Parse creates a command from a single line. The first token is the
// executable, the rest become arguments.
func Parse(line string, opts ...Option) (*Command, error) {
	tokens, err := Tokenize(line)
	if err != nil {
		return nil, err
	}
	if len(tokens) == 0 {
		return nil, errors.InvalidInput("executable", "command line is empty")
	}
	c := New(tokens[0], opts...)
	c.AddArguments(tokens[1:]...)
	return c, nil
}

// Executable returns the executable.
func (c *Command) Executable() string { return c.executable }

// SetExecutable replaces the executable.
func (c *Command) SetExecutable(executable string) { c.executable = executable }

// WorkingDir returns the working directory, empty for the current one.
func (c *Command) WorkingDir() string { return c.workingDir }

// SetWorkingDir sets the working directory.
func (c *Command) SetWorkingDir(dir string) { c.workingDir = dir }

// Profile returns the bound shell profile.
func (c *Command) Profile() shell.Profile { return c.profile }

// CreateArgument appends an empty argument and returns it for the caller
// to fill in.
func (c *Command) CreateArgument() *Argument {
	a := &Argument{}
	c.args = append(c.args, a)
	return a
}

// AddArgument appends a literal value.
func (c *Command) AddArgument(v string) *Command {
	c.CreateArgument().SetValue(v)
	return c
}

// AddMaskedArgument appends a literal value hidden from String.
func (c *Command) AddMaskedArgument(v string) *Command {
	a := c.CreateArgument()
	a.SetValue(v)
	a.Masked = true
	return c
}

// AddArguments appends several literal values.
func (c *Command) AddArguments(vs ...string) *Command {
	for _, v := range vs {
		c.AddArgument(v)
	}
	return c
}

// AddArgumentLine appends a shell-style line that is split into several
// arguments. Malformed quoting is reported here, before anything runs.
func (c *Command) AddArgumentLine(line string) error {
	if _, err := Tokenize(line); err != nil {
		return err
	}
	c.CreateArgument().SetLine(line)
	return nil
}

// AddArgumentFile appends a file path, passed to the process as an
// absolute path.
func (c *Command) AddArgumentFile(path string) *Command {
	c.CreateArgument().SetFile(path)
	return c
}

// Arguments resolves every argument into its values.
func (c *Command) Arguments() ([]string, error) {
	var out []string
	for _, a := range c.args {
		parts, err := a.Parts()
		if err != nil {
			return nil, err
		}
		out = append(out, parts...)
	}
	return out, nil
}

// Tokens returns the argv handed to the OS launcher, with real values.
func (c *Command) Tokens() ([]string, error) {
	if strings.TrimSpace(c.executable) == "" {
		return nil, errors.InvalidInput("executable", "executable is required")
	}
	args, err := c.Arguments()
	if err != nil {
		return nil, err
	}
	return c.profile.Tokens(c.executable, args), nil
}

// String renders the command line for humans. Masked arguments are
// replaced by MaskMarker; unresolvable arguments render as their raw payload.
func (c *Command) String() string {
	p := c.profile
	parts := make([]string, 0, len(c.args)+1)
	if q, ok := p.Quote(c.executable, true); ok {
		parts = append(parts, q)
	}
	for _, a := range c.args {
		values, err := a.Parts()
		if err != nil {
			values = []string{a.payload}
		}
		for _, v := range values {
			if a.Masked {
				parts = append(parts, MaskMarker)
				continue
			}
			if q, ok := p.Quote(v, false); ok {
				parts = append(parts, q)
			}
		}
	}
	return strings.Join(parts, " ")
}
