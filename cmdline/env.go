package cmdline

import (
	"os"
	"sort"
	"strings"
)

// SetEnv sets an environment variable for the child. Explicit variables
// override inherited ones.
func (c *Command) SetEnv(name, value string) *Command {
	c.env[c.envKey(name)] = value
	return c
}

// Env returns an explicitly set variable.
func (c *Command) Env(name string) (string, bool) {
	v, ok := c.env[c.envKey(name)]
	return v, ok
}

// InheritsEnv reports whether the host environment is passed to the child.
func (c *Command) InheritsEnv() bool { return c.inheritEnv }

// SetInheritEnv controls whether the host environment is passed to the child.
func (c *Command) SetInheritEnv(inherit bool) { c.inheritEnv = inherit }

// Environment returns the merged child environment as sorted NAME=value
// entries. On case-insensitive profiles names are upper-cased unless the
// command preserves case.
func (c *Command) Environment() []string {
	merged := make(map[string]string, len(c.env))
	if c.inheritEnv {
		for _, kv := range os.Environ() {
			name, value, ok := strings.Cut(kv, "=")
			// Windows keeps per-drive cwd entries such as "=C:=C:\"
			if !ok || name == "" {
				continue
			}
			merged[c.envKey(name)] = value
		}
	}
	for name, value := range c.env {
		merged[name] = value
	}

	out := make([]string, 0, len(merged))
	for name, value := range merged {
		out = append(out, name+"="+value)
	}
	sort.Strings(out)
	return out
}

func (c *Command) envKey(name string) string {
	if c.profile.EnvCaseInsensitive && !c.preserveEnvCase {
		return strings.ToUpper(name)
	}
	return name
}
