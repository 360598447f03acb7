package shell

import (
	"strings"
)

// Profile describes how a command is wrapped and quoted for one OS family.
type Profile struct {
	// Family is the OS family this profile targets.
	Family Family
	// ShellCommand is the shell binary. Empty means the executable is
	// launched directly and no quoting is applied.
	ShellCommand string
	// ShellArgs are the flags placed between ShellCommand and the command line.
	ShellArgs []string
	// QuoteChar wraps a token that contains a trigger char.
	QuoteChar rune
	// EscapeChar precedes each EscapedChars occurrence inside a quoted token.
	// Zero disables escaping.
	EscapeChar rune
	// EscapedChars lists the characters escaped inside a quoted token.
	EscapedChars string
	// TriggerChars lists the characters whose presence forces quoting.
	TriggerChars string
	// QuoteExecutable enables quoting of the executable.
	QuoteExecutable bool
	// QuoteArguments enables quoting of arguments.
	QuoteArguments bool
	// QuoteEmpty renders an empty argument as a pair of quotes. When false
	// the empty argument is dropped from the command line.
	QuoteEmpty bool
	// WrapCommandLine wraps the joined command line in one extra pair of quotes.
	WrapCommandLine bool
	// EnvCaseInsensitive reports whether environment names are case-insensitive.
	EnvCaseInsensitive bool
	// Builtins are commands the shell runs itself, with no binary on PATH.
	Builtins []string
}

// POSIX returns the /bin/sh profile.
func POSIX() Profile {
	return Profile{
		Family:          FamilyPOSIX,
		ShellCommand:    "/bin/sh",
		ShellArgs:       []string{"-c"},
		QuoteChar:       '"',
		EscapeChar:      '\\',
		EscapedChars:    "\"$`\\",
		TriggerChars:    " \t\n'\"$`\\;&|<>()*?[#~",
		QuoteExecutable: true,
		QuoteArguments:  true,
		QuoteEmpty:      true,
		Builtins: []string{
			".", ":", "alias", "bg", "break", "cd", "command", "continue", "eval",
			"exec", "exit", "export", "false", "fg", "getopts", "hash", "jobs",
			"kill", "printf", "pwd", "read", "readonly", "return", "set", "shift",
			"test", "times", "trap", "true", "type", "ulimit", "umask", "unalias",
			"unset", "wait", "echo", "[",
		},
	}
}

// Windows returns the cmd.exe profile.
func Windows() Profile {
	return Profile{
		Family:             FamilyWindows,
		ShellCommand:       "cmd.exe",
		ShellArgs:          []string{"/X", "/C"},
		QuoteChar:          '"',
		EscapeChar:         '\\',
		EscapedChars:       `"`,
		TriggerChars:       " \t",
		QuoteExecutable:    true,
		QuoteArguments:     true,
		QuoteEmpty:         true,
		WrapCommandLine:    true,
		EnvCaseInsensitive: true,
		Builtins: []string{
			"assoc", "break", "call", "cd", "chdir", "cls", "color", "copy", "date",
			"del", "dir", "echo", "endlocal", "erase", "exit", "for", "ftype", "goto",
			"if", "md", "mkdir", "mklink", "move", "path", "pause", "popd", "prompt",
			"pushd", "rd", "rem", "ren", "rename", "rmdir", "set", "setlocal",
			"shift", "start", "time", "title", "type", "ver", "verify", "vol",
		},
	}
}

// Direct returns a profile that launches the executable without a shell.
// Environment semantics follow the host family.
func Direct() Profile {
	return Profile{
		Family:             HostFamily(),
		EnvCaseInsensitive: HostFamily() == FamilyWindows,
	}
}

var profiles = map[Family]func() Profile{
	FamilyPOSIX:   POSIX,
	FamilyWindows: Windows,
}

// ForFamily returns the shell profile for f.
func ForFamily(f Family) Profile {
	if build, ok := profiles[f]; ok {
		return build()
	}
	return POSIX()
}

// Host returns the profile for the running operating system.
func Host() Profile {
	return ForFamily(HostFamily())
}

// IsDirect reports whether the profile bypasses the shell.
func (p Profile) IsDirect() bool {
	return p.ShellCommand == ""
}

// IsBuiltin reports whether name is run by the shell itself.
func (p Profile) IsBuiltin(name string) bool {
	for _, b := range p.Builtins {
		if name == b || (p.EnvCaseInsensitive && strings.EqualFold(name, b)) {
			return true
		}
	}
	return false
}

// Quote renders a single token. ok is false when the token vanishes
// from the command line (an empty token with QuoteEmpty disabled).
func (p Profile) Quote(s string, executable bool) (quoted string, ok bool) {
	enabled := p.QuoteArguments
	if executable {
		enabled = p.QuoteExecutable
	}
	if s == "" {
		if enabled && p.QuoteEmpty {
			return string(p.QuoteChar) + string(p.QuoteChar), true
		}
		return "", false
	}
	if !enabled || !strings.ContainsAny(s, p.TriggerChars) {
		return s, true
	}

	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteRune(p.QuoteChar)
	for _, r := range s {
		if p.EscapeChar != 0 && strings.ContainsRune(p.EscapedChars, r) {
			b.WriteRune(p.EscapeChar)
		}
		b.WriteRune(r)
	}
	b.WriteRune(p.QuoteChar)
	return b.String(), true
}

// CommandLine quotes the executable and each argument and joins them with
// single spaces.
func (p Profile) CommandLine(executable string, args []string) string {
	parts := make([]string, 0, len(args)+1)
	if q, ok := p.Quote(executable, true); ok {
		parts = append(parts, q)
	}
	for _, a := range args {
		if q, ok := p.Quote(a, false); ok {
			parts = append(parts, q)
		}
	}
	line := strings.Join(parts, " ")
	if p.WrapCommandLine {
		line = string(p.QuoteChar) + line + string(p.QuoteChar)
	}
	return line
}

// Tokens returns the argv handed to the OS launcher: the shell, its flags
// and the rendered command line as one token. A direct profile returns the
// executable and arguments unchanged.
func (p Profile) Tokens(executable string, args []string) []string {
	if p.IsDirect() {
		out := make([]string, 0, len(args)+1)
		out = append(out, executable)
		return append(out, args...)
	}
	out := make([]string, 0, len(p.ShellArgs)+2)
	out = append(out, p.ShellCommand)
	out = append(out, p.ShellArgs...)
	return append(out, p.CommandLine(executable, args))
}
