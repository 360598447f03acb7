// Package cmdline builds the command an invocation launches: the
// executable, its ordered arguments, environment overrides and working
// directory, bound to the shell.Profile that renders them.
//
//	cmd := cmdline.New("git", cmdline.WithWorkingDir(repo))
//	cmd.AddArgument("log").AddArgument("--format=%H %s")
//	cmd.AddMaskedArgument(token)
//	cmd.SetEnv("GIT_PAGER", "cat")
//	tokens, err := cmd.Tokens()
//
// Tokens always carries real values; String renders the command for logs,
// replacing masked arguments with MaskMarker.
//
// A Command is not safe for concurrent mutation.
package cmdline
