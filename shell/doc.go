// Package shell maps an operating system family to the policy used to turn
// an executable and its arguments into the token list handed to the OS
// process launcher.
//
// A Profile is an immutable value. Two are predefined, POSIX (/bin/sh -c)
// and Windows (cmd.exe /X /C), plus Direct which performs no shell wrapping
// at all:
//
//	p := shell.Host()
//	tokens := p.Tokens("ls", []string{"-l", "my dir"})
//	// ["/bin/sh", "-c", `ls -l "my dir"`]
package shell
