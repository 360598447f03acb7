//go:build windows

package process

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
)

// prepare hands cmd.exe its command line verbatim. The default argv
// escaping would re-quote the already rendered line.
func prepare(cmd *exec.Cmd, tokens []string) {
	if len(tokens) == 0 || !strings.EqualFold(filepath.Base(tokens[0]), "cmd.exe") {
		return
	}
	cmd.SysProcAttr = &syscall.SysProcAttr{CmdLine: strings.Join(tokens, " ")}
}

func kill(p *os.Process) error {
	return p.Kill()
}

// killGroup is a no-op: children are not started in their own group.
func killGroup(int) error { return nil }
