//go:build !windows

package process

import (
	"os"
	"os/exec"
	"syscall"
)

// prepare makes the child a process group leader so kill reaches whatever
// the shell wrapper started.
func prepare(cmd *exec.Cmd, _ []string) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

func kill(p *os.Process) error {
	if err := killGroup(p.Pid); err == nil {
		return nil
	}
	return p.Kill()
}

// killGroup kills every process left in the group led by pid. An empty
// group is not an error.
func killGroup(pid int) error {
	err := syscall.Kill(-pid, syscall.SIGKILL)
	if err == syscall.ESRCH {
		return nil
	}
	return err
}
