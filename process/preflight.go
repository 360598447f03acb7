package process

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/kbukum/execkit/cmdline"
)

// checkWorkingDir fails when dir is set but is not an existing directory.
func checkWorkingDir(dir string) error {
	if dir == "" {
		return nil
	}
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("working directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("working directory %s is not a directory", dir)
	}
	return nil
}

// checkExecutable resolves the executable of a shell-wrapped command. The
// shell itself always starts, so a missing program would otherwise surface
// as exit status 127 instead of a spawn failure. Direct commands are left
// to os/exec.
func checkExecutable(cmd *cmdline.Command) error {
	profile := cmd.Profile()
	exe := cmd.Executable()
	if profile.IsDirect() || profile.IsBuiltin(exe) {
		return nil
	}

	if !strings.ContainsAny(exe, `/\`) {
		_, err := exec.LookPath(exe)
		return err
	}

	path := exe
	if !filepath.IsAbs(path) && cmd.WorkingDir() != "" {
		path = filepath.Join(cmd.WorkingDir(), path)
	}
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", exe)
	}
	return nil
}
