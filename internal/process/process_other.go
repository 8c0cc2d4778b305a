//go:build !windows

package process

import (
	"errors"
	"io/fs"
	"os/exec"
	"syscall"
)

func hideWindow(cmd *exec.Cmd) {}

// detach puts the child in its own process group so terminal signals
// aimed at provision do not reach it.
func detach(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
