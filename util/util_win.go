//go:build windows

package util

import (
	"os/exec"
	"syscall"
)

// PrepareRunProc keeps child processes from opening a console window.
func PrepareRunProc(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{HideWindow: true}
}
