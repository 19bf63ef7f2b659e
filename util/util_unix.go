//go:build !windows

package util

import "os/exec"

// PrepareRunProc is a no-op outside Windows.
func PrepareRunProc(cmd *exec.Cmd) {}
