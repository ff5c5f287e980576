//go:build linux

package common

import (
	"os/exec"
	"syscall"
)

// killAfterParent makes the kernel kill the browser when scopecheck dies, so
// that a crashed test run never leaves browsers behind.
func killAfterParent(cmd *exec.Cmd) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.Pdeathsig = syscall.SIGKILL
}
