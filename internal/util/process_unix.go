//go:build unix

package util

import (
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// ConfigureProcessGroup starts cmd in its own process group and makes
// context cancellation kill the whole group, so helper processes spawned by
// the command die with it.
func ConfigureProcessGroup(cmd *exec.Cmd) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.Setpgid = true
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		err := unix.Kill(-cmd.Process.Pid, unix.SIGKILL)
		if err == unix.ESRCH {
			return nil
		}
		return err
	}
	cmd.WaitDelay = processWaitDelay
}
