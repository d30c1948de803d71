//go:build !unix

package util

import "os/exec"

// ConfigureProcessGroup bounds how long Wait blocks after cancellation.
// Process groups are not available on this platform.
func ConfigureProcessGroup(cmd *exec.Cmd) {
	cmd.WaitDelay = processWaitDelay
}
