//go:build windows

package process

import "os/exec"

// Windows has no process groups to signal; the default Cancel kills the
// process and WaitDelay cuts off its children.
func setProcessGroup(*exec.Cmd) {}
