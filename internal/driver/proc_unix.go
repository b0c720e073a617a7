//go:build unix

package driver

import (
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

func setProcessGroup(c *exec.Cmd) {
	c.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	c.Cancel = func() error {
		if c.Process == nil {
			return nil
		}
		// negative pid: the whole group, compiler children included
		return unix.Kill(-c.Process.Pid, unix.SIGTERM)
	}
}
