//go:build !windows

package ghostscript

import (
	"context"
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// createCommand creates an exec.Cmd for Ghostscript on Unix-like systems.
// The process gets its own process group and cancellation kills the whole
// group, so no interpreter children outlive an interrupted run.
func (r *Rewriter) createCommand(ctx context.Context, args []string) *exec.Cmd {
	cmd := r.commandContext(ctx, r.path, args...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		return unix.Kill(-cmd.Process.Pid, unix.SIGKILL)
	}
	return cmd
}
