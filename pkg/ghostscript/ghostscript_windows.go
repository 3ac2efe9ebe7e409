//go:build windows

package ghostscript

import (
	"context"
	"os/exec"
	"syscall"

	"golang.org/x/sys/windows"
)

// createCommand creates an exec.Cmd for Ghostscript on Windows.
func (r *Rewriter) createCommand(ctx context.Context, args []string) *exec.Cmd {
	cmd := r.commandContext(ctx, r.path, args...)
	cmd.SysProcAttr = &syscall.SysProcAttr{CreationFlags: windows.CREATE_NEW_PROCESS_GROUP}
	return cmd
}
