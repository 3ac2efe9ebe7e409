// Package ghostscript rewrites PDF files through the Ghostscript pdfwrite
// device to shrink them. The binary is an external collaborator; this package
// only builds the command line, runs it and interprets the exit status.
package ghostscript

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/paulschiretz/pgl-figcompress/pkg/plog"
	"github.com/paulschiretz/pgl-figcompress/pkg/util"
)

// ErrNotFound is returned by Rewrite when no Ghostscript executable is available.
var ErrNotFound = errors.New("ghostscript executable not found")

// ExitError reports a Ghostscript run that finished with a non-zero exit code.
type ExitError struct {
	Code   int
	Output string
}

func (e *ExitError) Error() string {
	if e.Output == "" {
		return fmt.Sprintf("ghostscript exited with status %d", e.Code)
	}
	return fmt.Sprintf("ghostscript exited with status %d: %s", e.Code, e.Output)
}

// ExitCode returns the process exit status.
func (e *ExitError) ExitCode() int { return e.Code }

// Diagnostic returns the combined stdout/stderr of the failed run.
func (e *ExitError) Diagnostic() string { return e.Output }

// Options controls how Ghostscript is located and invoked.
type Options struct {
	// Path is an explicit executable. When empty the usual names are looked up in PATH.
	Path string
	// PDFSettings is the distiller preset, e.g. "/prepress".
	PDFSettings string
	// CompatibilityLevel is the PDF version written, e.g. "1.4".
	CompatibilityLevel string
}

// DefaultOptions returns the prepress, PDF 1.4 profile.
func DefaultOptions() Options {
	return Options{
		PDFSettings:        "/prepress",
		CompatibilityLevel: "1.4",
	}
}

// Rewriter runs Ghostscript for one input/output pair at a time.
type Rewriter struct {
	path string
	opts Options

	// commandContext allows mocking os/exec for testing.
	commandContext func(ctx context.Context, name string, arg ...string) *exec.Cmd
}

// NewRewriter resolves the executable and returns a Rewriter. A missing
// executable is not an error here; Rewrite reports ErrNotFound instead so
// callers can fall back per file.
func NewRewriter(opts Options, commandContext func(ctx context.Context, name string, arg ...string) *exec.Cmd) *Rewriter {
	if opts.PDFSettings == "" {
		opts.PDFSettings = DefaultOptions().PDFSettings
	}
	if opts.CompatibilityLevel == "" {
		opts.CompatibilityLevel = DefaultOptions().CompatibilityLevel
	}
	if commandContext == nil {
		commandContext = exec.CommandContext
	}
	path := opts.Path
	if path == "" {
		path = lookPath()
	}
	return &Rewriter{path: path, opts: opts, commandContext: commandContext}
}

// lookPath returns the first Ghostscript executable found in PATH, or "".
func lookPath() string {
	candidates := []string{"gs"}
	if runtime.GOOS == "windows" {
		candidates = []string{"gswin64c", "gswin32c", "gs"}
	}
	for _, name := range candidates {
		if p, err := exec.LookPath(name); err == nil {
			return p
		}
	}
	return ""
}

// Available reports whether an executable was configured or found.
func (r *Rewriter) Available() bool {
	return r.path != ""
}

// Path returns the executable that will be run.
func (r *Rewriter) Path() string {
	return r.path
}

// Args returns the Ghostscript arguments for rewriting inputPath into outputPath.
func (r *Rewriter) Args(inputPath, outputPath string) []string {
	return []string{
		"-sDEVICE=pdfwrite",
		"-dCompatibilityLevel=" + r.opts.CompatibilityLevel,
		"-dPDFSETTINGS=" + r.opts.PDFSettings,
		"-dNOPAUSE",
		"-dQUIET",
		"-dBATCH",
		"-sOutputFile=" + outputPath,
		inputPath,
	}
}

// Rewrite runs Ghostscript on inputPath and places the result at outputPath.
// Ghostscript writes into a temp file next to outputPath, which is only
// renamed into place after a clean exit. A non-zero exit yields *ExitError.
func (r *Rewriter) Rewrite(ctx context.Context, inputPath, outputPath string) (retErr error) {
	if r.path == "" {
		return ErrNotFound
	}

	tmp, err := os.CreateTemp(filepath.Dir(outputPath), ".pgl-figcompress-gs-*.pdf")
	if err != nil {
		return fmt.Errorf("failed to create temp output: %w", err)
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer func() {
		if retErr != nil {
			os.Remove(tmpPath)
		}
	}()

	cmd := r.createCommand(ctx, r.Args(inputPath, tmpPath))
	plog.Debug("Executing ghostscript", "command", r.path, "input", inputPath)

	output, err := cmd.CombinedOutput()
	if err != nil {
		// A killed process also surfaces as an ExitError, report the cancellation instead.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return &ExitError{Code: exitErr.ExitCode(), Output: strings.TrimSpace(string(output))}
		}
		return fmt.Errorf("failed to run ghostscript %s: %w", r.path, err)
	}

	info, err := os.Stat(tmpPath)
	if err != nil {
		return fmt.Errorf("failed to stat ghostscript output: %w", err)
	}
	if info.Size() == 0 {
		return fmt.Errorf("ghostscript did not create output file")
	}
	if err := os.Chmod(tmpPath, util.UserWritableFilePerms); err != nil {
		return fmt.Errorf("failed to set permissions on ghostscript output: %w", err)
	}

	if err := os.Rename(tmpPath, outputPath); err != nil {
		return fmt.Errorf("failed to rename ghostscript output to %s: %w", outputPath, err)
	}
	return nil
}
