package figcompress

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/paulschiretz/pgl-figcompress/pkg/plog"
	"github.com/paulschiretz/pgl-figcompress/pkg/util"
)

// PDFRewriter rewrites a PDF into a smaller one. When the tool ran but
// failed, the returned error implements ExitCode() int and may implement
// Diagnostic() string.
type PDFRewriter interface {
	Rewrite(ctx context.Context, inputPath, outputPath string) error
}

type exitCoder interface {
	ExitCode() int
}

type diagnostic interface {
	Diagnostic() string
}

// CompressVector handles PDF, EPS and SVG inputs. PDFs go through the
// rewriter and fall back to a verbatim copy if it fails. EPS and SVG are
// always copied. The returned error is the reason for a fallback or failure.
func (c *Compressor) CompressVector(ctx context.Context, inputPath, outputPath string) (Outcome, error) {
	if strings.ToLower(filepath.Ext(inputPath)) != ".pdf" {
		if err := util.CopyFile(inputPath, outputPath); err != nil {
			return Failed, fmt.Errorf("failed to copy %s: %w", inputPath, err)
		}
		return CopiedFallback, nil
	}

	rewriteErr := c.rewriter.Rewrite(ctx, inputPath, outputPath)
	if rewriteErr == nil {
		return Compressed, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return Failed, ctxErr
	}

	var exitErr exitCoder
	if errors.As(rewriteErr, &exitErr) {
		var diag diagnostic
		output := ""
		if errors.As(rewriteErr, &diag) {
			output = diag.Diagnostic()
		}
		plog.Warn("PDF rewrite failed, copying original", "file", inputPath, "exitCode", exitErr.ExitCode(), "output", output)
	} else {
		plog.Warn("PDF rewrite could not run, copying original", "file", inputPath, "error", rewriteErr)
	}

	if err := util.CopyFile(inputPath, outputPath); err != nil {
		return Failed, fmt.Errorf("fallback copy of %s failed: %w (rewrite: %v)", inputPath, err, rewriteErr)
	}
	return CopiedFallback, rewriteErr
}
