package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/paulschiretz/pgl-figcompress/pkg/bundle"
	"github.com/paulschiretz/pgl-figcompress/pkg/figcompress"
	"github.com/paulschiretz/pgl-figcompress/pkg/ghostscript"
	"github.com/paulschiretz/pgl-figcompress/pkg/planner"
	"github.com/paulschiretz/pgl-figcompress/pkg/plog"
	"github.com/paulschiretz/pgl-figcompress/pkg/preflight"
	"github.com/paulschiretz/pgl-figcompress/pkg/report"
)

// --- OVERVIEW ---
//
// A run has one mandatory stage and two optional follow-ups:
//
// 1. Compress - every figure below the input directory is written to the
//    mirrored path below the output directory. Per-file failures are recorded
//    in the summary and never abort the run. Only preflight errors and
//    cancellation do.
//
// 2. Bundle - the output directory is packed into one archive next to it.
//
// 3. Report - a JSON document describing the run is written.
//
// Bundle and report are fail-forward: a failure is logged as a warning and
// the compressed figures stay in place.

// Validator runs the checks that must pass before any file is touched.
type Validator interface {
	Run(ctx context.Context, absInputPath, absOutputPath string, p *preflight.Plan) error
}

// Bundler packs a directory tree into an archive.
type Bundler interface {
	Bundle(ctx context.Context, absSourceDir string, p *bundle.Plan) (string, error)
}

// RewriterFactory builds the PDF rewriter for a run.
type RewriterFactory func(opts ghostscript.Options) figcompress.PDFRewriter

// Runner executes a compression plan.
type Runner struct {
	validator   Validator
	bundler     Bundler
	newRewriter RewriterFactory
}

// NewRunner creates a Runner. A nil factory runs the real Ghostscript.
func NewRunner(v Validator, b Bundler, newRewriter RewriterFactory) *Runner {
	if newRewriter == nil {
		newRewriter = func(opts ghostscript.Options) figcompress.PDFRewriter {
			return ghostscript.NewRewriter(opts, nil)
		}
	}
	return &Runner{validator: v, bundler: b, newRewriter: newRewriter}
}

// availability is implemented by rewriters that can tell up front whether
// their external tool is installed.
type availability interface {
	Available() bool
}

// ExecuteCompress runs preflight, compression, bundling and the report for p.
// The returned summary is valid even when the run was canceled part way.
func (r *Runner) ExecuteCompress(ctx context.Context, p *planner.CompressPlan) (figcompress.RunSummary, error) {
	// Check for cancellation at the very beginning.
	select {
	case <-ctx.Done():
		return figcompress.RunSummary{}, ctx.Err()
	default:
	}

	// save the execution timestamp
	timestampUTC := time.Now().UTC()

	if err := r.validator.Run(ctx, p.AbsInputDir, p.AbsOutputDir, p.Preflight); err != nil {
		return figcompress.RunSummary{}, fmt.Errorf("preflight failed: %w", err)
	}

	rewriter := r.newRewriter(p.Ghostscript)
	if a, ok := rewriter.(availability); ok && !a.Available() {
		plog.Warn("Ghostscript not found, vector figures will be copied unchanged")
	}

	summary, err := figcompress.New(*p.Compress, rewriter).Run(ctx)
	if err != nil {
		return summary, err
	}

	var archivePath string
	if p.Bundle.Enabled {
		archivePath, err = r.bundler.Bundle(ctx, p.AbsOutputDir, p.Bundle)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return summary, ctxErr
			}
			plog.Warn("Error during bundle, skipping bundle", "error", err)
			archivePath = ""
		} else if !p.DryRun {
			plog.Info("Bundle written", "archive", archivePath)
		}
	}

	if p.AbsReportPath != "" {
		if p.DryRun {
			plog.Info("[DRY RUN] Would write report", "path", p.AbsReportPath)
		} else {
			content := report.New(*p.Compress, summary, timestampUTC)
			content.Bundle = archivePath
			if err := report.Write(p.AbsReportPath, content); err != nil {
				plog.Warn("Error writing report, skipping report", "error", err)
			} else {
				plog.Info("Report written", "path", p.AbsReportPath, "runId", content.RunID)
			}
		}
	}
	return summary, nil
}
