// Package figcompress shrinks the figures of a manuscript. It mirrors an input
// tree into an output tree, re-encoding raster images, rewriting PDFs through
// an external tool and copying everything else, and reports how much smaller
// the result is.
package figcompress

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/paulschiretz/pgl-figcompress/pkg/plog"
	"github.com/paulschiretz/pgl-figcompress/pkg/util"
)

// Compressor runs a Plan. The plan is copied at construction and never changes.
type Compressor struct {
	plan     Plan
	rewriter PDFRewriter
}

// New creates a Compressor for the given plan.
func New(plan Plan, rewriter PDFRewriter) *Compressor {
	plan.Exclude = slices.Clone(plan.Exclude)
	if plan.Workers < 1 {
		plan.Workers = 1
	}
	return &Compressor{plan: plan, rewriter: rewriter}
}

// OutputPath returns where the output for inputPath is written.
func (c *Compressor) OutputPath(inputPath string) (string, error) {
	rel, err := filepath.Rel(c.plan.InputDir, inputPath)
	if err != nil {
		return "", fmt.Errorf("could not get relative path for %s: %w", inputPath, err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(os.PathSeparator)) {
		return "", fmt.Errorf("%s is outside of input directory %s", inputPath, c.plan.InputDir)
	}
	return filepath.Join(c.plan.OutputDir, rel), nil
}

// ProcessFile compresses one file into its mirrored location below the
// output directory. It never returns an error; failures are recorded.
func (c *Compressor) ProcessFile(ctx context.Context, inputPath string) FileRecord {
	rec := FileRecord{RelPath: filepath.ToSlash(inputPath)}

	outputPath, err := c.OutputPath(inputPath)
	if err != nil {
		rec.Err = err
		return rec
	}
	if rel, err := filepath.Rel(c.plan.InputDir, inputPath); err == nil {
		rec.RelPath = filepath.ToSlash(rel)
	}

	if err := ctx.Err(); err != nil {
		rec.Err = err
		return rec
	}

	info, err := os.Stat(inputPath)
	if err != nil {
		rec.Err = fmt.Errorf("failed to stat %s: %w", inputPath, err)
		return rec
	}
	rec.OriginalSize = info.Size()

	if err := os.MkdirAll(filepath.Dir(outputPath), util.UserWritableDirPerms); err != nil {
		rec.Err = fmt.Errorf("failed to create output directory for %s: %w", rec.RelPath, err)
		return rec
	}

	ext := strings.ToLower(filepath.Ext(inputPath))
	switch {
	case IsRaster(ext):
		rec.Outcome, rec.Err = CompressRaster(inputPath, outputPath, c.plan.Quality)
	case IsVector(ext):
		rec.Outcome, rec.Err = c.CompressVector(ctx, inputPath, outputPath)
	default:
		if err := util.CopyFile(inputPath, outputPath); err != nil {
			rec.Outcome, rec.Err = Failed, fmt.Errorf("failed to copy %s: %w", inputPath, err)
		} else {
			rec.Outcome = CopiedFallback
		}
	}

	var diag diagnostic
	if errors.As(rec.Err, &diag) {
		rec.Diagnostic = diag.Diagnostic()
	}

	if !rec.Outcome.Succeeded() {
		return rec
	}
	out, err := os.Stat(outputPath)
	if err != nil {
		return rec
	}
	rec.HasOutput = true
	rec.CompressedSize = out.Size()
	rec.Oversized = util.BytesToMB(rec.CompressedSize) > c.plan.MaxSizeMB
	return rec
}

// Run discovers and processes all figures. Per-file failures are part of the
// summary; only discovery errors and cancellation are returned.
func (c *Compressor) Run(ctx context.Context) (RunSummary, error) {
	var summary RunSummary

	plog.Info("Compressing figures",
		"input", c.plan.InputDir,
		"output", c.plan.OutputDir,
		"quality", c.plan.Quality,
		"maxSizeMB", c.plan.MaxSizeMB,
		"workers", c.plan.Workers)

	files, err := Discover(c.plan.InputDir, c.plan.Exclude)
	if err != nil {
		return summary, fmt.Errorf("failed to discover figures in %s: %w", c.plan.InputDir, err)
	}

	if !c.plan.DryRun {
		if err := os.MkdirAll(c.plan.OutputDir, util.UserWritableDirPerms); err != nil {
			return summary, fmt.Errorf("failed to create output directory %s: %w", c.plan.OutputDir, err)
		}
	}

	if len(files) == 0 {
		plog.Info("No figure files found to compress", "input", c.plan.InputDir)
		return summary, nil
	}
	summary.FilesFound = len(files)

	if c.plan.DryRun {
		for _, f := range files {
			outputPath, _ := c.OutputPath(f)
			plog.Notice("[DRY RUN] Would process", "file", f, "output", outputPath)
		}
		plog.Info("[DRY RUN] Figure compression skipped", "found", summary.FilesFound)
		return summary, nil
	}

	c.processAll(ctx, files, func(rec FileRecord) {
		logRecord(rec, c.plan.MaxSizeMB)
		summary.add(rec)
	})
	if err := ctx.Err(); err != nil {
		return summary, err
	}

	plog.Info("Figure compression finished",
		"found", summary.FilesFound,
		"succeeded", summary.FilesSucceeded,
		"compressed", summary.FilesCompressed,
		"copied", summary.FilesCopied,
		"failed", summary.FilesFailed,
		"oversized", summary.FilesOversized,
		"originalMB", formatMB(summary.TotalOriginalSize),
		"compressedMB", formatMB(summary.TotalCompressedSize),
		"reduction", formatPercent(summary.ReductionPercent()))
	return summary, nil
}

// processAll processes files with up to Workers goroutines and hands every
// record to report in the order of files. Once ctx is cancelled the
// remaining records are no longer reported.
func (c *Compressor) processAll(ctx context.Context, files []string, report func(FileRecord)) {
	records := make([]FileRecord, len(files))
	done := make([]chan struct{}, len(files))
	for i := range done {
		done[i] = make(chan struct{})
	}

	g := new(errgroup.Group)
	g.SetLimit(c.plan.Workers)
	queued := make(chan struct{})
	go func() {
		defer close(queued)
		for i, f := range files {
			g.Go(func() error {
				defer close(done[i])
				records[i] = c.ProcessFile(ctx, f)
				return nil
			})
		}
	}()

	for i := range files {
		<-done[i]
		if ctx.Err() != nil {
			break
		}
		report(records[i])
	}
	<-queued
	g.Wait()
}

func logRecord(rec FileRecord, maxSizeMB float64) {
	if !rec.Outcome.Succeeded() {
		plog.Error("Failed to process figure", "file", rec.RelPath, "error", rec.Err)
		return
	}

	args := []any{
		"file", rec.RelPath,
		"outcome", rec.Outcome,
		"originalMB", formatMB(rec.OriginalSize),
	}
	if rec.HasOutput {
		args = append(args,
			"compressedMB", formatMB(rec.CompressedSize),
			"reduction", formatPercent(rec.ReductionPercent()))
	}
	plog.Notice("Processed figure", args...)

	if rec.Oversized {
		plog.Warn("Figure still exceeds size limit",
			"file", rec.RelPath,
			"sizeMB", formatMB(rec.CompressedSize),
			"maxMB", maxSizeMB)
	}
}

func formatMB(n int64) string {
	return fmt.Sprintf("%.2f", util.BytesToMB(n))
}

func formatPercent(p float64) string {
	return fmt.Sprintf("%.1f%%", p)
}
