// Package bundle packs the compressed figure tree into a single archive for
// submission systems that take one upload.
package bundle

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/paulschiretz/pgl-figcompress/pkg/bundlemetrics"
	"github.com/paulschiretz/pgl-figcompress/pkg/plog"
	"github.com/paulschiretz/pgl-figcompress/pkg/pool"
	"github.com/paulschiretz/pgl-figcompress/pkg/util"
)

type Plan struct {
	Enabled bool
	Format  Format
	Level   Level

	// Global Flags
	DryRun  bool
	Metrics bool
}

// Bundler writes archives of a directory tree.
type Bundler struct {
	ioBufferPool *pool.FixedBufferPool
}

// NewBundler creates a Bundler copying file data through bufferSizeKB buffers.
func NewBundler(bufferSizeKB int) *Bundler {
	if bufferSizeKB <= 0 {
		bufferSizeKB = 256
	}
	return &Bundler{ioBufferPool: pool.NewFixedBuffer(int64(bufferSizeKB) * 1024)}
}

// ArchivePath returns the archive location for a directory, a sibling named
// after the directory plus the format extension.
func ArchivePath(absSourceDir string, format Format) string {
	return filepath.Clean(absSourceDir) + format.Extension()
}

// entry is a regular file to be added to the archive.
type entry struct {
	absPath string
	relPath string
	info    os.FileInfo
}

// Bundle archives every regular file below absSourceDir and returns the
// archive path. Entries are added in lexical order.
func (b *Bundler) Bundle(ctx context.Context, absSourceDir string, p *Plan) (archivePath string, retErr error) {
	archivePath = ArchivePath(absSourceDir, p.Format)

	if p.DryRun {
		plog.Info("[DRY RUN] Would bundle output", "source", absSourceDir, "archive", archivePath)
		return archivePath, nil
	}

	entries, err := collectEntries(ctx, absSourceDir)
	if err != nil {
		return "", err
	}

	var m bundlemetrics.Metrics
	if p.Metrics {
		m = &bundlemetrics.BundleMetrics{}
	} else {
		m = &bundlemetrics.NoopMetrics{}
	}

	tmp, err := os.CreateTemp(filepath.Dir(archivePath), ".pgl-figcompress-*.tmp")
	if err != nil {
		return "", fmt.Errorf("failed to create temp archive: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if retErr != nil {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	bufPtr := b.ioBufferPool.Get()
	defer b.ioBufferPool.Put(bufPtr)

	bw := bufio.NewWriterSize(&countingWriter{w: tmp, metrics: m}, int(b.ioBufferPool.Size()))
	switch p.Format {
	case Zip:
		err = writeZip(ctx, bw, entries, p.Level, *bufPtr, m)
	case TarGz, TarZst:
		err = writeTar(ctx, bw, entries, p.Format, p.Level, *bufPtr, m)
	default:
		err = fmt.Errorf("unsupported bundle format: %s", p.Format)
	}
	if err != nil {
		return "", err
	}
	if err := bw.Flush(); err != nil {
		return "", fmt.Errorf("buffer flush failed: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, util.UserWritableFilePerms); err != nil {
		return "", fmt.Errorf("failed to set permissions on %s: %w", archivePath, err)
	}
	if err := os.Rename(tmpPath, archivePath); err != nil {
		return "", fmt.Errorf("failed to rename temp archive to final path: %w", err)
	}

	m.LogSummary("Bundle created")
	return archivePath, nil
}

// collectEntries lists the regular files below root. Leftover temp files of
// an interrupted run are skipped.
func collectEntries(ctx context.Context, root string) ([]entry, error) {
	var entries []entry
	err := filepath.WalkDir(root, func(absPath string, d fs.DirEntry, walkErr error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if walkErr != nil {
			return walkErr
		}
		if !d.Type().IsRegular() || strings.HasPrefix(d.Name(), ".pgl-figcompress-") {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return fmt.Errorf("failed to get file info for %s: %w", absPath, err)
		}
		rel, err := filepath.Rel(root, absPath)
		if err != nil {
			return fmt.Errorf("failed to get relative path for %s: %w", absPath, err)
		}
		entries = append(entries, entry{absPath: absPath, relPath: filepath.ToSlash(rel), info: info})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", root, err)
	}
	return entries, nil
}

// countingWriter wraps an io.Writer and updates metrics on every write.
type countingWriter struct {
	w       io.Writer
	metrics bundlemetrics.Metrics
}

func (cw *countingWriter) Write(p []byte) (n int, err error) {
	n, err = cw.w.Write(p)
	if n > 0 {
		cw.metrics.AddBytesWritten(int64(n))
	}
	return
}

// countingReader wraps an io.Reader and updates metrics on every read. It
// also hides os.File's WriterTo so io.CopyBuffer uses the pooled buffer.
type countingReader struct {
	r       io.Reader
	metrics bundlemetrics.Metrics
}

func (cr *countingReader) Read(p []byte) (n int, err error) {
	n, err = cr.r.Read(p)
	if n > 0 {
		cr.metrics.AddBytesRead(int64(n))
	}
	return
}

// secureFileOpen verifies that the file at path is the same one we expected(TOCTOU check).
// A size change would corrupt a tar header written from the walked info.
func secureFileOpen(absFilePath string, expected os.FileInfo) (*os.File, error) {
	f, err := os.Open(absFilePath)
	if err != nil {
		return nil, err
	}

	openedInfo, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to stat opened file: %w", err)
	}
	if !os.SameFile(expected, openedInfo) {
		f.Close()
		return nil, fmt.Errorf("file changed while bundling: %s", absFilePath)
	}
	if openedInfo.Size() != expected.Size() {
		f.Close()
		return nil, fmt.Errorf("file size changed while bundling: %s", absFilePath)
	}
	return f, nil
}
