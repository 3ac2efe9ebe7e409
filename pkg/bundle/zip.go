package bundle

import (
	"context"
	"fmt"
	"io"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zip"

	"github.com/paulschiretz/pgl-figcompress/pkg/bundlemetrics"
	"github.com/paulschiretz/pgl-figcompress/pkg/plog"
)

func writeZip(ctx context.Context, w io.Writer, entries []entry, level Level, buf []byte, m bundlemetrics.Metrics) (retErr error) {
	zw := zip.NewWriter(w)
	lvl := level.flateLevel()
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, lvl)
	})
	defer func() {
		if err := zw.Close(); err != nil && retErr == nil {
			retErr = fmt.Errorf("zip writer close failed: %w", err)
		}
	}()

	for _, e := range entries {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err := writeZipEntry(zw, e, buf, m); err != nil {
			return err
		}
	}
	return nil
}

func writeZipEntry(zw *zip.Writer, e entry, buf []byte, m bundlemetrics.Metrics) error {
	f, err := secureFileOpen(e.absPath, e.info)
	if err != nil {
		return fmt.Errorf("failed to open file %s: %w", e.absPath, err)
	}
	defer f.Close()

	header, err := zip.FileInfoHeader(e.info)
	if err != nil {
		return fmt.Errorf("failed to create zip header for %s: %w", e.relPath, err)
	}
	header.Name = e.relPath
	header.Method = zip.Deflate

	w, err := zw.CreateHeader(header)
	if err != nil {
		return fmt.Errorf("failed to write zip header for %s: %w", e.relPath, err)
	}
	if _, err := io.CopyBuffer(w, &countingReader{r: f, metrics: m}, buf); err != nil {
		return fmt.Errorf("failed to write %s to archive: %w", e.relPath, err)
	}

	plog.Debug("ADD", "file", e.relPath)
	m.AddEntriesAdded(1)
	return nil
}
