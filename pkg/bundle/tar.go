package bundle

import (
	"archive/tar"
	"context"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/klauspost/pgzip"

	"github.com/paulschiretz/pgl-figcompress/pkg/bundlemetrics"
	"github.com/paulschiretz/pgl-figcompress/pkg/plog"
)

func writeTar(ctx context.Context, w io.Writer, entries []entry, format Format, level Level, buf []byte, m bundlemetrics.Metrics) (retErr error) {
	var compressedWriter io.WriteCloser
	if format == TarZst {
		zstdWriter, err := zstd.NewWriter(w, zstd.WithEncoderLevel(level.zstdLevel()))
		if err != nil {
			return fmt.Errorf("failed to create zstd writer: %w", err)
		}
		compressedWriter = zstdWriter
	} else {
		pgzipWriter, err := pgzip.NewWriterLevel(w, level.gzipLevel())
		if err != nil {
			return fmt.Errorf("failed to create gzip writer: %w", err)
		}
		compressedWriter = pgzipWriter
	}

	tw := tar.NewWriter(compressedWriter)
	defer func() {
		if err := tw.Close(); err != nil && retErr == nil {
			retErr = fmt.Errorf("tar writer close failed: %w", err)
		}
		if err := compressedWriter.Close(); err != nil && retErr == nil {
			retErr = fmt.Errorf("compressed writer close failed: %w", err)
		}
	}()

	for _, e := range entries {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err := writeTarEntry(tw, e, buf, m); err != nil {
			return err
		}
	}
	return nil
}

func writeTarEntry(tw *tar.Writer, e entry, buf []byte, m bundlemetrics.Metrics) error {
	f, err := secureFileOpen(e.absPath, e.info)
	if err != nil {
		return fmt.Errorf("failed to open file %s: %w", e.absPath, err)
	}
	defer f.Close()

	header, err := tar.FileInfoHeader(e.info, "")
	if err != nil {
		return fmt.Errorf("failed to create tar header for %s: %w", e.relPath, err)
	}
	header.Name = e.relPath
	// Archives do not depend on who ran the tool.
	header.Uid, header.Gid = 0, 0
	header.Uname, header.Gname = "", ""

	if err := tw.WriteHeader(header); err != nil {
		return fmt.Errorf("failed to write tar header for %s: %w", e.relPath, err)
	}
	if _, err := io.CopyBuffer(tw, &countingReader{r: f, metrics: m}, buf); err != nil {
		return fmt.Errorf("failed to write %s to archive: %w", e.relPath, err)
	}

	plog.Debug("ADD", "file", e.relPath)
	m.AddEntriesAdded(1)
	return nil
}
