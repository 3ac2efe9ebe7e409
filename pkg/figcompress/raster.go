package figcompress

import (
	"bufio"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gen2brain/jpegli"
	"golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	"golang.org/x/image/tiff"

	"github.com/paulschiretz/pgl-figcompress/pkg/util"
)

// CompressRaster decodes inputPath and re-encodes it to outputPath in the
// format given by the output extension. JPEG targets are progressive with
// optimized Huffman tables at the given quality, PNG targets get the best
// compression level. Images with alpha or a palette are
// flattened onto white before JPEG encoding.
func CompressRaster(inputPath, outputPath string, quality int) (Outcome, error) {
	img, err := decodeImage(inputPath)
	if err != nil {
		return Failed, err
	}

	ext := strings.ToLower(filepath.Ext(outputPath))
	encode, err := encoderFor(ext, quality)
	if err != nil {
		return Failed, err
	}
	if ext == ".jpg" || ext == ".jpeg" {
		if hasAlphaOrPalette(img) {
			img = flattenOnWhite(img)
		}
	}

	if err := writeAtomic(outputPath, func(w io.Writer) error { return encode(w, img) }); err != nil {
		return Failed, err
	}
	return Compressed, nil
}

func decodeImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return img, nil
}

type encodeFunc func(w io.Writer, img image.Image) error

func encoderFor(ext string, quality int) (encodeFunc, error) {
	switch ext {
	case ".jpg", ".jpeg":
		// jpegli has no quality 0.
		opts := &jpegli.EncodingOptions{
			Quality:          max(quality, 1),
			ProgressiveLevel: 2,
			OptimizeCoding:   true,
		}
		return func(w io.Writer, img image.Image) error {
			return jpegli.Encode(w, img, opts)
		}, nil
	case ".png":
		enc := &png.Encoder{CompressionLevel: png.BestCompression}
		return enc.Encode, nil
	case ".tif", ".tiff":
		return func(w io.Writer, img image.Image) error {
			return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate, Predictor: true})
		}, nil
	case ".bmp":
		return bmp.Encode, nil
	default:
		return nil, fmt.Errorf("unsupported raster format %q", ext)
	}
}

// hasAlphaOrPalette reports whether img carries transparency information
// JPEG cannot store.
func hasAlphaOrPalette(img image.Image) bool {
	if _, ok := img.(*image.Paletted); ok {
		return true
	}
	switch img.ColorModel() {
	case color.RGBAModel, color.NRGBAModel, color.RGBA64Model, color.NRGBA64Model,
		color.AlphaModel, color.Alpha16Model, color.NYCbCrAModel:
		return true
	}
	return false
}

// flattenOnWhite composites img over an opaque white background.
func flattenOnWhite(img image.Image) image.Image {
	b := img.Bounds()
	dst := image.NewRGBA(b)
	draw.Draw(dst, b, image.White, image.Point{}, draw.Src)
	draw.Draw(dst, b, img, b.Min, draw.Over)
	return dst
}

// writeAtomic writes through a temp file in the target directory which is
// renamed to path once write succeeded.
func writeAtomic(path string, write func(w io.Writer) error) (retErr error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".pgl-figcompress-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", path, err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if retErr != nil {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	bw := bufio.NewWriter(tmp)
	if err := write(bw); err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, util.UserWritableFilePerms); err != nil {
		return fmt.Errorf("failed to set permissions on %s: %w", path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to rename temp file to %s: %w", path, err)
	}
	return nil
}
