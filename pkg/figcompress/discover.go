package figcompress

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"slices"
	"strings"
)

var rasterExtensions = map[string]struct{}{
	".png":  {},
	".jpg":  {},
	".jpeg": {},
	".tiff": {},
	".tif":  {},
	".bmp":  {},
}

var vectorExtensions = map[string]struct{}{
	".pdf": {},
	".eps": {},
	".svg": {},
}

// IsRaster reports whether the extension (any case) is a raster format.
func IsRaster(ext string) bool {
	_, ok := rasterExtensions[strings.ToLower(ext)]
	return ok
}

// IsVector reports whether the extension (any case) is a vector or document format.
func IsVector(ext string) bool {
	_, ok := vectorExtensions[strings.ToLower(ext)]
	return ok
}

// Discover walks inputDir and returns the paths of all regular files with a
// figure extension that are not excluded, sorted. A symlinked inputDir is
// followed; returned paths stay below inputDir as given.
func Discover(inputDir string, exclude []string) ([]string, error) {
	excludes := makeExclusionSet(exclude)
	var files []string

	root, err := filepath.EvalSymlinks(inputDir)
	if err != nil {
		return nil, fmt.Errorf("could not resolve input directory %s: %w", inputDir, err)
	}

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == root {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return fmt.Errorf("could not get relative path for %s: %w", path, err)
		}
		if excludes.matches(filepath.ToSlash(rel)) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if !d.Type().IsRegular() {
			return nil
		}
		ext := filepath.Ext(path)
		if IsRaster(ext) || IsVector(ext) {
			files = append(files, filepath.Join(inputDir, rel))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slices.Sort(files)
	return slices.Compact(files), nil
}
