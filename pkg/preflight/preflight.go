// Package preflight provides validation that runs before figures are
// processed. Apart from creating the output directory the checks do not
// change the system's state.
package preflight

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/paulschiretz/pgl-figcompress/pkg/plog"
	"github.com/paulschiretz/pgl-figcompress/pkg/util"
)

// ErrInputMissing is returned when the input directory does not exist.
var ErrInputMissing = errors.New("input directory does not exist")

// ErrInsufficientSpace is returned by CheckFreeSpace.
var ErrInsufficientSpace = errors.New("insufficient free space")

// Validator runs the checks selected by a Plan.
type Validator struct {
	// availableBytes allows mocking the free space lookup for testing.
	availableBytes func(path string) (uint64, error)
}

// NewValidator returns a Validator using the platform free space lookup.
func NewValidator() *Validator {
	return &Validator{availableBytes: availableBytes}
}

// Run performs the checks of p against the input and output directories.
// Only a failed free space check is downgraded to a warning.
func (v *Validator) Run(ctx context.Context, absInputPath, absOutputPath string, p *Plan) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if p.InputAccessible {
		if err := CheckInputAccessible(absInputPath); err != nil {
			return err
		}
	}

	if p.PathNesting {
		if err := CheckPathNesting(absInputPath, absOutputPath); err != nil {
			return err
		}
	}

	if p.OutputAccessible {
		if err := CheckOutputAccessible(absOutputPath); err != nil {
			return err
		}
	}

	if p.DryRun {
		plog.Debug("[DRY RUN] Skipping output write checks")
		return nil
	}

	if p.EnsureOutputExists || p.OutputWritable {
		if err := CheckOutputWritable(absOutputPath); err != nil {
			return err
		}
	}

	if p.FreeSpace {
		if err := v.CheckFreeSpace(absInputPath, absOutputPath); err != nil {
			plog.Warn("Output filesystem may run out of space", "output", absOutputPath, "reason", err)
		}
	}
	return nil
}

// CheckInputAccessible validates that the input path exists and is a directory.
func CheckInputAccessible(inputPath string) error {
	info, err := os.Stat(inputPath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("input directory %s does not exist: %w", inputPath, ErrInputMissing)
		}
		return fmt.Errorf("cannot stat input directory %s: %w", inputPath, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("input path %s is not a directory", inputPath)
	}
	return nil
}

// CheckPathNesting rejects an output directory that is the input directory or
// lies inside it, since outputs would be discovered as inputs on the next run.
// An output that contains the input is rejected too: mirrored paths below it
// can land on input files.
func CheckPathNesting(inputPath, outputPath string) error {
	nested, err := util.IsSubPath(inputPath, outputPath)
	if err != nil {
		return fmt.Errorf("cannot compare input and output paths: %w", err)
	}
	if nested {
		return fmt.Errorf("output directory %s must not be inside input directory %s", outputPath, inputPath)
	}
	contains, err := util.IsSubPath(outputPath, inputPath)
	if err != nil {
		return fmt.Errorf("cannot compare input and output paths: %w", err)
	}
	if contains {
		return fmt.Errorf("output directory %s must not contain input directory %s", outputPath, inputPath)
	}
	return nil
}

// CheckOutputAccessible performs checks to ensure the output path is usable.
// It provides more user-friendly errors than letting os.MkdirAll fail.
//
// If the output path exists it must be a directory. Otherwise the deepest
// existing ancestor must be an accessible directory, so MkdirAll can create
// the rest of the chain.
func CheckOutputAccessible(outputPath string) error {
	info, err := os.Stat(outputPath)
	if err == nil {
		if !info.IsDir() {
			return fmt.Errorf("output path exists but is not a directory: %s", outputPath)
		}
		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("cannot access output path: %w", err)
	}

	ancestor := outputPath
	for {
		parent := filepath.Dir(ancestor)
		if parent == ancestor {
			return fmt.Errorf("no existing ancestor directory for %s", outputPath)
		}
		ancestor = parent

		info, err := os.Stat(ancestor)
		if err == nil {
			if !info.IsDir() {
				return fmt.Errorf("ancestor of output path is not a directory: %s", ancestor)
			}
			break
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("cannot access ancestor directory %s: %w", ancestor, err)
		}
	}

	// Stat succeeds on a directory without read/execute permission, ReadDir does not.
	if _, err := os.ReadDir(ancestor); err != nil {
		return fmt.Errorf("cannot access ancestor directory %s: %w", ancestor, err)
	}
	return nil
}

// CheckOutputWritable ensures the output directory can be created and is
// writable by performing filesystem modifications.
func CheckOutputWritable(outputPath string) error {
	if err := os.MkdirAll(outputPath, util.UserWritableDirPerms); err != nil {
		return fmt.Errorf("failed to create output directory %s: %w", outputPath, err)
	}

	tempFile := filepath.Join(outputPath, ".pgl-figcompress-writetest.tmp")
	f, err := os.Create(tempFile)
	if err != nil {
		return fmt.Errorf("output directory %s is not writable: %w", outputPath, err)
	}
	f.Close()
	_ = os.Remove(tempFile)
	return nil
}

// CheckFreeSpace compares the size of the input tree with the space available
// on the output filesystem. Outputs are rarely larger than their inputs, so
// the input size is the budget.
func (v *Validator) CheckFreeSpace(inputPath, outputPath string) error {
	var required uint64
	err := filepath.WalkDir(inputPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			info, err := d.Info()
			if err != nil {
				return err
			}
			required += uint64(info.Size())
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to measure input directory: %w", err)
	}

	available, err := v.availableBytes(outputPath)
	if err != nil {
		if errors.Is(err, errors.ErrUnsupported) {
			return nil
		}
		return fmt.Errorf("failed to read free space: %w", err)
	}

	plog.Debug("Free space check", "requiredMB", util.BytesToMB(int64(required)), "availableMB", util.BytesToMB(int64(available)))
	if available < required {
		return fmt.Errorf("%w: need %.2f MB, %.2f MB available", ErrInsufficientSpace,
			util.BytesToMB(int64(required)), util.BytesToMB(int64(available)))
	}
	return nil
}
