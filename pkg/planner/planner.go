package planner

import (
	"fmt"
	"path/filepath"

	"github.com/paulschiretz/pgl-figcompress/pkg/bundle"
	"github.com/paulschiretz/pgl-figcompress/pkg/config"
	"github.com/paulschiretz/pgl-figcompress/pkg/figcompress"
	"github.com/paulschiretz/pgl-figcompress/pkg/ghostscript"
	"github.com/paulschiretz/pgl-figcompress/pkg/preflight"
)

// CompressPlan is everything the engine needs for one run, with all paths
// made absolute.
type CompressPlan struct {
	DryRun bool

	AbsInputDir  string
	AbsOutputDir string
	// AbsReportPath is empty when no report is requested.
	AbsReportPath string
	BufferSizeKB  int

	Preflight   *preflight.Plan
	Compress    *figcompress.Plan
	Ghostscript ghostscript.Options
	Bundle      *bundle.Plan
}

func GenerateCompressPlan(cfg config.Config) (*CompressPlan, error) {

	// Global Flags
	dryRun := cfg.Runtime.DryRun
	verbose := cfg.Runtime.Verbose

	absInput, err := filepath.Abs(cfg.Input)
	if err != nil {
		return nil, fmt.Errorf("could not determine absolute path for input %s: %w", cfg.Input, err)
	}
	absOutput, err := filepath.Abs(cfg.Output)
	if err != nil {
		return nil, fmt.Errorf("could not determine absolute path for output %s: %w", cfg.Output, err)
	}

	var absReport string
	if cfg.Report != "" {
		absReport, err = filepath.Abs(cfg.Report)
		if err != nil {
			return nil, fmt.Errorf("could not determine absolute path for report %s: %w", cfg.Report, err)
		}
	}

	bundleFormat, err := bundle.ParseFormat(cfg.Bundle.Format.String())
	if err != nil {
		return nil, err
	}

	bundleLevel, err := bundle.ParseLevel(string(cfg.Bundle.Level))
	if err != nil {
		return nil, err
	}

	// finish the plan
	return &CompressPlan{
		DryRun: dryRun,

		AbsInputDir:   absInput,
		AbsOutputDir:  absOutput,
		AbsReportPath: absReport,
		BufferSizeKB:  cfg.Performance.BufferSizeKB,

		Preflight: &preflight.Plan{
			InputAccessible:    true,
			OutputAccessible:   true,
			OutputWritable:     true,
			PathNesting:        true,
			EnsureOutputExists: true,
			FreeSpace:          true,
			// Global Flags
			DryRun: dryRun,
		},
		Compress: &figcompress.Plan{
			InputDir:  absInput,
			OutputDir: absOutput,
			Quality:   cfg.Quality,
			MaxSizeMB: cfg.MaxSizeMB,
			Workers:   cfg.Performance.Workers,
			Exclude:   append([]string(nil), cfg.Exclude...),
			// Global Flags
			DryRun: dryRun,
		},
		Ghostscript: ghostscript.Options{
			Path:               cfg.Ghostscript.Path,
			PDFSettings:        cfg.Ghostscript.PDFSettings,
			CompatibilityLevel: cfg.Ghostscript.CompatibilityLevel,
		},
		Bundle: &bundle.Plan{
			Enabled: cfg.Bundle.Enabled,
			Format:  bundleFormat,
			Level:   bundleLevel,
			// Global Flags
			DryRun:  dryRun,
			Metrics: verbose,
		},
	}, nil
}
