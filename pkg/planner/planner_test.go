package planner_test

import (
	"path/filepath"
	"testing"

	"github.com/paulschiretz/pgl-figcompress/pkg/bundle"
	"github.com/paulschiretz/pgl-figcompress/pkg/config"
	"github.com/paulschiretz/pgl-figcompress/pkg/planner"
)

func TestGenerateCompressPlan(t *testing.T) {
	tests := []struct {
		name        string
		configMod   func(*config.Config)
		expectError bool
		validate    func(*testing.T, *planner.CompressPlan)
	}{
		{
			name:      "Defaults",
			configMod: func(c *config.Config) {},
			validate: func(t *testing.T, p *planner.CompressPlan) {
				if !filepath.IsAbs(p.AbsInputDir) || !filepath.IsAbs(p.AbsOutputDir) {
					t.Errorf("expected absolute paths, got %s and %s", p.AbsInputDir, p.AbsOutputDir)
				}
				if p.Compress.InputDir != p.AbsInputDir || p.Compress.OutputDir != p.AbsOutputDir {
					t.Error("expected compress plan to use the absolute paths")
				}
				if p.Compress.Quality != 85 || p.Compress.MaxSizeMB != 10 || p.Compress.Workers != 1 {
					t.Errorf("unexpected compress settings: %+v", p.Compress)
				}
				if p.AbsReportPath != "" {
					t.Errorf("expected no report path, got %s", p.AbsReportPath)
				}
				if p.Bundle.Enabled {
					t.Error("expected bundling to be disabled by default")
				}
				if p.Ghostscript.PDFSettings != "/prepress" {
					t.Errorf("expected /prepress, got %s", p.Ghostscript.PDFSettings)
				}
				if !p.Preflight.InputAccessible || !p.Preflight.PathNesting || !p.Preflight.OutputWritable {
					t.Errorf("expected all preflight checks, got %+v", p.Preflight)
				}
			},
		},
		{
			name: "Global flags propagate",
			configMod: func(c *config.Config) {
				c.Runtime.DryRun = true
				c.Runtime.Verbose = true
			},
			validate: func(t *testing.T, p *planner.CompressPlan) {
				if !p.DryRun || !p.Preflight.DryRun || !p.Compress.DryRun || !p.Bundle.DryRun {
					t.Error("expected dry run in every sub plan")
				}
				if !p.Bundle.Metrics {
					t.Error("expected verbose to enable bundle metrics")
				}
			},
		},
		{
			name: "Bundle and report",
			configMod: func(c *config.Config) {
				c.Bundle.Enabled = true
				c.Bundle.Format = bundle.TarGz
				c.Bundle.Level = bundle.Fastest
				c.Report = "report.json"
			},
			validate: func(t *testing.T, p *planner.CompressPlan) {
				if !p.Bundle.Enabled || p.Bundle.Format != bundle.TarGz || p.Bundle.Level != bundle.Fastest {
					t.Errorf("unexpected bundle plan: %+v", p.Bundle)
				}
				if !filepath.IsAbs(p.AbsReportPath) || filepath.Base(p.AbsReportPath) != "report.json" {
					t.Errorf("expected absolute report path, got %s", p.AbsReportPath)
				}
			},
		},
		{
			name: "Exclusions are copied",
			configMod: func(c *config.Config) {
				c.Exclude = []string{"drafts/"}
			},
			validate: func(t *testing.T, p *planner.CompressPlan) {
				if len(p.Compress.Exclude) != 1 || p.Compress.Exclude[0] != "drafts/" {
					t.Errorf("unexpected exclusions: %v", p.Compress.Exclude)
				}
			},
		},
		{
			name: "Invalid Bundle Format",
			configMod: func(c *config.Config) {
				c.Bundle.Format = bundle.Format("rar")
			},
			expectError: true,
		},
		{
			name: "Invalid Bundle Level",
			configMod: func(c *config.Config) {
				c.Bundle.Level = bundle.Level("max")
			},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.NewDefault()
			tt.configMod(&cfg)

			plan, err := planner.GenerateCompressPlan(cfg)
			if tt.expectError {
				if err == nil {
					t.Error("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.validate != nil {
				tt.validate(t, plan)
			}
		})
	}
}
