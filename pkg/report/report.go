// Package report writes a machine-readable JSON record of a compression run.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/paulschiretz/pgl-figcompress/pkg/buildinfo"
	"github.com/paulschiretz/pgl-figcompress/pkg/figcompress"
	"github.com/paulschiretz/pgl-figcompress/pkg/util"
)

// Content is the JSON document written for a run.
type Content struct {
	RunID        string    `json:"runId"`
	Version      string    `json:"version"`
	TimestampUTC time.Time `json:"timestampUTC"`
	Settings     Settings  `json:"settings"`
	Files        []File    `json:"files"`
	Summary      Summary   `json:"summary"`
	Bundle       string    `json:"bundle,omitempty"`
}

// Settings are the plan values that influence the outputs.
type Settings struct {
	InputDir  string  `json:"inputDir"`
	OutputDir string  `json:"outputDir"`
	Quality   int     `json:"quality"`
	MaxSizeMB float64 `json:"maxSizeMB"`
	Workers   int     `json:"workers"`
}

// File is the report entry of one processed figure.
type File struct {
	Path            string              `json:"path"`
	Outcome         figcompress.Outcome `json:"outcome"`
	OriginalBytes   int64               `json:"originalBytes"`
	CompressedBytes int64               `json:"compressedBytes,omitempty"`
	ReductionPct    float64             `json:"reductionPct"`
	Oversized       bool                `json:"oversized,omitempty"`
	Error           string              `json:"error,omitempty"`
	Diagnostic      string              `json:"diagnostic,omitempty"`
}

// Summary mirrors figcompress.RunSummary.
type Summary struct {
	FilesFound           int     `json:"filesFound"`
	FilesSucceeded       int     `json:"filesSucceeded"`
	FilesCompressed      int     `json:"filesCompressed"`
	FilesCopied          int     `json:"filesCopied"`
	FilesFailed          int     `json:"filesFailed"`
	FilesOversized       int     `json:"filesOversized"`
	TotalOriginalBytes   int64   `json:"totalOriginalBytes"`
	TotalCompressedBytes int64   `json:"totalCompressedBytes"`
	ReductionPct         float64 `json:"reductionPct"`
}

// New builds the report content for a finished run.
func New(plan figcompress.Plan, summary figcompress.RunSummary, timestampUTC time.Time) *Content {
	c := &Content{
		RunID:        uuid.NewString(),
		Version:      buildinfo.Version,
		TimestampUTC: timestampUTC,
		Settings: Settings{
			InputDir:  plan.InputDir,
			OutputDir: plan.OutputDir,
			Quality:   plan.Quality,
			MaxSizeMB: plan.MaxSizeMB,
			Workers:   plan.Workers,
		},
		Files: make([]File, 0, len(summary.Records)),
		Summary: Summary{
			FilesFound:           summary.FilesFound,
			FilesSucceeded:       summary.FilesSucceeded,
			FilesCompressed:      summary.FilesCompressed,
			FilesCopied:          summary.FilesCopied,
			FilesFailed:          summary.FilesFailed,
			FilesOversized:       summary.FilesOversized,
			TotalOriginalBytes:   summary.TotalOriginalSize,
			TotalCompressedBytes: summary.TotalCompressedSize,
			ReductionPct:         summary.ReductionPercent(),
		},
	}

	for _, rec := range summary.Records {
		f := File{
			Path:          rec.RelPath,
			Outcome:       rec.Outcome,
			OriginalBytes: rec.OriginalSize,
			ReductionPct:  rec.ReductionPercent(),
			Oversized:     rec.Oversized,
			Diagnostic:    rec.Diagnostic,
		}
		if rec.HasOutput {
			f.CompressedBytes = rec.CompressedSize
		}
		if rec.Err != nil {
			f.Error = rec.Err.Error()
		}
		c.Files = append(c.Files, f)
	}
	return c
}

// Write stores content as indented JSON at path, creating parent directories.
func Write(path string, content *Content) error {
	jsonData, err := json.MarshalIndent(content, "", "  ")
	if err != nil {
		return fmt.Errorf("could not marshal report: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), util.UserWritableDirPerms); err != nil {
		return fmt.Errorf("could not create report directory: %w", err)
	}
	if err := os.WriteFile(path, jsonData, util.UserWritableFilePerms); err != nil {
		return fmt.Errorf("could not write report %s: %w", path, err)
	}
	return nil
}

// Read parses a report written by Write.
func Read(path string) (Content, error) {
	f, err := os.Open(path)
	if err != nil {
		return Content{}, err
	}
	defer f.Close()

	var content Content
	if err := json.NewDecoder(f).Decode(&content); err != nil {
		return Content{}, fmt.Errorf("could not parse report %s: %w", path, err)
	}
	return content, nil
}
