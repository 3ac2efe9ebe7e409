package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/paulschiretz/pgl-figcompress/pkg/buildinfo"
	"github.com/paulschiretz/pgl-figcompress/pkg/bundle"
	"github.com/paulschiretz/pgl-figcompress/pkg/figcompress"
	"github.com/paulschiretz/pgl-figcompress/pkg/flagparse"
	"github.com/paulschiretz/pgl-figcompress/pkg/plog"
	"github.com/paulschiretz/pgl-figcompress/pkg/util"
)

// ConfigFileName is the name of the configuration file.
const ConfigFileName = "pgl-figcompress.config.json"

type GhostscriptConfig struct {
	Path               string `json:"path"`
	PDFSettings        string `json:"pdfSettings"`
	CompatibilityLevel string `json:"compatibilityLevel"`
}

type BundleConfig struct {
	Enabled bool          `json:"enabled"`
	Format  bundle.Format `json:"format"`
	Level   bundle.Level  `json:"level"`
}

type PerformanceConfig struct {
	Workers      int `json:"workers"`
	BufferSizeKB int `json:"bufferSizeKB"`
}

type RuntimeConfig struct {
	Verbose bool
	DryRun  bool
}

type Config struct {
	Version     string            `json:"version"`
	Input       string            `json:"input"`
	Output      string            `json:"output"`
	Quality     int               `json:"quality"`
	MaxSizeMB   float64           `json:"maxSizeMB"`
	LogLevel    string            `json:"logLevel"`
	Exclude     []string          `json:"exclude"`
	Report      string            `json:"report"`
	Runtime     RuntimeConfig     `json:"-"` // Never added to config file
	Performance PerformanceConfig `json:"performance"`
	Ghostscript GhostscriptConfig `json:"ghostscript"`
	Bundle      BundleConfig      `json:"bundle"`
}

// NewDefault creates and returns a Config struct with sensible default values.
func NewDefault() Config {
	return Config{
		Version:   buildinfo.Version,
		Input:     filepath.Join("figures", "high-res"),
		Output:    filepath.Join("figures", "compressed"),
		Quality:   85,
		MaxSizeMB: 10,
		LogLevel:  "info",
		Exclude:   []string{},
		Report:    "", // No report unless asked for.
		Performance: PerformanceConfig{
			Workers:      1,   // Sequential by default, per-file log order is then trivially stable.
			BufferSizeKB: 256, // Only used for bundling.
		},
		Ghostscript: GhostscriptConfig{
			Path:               "", // Looked up in PATH.
			PDFSettings:        "/prepress",
			CompatibilityLevel: "1.4",
		},
		Bundle: BundleConfig{
			Enabled: false,
			Format:  bundle.Zip,
			Level:   bundle.Default,
		},
	}
}

// Load attempts to load a configuration from "pgl-figcompress.config.json" in dir.
// If the file doesn't exist, it returns the default config without an error.
// If the file exists but fails to parse, it returns an error and a zero-value config.
func Load(dir string) (Config, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return Config{}, fmt.Errorf("could not determine absolute path for load directory %s: %w", dir, err)
	}

	configPath := filepath.Join(absDir, ConfigFileName)

	file, err := os.Open(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return NewDefault(), nil
		}
		return Config{}, fmt.Errorf("error opening config file %s: %w", configPath, err)
	}
	defer file.Close()

	plog.Info("Loading configuration", "path", configPath)
	// Start with default values, then overwrite with the file's content.
	// Fields missing from the file keep their defaults.
	config := NewDefault()
	decoder := json.NewDecoder(file)
	if err := decoder.Decode(&config); err != nil {
		return Config{}, fmt.Errorf("error parsing config file %s: %w", configPath, err)
	}

	if config.Version != buildinfo.Version {
		config.Version = buildinfo.Version
	}
	return config, nil
}

// Generate creates or overwrites a pgl-figcompress.config.json file in dir.
func Generate(dir string, configToGenerate Config) error {
	configPath := filepath.Join(dir, ConfigFileName)
	jsonData, err := json.MarshalIndent(configToGenerate, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config to JSON: %w", err)
	}

	if err := os.WriteFile(configPath, jsonData, util.UserWritableFilePerms); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	plog.Info("Successfully saved config file", "path", configPath)
	return nil
}

// Validate checks the configuration for logical errors and inconsistencies
// and canonicalizes the input and output paths. The input directory is not
// required to exist here; the preflight checks report that case.
func (c *Config) Validate() error {
	if c.Input == "" {
		return fmt.Errorf("input path cannot be empty")
	}
	if c.Output == "" {
		return fmt.Errorf("output path cannot be empty")
	}

	var err error
	c.Input, err = util.ExpandPath(c.Input)
	if err != nil {
		return fmt.Errorf("could not expand input path: %w", err)
	}
	c.Input = filepath.Clean(c.Input)

	c.Output, err = util.ExpandPath(c.Output)
	if err != nil {
		return fmt.Errorf("could not expand output path: %w", err)
	}
	c.Output = filepath.Clean(c.Output)

	if c.Report != "" {
		c.Report, err = util.ExpandPath(c.Report)
		if err != nil {
			return fmt.Errorf("could not expand report path: %w", err)
		}
		c.Report = filepath.Clean(c.Report)
	}

	if c.Quality < 0 || c.Quality > 100 {
		return fmt.Errorf("quality must be between 0 and 100, got %d", c.Quality)
	}
	if c.MaxSizeMB <= 0 {
		return fmt.Errorf("maxSizeMB must be greater than 0")
	}

	if c.Performance.Workers < 1 {
		return fmt.Errorf("performance.workers must be at least 1")
	}
	if c.Performance.BufferSizeKB <= 0 {
		return fmt.Errorf("performance.bufferSizeKB must be greater than 0")
	}

	if c.Ghostscript.PDFSettings != "" && !strings.HasPrefix(c.Ghostscript.PDFSettings, "/") {
		return fmt.Errorf("ghostscript.pdfSettings must start with '/', e.g. '/prepress'")
	}

	if _, err := bundle.ParseFormat(c.Bundle.Format.String()); err != nil {
		return fmt.Errorf("bundle.format: %w", err)
	}
	if _, err := bundle.ParseLevel(string(c.Bundle.Level)); err != nil {
		return fmt.Errorf("bundle.level: %w", err)
	}

	if err := validateGlobPatterns("exclude", c.Exclude); err != nil {
		return err
	}
	return nil
}

// LogSummary prints a user-friendly summary of the configuration.
func (c *Config) LogSummary() {
	logArgs := []interface{}{
		"input", c.Input,
		"output", c.Output,
		"quality", c.Quality,
		"max_size_mb", c.MaxSizeMB,
		"log_level", c.LogLevel,
		"verbose", c.Runtime.Verbose,
		"dry_run", c.Runtime.DryRun,
		"workers", c.Performance.Workers,
		"pdf_settings", c.Ghostscript.PDFSettings,
	}
	if c.Ghostscript.Path != "" {
		logArgs = append(logArgs, "gs_path", c.Ghostscript.Path)
	}
	if c.Bundle.Enabled {
		bundleSummary := fmt.Sprintf("enabled (f:%s l:%s)", c.Bundle.Format, c.Bundle.Level)
		logArgs = append(logArgs, "bundle", bundleSummary)
	}
	if c.Report != "" {
		logArgs = append(logArgs, "report", c.Report)
	}
	if len(c.Exclude) > 0 {
		logArgs = append(logArgs, "exclude", strings.Join(c.Exclude, ", "))
	}
	plog.Info("Configuration loaded", logArgs...)
}

// validateGlobPatterns checks if a list of strings are valid exclusion patterns.
func validateGlobPatterns(fieldName string, patterns []string) error {
	for _, pattern := range patterns {
		if err := figcompress.ValidatePattern(pattern); err != nil {
			return fmt.Errorf("invalid glob pattern for %s: %q - %w", fieldName, pattern, err)
		}
	}
	return nil
}

// MergeConfigWithFlags overlays the configuration values from flags on top of a base
// configuration. It iterates over the setFlags map, which contains only the flags
// explicitly provided by the user on the command line.
func MergeConfigWithFlags(command flagparse.Command, base Config, setFlags map[string]any) Config {
	merged := base

	for name, value := range setFlags {
		switch name {
		case "input":
			merged.Input = value.(string)
		case "output":
			merged.Output = value.(string)
		case "quality":
			merged.Quality = value.(int)
		case "max-size":
			merged.MaxSizeMB = value.(float64)
		case "verbose":
			merged.Runtime.Verbose = value.(bool)
		case "log-level":
			merged.LogLevel = value.(string)
		case "dry-run":
			merged.Runtime.DryRun = value.(bool)
		case "workers":
			merged.Performance.Workers = value.(int)
		case "buffer-size-kb":
			merged.Performance.BufferSizeKB = value.(int)
		case "exclude":
			merged.Exclude = value.([]string)
		case "gs-path":
			merged.Ghostscript.Path = value.(string)
		case "pdf-settings":
			merged.Ghostscript.PDFSettings = value.(string)
		case "bundle":
			merged.Bundle.Enabled = value.(bool)
		case "bundle-format":
			merged.Bundle.Format = bundle.Format(value.(string))
		case "bundle-level":
			merged.Bundle.Level = bundle.Level(value.(string))
		case "report":
			merged.Report = value.(string)
		default:
			plog.Debug("unhandled flag in MergeConfigWithFlags", "command", command, "flag", name)
		}
	}
	return merged
}
