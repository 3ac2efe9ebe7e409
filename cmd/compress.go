package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/paulschiretz/pgl-figcompress/pkg/buildinfo"
	"github.com/paulschiretz/pgl-figcompress/pkg/bundle"
	"github.com/paulschiretz/pgl-figcompress/pkg/config"
	"github.com/paulschiretz/pgl-figcompress/pkg/engine"
	"github.com/paulschiretz/pgl-figcompress/pkg/flagparse"
	"github.com/paulschiretz/pgl-figcompress/pkg/planner"
	"github.com/paulschiretz/pgl-figcompress/pkg/plog"
	"github.com/paulschiretz/pgl-figcompress/pkg/preflight"
)

// RunCompress handles the logic for the main compress execution. The
// configuration file is looked up in the current working directory.
func RunCompress(ctx context.Context, flagMap map[string]interface{}) error {
	return runCompress(ctx, flagMap, nil)
}

// runCompress lets tests replace the PDF rewriter.
func runCompress(ctx context.Context, flagMap map[string]interface{}, newRewriter engine.RewriterFactory) error {
	// Load config from the working directory, or use defaults if not found.
	loadedConfig, err := config.Load(".")
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Merge the flag values over the loaded config to get the final run config.
	runConfig := config.MergeConfigWithFlags(flagparse.Compress, loadedConfig, flagMap)

	// CRITICAL: Validate the config for the run
	if err := runConfig.Validate(); err != nil {
		return err
	}

	// Set the global log level based on the final configuration.
	plog.SetLevel(effectiveLevel(runConfig))

	// Log the Summary
	runConfig.LogSummary()

	// Create the runner and feed it with our leaf workers
	runner := engine.NewRunner(
		preflight.NewValidator(),
		bundle.NewBundler(runConfig.Performance.BufferSizeKB),
		newRewriter,
	)

	// Get the Plan
	compressPlan, err := planner.GenerateCompressPlan(runConfig)
	if err != nil {
		return err
	}

	// Execute the plan
	startTime := time.Now()
	_, err = runner.ExecuteCompress(ctx, compressPlan)
	duration := time.Since(startTime).Round(time.Millisecond)
	if err != nil {
		return err // The error will be logged with full details by main()
	}
	plog.Info(buildinfo.Name+" finished successfully.", "duration", duration)
	return nil
}

// effectiveLevel lowers the configured level to NOTICE for verbose runs so
// the per-file lines are shown.
func effectiveLevel(cfg config.Config) slog.Level {
	level := plog.LevelFromString(cfg.LogLevel)
	if cfg.Runtime.Verbose && level > plog.LevelNotice {
		return plog.LevelNotice
	}
	return level
}
