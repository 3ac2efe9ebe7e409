package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/paulschiretz/pgl-figcompress/pkg/buildinfo"
	"github.com/paulschiretz/pgl-figcompress/pkg/config"
	"github.com/paulschiretz/pgl-figcompress/pkg/flagparse"
	"github.com/paulschiretz/pgl-figcompress/pkg/plog"
	"github.com/paulschiretz/pgl-figcompress/pkg/util"
)

// RunInit handles the logic for the 'init' command. It writes the
// configuration file into the current working directory.
func RunInit(ctx context.Context, flagMap map[string]interface{}) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	absDir, err := filepath.Abs(".")
	if err != nil {
		return fmt.Errorf("could not determine working directory: %w", err)
	}
	absConfigFilePath := filepath.Join(absDir, config.ConfigFileName)

	var baseConfig config.Config

	// Check if init-default is set
	initDefault := false
	if v, ok := flagMap["default"]; ok {
		initDefault = v.(bool)
	}

	if initDefault {
		// Check for force flag to bypass confirmation
		force := false
		if f, ok := flagMap["force"]; ok {
			force = f.(bool)
		}

		if !force {
			if _, err := os.Stat(absConfigFilePath); err == nil {
				fmt.Printf("WARNING: Configuration file already exists at %s.\n", absConfigFilePath)
				fmt.Printf("Using -default will overwrite it with default values. All custom settings will be lost.\n")
				if !PromptForConfirmation("Are you sure you want to continue?", false) {
					plog.Info(buildinfo.Name + " init operation canceled.")
					return nil
				}
			}
		}
		baseConfig = config.NewDefault()
	} else {
		// Try to load existing config to preserve settings.
		// If it fails (e.g. corrupt JSON), we fall back to defaults.
		baseConfig, err = config.Load(absDir)
		if err != nil {
			plog.Warn("Could not load existing configuration, starting with defaults.", "reason", err)
			baseConfig = config.NewDefault()
		}
	}

	// Create a config from base merged with user flags.
	runConfig := config.MergeConfigWithFlags(flagparse.Init, baseConfig, flagMap)

	// The file keeps the paths as given so the project stays relocatable,
	// validate a copy.
	toValidate := runConfig
	if err := toValidate.Validate(); err != nil {
		return err
	}

	// A fresh project may not have its figures yet, only note it.
	if info, err := os.Stat(toValidate.Input); err != nil || !info.IsDir() {
		plog.Warn("Input directory does not exist yet, compress will fail until it does", "input", toValidate.Input)
	}
	if toValidate.Report != "" {
		if inside, _ := util.IsSubPath(toValidate.Output, toValidate.Report); inside {
			plog.Warn("Report is written inside the output directory and will be part of the next bundle", "report", toValidate.Report)
		}
	}

	if runConfig.Runtime.DryRun {
		plog.Info("[DRY RUN] Would write configuration", "path", absConfigFilePath)
		return nil
	}

	if err := config.Generate(absDir, runConfig); err != nil {
		return fmt.Errorf("failed to generate config file: %w", err)
	}

	plog.Info(buildinfo.Name+" configuration initialized.", "path", absConfigFilePath)
	return nil
}

// PromptForConfirmation prompts the user for a yes/no response.
func PromptForConfirmation(prompt string, defaultYes bool) bool {
	suffix := "[y/N]"
	if defaultYes {
		suffix = "[Y/n]"
	}
	fmt.Printf("%s %s: ", prompt, suffix)

	var response string
	_, _ = fmt.Scanln(&response)
	response = strings.ToLower(strings.TrimSpace(response))

	if response == "" {
		return defaultYes
	}
	return response == "y" || response == "yes"
}
