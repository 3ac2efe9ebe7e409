package cmd_test

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/paulschiretz/pgl-figcompress/cmd"
	"github.com/paulschiretz/pgl-figcompress/pkg/config"
	"github.com/paulschiretz/pgl-figcompress/pkg/plog"
)

func TestPromptForConfirmation(t *testing.T) {
	// Helper to mock stdin/stdout and run the function
	mockPrompt := func(input string, prompt string, defaultYes bool) (bool, string) {
		// Pipe for stdin
		rIn, wIn, _ := os.Pipe()
		// Pipe for stdout
		rOut, wOut, _ := os.Pipe()

		// Save original stdin/stdout
		origStdin := os.Stdin
		origStdout := os.Stdout
		defer func() {
			os.Stdin = origStdin
			os.Stdout = origStdout
		}()

		// Redirect
		os.Stdin = rIn
		os.Stdout = wOut

		// Write input
		go func() {
			_, _ = wIn.WriteString(input)
			_ = wIn.Close()
		}()

		// Run the function
		result := cmd.PromptForConfirmation(prompt, defaultYes)

		// Close writer to read output
		_ = wOut.Close()
		var buf bytes.Buffer
		_, _ = io.Copy(&buf, rOut)

		return result, buf.String()
	}

	tests := []struct {
		name       string
		input      string
		prompt     string
		defaultYes bool
		want       bool
		wantPrompt string
	}{
		{"Explicit Yes", "y\n", "Continue?", false, true, "Continue? [y/N]: "},
		{"Explicit No", "n\n", "Continue?", true, false, "Continue? [Y/n]: "},
		{"Default Yes (Empty)", "\n", "Sure?", true, true, "Sure? [Y/n]: "},
		{"Default No (Empty)", "\n", "Sure?", false, false, "Sure? [y/N]: "},
		{"Case Insensitive", "YES\n", "Go?", false, true, "Go? [y/N]: "},
		{"Whitespace Handling", "   y   \n", "Clean?", false, true, "Clean? [y/N]: "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, output := mockPrompt(tt.input, tt.prompt, tt.defaultYes)
			if got != tt.want {
				t.Errorf("promptForConfirmation() = %v, want %v", got, tt.want)
			}
			if !strings.Contains(output, tt.wantPrompt) {
				t.Errorf("Output = %q, want substring %q", output, tt.wantPrompt)
			}
		})
	}
}

func quietLog(t *testing.T) {
	t.Helper()
	plog.SetOutput(io.Discard)
	t.Cleanup(func() {
		plog.SetOutput(os.Stderr)
		plog.SetLevel(plog.LevelInfo)
	})
}

func TestRunInit(t *testing.T) {
	t.Run("Writes config from flags", func(t *testing.T) {
		quietLog(t)
		dir := t.TempDir()
		t.Chdir(dir)

		err := cmd.RunInit(context.Background(), map[string]interface{}{
			"quality": 60,
			"exclude": []string{"drafts/"},
		})
		if err != nil {
			t.Fatalf("RunInit failed: %v", err)
		}

		cfg, err := config.Load(dir)
		if err != nil {
			t.Fatalf("failed to load generated config: %v", err)
		}
		if cfg.Quality != 60 {
			t.Errorf("expected quality 60, got %d", cfg.Quality)
		}
		if len(cfg.Exclude) != 1 || cfg.Exclude[0] != "drafts/" {
			t.Errorf("unexpected exclusions: %v", cfg.Exclude)
		}
		// Paths stay relative to the project directory.
		if cfg.Input != filepath.Join("figures", "high-res") {
			t.Errorf("expected relative input path, got %s", cfg.Input)
		}
	})

	t.Run("Keeps existing settings", func(t *testing.T) {
		quietLog(t)
		dir := t.TempDir()
		t.Chdir(dir)

		existing := config.NewDefault()
		existing.MaxSizeMB = 3
		if err := config.Generate(dir, existing); err != nil {
			t.Fatalf("failed to write existing config: %v", err)
		}

		if err := cmd.RunInit(context.Background(), map[string]interface{}{"quality": 50}); err != nil {
			t.Fatalf("RunInit failed: %v", err)
		}
		cfg, err := config.Load(dir)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}
		if cfg.MaxSizeMB != 3 || cfg.Quality != 50 {
			t.Errorf("expected max size 3 and quality 50, got %v and %d", cfg.MaxSizeMB, cfg.Quality)
		}
	})

	t.Run("Default with force overwrites", func(t *testing.T) {
		quietLog(t)
		dir := t.TempDir()
		t.Chdir(dir)

		existing := config.NewDefault()
		existing.Quality = 20
		if err := config.Generate(dir, existing); err != nil {
			t.Fatalf("failed to write existing config: %v", err)
		}

		if err := cmd.RunInit(context.Background(), map[string]interface{}{"default": true, "force": true}); err != nil {
			t.Fatalf("RunInit failed: %v", err)
		}
		cfg, err := config.Load(dir)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}
		if cfg.Quality != config.NewDefault().Quality {
			t.Errorf("expected default quality, got %d", cfg.Quality)
		}
	})

	t.Run("Invalid settings are rejected", func(t *testing.T) {
		quietLog(t)
		dir := t.TempDir()
		t.Chdir(dir)

		if err := cmd.RunInit(context.Background(), map[string]interface{}{"quality": 101}); err == nil {
			t.Fatal("expected an error for quality 101")
		}
		if _, err := os.Stat(filepath.Join(dir, config.ConfigFileName)); !os.IsNotExist(err) {
			t.Error("expected no config file to be written")
		}
	})

	t.Run("Dry run writes nothing", func(t *testing.T) {
		quietLog(t)
		dir := t.TempDir()
		t.Chdir(dir)

		if err := cmd.RunInit(context.Background(), map[string]interface{}{"dry-run": true}); err != nil {
			t.Fatalf("RunInit failed: %v", err)
		}
		if _, err := os.Stat(filepath.Join(dir, config.ConfigFileName)); !os.IsNotExist(err) {
			t.Error("expected no config file in dry run")
		}
	})

	t.Run("Warns about missing input", func(t *testing.T) {
		quietLog(t)
		var buf bytes.Buffer
		plog.SetOutput(&buf)
		t.Chdir(t.TempDir())

		if err := cmd.RunInit(context.Background(), map[string]interface{}{"input": "raw"}); err != nil {
			t.Fatalf("RunInit failed: %v", err)
		}
		if !strings.Contains(buf.String(), "Input directory does not exist yet") {
			t.Errorf("expected missing input warning, got: %s", buf.String())
		}
	})
}
