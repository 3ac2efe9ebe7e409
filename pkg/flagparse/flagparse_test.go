package flagparse

import (
	"errors"
	"flag"
	"os"
	"testing"
)

// equalSlices is a helper to compare two string slices for equality.
func equalSlices(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i, v := range a {
		if v != b[i] {
			return false
		}
	}
	return true
}

// silenceStderr discards the usage output the flag package prints on errors.
func silenceStderr(t *testing.T) {
	t.Helper()
	devNull, err := os.OpenFile(os.DevNull, os.O_WRONLY, 0)
	if err != nil {
		t.Fatalf("failed to open %s: %v", os.DevNull, err)
	}
	orig := os.Stderr
	os.Stderr = devNull
	t.Cleanup(func() {
		os.Stderr = orig
		devNull.Close()
	})
}

func TestParseExcludeList(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected []string
	}{
		{"Simple List", "a,b,c", []string{"a", "b", "c"}},
		{"List with Spaces", " a , b, c ", []string{"a", "b", "c"}},
		{"Empty String", "", nil},
		{"Quoted Item with Spaces", "'item with spaces',b", []string{"item with spaces", "b"}},
		{"Quoted Item with Comma", "'a,b',c", []string{"a,b", "c"}},
		{"Mixed Quoted and Unquoted", "a,'b,c',d", []string{"a", "b,c", "d"}},
		{"Unmatched Quote", "'a,b", []string{"a,b"}},
		{"Double Quoted Item with Spaces", "\"item with spaces\",b", []string{"item with spaces", "b"}},
		{"Nested Quotes", "'a \"b\" c',d", []string{"a \"b\" c", "d"}},
		{"Windows Path with Backslashes", `drafts\old,scratch_*`, []string{`drafts\old`, "scratch_*"}},
		{"Directory Pattern", "drafts/,*.bak", []string{"drafts/", "*.bak"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result := ParseExcludeList(tc.input)

			if len(tc.expected) == 0 && len(result) == 0 {
				return
			}

			if !equalSlices(result, tc.expected) {
				t.Errorf("expected %v, but got %v", tc.expected, result)
			}
		})
	}
}

func TestParseCommand(t *testing.T) {
	testCases := []struct {
		input     string
		expected  Command
		expectErr bool
	}{
		{"compress", Compress, false},
		{"init", Init, false},
		{"version", Version, false},
		{"none", None, true},
		{"backup", None, true},
	}
	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			got, err := ParseCommand(tc.input)
			if tc.expectErr != (err != nil) {
				t.Fatalf("expected error %v, got %v", tc.expectErr, err)
			}
			if got != tc.expected {
				t.Errorf("expected %v, got %v", tc.expected, got)
			}
		})
	}
}

func TestParse(t *testing.T) {
	t.Run("No arguments runs compress with defaults", func(t *testing.T) {
		cmd, flagMap, err := Parse(nil)
		if err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		if cmd != Compress {
			t.Errorf("expected compress, got %v", cmd)
		}
		if len(flagMap) != 0 {
			t.Errorf("expected no flags to be set, got %v", flagMap)
		}
	})

	t.Run("Flags without command imply compress", func(t *testing.T) {
		cmd, flagMap, err := Parse([]string{"-input=raw", "--output", "out"})
		if err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		if cmd != Compress {
			t.Errorf("expected compress, got %v", cmd)
		}
		if flagMap["input"] != "raw" || flagMap["output"] != "out" {
			t.Errorf("unexpected flag map: %v", flagMap)
		}
	})

	t.Run("Shorthands map to long names", func(t *testing.T) {
		_, flagMap, err := Parse([]string{"compress", "-i", "raw", "-o", "out", "-q", "60", "-m", "2.5", "-v"})
		if err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		if flagMap["input"] != "raw" || flagMap["output"] != "out" {
			t.Errorf("unexpected paths: %v", flagMap)
		}
		if q, ok := flagMap["quality"].(int); !ok || q != 60 {
			t.Errorf("expected quality 60, got %v (%T)", flagMap["quality"], flagMap["quality"])
		}
		if m, ok := flagMap["max-size"].(float64); !ok || m != 2.5 {
			t.Errorf("expected max-size 2.5, got %v (%T)", flagMap["max-size"], flagMap["max-size"])
		}
		if v, ok := flagMap["verbose"].(bool); !ok || !v {
			t.Errorf("expected verbose true, got %v", flagMap["verbose"])
		}
		for _, short := range []string{"i", "o", "q", "m", "v"} {
			if _, ok := flagMap[short]; ok {
				t.Errorf("shorthand %q leaked into flag map", short)
			}
		}
	})

	t.Run("Unset flags are absent", func(t *testing.T) {
		_, flagMap, err := Parse([]string{"compress", "-workers=4"})
		if err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		if _, ok := flagMap["quality"]; ok {
			t.Error("expected quality to be absent when not set")
		}
		if w, ok := flagMap["workers"].(int); !ok || w != 4 {
			t.Errorf("expected workers 4, got %v", flagMap["workers"])
		}
	})

	t.Run("Exclude and bundle flags", func(t *testing.T) {
		args := []string{"-exclude=drafts/,scratch_*", "-bundle", "-bundle-format=tar.zst", "-bundle-level=best", "-report=run.json", "-gs-path=/opt/gs", "-pdf-settings=/ebook", "-dry-run"}
		_, flagMap, err := Parse(args)
		if err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		if !equalSlices(flagMap["exclude"].([]string), []string{"drafts/", "scratch_*"}) {
			t.Errorf("unexpected exclude list: %v", flagMap["exclude"])
		}
		if flagMap["bundle"] != true || flagMap["bundle-format"] != "tar.zst" || flagMap["bundle-level"] != "best" {
			t.Errorf("unexpected bundle flags: %v", flagMap)
		}
		if flagMap["report"] != "run.json" || flagMap["gs-path"] != "/opt/gs" || flagMap["pdf-settings"] != "/ebook" {
			t.Errorf("unexpected flags: %v", flagMap)
		}
		if flagMap["dry-run"] != true {
			t.Errorf("expected dry-run, got %v", flagMap["dry-run"])
		}
	})

	t.Run("Init accepts force and default", func(t *testing.T) {
		cmd, flagMap, err := Parse([]string{"init", "-force", "-default", "-quality=70"})
		if err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		if cmd != Init {
			t.Errorf("expected init, got %v", cmd)
		}
		if flagMap["force"] != true || flagMap["default"] != true || flagMap["quality"] != 70 {
			t.Errorf("unexpected flag map: %v", flagMap)
		}
	})

	t.Run("Version", func(t *testing.T) {
		cmd, _, err := Parse([]string{"version"})
		if err != nil || cmd != Version {
			t.Errorf("expected version command, got %v, %v", cmd, err)
		}
	})

	t.Run("Unknown command", func(t *testing.T) {
		if _, _, err := Parse([]string{"shrink"}); err == nil {
			t.Error("expected error for unknown command")
		}
	})

	t.Run("Force is not a compress flag", func(t *testing.T) {
		silenceStderr(t)
		if _, _, err := Parse([]string{"compress", "-force"}); err == nil {
			t.Error("expected error for init-only flag")
		}
	})

	t.Run("Invalid value", func(t *testing.T) {
		silenceStderr(t)
		if _, _, err := Parse([]string{"-quality=high"}); err == nil {
			t.Error("expected error for non-numeric quality")
		}
	})

	t.Run("Stray arguments", func(t *testing.T) {
		if _, _, err := Parse([]string{"compress", "figures"}); err == nil {
			t.Error("expected error for positional arguments")
		}
	})

	t.Run("Subcommand help", func(t *testing.T) {
		silenceStderr(t)
		_, _, err := Parse([]string{"compress", "-help"})
		if !errors.Is(err, flag.ErrHelp) {
			t.Errorf("expected flag.ErrHelp, got %v", err)
		}
	})

	t.Run("Top level help", func(t *testing.T) {
		silenceStderr(t)
		cmd, flagMap, err := Parse([]string{"help"})
		if err != nil || cmd != None || flagMap != nil {
			t.Errorf("expected usage only, got %v, %v, %v", cmd, flagMap, err)
		}
	})
}
