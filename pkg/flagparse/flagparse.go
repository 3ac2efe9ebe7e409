package flagparse

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/paulschiretz/pgl-figcompress/pkg/buildinfo"
)

// cliFlags holds pointers to all possible command-line flags.
// Fields are pointers so we can distinguish between "not registered for this command" (nil)
// and "registered but not set by user" (non-nil pointer to zero value).
type cliFlags struct {
	// Global
	LogLevel *string
	DryRun   *bool
	Verbose  *bool

	// Shared: Compress / Init
	Input        *string
	Output       *string
	Quality      *int
	MaxSize      *float64
	Workers      *int
	BufferSizeKB *int
	Exclude      *string
	Report       *string

	GSPath      *string
	PDFSettings *string

	BundleEnabled *bool
	BundleFormat  *string
	BundleLevel   *string

	// Init specific
	Force   *bool
	Default *bool
}

// shorthands maps the single letter aliases to their long flag names.
var shorthands = map[string]string{
	"i": "input",
	"o": "output",
	"q": "quality",
	"m": "max-size",
	"v": "verbose",
}

func registerGlobalFlags(fs *flag.FlagSet, f *cliFlags) {
	f.LogLevel = fs.String("log-level", "info", "Set the logging level: 'debug', 'notice', 'info', 'warn', 'error'.")
	f.DryRun = fs.Bool("dry-run", false, "Show what would be done without making any changes.")
	f.Verbose = fs.Bool("verbose", false, "Log a line for every processed figure.")
	fs.BoolVar(f.Verbose, "v", false, "Shorthand for -verbose.")
}

func registerCompressFlags(fs *flag.FlagSet, f *cliFlags) {
	f.Input = fs.String("input", filepath.Join("figures", "high-res"), "Input directory containing the high-resolution figures.")
	fs.StringVar(f.Input, "i", filepath.Join("figures", "high-res"), "Shorthand for -input.")
	f.Output = fs.String("output", filepath.Join("figures", "compressed"), "Output directory for the compressed figures.")
	fs.StringVar(f.Output, "o", filepath.Join("figures", "compressed"), "Shorthand for -output.")
	f.Quality = fs.Int("quality", 85, "JPEG quality (0-100).")
	fs.IntVar(f.Quality, "q", 85, "Shorthand for -quality.")
	f.MaxSize = fs.Float64("max-size", 10, "Maximum acceptable output size per figure in MB.")
	fs.Float64Var(f.MaxSize, "m", 10, "Shorthand for -max-size.")

	f.Workers = fs.Int("workers", 1, "Number of figures processed in parallel.")
	f.BufferSizeKB = fs.Int("buffer-size-kb", 0, "Size of the I/O buffer in kilobytes used for bundling.")
	f.Exclude = fs.String("exclude", "", "Comma-separated list of case-insensitive patterns to skip (supports glob patterns, 'dir/' for directories).")
	f.Report = fs.String("report", "", "Write a JSON report of the run to this path.")

	f.GSPath = fs.String("gs-path", "", "Path to the Ghostscript executable. Looked up in PATH when empty.")
	f.PDFSettings = fs.String("pdf-settings", "/prepress", "Ghostscript PDFSETTINGS preset: '/screen', '/ebook', '/printer', '/prepress', '/default'.")

	f.BundleEnabled = fs.Bool("bundle", false, "Pack the output directory into a single archive.")
	f.BundleFormat = fs.String("bundle-format", "", "Bundle format: 'zip', 'tar.gz', or 'tar.zst'.")
	f.BundleLevel = fs.String("bundle-level", "", "Bundle compression level: 'default', 'fastest', 'better', 'best'.")
}

func registerInitFlags(fs *flag.FlagSet, f *cliFlags) {
	// Init supports all compress flags (to generate config) plus 'force' and 'default'.
	registerCompressFlags(fs, f)
	f.Force = fs.Bool("force", false, "Bypass confirmation prompts.")
	f.Default = fs.Bool("default", false, "Overwrite existing configuration with defaults.")
}

// Parse parses the provided arguments (usually os.Args[1:]) and returns the command and
// a map of the flags the user set explicitly. Without a command name, or when the first
// argument is a flag, the compress command is assumed.
func Parse(args []string) (Command, map[string]interface{}, error) {
	command := Compress
	if len(args) > 0 {
		cmdStr := strings.ToLower(args[0])

		if cmdStr == "help" || cmdStr == "-h" || cmdStr == "-help" || cmdStr == "--help" {
			fs := flag.NewFlagSet("main", flag.ContinueOnError)
			printTopLevelUsage(fs)
			return None, nil, nil
		}

		if !strings.HasPrefix(cmdStr, "-") {
			var err error
			command, err = ParseCommand(cmdStr)
			if err != nil {
				return None, nil, err
			}
			args = args[1:]
		}
	}

	f := &cliFlags{}

	switch command {
	case Init:
		fs := flag.NewFlagSet(command.String(), flag.ContinueOnError)
		registerGlobalFlags(fs, f)
		registerInitFlags(fs, f)

		fs.Usage = func() {
			printSubcommandUsage(command, "Write a pgl-figcompress.config.json with the given settings into the current directory.", fs)
		}

		if err := fs.Parse(args); err != nil {
			return Init, nil, err
		}
		flagMap, err := flagsToMap(fs, f)
		return Init, flagMap, err

	case Compress:
		fs := flag.NewFlagSet(command.String(), flag.ContinueOnError)
		registerGlobalFlags(fs, f)
		registerCompressFlags(fs, f)

		fs.Usage = func() {
			printSubcommandUsage(command, "Compress every figure of the input directory into the output directory.", fs)
		}

		if err := fs.Parse(args); err != nil {
			return command, nil, err
		}
		if fs.NArg() > 0 {
			return command, nil, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
		}
		flagMap, err := flagsToMap(fs, f)
		return command, flagMap, err

	case Version:
		return command, nil, nil

	default:
		return None, nil, fmt.Errorf("unknown command: %s", command)
	}
}

func flagsToMap(fs *flag.FlagSet, f *cliFlags) (map[string]interface{}, error) {
	// Create a map of the flags that were explicitly set by the user, along with their values.
	// This map is used to selectively override the base configuration. Shorthands are
	// recorded under their long name.
	usedFlags := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) {
		if long, ok := shorthands[f.Name]; ok {
			usedFlags[long] = true
			return
		}
		usedFlags[f.Name] = true
	})

	flagMap := make(map[string]any)

	addIfUsed(flagMap, usedFlags, "log-level", f.LogLevel)
	addIfUsed(flagMap, usedFlags, "dry-run", f.DryRun)
	addIfUsed(flagMap, usedFlags, "verbose", f.Verbose)

	addIfUsed(flagMap, usedFlags, "input", f.Input)
	addIfUsed(flagMap, usedFlags, "output", f.Output)
	addIfUsed(flagMap, usedFlags, "quality", f.Quality)
	addIfUsed(flagMap, usedFlags, "max-size", f.MaxSize)
	addIfUsed(flagMap, usedFlags, "workers", f.Workers)
	addIfUsed(flagMap, usedFlags, "buffer-size-kb", f.BufferSizeKB)
	addIfUsed(flagMap, usedFlags, "report", f.Report)

	addIfUsed(flagMap, usedFlags, "gs-path", f.GSPath)
	addIfUsed(flagMap, usedFlags, "pdf-settings", f.PDFSettings)

	addIfUsed(flagMap, usedFlags, "bundle", f.BundleEnabled)
	addIfUsed(flagMap, usedFlags, "bundle-format", f.BundleFormat)
	addIfUsed(flagMap, usedFlags, "bundle-level", f.BundleLevel)

	addIfUsed(flagMap, usedFlags, "force", f.Force)
	addIfUsed(flagMap, usedFlags, "default", f.Default)

	// Handle flags that require parsing/validation.
	addParsedIfUsed(flagMap, usedFlags, "exclude", f.Exclude, ParseExcludeList)

	return flagMap, nil
}

// addIfUsed adds the value of ptr to flagMap if ptr is not nil and the flag was set.
func addIfUsed[T any](flagMap map[string]interface{}, usedFlags map[string]bool, name string, ptr *T) {
	if ptr != nil && usedFlags[name] {
		flagMap[name] = *ptr
	}
}

// addParsedIfUsed adds the parsed value of ptr to flagMap if ptr is not nil and the flag was set.
func addParsedIfUsed(flagMap map[string]interface{}, usedFlags map[string]bool, name string, ptr *string, parser func(string) []string) {
	if ptr != nil && usedFlags[name] {
		flagMap[name] = parser(*ptr)
	}
}

// printTopLevelUsage prints the main help message.
func printTopLevelUsage(fs *flag.FlagSet) {

	execName := filepath.Base(os.Args[0])
	fmt.Fprintf(fs.Output(), "%s ", buildinfo.Banner())
	fmt.Fprintf(fs.Output(), "Shrinks figure files for journal and preprint submissions.\n\n")
	fmt.Fprintf(fs.Output(), "Usage: %s [command] [flags]\n\n", execName)
	fmt.Fprintf(fs.Output(), "Commands:\n")
	fmt.Fprintf(fs.Output(), "  compress    Compress the figures (default)\n")
	fmt.Fprintf(fs.Output(), "  init        Write a configuration file into the current directory\n")
	fmt.Fprintf(fs.Output(), "  version     Print the application version\n")
	fmt.Fprintf(fs.Output(), "\nRun '%s <command> -help' for more information on a command.\n", execName)
}

// printSubcommandUsage prints the help message for a specific subcommand.
func printSubcommandUsage(command Command, desc string, fs *flag.FlagSet) {

	execName := filepath.Base(os.Args[0])
	fmt.Fprintf(fs.Output(), "%s ", buildinfo.Banner())
	fmt.Fprintf(fs.Output(), "Shrinks figure files for journal and preprint submissions.\n\n")
	fmt.Fprintf(fs.Output(), "Usage of the %s command: %s %s [flags]\n\n", command, execName, command)
	fmt.Fprintf(fs.Output(), "%s\n\n", desc)
	fmt.Fprintf(fs.Output(), "Flags:\n")
	fs.PrintDefaults()
}

// ParseExcludeList parses a comma-separated list of file or directory patterns.
// It supports both single (') and double (") quotes to allow items to contain
// commas or spaces; the quotes themselves are removed. Backslashes are literal
// characters for Windows path compatibility.
func ParseExcludeList(s string) []string {
	var list []string
	var current strings.Builder
	var quoteChar rune

	// Helper to add the current buffered item to the list after trimming whitespace.
	appendItem := func() {
		trimmed := strings.TrimSpace(current.String())
		if trimmed != "" {
			list = append(list, trimmed)
		}
		current.Reset()
	}

	for _, r := range s {
		switch {
		case r == '\'' || r == '"':
			if quoteChar == 0 { // Start of a new quoted section.
				quoteChar = r
			} else if quoteChar == r { // End of the current quoted section.
				quoteChar = 0
			} else { // A different quote character inside an existing quoted section.
				current.WriteRune(r)
			}
		case r == ',' && quoteChar == 0: // Comma outside of any quotes.
			appendItem()
		default:
			current.WriteRune(r)
		}
	}
	appendItem()
	return list
}
