package figcompress

// Plan is the immutable configuration of one compression run.
type Plan struct {
	InputDir  string
	OutputDir string

	// Quality is the JPEG quality, 0-100.
	Quality int
	// MaxSizeMB is the size an output may have before a warning is logged.
	MaxSizeMB float64

	Workers int
	Exclude []string
	DryRun  bool
}
