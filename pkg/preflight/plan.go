package preflight

// Plan selects which checks Validator.Run performs.
type Plan struct {
	InputAccessible    bool
	OutputAccessible   bool
	OutputWritable     bool
	PathNesting        bool
	EnsureOutputExists bool
	FreeSpace          bool

	// Global Flags
	DryRun bool
}
