package figcompress

import "github.com/paulschiretz/pgl-figcompress/pkg/util"

// FileRecord describes what happened to one discovered file.
type FileRecord struct {
	// RelPath is slash-separated and relative to the input root.
	RelPath        string
	OriginalSize   int64
	CompressedSize int64
	// HasOutput is set when this run left an output file in place.
	HasOutput bool
	Outcome   Outcome
	// Oversized is set when the output is still larger than the configured limit.
	Oversized bool
	// Err is the cause of a failure or of a copy fallback.
	Err error
	// Diagnostic holds the output of a failed external tool run.
	Diagnostic string
}

// ReductionPercent is 0 when there is no output or the original was empty.
func (r FileRecord) ReductionPercent() float64 {
	if !r.HasOutput {
		return 0
	}
	return util.ReductionPercent(r.OriginalSize, r.CompressedSize)
}

// RunSummary aggregates the records of a run. Sizes only include files that
// have an output.
type RunSummary struct {
	FilesFound      int
	FilesSucceeded  int
	FilesCompressed int
	FilesCopied     int
	FilesFailed     int
	FilesOversized  int

	TotalOriginalSize   int64
	TotalCompressedSize int64

	Records []FileRecord
}

func (s *RunSummary) add(rec FileRecord) {
	s.Records = append(s.Records, rec)
	switch rec.Outcome {
	case Compressed:
		s.FilesCompressed++
	case CopiedFallback:
		s.FilesCopied++
	default:
		s.FilesFailed++
	}
	if rec.Outcome.Succeeded() {
		s.FilesSucceeded++
	}
	if rec.Oversized {
		s.FilesOversized++
	}
	if rec.HasOutput {
		s.TotalOriginalSize += rec.OriginalSize
		s.TotalCompressedSize += rec.CompressedSize
	}
}

// ReductionPercent is the overall reduction, 0 when nothing was measured.
func (s RunSummary) ReductionPercent() float64 {
	return util.ReductionPercent(s.TotalOriginalSize, s.TotalCompressedSize)
}
