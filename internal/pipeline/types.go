package pipeline

import (
	"github.com/keagan/dilate/internal/segment"
)

// Config holds pipeline-specific configuration
type Config struct {
	// Segments transformed at once; 1 is strictly sequential.
	Workers int
	// Parent of the per-run scratch directories.
	TempDir string
	// Relative duration tolerance for transform checks.
	Tolerance float64
	// Keep the run directory after a successful run.
	KeepTemp bool
	// Extension of intermediate files, without the dot.
	Container string
}

// DefaultConfig mirrors the built-in application defaults.
func DefaultConfig() Config {
	return Config{
		Workers:   4,
		Tolerance: 0.01,
		Container: "mkv",
	}
}

// EncodeOptions configures one encode run
type EncodeOptions struct {
	Input    string
	Output   string
	Segments []segment.Segment
	// Store key for the run metadata. Defaults to <output>.meta.json.
	MetadataKey string
	// Upload the output to the store after success.
	Publish bool
}

// DecodeOptions configures one decode run
type DecodeOptions struct {
	// The compressed file produced by Encode.
	Input  string
	Output string
	// Store key of the run metadata. Defaults to <input>.meta.json.
	MetadataKey string
	Publish     bool
}

// Plan is the segment layout a run will execute.
type Plan struct {
	// Normalized partition of the original timeline.
	Original segment.Partition
	// Where each original segment lands in the compressed output.
	Compressed segment.Partition
	// The partition actually cut: Original snapped to the source's keyframes
	// on encode, Compressed snapped to the compressed file's keyframes on decode.
	Aligned segment.Partition
	// Output duration implied by Aligned.
	Expected float64
}

// Result summarizes a finished run
type Result struct {
	Output   string
	Duration float64
	Plan     *Plan
	// Metadata key written (encode) or read (decode).
	MetadataKey string
	// Location of the published output, if any.
	Published string
	// Set when the run directory was kept.
	RunDir string
	// Encode-side duration mismatches that were tolerated.
	Mismatches []*DurationMismatchError
}
