// Package media defines the contract between the pipeline and the external
// transcode/probe tool. The pipeline only talks to a Tool; internal/ffmpeg
// binds it to ffmpeg and ffprobe.
package media

import (
	"context"
	"fmt"
	"strings"
)

// Tool is everything the pipeline needs from the media tool.
// Every call blocks until the underlying process exits.
type Tool interface {
	ProbeDuration(ctx context.Context, h Handle) (float64, error)
	ProbeMetadata(ctx context.Context, h Handle) (*Metadata, error)
	ProbeKeyframes(ctx context.Context, h Handle) ([]float64, error)

	// Split cuts src losslessly at each Cut, in order.
	Split(ctx context.Context, src Handle, cuts []Cut) ([]Handle, error)
	// Transform re-encodes src through the filter graph implied by spec.Mode.
	Transform(ctx context.Context, src Handle, spec TransformSpec) (Handle, error)
	// Concatenate joins inputs in order with regenerated timestamps.
	Concatenate(ctx context.Context, inputs []Handle, spec ConcatSpec) (Handle, error)
}

// Handle references a media file and, once probed, its metadata.
type Handle struct {
	Path     string
	Metadata *Metadata
}

// NewHandle wraps a path without metadata.
func NewHandle(path string) Handle {
	return Handle{Path: path}
}

func (h Handle) String() string { return h.Path }

// Metadata holds the probed properties of a media file.
type Metadata struct {
	Duration     float64 `yaml:"duration"`
	VideoCodec   string  `yaml:"video_codec"`
	AudioCodec   string  `yaml:"audio_codec,omitempty"`
	Width        int     `yaml:"width"`
	Height       int     `yaml:"height"`
	FPS          float64 `yaml:"fps"`
	VideoBitrate int64   `yaml:"video_bitrate"`
	AudioBitrate int64   `yaml:"audio_bitrate,omitempty"`
	SampleRate   int     `yaml:"sample_rate,omitempty"`
	HasAudio     bool    `yaml:"has_audio"`
}

// Cut is a lossless [Start, End) extraction written to Output.
type Cut struct {
	Start  float64
	End    float64
	Output string
}

// TransformSpec describes one re-encode.
type TransformSpec struct {
	Mode   Mode
	Output string
	// Source carries codec, bitrate and rate hints; usually the probed
	// metadata of the original input.
	Source *Metadata
}

// ConcatSpec describes a concatenation.
type ConcatSpec struct {
	Output string
	// FPS forces the output frame rate when > 0.
	FPS float64
	// ForcedKeyframes lists output timestamps that must start a GOP.
	// A non-empty list forces a re-encode.
	ForcedKeyframes []float64
	Source          *Metadata
}

// ToolError is a non-zero exit (or failed start) of the external tool.
// It is always fatal to the run.
type ToolError struct {
	Tool     string
	Args     []string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *ToolError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s failed", e.Tool)
	if e.ExitCode != 0 {
		fmt.Fprintf(&b, " (exit %d)", e.ExitCode)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	if e.Stderr != "" {
		fmt.Fprintf(&b, "\n%s", e.Stderr)
	}
	return b.String()
}

func (e *ToolError) Unwrap() error { return e.Err }
