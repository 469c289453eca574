package ffmpeg

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/keagan/dilate/internal/media"
)

// Concatenate joins inputs in order with regenerated timestamps. Inputs are
// stream-copied unless keyframes are forced, which needs a re-encode.
func (e *Executor) Concatenate(ctx context.Context, inputs []media.Handle, spec media.ConcatSpec) (media.Handle, error) {
	if len(inputs) == 0 {
		return media.Handle{}, fmt.Errorf("no input files provided")
	}
	if spec.Output == "" {
		return media.Handle{}, fmt.Errorf("output path is required")
	}

	e.logger.Info().
		Int("inputs", len(inputs)).
		Str("output", spec.Output).
		Int("forced_keyframes", len(spec.ForcedKeyframes)).
		Msg("concatenating")

	// Create concat file list next to the output
	listFile, err := createConcatFile(filepath.Dir(spec.Output), inputs)
	if err != nil {
		return media.Handle{}, fmt.Errorf("failed to create concat file: %w", err)
	}
	defer os.Remove(listFile)

	args := []string{
		"-f", "concat",
		"-safe", "0",
		"-i", listFile,
	}
	args = append(args, e.concatCodecArgs(spec)...)
	args = append(args,
		"-fflags", "+genpts",
		"-avoid_negative_ts", "make_zero",
		spec.Output,
	)

	err = e.Run(ctx, RunOptions{
		Args:            args,
		ProgressHandler: e.logProgress("concat progress"),
		LogHandler:      e.logLine("concat output"),
	})
	if err != nil {
		return media.Handle{}, fmt.Errorf("concatenation failed: %w", err)
	}

	return media.NewHandle(spec.Output), nil
}

func (e *Executor) concatCodecArgs(spec media.ConcatSpec) []string {
	if len(spec.ForcedKeyframes) == 0 {
		return []string{"-c", "copy"}
	}

	args := e.encodeArgs(spec.Source)
	args = append(args, "-force_key_frames", forcedKeyframes(spec.ForcedKeyframes))
	if spec.FPS > 0 {
		args = append(args, "-r", num(spec.FPS))
	}
	return args
}

func forcedKeyframes(ts []float64) string {
	parts := make([]string, len(ts))
	for i, t := range ts {
		parts[i] = num(t)
	}
	return strings.Join(parts, ",")
}

// createConcatFile generates a file list for the concat demuxer
func createConcatFile(dir string, inputs []media.Handle) (string, error) {
	tmpFile, err := os.CreateTemp(dir, "concat-*.txt")
	if err != nil {
		return "", err
	}
	defer tmpFile.Close()

	for _, input := range inputs {
		absPath, err := filepath.Abs(input.Path)
		if err != nil {
			return "", err
		}
		if _, err := fmt.Fprintf(tmpFile, "file '%s'\n", escapeConcatPath(absPath)); err != nil {
			return "", err
		}
	}

	return tmpFile.Name(), nil
}

// escapeConcatPath closes the quote around each single quote
func escapeConcatPath(p string) string {
	return strings.ReplaceAll(p, "'", `'\''`)
}
