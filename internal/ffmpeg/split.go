package ffmpeg

import (
	"context"
	"fmt"

	"github.com/keagan/dilate/internal/media"
	"github.com/keagan/dilate/pkg/util"
)

// Split cuts src into one stream-copied file per cut, in order.
// Cuts are expected on keyframes; nothing is re-encoded.
func (e *Executor) Split(ctx context.Context, src media.Handle, cuts []media.Cut) ([]media.Handle, error) {
	out := make([]media.Handle, 0, len(cuts))

	for i, cut := range cuts {
		if cut.End <= cut.Start {
			return nil, fmt.Errorf("invalid cut %d: end %.3f must be after start %.3f", i, cut.End, cut.Start)
		}

		e.logger.Debug().
			Str("input", src.Path).
			Str("output", cut.Output).
			Float64("start", cut.Start).
			Float64("end", cut.End).
			Msg("splitting")

		err := e.Run(ctx, RunOptions{
			Args:            splitArgs(src.Path, cut),
			ProgressHandler: e.logProgress("split progress"),
			LogHandler:      e.logLine("split output"),
		})
		if err != nil {
			return nil, fmt.Errorf("split %d of %s failed: %w", i, src.Path, err)
		}
		out = append(out, media.NewHandle(cut.Output))
	}

	e.logger.Info().
		Str("input", src.Path).
		Int("parts", len(out)).
		Msg("split complete")
	return out, nil
}

// splitArgs seeks on the input so the copy starts on the keyframe at cut.Start.
func splitArgs(input string, cut media.Cut) []string {
	return []string{
		"-ss", util.FormatSeconds(cut.Start),
		"-i", input,
		"-t", util.FormatSeconds(cut.End - cut.Start),
		"-map", "0:v:0",
		"-map", "0:a:0?",
		"-c", "copy",
		"-reset_timestamps", "1",
		"-fflags", "+genpts",
		"-avoid_negative_ts", "make_zero",
		cut.Output,
	}
}
