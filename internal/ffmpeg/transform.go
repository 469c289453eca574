package ffmpeg

import (
	"context"
	"fmt"
	"strconv"

	"github.com/keagan/dilate/internal/media"
)

// Transform re-encodes src through the filter graph for spec.Mode
func (e *Executor) Transform(ctx context.Context, src media.Handle, spec media.TransformSpec) (media.Handle, error) {
	if spec.Output == "" {
		return media.Handle{}, fmt.Errorf("output path is required")
	}

	in := src.Metadata
	if in == nil {
		md, err := e.ProbeMetadata(ctx, src)
		if err != nil {
			return media.Handle{}, fmt.Errorf("failed to probe transform input: %w", err)
		}
		in = md
	}

	hints := spec.Source
	if hints == nil {
		hints = in
	}

	graph, err := filterGraph(spec.Mode, in.HasAudio, e.cfg.AudioFilter)
	if err != nil {
		return media.Handle{}, err
	}

	args := []string{"-i", src.Path, "-filter_complex", graph, "-map", "[v]"}
	if in.HasAudio {
		args = append(args, "-map", "[a]")
	}
	args = append(args, e.encodeArgs(hints)...)
	args = append(args,
		"-fflags", "+genpts",
		"-avoid_negative_ts", "make_zero",
		spec.Output,
	)

	e.logger.Info().
		Str("input", src.Path).
		Str("output", spec.Output).
		Stringer("mode", spec.Mode).
		Msg("transforming")

	err = e.Run(ctx, RunOptions{
		Args:            args,
		ProgressHandler: e.logProgress("transform progress"),
		LogHandler:      e.logLine("transform output"),
	})
	if err != nil {
		return media.Handle{}, fmt.Errorf("transform %s of %s failed: %w", spec.Mode, src.Path, err)
	}

	return media.NewHandle(spec.Output), nil
}

// filterGraph builds the -filter_complex graph for a mode. Video is
// labeled [v] and, when present, audio [a].
func filterGraph(m media.Mode, hasAudio bool, audioFilter string) (string, error) {
	video, audio := NewFilterBuilder(), NewFilterBuilder()

	switch m := m.(type) {
	case media.Compress:
		if err := checkInterest(m.Interest); err != nil {
			return "", err
		}
		video.Setpts(m.Interest)
		tempo(audio, audioFilter, 1/m.Interest)
	case media.Expand:
		if err := checkInterest(m.Interest); err != nil {
			return "", err
		}
		video.Setpts(1 / m.Interest)
		tempo(audio, audioFilter, m.Interest)
	case media.Renormalize:
		video.FPS(m.FPS)
		audio.Aresample(m.SampleRate)
	default:
		return "", fmt.Errorf("unsupported mode %T", m)
	}

	graph := video.Labeled("0:v", "v", "null")
	if hasAudio {
		graph += ";" + audio.Labeled("0:a", "a", "anull")
	}
	return graph, nil
}

func tempo(fb *FilterBuilder, audioFilter string, factor float64) {
	if audioFilter == "rubberband" {
		fb.Rubberband(factor)
		return
	}
	fb.Atempo(factor)
}

func checkInterest(f float64) error {
	if !(f > 0) {
		return fmt.Errorf("interest must be positive, got %g", f)
	}
	return nil
}

// encodeArgs selects codecs and quality for a re-encode, matching src
// unless the config overrides it.
func (e *Executor) encodeArgs(src *media.Metadata) []string {
	var videoCodec, audioCodec string
	var audioBitrate int64
	if src != nil {
		videoCodec, audioCodec, audioBitrate = src.VideoCodec, src.AudioCodec, src.AudioBitrate
	}

	venc := videoEncoder(e.cfg.VideoCodec, videoCodec)
	crf := strconv.Itoa(e.crfFor(src))

	args := []string{"-c:v", venc}
	switch venc {
	case "libx264", "libx265":
		args = append(args, "-crf", crf, "-preset", orDefault(e.cfg.Preset, DefaultPreset))
	case "libvpx-vp9":
		args = append(args, "-crf", crf, "-b:v", "0", "-row-mt", "1")
	case "libsvtav1":
		args = append(args, "-crf", crf)
	}

	args = append(args, "-c:a", audioEncoder(e.cfg.AudioCodec, audioCodec))
	if audioBitrate > 0 {
		args = append(args, "-b:a", strconv.FormatInt(audioBitrate, 10))
	}
	return args
}
