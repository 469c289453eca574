package ffmpeg

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/keagan/dilate/internal/media"
	"github.com/keagan/dilate/pkg/util"
)

// ProbeMetadata extracts stream properties from a media file
func (e *Executor) ProbeMetadata(ctx context.Context, h media.Handle) (*media.Metadata, error) {
	if h.Path == "" {
		return nil, fmt.Errorf("file path is required")
	}

	out, err := e.probe(ctx,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		h.Path,
	)
	if err != nil {
		return nil, err
	}

	md, err := parseProbe(out)
	if err != nil {
		return nil, fmt.Errorf("failed to parse ffprobe output for %s: %w", h.Path, err)
	}
	return md, nil
}

// ProbeDuration reads the container duration in seconds
func (e *Executor) ProbeDuration(ctx context.Context, h media.Handle) (float64, error) {
	out, err := e.probe(ctx,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		h.Path,
	)
	if err != nil {
		return 0, err
	}

	d, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse duration of %s: %w", h.Path, err)
	}
	return d, nil
}

// ProbeKeyframes lists the presentation times of keyframe packets on the
// first video stream, ascending.
func (e *Executor) ProbeKeyframes(ctx context.Context, h media.Handle) ([]float64, error) {
	out, err := e.probe(ctx,
		"-v", "error",
		"-select_streams", "v:0",
		"-show_packets",
		"-show_entries", "packet=pts_time,flags",
		"-of", "csv=print_section=0",
		h.Path,
	)
	if err != nil {
		return nil, err
	}

	kf := parseKeyframes(string(out))
	e.logger.Debug().
		Str("input", h.Path).
		Int("keyframes", len(kf)).
		Msg("probed keyframes")
	return kf, nil
}

// parseKeyframes reads "pts_time,flags" csv rows and keeps K-flagged ones.
func parseKeyframes(csv string) []float64 {
	var out []float64
	for _, line := range strings.Split(csv, "\n") {
		fields := strings.Split(strings.TrimSpace(line), ",")
		if len(fields) < 2 || !strings.Contains(fields[1], "K") {
			continue
		}
		t, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			// N/A timestamps
			continue
		}
		out = append(out, t)
	}

	sort.Float64s(out)
	return dedupe(out)
}

func dedupe(sorted []float64) []float64 {
	if len(sorted) == 0 {
		return sorted
	}
	out := sorted[:1]
	for _, v := range sorted[1:] {
		if v != out[len(out)-1] {
			out = append(out, v)
		}
	}
	return out
}

func parseProbe(data []byte) (*media.Metadata, error) {
	var probe probeResult
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, err
	}

	md := &media.Metadata{}

	// Parse duration
	if dur, err := strconv.ParseFloat(probe.Format.Duration, 64); err == nil {
		md.Duration = dur
	}

	// Parse bitrate
	var formatBitrate int64
	if br, err := strconv.ParseInt(probe.Format.BitRate, 10, 64); err == nil {
		formatBitrate = br
	}

	seenVideo := false
	for _, stream := range probe.Streams {
		switch stream.CodecType {
		case "video":
			if seenVideo {
				continue
			}
			seenVideo = true
			md.Width = stream.Width
			md.Height = stream.Height
			md.VideoCodec = stream.CodecName

			// r_frame_rate is a ratio, e.g. "30000/1001"
			if stream.RFrameRate != "" {
				md.FPS = util.ParseFrameRate(stream.RFrameRate)
			}
			if br, err := strconv.ParseInt(stream.BitRate, 10, 64); err == nil {
				md.VideoBitrate = br
			}
		case "audio":
			if md.HasAudio {
				continue
			}
			md.HasAudio = true
			md.AudioCodec = stream.CodecName
			if br, err := strconv.ParseInt(stream.BitRate, 10, 64); err == nil {
				md.AudioBitrate = br
			}
			if sr, err := strconv.Atoi(stream.SampleRate); err == nil {
				md.SampleRate = sr
			}
		}
	}

	if !seenVideo {
		return nil, fmt.Errorf("no video stream")
	}

	// Matroska rarely stores per-stream bitrates.
	if md.VideoBitrate == 0 && formatBitrate > md.AudioBitrate {
		md.VideoBitrate = formatBitrate - md.AudioBitrate
	}

	return md, nil
}

// probeResult matches ffprobe JSON output structure
type probeResult struct {
	Format struct {
		Duration string `json:"duration"`
		BitRate  string `json:"bit_rate"`
	} `json:"format"`
	Streams []struct {
		CodecType  string `json:"codec_type"`
		CodecName  string `json:"codec_name"`
		Width      int    `json:"width"`
		Height     int    `json:"height"`
		RFrameRate string `json:"r_frame_rate"`
		BitRate    string `json:"bit_rate"`
		SampleRate string `json:"sample_rate"`
	} `json:"streams"`
}
