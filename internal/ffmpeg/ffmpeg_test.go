package ffmpeg

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/keagan/dilate/internal/config"
	"github.com/keagan/dilate/internal/media"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// skipIfNoFFmpeg skips the test if ffmpeg is not available
func skipIfNoFFmpeg(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skip("ffmpeg not found in PATH - install with: brew install ffmpeg")
	}
	if _, err := exec.LookPath("ffprobe"); err != nil {
		t.Skip("ffprobe not found in PATH - install with: brew install ffmpeg")
	}
}

func newTestExecutor(t *testing.T, cfg config.FFmpegConfig) *Executor {
	t.Helper()
	skipIfNoFFmpeg(t)
	e, err := New(zerolog.New(os.Stderr).Level(zerolog.InfoLevel), cfg)
	require.NoError(t, err)
	return e
}

// testVideo renders a synthetic clip with a keyframe every second.
func testVideo(t *testing.T, seconds int) string {
	t.Helper()
	out := filepath.Join(t.TempDir(), "source.mp4")
	dur := num(float64(seconds))
	cmd := exec.Command("ffmpeg", "-y", "-hide_banner", "-loglevel", "error",
		"-f", "lavfi", "-i", "testsrc=size=320x240:rate=30:duration="+dur,
		"-f", "lavfi", "-i", "sine=frequency=440:sample_rate=48000:duration="+dur,
		"-c:v", "libx264", "-g", "30", "-keyint_min", "30", "-sc_threshold", "0",
		"-pix_fmt", "yuv420p",
		"-c:a", "aac", "-shortest", out)
	if b, err := cmd.CombinedOutput(); err != nil {
		t.Skipf("cannot render test video: %v\n%s", err, b)
	}
	return out
}

func TestFilterBuilder(t *testing.T) {
	fb := NewFilterBuilder()
	filter := fb.Setpts(0.5).FPS(30).Build()

	expected := "setpts=0.5*PTS,fps=30"
	if filter != expected {
		t.Errorf("expected %q, got %q", expected, filter)
	}
}

func TestFilterBuilderEmpty(t *testing.T) {
	fb := NewFilterBuilder()
	filter := fb.Setpts(0).Aresample(-1).Build()

	if filter != "" {
		t.Errorf("expected empty string, got %q", filter)
	}
}

func TestAtempoChain(t *testing.T) {
	cases := []struct {
		factor float64
		want   string
	}{
		{1.5, "atempo=1.5"},
		{2, "atempo=2"},
		{10, "atempo=2,atempo=2,atempo=2,atempo=1.25"},
		{0.1, "atempo=0.5,atempo=0.5,atempo=0.5,atempo=0.8"},
		{0.5, "atempo=0.5"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, NewFilterBuilder().Atempo(tc.factor).Build(), "factor %g", tc.factor)
	}
}

func TestFilterGraph(t *testing.T) {
	graph, err := filterGraph(media.Compress{Interest: 0.25}, true, "atempo")
	require.NoError(t, err)
	assert.Equal(t, "[0:v]setpts=0.25*PTS[v];[0:a]atempo=2,atempo=2[a]", graph)

	graph, err = filterGraph(media.Expand{Interest: 0.5}, true, "rubberband")
	require.NoError(t, err)
	assert.Equal(t, "[0:v]setpts=2*PTS[v];[0:a]rubberband=tempo=0.5[a]", graph)

	graph, err = filterGraph(media.Renormalize{FPS: 29.97, SampleRate: 48000}, true, "atempo")
	require.NoError(t, err)
	assert.Equal(t, "[0:v]fps=29.97[v];[0:a]aresample=48000[a]", graph)

	graph, err = filterGraph(media.Renormalize{}, false, "atempo")
	require.NoError(t, err)
	assert.Equal(t, "[0:v]null[v]", graph)

	_, err = filterGraph(media.Compress{Interest: 0}, true, "atempo")
	assert.Error(t, err)
	_, err = filterGraph(nil, true, "atempo")
	assert.Error(t, err)
}

func TestSplitArgs(t *testing.T) {
	args := splitArgs("in.mp4", media.Cut{Start: 5, End: 12.5, Output: "out.mkv"})
	joined := strings.Join(args, " ")

	assert.True(t, strings.HasPrefix(joined, "-ss 00:00:05.000000 -i in.mp4 -t 00:00:07.500000"))
	assert.Contains(t, joined, "-c copy")
	assert.Contains(t, joined, "-reset_timestamps 1")
	assert.Contains(t, joined, "-avoid_negative_ts make_zero")
	assert.Equal(t, "out.mkv", args[len(args)-1])
}

func TestEncodeArgs(t *testing.T) {
	e := &Executor{logger: zerolog.Nop()}
	src := &media.Metadata{VideoCodec: "hevc", AudioCodec: "opus", AudioBitrate: 128000, VideoBitrate: 2_000_000, Width: 1280, Height: 720, FPS: 30}

	args := strings.Join(e.encodeArgs(src), " ")
	assert.Contains(t, args, "-c:v libx265")
	assert.Contains(t, args, "-preset medium")
	assert.Contains(t, args, "-c:a libopus")
	assert.Contains(t, args, "-b:a 128000")

	e.cfg = config.FFmpegConfig{VideoCodec: "libvpx-vp9", CRF: 31}
	args = strings.Join(e.encodeArgs(src), " ")
	assert.Contains(t, args, "-c:v libvpx-vp9 -crf 31 -b:v 0")

	args = strings.Join(e.encodeArgs(nil), " ")
	assert.Contains(t, args, "-c:v libvpx-vp9")
	assert.Contains(t, args, "-c:a aac")
	assert.NotContains(t, args, "-b:a")
}

func TestConcatCodecArgs(t *testing.T) {
	e := &Executor{logger: zerolog.Nop(), cfg: config.FFmpegConfig{CRF: 20}}

	assert.Equal(t, []string{"-c", "copy"}, e.concatCodecArgs(media.ConcatSpec{Output: "x.mkv"}))

	args := strings.Join(e.concatCodecArgs(media.ConcatSpec{
		Output:          "x.mkv",
		FPS:             30,
		ForcedKeyframes: []float64{0, 2.5, 7},
	}), " ")
	assert.Contains(t, args, "-c:v libx264 -crf 20")
	assert.Contains(t, args, "-force_key_frames 0,2.5,7")
	assert.Contains(t, args, "-r 30")
}

func TestEstimateCRF(t *testing.T) {
	// 1080p30 at 8 Mbps: log1p(7.776) is about 2.17
	crf, err := EstimateCRF("h264", 8_000_000, 1920, 1080, 30)
	require.NoError(t, err)
	assert.Equal(t, 19, crf)

	lo, err := EstimateCRF("vp9", 500_000_000, 1920, 1080, 30)
	require.NoError(t, err)
	assert.Equal(t, 0, lo, "abundant bitrate clamps to best quality")

	hi, err := EstimateCRF("av1", 1_000, 1920, 1080, 60)
	require.NoError(t, err)
	assert.Equal(t, 63, hi, "starved bitrate clamps to worst quality")

	_, err = EstimateCRF("prores", 1_000_000, 1920, 1080, 30)
	assert.Error(t, err)
	_, err = EstimateCRF("h264", 0, 1920, 1080, 30)
	assert.Error(t, err)
}

func TestCRFFor(t *testing.T) {
	e := &Executor{logger: zerolog.Nop()}
	assert.Equal(t, DefaultCRF, e.crfFor(nil))
	assert.Equal(t, DefaultCRF, e.crfFor(&media.Metadata{VideoCodec: "prores"}))
	assert.Equal(t, 19, e.crfFor(&media.Metadata{VideoCodec: "h264", VideoBitrate: 8_000_000, Width: 1920, Height: 1080, FPS: 30}))

	e.cfg.CRF = 28
	assert.Equal(t, 28, e.crfFor(nil))
}

func TestParseKeyframes(t *testing.T) {
	csv := "0.000000,K__\n0.033333,___\n2.000000,K__\nN/A,K__\n1.000000,K_\n\n2.000000,K__\n"
	assert.Equal(t, []float64{0, 1, 2}, parseKeyframes(csv))
	assert.Empty(t, parseKeyframes(""))
}

func TestParseProbe(t *testing.T) {
	data := []byte(`{
		"streams": [
			{"codec_type": "video", "codec_name": "h264", "width": 1280, "height": 720, "r_frame_rate": "30000/1001"},
			{"codec_type": "audio", "codec_name": "aac", "bit_rate": "128000", "sample_rate": "44100"}
		],
		"format": {"duration": "12.345000", "bit_rate": "2128000"}
	}`)

	md, err := parseProbe(data)
	require.NoError(t, err)
	assert.Equal(t, 12.345, md.Duration)
	assert.Equal(t, "h264", md.VideoCodec)
	assert.Equal(t, 1280, md.Width)
	assert.InDelta(t, 29.97, md.FPS, 0.01)
	assert.True(t, md.HasAudio)
	assert.Equal(t, 44100, md.SampleRate)
	assert.Equal(t, int64(2_000_000), md.VideoBitrate, "video bitrate falls back to format minus audio")

	_, err = parseProbe([]byte(`{"streams": [{"codec_type": "audio"}], "format": {}}`))
	assert.Error(t, err)
}

func TestStreamOutput(t *testing.T) {
	in := strings.Join([]string{
		"Input #0, matroska,webm, from 'in.mkv':",
		"frame=12", "fps=24.0", "bitrate=100kbits/s", "out_time=00:00:00.500000", "speed=2.1x", "progress=continue",
		"frame=0", "progress=end",
		"[matroska @ 0x1] Invalid data",
	}, "\n")

	var blocks []Progress
	var logged []string
	tail := streamOutput(strings.NewReader(in),
		func(p *Progress) { blocks = append(blocks, *p) },
		func(l string) { logged = append(logged, l) },
	)

	require.Len(t, blocks, 1)
	assert.Equal(t, Progress{Frame: 12, FPS: 24, Bitrate: "100kbits/s", Time: "00:00:00.500000", Speed: "2.1x"}, blocks[0])
	assert.Equal(t, []string{"Input #0, matroska,webm, from 'in.mkv':", "[matroska @ 0x1] Invalid data"}, tail)
	assert.Equal(t, tail, logged)
}

func TestEscapeConcatPath(t *testing.T) {
	assert.Equal(t, `/tmp/it'\''s.mkv`, escapeConcatPath("/tmp/it's.mkv"))
}

func TestExecutorCreation(t *testing.T) {
	e := newTestExecutor(t, config.FFmpegConfig{})
	if e.ffmpegPath == "" {
		t.Error("ffmpeg path is empty")
	}
	if e.ffprobePath == "" {
		t.Error("ffprobe path is empty")
	}
}

func TestExecutorMissingBinary(t *testing.T) {
	_, err := New(zerolog.Nop(), config.FFmpegConfig{BinaryPath: "definitely-not-ffmpeg-xyz"})
	assert.Error(t, err)
}

func TestProbeInvalidFile(t *testing.T) {
	e := newTestExecutor(t, config.FFmpegConfig{})
	ctx := context.Background()

	invalid := filepath.Join(t.TempDir(), "invalid.txt")
	require.NoError(t, os.WriteFile(invalid, []byte("not a video"), 0644))

	_, err := e.ProbeDuration(ctx, media.NewHandle(invalid))
	var te *media.ToolError
	require.True(t, errors.As(err, &te), "got %v", err)
	assert.Equal(t, "ffprobe", te.Tool)
}

func TestRunFailureIsToolError(t *testing.T) {
	e := newTestExecutor(t, config.FFmpegConfig{})
	err := e.Run(context.Background(), RunOptions{Args: []string{"-i", "nonexistent.mp4", "out.mkv"}})

	var te *media.ToolError
	require.True(t, errors.As(err, &te), "got %v", err)
	assert.NotZero(t, te.ExitCode)
	assert.Contains(t, te.Stderr, "nonexistent.mp4")
}

func TestProbeSyntheticVideo(t *testing.T) {
	e := newTestExecutor(t, config.FFmpegConfig{})
	src := media.NewHandle(testVideo(t, 4))
	ctx := context.Background()

	md, err := e.ProbeMetadata(ctx, src)
	require.NoError(t, err)
	assert.Equal(t, 320, md.Width)
	assert.Equal(t, 240, md.Height)
	assert.InDelta(t, 30, md.FPS, 0.01)
	assert.True(t, md.HasAudio)
	assert.Equal(t, 48000, md.SampleRate)

	d, err := e.ProbeDuration(ctx, src)
	require.NoError(t, err)
	assert.InDelta(t, 4, d, 0.1)

	kf, err := e.ProbeKeyframes(ctx, src)
	require.NoError(t, err)
	require.NotEmpty(t, kf)
	assert.InDelta(t, 0, kf[0], 0.05)
	assert.GreaterOrEqual(t, len(kf), 4)
}

func TestSplitTransformConcat(t *testing.T) {
	e := newTestExecutor(t, config.FFmpegConfig{Preset: "ultrafast"})
	src := media.NewHandle(testVideo(t, 4))
	dir := t.TempDir()
	ctx := context.Background()

	parts, err := e.Split(ctx, src, []media.Cut{
		{Start: 0, End: 2, Output: filepath.Join(dir, "p0.mkv")},
		{Start: 2, End: 4, Output: filepath.Join(dir, "p1.mkv")},
	})
	require.NoError(t, err)
	require.Len(t, parts, 2)

	fast, err := e.Transform(ctx, parts[0], media.TransformSpec{
		Mode:   media.Compress{Interest: 0.5},
		Output: filepath.Join(dir, "p0_fast.mkv"),
	})
	require.NoError(t, err)

	d, err := e.ProbeDuration(ctx, fast)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, d, 0.1)

	joined, err := e.Concatenate(ctx, []media.Handle{fast, parts[1]}, media.ConcatSpec{
		Output:          filepath.Join(dir, "joined.mkv"),
		FPS:             30,
		ForcedKeyframes: []float64{0, 1},
	})
	require.NoError(t, err)

	d, err = e.ProbeDuration(ctx, joined)
	require.NoError(t, err)
	assert.InDelta(t, 3.0, d, 0.15)
}
