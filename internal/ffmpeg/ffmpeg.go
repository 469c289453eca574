package ffmpeg

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"

	"github.com/keagan/dilate/internal/config"
	"github.com/keagan/dilate/internal/logging"
	"github.com/keagan/dilate/internal/media"
	"github.com/rs/zerolog"
)

var _ media.Tool = (*Executor)(nil)

// Executor handles all ffmpeg operations with progress streaming
type Executor struct {
	logger      zerolog.Logger
	ffmpegPath  string
	ffprobePath string
	cfg         config.FFmpegConfig
}

// New creates a new ffmpeg executor
func New(logger zerolog.Logger, cfg config.FFmpegConfig) (*Executor, error) {
	ffmpegPath, err := exec.LookPath(orDefault(cfg.BinaryPath, "ffmpeg"))
	if err != nil {
		return nil, fmt.Errorf("ffmpeg not found in PATH: %w", err)
	}

	ffprobePath, err := exec.LookPath(orDefault(cfg.ProbePath, "ffprobe"))
	if err != nil {
		return nil, fmt.Errorf("ffprobe not found in PATH: %w", err)
	}

	return &Executor{
		logger:      logging.WithComponent(logger, "ffmpeg"),
		ffmpegPath:  ffmpegPath,
		ffprobePath: ffprobePath,
		cfg:         cfg,
	}, nil
}

// Run executes ffmpeg with the given arguments and streams progress.
// A failed run returns a *media.ToolError carrying the tail of stderr.
func (e *Executor) Run(ctx context.Context, opts RunOptions) error {
	if len(opts.Args) == 0 {
		return fmt.Errorf("no arguments provided")
	}

	args := e.baseArgs()
	args = append(args, opts.Args...)

	e.logger.Debug().
		Str("cmd", "ffmpeg").
		Strs("args", args).
		Msg("executing ffmpeg")

	cmd := exec.CommandContext(ctx, e.ffmpegPath, args...)

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("failed to create stderr pipe: %w", err)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to create stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return &media.ToolError{Tool: "ffmpeg", Args: args, Err: err}
	}

	var wg sync.WaitGroup
	var tail []string
	wg.Add(2)

	// Stream stderr (progress + logs)
	go func() {
		defer wg.Done()
		tail = streamOutput(stderr, opts.ProgressHandler, opts.LogHandler)
	}()

	// Stream stdout
	go func() {
		defer wg.Done()
		scanner := bufio.NewScanner(stdout)
		for scanner.Scan() {
			if opts.LogHandler != nil {
				opts.LogHandler(scanner.Text())
			}
		}
	}()

	wg.Wait()

	if err := cmd.Wait(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return toolError("ffmpeg", args, err, strings.Join(tail, "\n"))
	}

	e.logger.Debug().Msg("ffmpeg execution completed")
	return nil
}

func (e *Executor) baseArgs() []string {
	args := []string{"-y", "-hide_banner", "-loglevel", "info"}
	if e.cfg.Threads > 0 {
		args = append(args, "-threads", fmt.Sprintf("%d", e.cfg.Threads))
	}
	return append(args, "-progress", "pipe:2")
}

// probe runs ffprobe and returns its stdout.
func (e *Executor) probe(ctx context.Context, args ...string) ([]byte, error) {
	e.logger.Debug().
		Str("cmd", "ffprobe").
		Strs("args", args).
		Msg("executing ffprobe")

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, e.ffprobePath, args...)
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, toolError("ffprobe", args, err, lastLines(stderr.String(), stderrTail))
	}
	return out, nil
}

func (e *Executor) logLine(op string) func(string) {
	return func(line string) {
		e.logger.Debug().Str("ffmpeg", line).Msg(op)
	}
}

func (e *Executor) logProgress(op string) ProgressFunc {
	return func(p *Progress) {
		e.logger.Debug().
			Int("frame", p.Frame).
			Float64("fps", p.FPS).
			Str("time", p.Time).
			Str("speed", p.Speed).
			Msg(op)
	}
}

func toolError(tool string, args []string, err error, stderr string) *media.ToolError {
	te := &media.ToolError{Tool: tool, Args: args, Stderr: stderr, Err: err}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		te.ExitCode = exitErr.ExitCode()
	}
	return te
}

// progressKeys are the key=value lines emitted by -progress.
var progressKeys = map[string]bool{
	"frame": true, "fps": true, "bitrate": true, "total_size": true,
	"out_time_us": true, "out_time_ms": true, "out_time": true,
	"dup_frames": true, "drop_frames": true, "speed": true, "progress": true,
}

func isProgressLine(line string) bool {
	key, _, ok := strings.Cut(line, "=")
	if !ok {
		return false
	}
	return progressKeys[key] || strings.HasPrefix(key, "stream_")
}

// streamOutput parses ffmpeg output, calls handlers and returns the last
// non-progress lines.
func streamOutput(r io.Reader, progressHandler ProgressFunc, logHandler func(string)) []string {
	scanner := bufio.NewScanner(r)
	progressData := &Progress{}
	var tail []string

	for scanner.Scan() {
		line := scanner.Text()

		if !isProgressLine(line) {
			if logHandler != nil {
				logHandler(line)
			}
			tail = append(tail, line)
			if len(tail) > stderrTail {
				tail = tail[1:]
			}
			continue
		}

		key, value, _ := strings.Cut(line, "=")
		value = strings.TrimSpace(value)
		switch key {
		case "frame":
			fmt.Sscanf(value, "%d", &progressData.Frame)
		case "fps":
			fmt.Sscanf(value, "%f", &progressData.FPS)
		case "bitrate":
			progressData.Bitrate = value
		case "out_time":
			progressData.Time = value
		case "speed":
			progressData.Speed = value
		case "progress":
			// End of progress block
			if progressHandler != nil && progressData.Frame > 0 {
				progressHandler(progressData)
			}
			progressData = &Progress{}
		}
	}

	return tail
}

func lastLines(s string, n int) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
