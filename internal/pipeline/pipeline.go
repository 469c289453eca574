// Package pipeline runs encode and decode: split the source at aligned
// segment boundaries, retime every segment that is not pass-through, and
// join the pieces back together in order.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/keagan/dilate/internal/keyframe"
	"github.com/keagan/dilate/internal/logging"
	"github.com/keagan/dilate/internal/media"
	"github.com/keagan/dilate/internal/segment"
	"github.com/keagan/dilate/internal/storage"
	"github.com/keagan/dilate/pkg/util"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Pipeline orchestrates encode and decode runs
type Pipeline struct {
	logger zerolog.Logger
	config Config
	tool   media.Tool
	store  storage.Store
}

// New creates a new pipeline instance
func New(logger zerolog.Logger, cfg Config, tool media.Tool, store storage.Store) *Pipeline {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.Tolerance <= 0 {
		cfg.Tolerance = DefaultConfig().Tolerance
	}
	if cfg.Container == "" {
		cfg.Container = DefaultConfig().Container
	}

	return &Pipeline{
		logger: logging.WithComponent(logger, "pipeline"),
		config: cfg,
		tool:   tool,
		store:  store,
	}
}

// source probes what every run needs to know about its input.
type source struct {
	handle    media.Handle
	duration  float64
	keyframes []float64
}

func (p *Pipeline) probeSource(ctx context.Context, path string) (*source, error) {
	if path == "" {
		return nil, fmt.Errorf("input path cannot be empty")
	}
	if !util.FileExists(path) {
		return nil, fmt.Errorf("input %s does not exist", path)
	}

	h := media.NewHandle(path)
	duration, err := p.tool.ProbeDuration(ctx, h)
	if err != nil {
		return nil, fmt.Errorf("failed to probe duration: %w", err)
	}
	md, err := p.tool.ProbeMetadata(ctx, h)
	if err != nil {
		return nil, fmt.Errorf("failed to probe metadata: %w", err)
	}
	h.Metadata = md

	p.logger.Info().
		Str("input", path).
		Float64("duration", duration).
		Int("width", md.Width).
		Int("height", md.Height).
		Float64("fps", md.FPS).
		Str("video_codec", md.VideoCodec).
		Bool("has_audio", md.HasAudio).
		Msg("source probed")

	return &source{handle: h, duration: duration}, nil
}

func (p *Pipeline) probeKeyframes(ctx context.Context, src *source) error {
	kf, err := p.tool.ProbeKeyframes(ctx, src.handle)
	if err != nil {
		return fmt.Errorf("failed to probe keyframes: %w", err)
	}
	if len(kf) == 0 {
		return &keyframe.NoKeyframesError{Source: src.handle.Path}
	}
	src.keyframes = CutPoints(kf, src.duration)
	return nil
}

// newRunDir creates the scratch directory for one run.
func (p *Pipeline) newRunDir() (string, error) {
	dir := filepath.Join(p.config.TempDir, uuid.NewString())
	if err := util.EnsureDir(dir); err != nil {
		return "", fmt.Errorf("failed to create run directory: %w", err)
	}
	p.logger.Debug().Str("run_dir", dir).Msg("run directory created")
	return dir, nil
}

// release removes the run directory after a successful run unless it is
// configured to stay. It returns the directory when kept.
func (p *Pipeline) release(dir string) string {
	if p.config.KeepTemp {
		p.logger.Info().Str("run_dir", dir).Msg("keeping run directory")
		return dir
	}
	if err := util.RemoveDir(dir); err != nil {
		p.logger.Warn().Err(err).Str("run_dir", dir).Msg("failed to remove run directory")
		return dir
	}
	return ""
}

func (p *Pipeline) intermediate(dir, prefix string, i int) string {
	return filepath.Join(dir, util.IndexedName(prefix, i, "."+p.config.Container))
}

// segmentJob is one non-empty segment of the aligned partition.
type segmentJob struct {
	index int
	seg   segment.Segment
}

type segmentResult struct {
	handle   media.Handle
	duration float64
	mismatch *DurationMismatchError
}

// splitJobs lists the segments that survived alignment, with their cuts.
func (p *Pipeline) splitJobs(aligned segment.Partition, dir string) ([]segmentJob, []media.Cut) {
	var jobs []segmentJob
	var cuts []media.Cut

	for i, s := range aligned.Segments() {
		if keyframe.Collapsed(s) {
			p.logger.Debug().
				Int("segment", i).
				Float64("at", s.Start).
				Float64("interest", s.Interest).
				Msg("segment collapsed by keyframe alignment, skipping")
			continue
		}
		jobs = append(jobs, segmentJob{index: i, seg: s})
		cuts = append(cuts, media.Cut{Start: s.Start, End: s.End, Output: p.intermediate(dir, "split", i)})
	}
	return jobs, cuts
}

// stage describes one per-segment retiming pass.
type stage struct {
	name   string
	prefix string
	mode   func(segment.Segment) media.Mode
	// Mismatches abort the run instead of being logged.
	fatal bool
}

// processSegments retimes every non-pass-through part, up to Workers at a
// time. Results keep the order of jobs.
func (p *Pipeline) processSegments(ctx context.Context, st stage, jobs []segmentJob, parts []media.Handle, dir string, hints *media.Metadata) ([]segmentResult, error) {
	if len(parts) != len(jobs) {
		return nil, fmt.Errorf("split produced %d parts for %d segments", len(parts), len(jobs))
	}

	results := make([]segmentResult, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.config.Workers)

	for j := range jobs {
		job, part := jobs[j], parts[j]
		g.Go(func() error {
			res, err := p.processSegment(gctx, st, job, part, dir, hints)
			if err != nil {
				return err
			}
			results[j] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (p *Pipeline) processSegment(ctx context.Context, st stage, job segmentJob, part media.Handle, dir string, hints *media.Metadata) (segmentResult, error) {
	cutDuration, err := p.tool.ProbeDuration(ctx, part)
	if err != nil {
		return segmentResult{}, fmt.Errorf("failed to probe segment %d: %w", job.index, err)
	}

	logger := p.logger.With().
		Str("stage", st.name).
		Int("segment", job.index).
		Float64("start", job.seg.Start).
		Float64("end", job.seg.End).
		Float64("interest", job.seg.Interest).
		Logger()

	if job.seg.PassThrough() {
		logger.Info().Float64("duration", cutDuration).Msg("pass-through segment, using raw cut")
		return segmentResult{handle: part, duration: cutDuration}, nil
	}

	mode := st.mode(job.seg)
	out, err := p.tool.Transform(ctx, part, media.TransformSpec{
		Mode:   mode,
		Output: p.intermediate(dir, st.prefix, job.index),
		Source: hints,
	})
	if err != nil {
		return segmentResult{}, fmt.Errorf("segment %d: %w", job.index, err)
	}

	actual, err := p.tool.ProbeDuration(ctx, out)
	if err != nil {
		return segmentResult{}, fmt.Errorf("failed to probe transformed segment %d: %w", job.index, err)
	}

	expected := media.ExpectedDuration(mode, cutDuration)
	res := segmentResult{handle: out, duration: actual}

	if mismatch := checkDuration(st.name, job.index, expected, actual, p.config.Tolerance); mismatch != nil {
		if st.fatal {
			return segmentResult{}, mismatch
		}
		logger.Warn().Err(mismatch).Msg("duration mismatch, continuing")
		res.mismatch = mismatch
	}

	logger.Info().
		Stringer("mode", mode).
		Float64("in", cutDuration).
		Float64("out", actual).
		Msg("segment transformed")
	return res, nil
}

func handles(results []segmentResult) []media.Handle {
	out := make([]media.Handle, len(results))
	for i, r := range results {
		out[i] = r.handle
	}
	return out
}

// boundaries returns the start time of every result once concatenated.
func boundaries(results []segmentResult) []float64 {
	out := make([]float64, len(results))
	cursor := 0.0
	for i, r := range results {
		out[i] = cursor
		cursor += r.duration
	}
	return out
}

func (p *Pipeline) publish(ctx context.Context, output string) (string, error) {
	loc, err := p.store.Upload(ctx, filepath.Base(output), output)
	if err != nil {
		return "", fmt.Errorf("failed to publish output: %w", err)
	}
	return loc, nil
}

// failed wraps err with the run directory, leaving the directory in place.
func (p *Pipeline) failed(dir string, err error) error {
	if errors.Is(err, context.Canceled) {
		p.logger.Warn().Str("run_dir", dir).Msg("run cancelled")
	}
	return &RunError{RunDir: dir, Err: err}
}

func logDrift(logger zerolog.Logger, before, after segment.Partition) {
	for i, d := range keyframe.Drift(before, after) {
		if d != 0 {
			logger.Debug().Int("boundary", i).Float64("drift", d).Msg("boundary moved to keyframe")
		}
	}
}
