package pipeline

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/keagan/dilate/internal/media"
	"github.com/keagan/dilate/internal/metadata"
	"github.com/keagan/dilate/internal/segment"
	"github.com/keagan/dilate/pkg/util"
)

var compressStage = stage{
	name:   "compress",
	prefix: "compressed",
	mode:   func(s segment.Segment) media.Mode { return media.Compress{Interest: s.Interest} },
}

// Encode compresses opts.Input into opts.Output and persists the run
// metadata a later Decode needs.
func (p *Pipeline) Encode(ctx context.Context, opts EncodeOptions) (*Result, error) {
	if opts.Output == "" {
		return nil, fmt.Errorf("output path cannot be empty")
	}

	p.logger.Info().
		Str("input", opts.Input).
		Str("output", opts.Output).
		Int("segments", len(opts.Segments)).
		Msg("starting encode")

	src, err := p.probeSource(ctx, opts.Input)
	if err != nil {
		return nil, err
	}

	// Reject bad segment lists before any media work.
	if err := segment.Validate(opts.Segments, src.duration); err != nil {
		return nil, fmt.Errorf("invalid segments: %w", err)
	}

	if err := p.probeKeyframes(ctx, src); err != nil {
		return nil, err
	}

	plan, err := PlanEncode(opts.Segments, src.duration, src.keyframes)
	if err != nil {
		return nil, fmt.Errorf("failed to plan encode: %w", err)
	}
	logDrift(p.logger, plan.Original, plan.Aligned)

	p.logger.Info().
		Int("segments", plan.Aligned.Len()).
		Float64("expected_duration", plan.Expected).
		Msg("encode planned")

	dir, err := p.newRunDir()
	if err != nil {
		return nil, err
	}

	res, err := p.encode(ctx, opts, src, plan, dir)
	if err != nil {
		return nil, p.failed(dir, err)
	}
	res.RunDir = p.release(dir)

	p.logger.Info().
		Str("output", res.Output).
		Float64("duration", res.Duration).
		Int("mismatches", len(res.Mismatches)).
		Msg("encode complete")
	return res, nil
}

func (p *Pipeline) encode(ctx context.Context, opts EncodeOptions, src *source, plan *Plan, dir string) (*Result, error) {
	jobs, cuts := p.splitJobs(plan.Aligned, dir)
	if len(jobs) == 0 {
		return nil, fmt.Errorf("no segments left after keyframe alignment")
	}

	parts, err := p.tool.Split(ctx, src.handle, cuts)
	if err != nil {
		return nil, err
	}

	results, err := p.processSegments(ctx, compressStage, jobs, parts, dir, src.handle.Metadata)
	if err != nil {
		return nil, err
	}

	if err := util.EnsureDir(filepath.Dir(opts.Output)); err != nil {
		return nil, err
	}
	out, err := p.tool.Concatenate(ctx, handles(results), media.ConcatSpec{
		Output: opts.Output,
		Source: src.handle.Metadata,
	})
	if err != nil {
		return nil, err
	}

	res := &Result{Output: out.Path, Plan: plan}
	for _, r := range results {
		if r.mismatch != nil {
			res.Mismatches = append(res.Mismatches, r.mismatch)
		}
	}

	res.Duration, err = p.tool.ProbeDuration(ctx, out)
	if err != nil {
		return nil, fmt.Errorf("failed to probe output: %w", err)
	}
	if mismatch := checkDuration("encode", WholeOutput, plan.Expected, res.Duration, p.config.Tolerance); mismatch != nil {
		p.logger.Warn().Err(mismatch).Msg("encoded duration differs from plan")
		res.Mismatches = append(res.Mismatches, mismatch)
	}

	res.MetadataKey = opts.MetadataKey
	if res.MetadataKey == "" {
		res.MetadataKey = util.SiblingPath(opts.Output, ".meta", ".json")
	}
	meta := &metadata.RunMetadata{Duration: src.duration, Segments: opts.Segments}
	if err := metadata.Save(ctx, p.store, res.MetadataKey, meta); err != nil {
		return nil, err
	}
	p.logger.Info().Str("key", res.MetadataKey).Msg("run metadata saved")

	if opts.Publish {
		if res.Published, err = p.publish(ctx, out.Path); err != nil {
			return nil, err
		}
	}

	return res, nil
}
