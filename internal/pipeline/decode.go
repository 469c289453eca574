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

var expandStage = stage{
	name:   "expand",
	prefix: "expanded",
	mode:   func(s segment.Segment) media.Mode { return media.Expand{Interest: s.Interest} },
	fatal:  true,
}

// Decode restores the original timing of a file produced by Encode.
func (p *Pipeline) Decode(ctx context.Context, opts DecodeOptions) (*Result, error) {
	if opts.Output == "" {
		return nil, fmt.Errorf("output path cannot be empty")
	}

	key := opts.MetadataKey
	if key == "" {
		key = util.SiblingPath(opts.Input, ".meta", ".json")
	}

	p.logger.Info().
		Str("input", opts.Input).
		Str("output", opts.Output).
		Str("metadata", key).
		Msg("starting decode")

	meta, err := metadata.Load(ctx, p.store, key)
	if err != nil {
		return nil, err
	}

	src, err := p.probeSource(ctx, opts.Input)
	if err != nil {
		return nil, err
	}
	if err := p.probeKeyframes(ctx, src); err != nil {
		return nil, err
	}

	plan, err := PlanDecode(meta, src.keyframes)
	if err != nil {
		return nil, fmt.Errorf("failed to plan decode: %w", err)
	}
	logDrift(p.logger, plan.Compressed, plan.Aligned)

	if mismatch := checkDuration("decode input", WholeOutput, plan.Compressed.Duration(), src.duration, p.config.Tolerance); mismatch != nil {
		p.logger.Warn().Err(mismatch).Msg("input length does not match its run metadata")
	}

	p.logger.Info().
		Int("segments", plan.Aligned.Len()).
		Float64("original_duration", meta.Duration).
		Float64("expected_duration", plan.Expected).
		Msg("decode planned")

	dir, err := p.newRunDir()
	if err != nil {
		return nil, err
	}

	res, err := p.decode(ctx, opts, src, meta, plan, dir)
	if err != nil {
		return nil, p.failed(dir, err)
	}
	res.MetadataKey = key
	res.RunDir = p.release(dir)

	p.logger.Info().
		Str("output", res.Output).
		Float64("duration", res.Duration).
		Msg("decode complete")
	return res, nil
}

func (p *Pipeline) decode(ctx context.Context, opts DecodeOptions, src *source, meta *metadata.RunMetadata, plan *Plan, dir string) (*Result, error) {
	jobs, cuts := p.splitJobs(plan.Aligned, dir)
	if len(jobs) == 0 {
		return nil, fmt.Errorf("no segments left after keyframe alignment")
	}

	parts, err := p.tool.Split(ctx, src.handle, cuts)
	if err != nil {
		return nil, err
	}

	hints := src.handle.Metadata
	results, err := p.processSegments(ctx, expandStage, jobs, parts, dir, hints)
	if err != nil {
		return nil, err
	}

	// Force a keyframe at every splice.
	joined, err := p.tool.Concatenate(ctx, handles(results), media.ConcatSpec{
		Output:          filepath.Join(dir, "restored."+p.config.Container),
		FPS:             hints.FPS,
		ForcedKeyframes: boundaries(results),
		Source:          hints,
	})
	if err != nil {
		return nil, err
	}

	if err := util.EnsureDir(filepath.Dir(opts.Output)); err != nil {
		return nil, err
	}
	out, err := p.tool.Transform(ctx, joined, media.TransformSpec{
		Mode:   media.Renormalize{FPS: hints.FPS, SampleRate: hints.SampleRate},
		Output: opts.Output,
		Source: hints,
	})
	if err != nil {
		return nil, err
	}

	res := &Result{Output: out.Path, Plan: plan}
	res.Duration, err = p.tool.ProbeDuration(ctx, out)
	if err != nil {
		return nil, fmt.Errorf("failed to probe output: %w", err)
	}
	if mismatch := checkDuration("decode", WholeOutput, meta.Duration, res.Duration, p.config.Tolerance); mismatch != nil {
		return nil, mismatch
	}

	if opts.Publish {
		if res.Published, err = p.publish(ctx, out.Path); err != nil {
			return nil, err
		}
	}

	return res, nil
}
