package pipeline

import (
	"github.com/keagan/dilate/internal/keyframe"
	"github.com/keagan/dilate/internal/metadata"
	"github.com/keagan/dilate/internal/segment"
	"github.com/keagan/dilate/internal/timeline"
)

// PlanEncode normalizes segs over duration and aligns the result to the
// source's cut points. It touches no media.
func PlanEncode(segs []segment.Segment, duration float64, keyframes []float64) (*Plan, error) {
	original, err := segment.Normalize(segs, duration)
	if err != nil {
		return nil, err
	}

	compressed, err := timeline.ToCompressed(original)
	if err != nil {
		return nil, err
	}

	aligned, err := keyframe.Align(original, keyframes)
	if err != nil {
		return nil, err
	}

	expected, err := timeline.CompressedDuration(nonEmpty(aligned))
	if err != nil {
		return nil, err
	}

	return &Plan{
		Original:   original,
		Compressed: compressed,
		Aligned:    aligned,
		Expected:   expected,
	}, nil
}

// PlanDecode rebuilds the encode-time partition from meta, maps it into
// compressed time and aligns it to the compressed file's cut points.
func PlanDecode(meta *metadata.RunMetadata, keyframes []float64) (*Plan, error) {
	original, err := segment.Normalize(meta.Segments, meta.Duration)
	if err != nil {
		return nil, err
	}

	compressed, err := timeline.ToCompressed(original)
	if err != nil {
		return nil, err
	}

	aligned, err := keyframe.Align(compressed, keyframes)
	if err != nil {
		return nil, err
	}

	expected, err := timeline.ExpandedDuration(nonEmpty(aligned))
	if err != nil {
		return nil, err
	}

	return &Plan{
		Original:   original,
		Compressed: compressed,
		Aligned:    aligned,
		Expected:   expected,
	}, nil
}

// CutPoints adds the stream's own start and end to its keyframes; both are
// always safe places to cut. Keyframes outside [0, duration] are dropped.
func CutPoints(keyframes []float64, duration float64) []float64 {
	out := make([]float64, 0, len(keyframes)+2)
	out = append(out, 0)
	for _, k := range keyframes {
		if k > out[len(out)-1] && k < duration {
			out = append(out, k)
		}
	}
	return append(out, duration)
}

// nonEmpty drops segments that alignment collapsed to nothing and lays the
// rest back to back, as the concatenated output will.
func nonEmpty(p segment.Partition) segment.Partition {
	out := make([]segment.Segment, 0, p.Len())
	cursor := 0.0
	for _, s := range p.Segments() {
		if keyframe.Collapsed(s) {
			continue
		}
		d := s.Duration()
		out = append(out, segment.Segment{Start: cursor, End: cursor + d, Interest: s.Interest})
		cursor += d
	}
	return segment.NewPartition(p.Space(), out)
}
