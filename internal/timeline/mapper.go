// Package timeline converts partitions between original and compressed time.
//
// Encoded segments are concatenated in partition order, so the compressed
// layout is fully determined by the original partition's durations and
// interests. No rounding happens here; snapping to real cut points is the
// keyframe aligner's job.
package timeline

import (
	"fmt"
	"math"

	"github.com/keagan/dilate/internal/segment"
)

// SpaceError reports a partition handed to a mapping in the wrong space.
type SpaceError struct {
	Want segment.Space
	Got  segment.Space
}

func (e *SpaceError) Error() string {
	return fmt.Sprintf("expected %s partition, got %s", e.Want, e.Got)
}

// ToCompressed lays the original partition out back-to-back in compressed
// time: each segment keeps its interest and lasts (end-start)*interest.
func ToCompressed(p segment.Partition) (segment.Partition, error) {
	if p.Space() != segment.Original {
		return segment.Partition{}, &SpaceError{Want: segment.Original, Got: p.Space()}
	}
	return remap(p, segment.Compressed, func(length, interest float64) float64 {
		return length * interest
	})
}

// ToOriginal is the inverse of ToCompressed: a compressed length L maps back
// to L/interest.
func ToOriginal(p segment.Partition) (segment.Partition, error) {
	if p.Space() != segment.Compressed {
		return segment.Partition{}, &SpaceError{Want: segment.Compressed, Got: p.Space()}
	}
	return remap(p, segment.Original, func(length, interest float64) float64 {
		return length / interest
	})
}

func remap(p segment.Partition, to segment.Space, scale func(length, interest float64) float64) (segment.Partition, error) {
	out := make([]segment.Segment, 0, p.Len())
	cursor := 0.0

	for i := 0; i < p.Len(); i++ {
		s := p.At(i)
		if !validInterest(s.Interest) {
			return segment.Partition{}, &segment.InvalidInterestError{Segment: s}
		}

		length := scale(s.Duration(), s.Interest)
		if !(length > 0) {
			return segment.Partition{}, &segment.EmptySegmentError{Segment: s}
		}

		out = append(out, segment.Segment{Start: cursor, End: cursor + length, Interest: s.Interest})
		cursor += length
	}

	return segment.NewPartition(to, out), nil
}

// CompressedDuration estimates the length of the encoded output.
func CompressedDuration(p segment.Partition) (float64, error) {
	c, err := ToCompressed(p)
	if err != nil {
		return 0, err
	}
	return c.Duration(), nil
}

// ExpandedDuration estimates the length restored by decoding a compressed partition.
func ExpandedDuration(p segment.Partition) (float64, error) {
	o, err := ToOriginal(p)
	if err != nil {
		return 0, err
	}
	return o.Duration(), nil
}

func validInterest(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}
