// Package keyframe snaps partition boundaries onto cut-safe keyframe timestamps.
package keyframe

import (
	"errors"
	"sort"

	"github.com/keagan/dilate/internal/segment"
)

// NoKeyframesError is returned when there is nothing to align to.
type NoKeyframesError struct {
	Source string
}

func (e *NoKeyframesError) Error() string {
	if e.Source == "" {
		return "no keyframes available for alignment"
	}
	return "no keyframes found in " + e.Source
}

// ErrNoKeyframes matches any *NoKeyframesError via errors.Is.
var ErrNoKeyframes = errors.New("no keyframes")

func (e *NoKeyframesError) Is(target error) bool { return target == ErrNoKeyframes }

// Align replaces every start and end in p with the nearest keyframe.
// Ties go to the earlier keyframe. Start and end are aligned independently,
// so sparse keyframes can collapse a segment to zero length; callers treat
// those as no-ops.
func Align(p segment.Partition, keyframes []float64) (segment.Partition, error) {
	if len(keyframes) == 0 {
		return segment.Partition{}, &NoKeyframesError{}
	}

	kf := keyframes
	if !sort.Float64sAreSorted(kf) {
		kf = make([]float64, len(keyframes))
		copy(kf, keyframes)
		sort.Float64s(kf)
	}

	out := make([]segment.Segment, p.Len())
	for i := 0; i < p.Len(); i++ {
		s := p.At(i)
		out[i] = segment.Segment{
			Start:    Nearest(kf, s.Start),
			End:      Nearest(kf, s.End),
			Interest: s.Interest,
		}
	}

	return segment.NewPartition(p.Space(), out), nil
}

// Nearest returns the value in sorted closest to t, preferring the lower
// value on an exact tie. sorted must be non-empty and ascending.
func Nearest(sorted []float64, t float64) float64 {
	i := sort.SearchFloat64s(sorted, t)
	switch {
	case i == 0:
		return sorted[0]
	case i == len(sorted):
		return sorted[len(sorted)-1]
	}

	lo, hi := sorted[i-1], sorted[i]
	if hi-t < t-lo {
		return hi
	}
	return lo
}

// Drift returns how far each boundary moved between two partitions of equal length.
func Drift(before, after segment.Partition) []float64 {
	b, a := before.Bounds(), after.Bounds()
	n := len(b)
	if len(a) < n {
		n = len(a)
	}
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = a[i] - b[i]
	}
	return out
}

// Collapsed reports whether an aligned segment has no duration left.
func Collapsed(s segment.Segment) bool {
	return !(s.End > s.Start)
}
