package segment

import "math"

// Validate checks a raw segment list against a total duration.
// The list is inspected in start order; the caller's slice is not modified.
func Validate(segs []Segment, total float64) error {
	ordered := sorted(segs)

	for i, s := range ordered {
		if s.Interest <= 0 || math.IsNaN(s.Interest) || math.IsInf(s.Interest, 0) {
			return &InvalidInterestError{Segment: s}
		}
		if !(s.End > s.Start) {
			return &EmptySegmentError{Segment: s}
		}
		if s.Start < 0 || s.End > total {
			return &OutOfBoundsError{Segment: s, Duration: total}
		}
		if i+1 < len(ordered) && s.End > ordered[i+1].Start {
			return &OverlapError{First: s, Second: ordered[i+1]}
		}
	}

	return nil
}

// FillGaps completes a validated segment list into a partition of [0, total]
// by inserting pass-through segments into every gap. Feeding a full
// partition back in returns it unchanged.
func FillGaps(segs []Segment, total float64) Partition {
	ordered := sorted(segs)
	out := make([]Segment, 0, 2*len(ordered)+1)
	prevEnd := 0.0

	for _, s := range ordered {
		if s.Start > prevEnd {
			out = append(out, Segment{Start: prevEnd, End: s.Start, Interest: PassThroughInterest})
		}
		out = append(out, s)
		prevEnd = s.End
	}

	if prevEnd < total {
		out = append(out, Segment{Start: prevEnd, End: total, Interest: PassThroughInterest})
	}

	return Partition{space: Original, segs: out}
}

// Normalize validates segs and fills the gaps.
func Normalize(segs []Segment, total float64) (Partition, error) {
	if err := Validate(segs, total); err != nil {
		return Partition{}, err
	}
	return FillGaps(segs, total), nil
}
