package segment

import "fmt"

// OverlapError reports two input segments that share time.
type OverlapError struct {
	First  Segment
	Second Segment
}

func (e *OverlapError) Error() string {
	return fmt.Sprintf("segments overlap: %v ends after %v starts", e.First, e.Second)
}

// OutOfBoundsError reports a segment outside [0, duration].
type OutOfBoundsError struct {
	Segment  Segment
	Duration float64
}

func (e *OutOfBoundsError) Error() string {
	return fmt.Sprintf("segment %v outside [0, %.3f]", e.Segment, e.Duration)
}

// InvalidInterestError reports a non-positive or non-finite interest.
type InvalidInterestError struct {
	Segment Segment
}

func (e *InvalidInterestError) Error() string {
	return fmt.Sprintf("segment %v: interest must be > 0, got %g", e.Segment, e.Segment.Interest)
}

// EmptySegmentError reports a segment whose end does not follow its start.
type EmptySegmentError struct {
	Segment Segment
}

func (e *EmptySegmentError) Error() string {
	return fmt.Sprintf("segment %v: end must be after start", e.Segment)
}
