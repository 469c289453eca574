package pipeline

import (
	"fmt"
	"math"
)

// WholeOutput is the DurationMismatchError index for a check on the final file.
const WholeOutput = -1

// DurationMismatchError reports a transform whose output length is off by
// more than the tolerance. Encode logs it; decode fails on it.
type DurationMismatchError struct {
	Stage     string
	Index     int
	Expected  float64
	Actual    float64
	Tolerance float64
}

func (e *DurationMismatchError) Error() string {
	what := fmt.Sprintf("segment %d", e.Index)
	if e.Index == WholeOutput {
		what = "output"
	}
	return fmt.Sprintf("%s %s: duration %.3fs, expected %.3fs (off by %.2f%%, tolerance %.2f%%)",
		e.Stage, what, e.Actual, e.Expected, 100*e.Deviation(), 100*e.Tolerance)
}

// Deviation is |actual - expected| relative to expected.
func (e *DurationMismatchError) Deviation() float64 {
	if e.Expected == 0 {
		return math.Inf(1)
	}
	return math.Abs(e.Actual-e.Expected) / e.Expected
}

// checkDuration returns a mismatch error when actual strays from expected.
func checkDuration(stage string, index int, expected, actual, tolerance float64) *DurationMismatchError {
	e := &DurationMismatchError{Stage: stage, Index: index, Expected: expected, Actual: actual, Tolerance: tolerance}
	if e.Deviation() > tolerance {
		return e
	}
	return nil
}

// RunError wraps a failure after the run directory was created. The
// directory is left in place for inspection.
type RunError struct {
	RunDir string
	Err    error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("%v (run directory kept at %s)", e.Err, e.RunDir)
}

func (e *RunError) Unwrap() error { return e.Err }
