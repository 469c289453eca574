package media

import "fmt"

// Mode selects what a transform does. It is a closed set:
// Compress, Expand and Renormalize.
type Mode interface {
	// Scale multiplies presentation timestamps, and therefore duration.
	Scale() float64
	fmt.Stringer
	mode()
}

// Compress speeds a segment up (interest < 1) or slows it (interest > 1)
// on encode: video PTS is scaled by Interest, audio tempo by 1/Interest.
type Compress struct {
	Interest float64
}

// Expand undoes Compress: video PTS is scaled by 1/Interest, audio tempo by Interest.
type Expand struct {
	Interest float64
}

// Renormalize re-encodes at the source's native frame rate and sample rate
// without retiming.
type Renormalize struct {
	FPS        float64
	SampleRate int
}

func (m Compress) Scale() float64 { return m.Interest }
func (m Expand) Scale() float64 { return 1 / m.Interest }
func (m Renormalize) Scale() float64 { return 1 }

func (m Compress) String() string { return fmt.Sprintf("compress(x%g)", m.Interest) }
func (m Expand) String() string { return fmt.Sprintf("expand(x%g)", 1/m.Interest) }
func (m Renormalize) String() string {
	return fmt.Sprintf("renormalize(%.3ffps, %dHz)", m.FPS, m.SampleRate)
}

func (Compress) mode() {}
func (Expand) mode() {}
func (Renormalize) mode() {}

// ExpectedDuration is the length a transform of an input lasting in seconds should produce.
func ExpectedDuration(m Mode, in float64) float64 {
	return in * m.Scale()
}
