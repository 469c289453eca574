// Package segment models interest segments and the gapless partitions derived from them.
package segment

import (
	"fmt"
	"sort"
)

// PassThroughInterest marks a segment that is copied without retiming.
const PassThroughInterest = 1.0

// Segment is a time interval in seconds with an interest multiplier.
// Interest < 1 is sped up on encode, > 1 is slowed down, 1 is left alone.
type Segment struct {
	Start    float64 `json:"start" yaml:"start"`
	End      float64 `json:"end" yaml:"end"`
	Interest float64 `json:"interest" yaml:"interest"`
}

// Duration returns End - Start.
func (s Segment) Duration() float64 {
	return s.End - s.Start
}

// PassThrough reports whether the segment is left untouched by transforms.
func (s Segment) PassThrough() bool {
	return s.Interest == PassThroughInterest
}

func (s Segment) String() string {
	return fmt.Sprintf("[%.3f-%.3f x%g]", s.Start, s.End, s.Interest)
}

// Space names the timeline a partition's timestamps live in.
type Space int

const (
	// Original is the source video's timeline.
	Original Space = iota
	// Compressed is the timeline of the encoded output.
	Compressed
)

func (s Space) String() string {
	switch s {
	case Original:
		return "original"
	case Compressed:
		return "compressed"
	default:
		return fmt.Sprintf("space(%d)", int(s))
	}
}

// Partition is a sorted, contiguous covering of a timeline.
// It is immutable: accessors hand out copies.
type Partition struct {
	space Space
	segs  []Segment
}

// NewPartition builds a partition in the given space from a copy of segs.
func NewPartition(space Space, segs []Segment) Partition {
	cp := make([]Segment, len(segs))
	copy(cp, segs)
	return Partition{space: space, segs: cp}
}

// Space returns the timeline the partition is expressed in.
func (p Partition) Space() Space { return p.space }

// Len returns the number of segments.
func (p Partition) Len() int { return len(p.segs) }

// At returns the i-th segment.
func (p Partition) At(i int) Segment { return p.segs[i] }

// Segments returns a copy of the segments.
func (p Partition) Segments() []Segment {
	cp := make([]Segment, len(p.segs))
	copy(cp, p.segs)
	return cp
}

// Duration returns the end of the last segment.
func (p Partition) Duration() float64 {
	if len(p.segs) == 0 {
		return 0
	}
	return p.segs[len(p.segs)-1].End
}

// Bounds returns every segment boundary: the first start followed by each end.
func (p Partition) Bounds() []float64 {
	if len(p.segs) == 0 {
		return nil
	}
	out := make([]float64, 0, len(p.segs)+1)
	out = append(out, p.segs[0].Start)
	for _, s := range p.segs {
		out = append(out, s.End)
	}
	return out
}

// Equal reports whether two partitions share a space and identical segments.
func (p Partition) Equal(o Partition) bool {
	if p.space != o.space || len(p.segs) != len(o.segs) {
		return false
	}
	for i := range p.segs {
		if p.segs[i] != o.segs[i] {
			return false
		}
	}
	return true
}

func (p Partition) String() string {
	return fmt.Sprintf("%s%v", p.space, p.segs)
}

// sorted returns a copy of segs ordered by start.
func sorted(segs []Segment) []Segment {
	cp := make([]Segment, len(segs))
	copy(cp, segs)
	sort.SliceStable(cp, func(i, j int) bool { return cp[i].Start < cp[j].Start })
	return cp
}
