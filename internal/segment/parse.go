package segment

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/keagan/dilate/pkg/util"
	"gopkg.in/yaml.v3"
)

// Parse reads a segment written as START-END=INTEREST, e.g. "10-20=0.5"
// or "00:01:00-00:02:30.5=0.25".
func Parse(s string) (Segment, error) {
	span, interestStr, ok := strings.Cut(strings.TrimSpace(s), "=")
	if !ok {
		return Segment{}, fmt.Errorf("segment %q: expected START-END=INTEREST", s)
	}

	startStr, endStr, ok := strings.Cut(span, "-")
	if !ok {
		return Segment{}, fmt.Errorf("segment %q: expected START-END=INTEREST", s)
	}

	start, err := util.ParseTimestamp(startStr)
	if err != nil {
		return Segment{}, fmt.Errorf("segment %q: start: %w", s, err)
	}
	end, err := util.ParseTimestamp(endStr)
	if err != nil {
		return Segment{}, fmt.Errorf("segment %q: end: %w", s, err)
	}
	interest, err := strconv.ParseFloat(strings.TrimSpace(interestStr), 64)
	if err != nil {
		return Segment{}, fmt.Errorf("segment %q: interest: %w", s, err)
	}

	return Segment{Start: start, End: end, Interest: interest}, nil
}

// ParseAll parses every entry with Parse.
func ParseAll(specs []string) ([]Segment, error) {
	segs := make([]Segment, 0, len(specs))
	for _, spec := range specs {
		seg, err := Parse(spec)
		if err != nil {
			return nil, err
		}
		segs = append(segs, seg)
	}
	return segs, nil
}

// LoadFile reads a YAML (or JSON) list of segments.
func LoadFile(path string) ([]Segment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read segments file: %w", err)
	}

	var segs []Segment
	if err := yaml.Unmarshal(data, &segs); err != nil {
		return nil, fmt.Errorf("failed to parse segments file %s: %w", path, err)
	}

	return segs, nil
}
