package ffmpeg

import (
	"fmt"
	"strconv"
	"strings"
)

// atempo accepts factors in [0.5, 2.0] per instance
const (
	atempoMin = 0.5
	atempoMax = 2.0
)

// FilterBuilder helps construct ffmpeg filter chains
type FilterBuilder struct {
	filters []string
}

// NewFilterBuilder creates a new filter builder
func NewFilterBuilder() *FilterBuilder {
	return &FilterBuilder{
		filters: make([]string, 0),
	}
}

// Setpts scales presentation timestamps by factor
func (fb *FilterBuilder) Setpts(factor float64) *FilterBuilder {
	if factor <= 0 {
		// Return self without adding filter - allows chaining to continue
		return fb
	}
	fb.filters = append(fb.filters, fmt.Sprintf("setpts=%s*PTS", num(factor)))
	return fb
}

// Atempo changes audio tempo by factor, chaining instances to stay in
// the filter's accepted range.
func (fb *FilterBuilder) Atempo(factor float64) *FilterBuilder {
	if factor <= 0 {
		return fb
	}
	for factor > atempoMax {
		fb.filters = append(fb.filters, "atempo="+num(atempoMax))
		factor /= atempoMax
	}
	for factor < atempoMin {
		fb.filters = append(fb.filters, "atempo="+num(atempoMin))
		factor /= atempoMin
	}
	fb.filters = append(fb.filters, "atempo="+num(factor))
	return fb
}

// Rubberband changes audio tempo with pitch preserved
func (fb *FilterBuilder) Rubberband(factor float64) *FilterBuilder {
	if factor <= 0 {
		return fb
	}
	fb.filters = append(fb.filters, "rubberband=tempo="+num(factor))
	return fb
}

// FPS adds an fps filter
func (fb *FilterBuilder) FPS(fps float64) *FilterBuilder {
	if fps <= 0 {
		return fb
	}
	fb.filters = append(fb.filters, "fps="+num(fps))
	return fb
}

// Aresample resamples audio to rate
func (fb *FilterBuilder) Aresample(rate int) *FilterBuilder {
	if rate <= 0 {
		return fb
	}
	fb.filters = append(fb.filters, fmt.Sprintf("aresample=%d", rate))
	return fb
}

// Custom adds a custom filter string
func (fb *FilterBuilder) Custom(filter string) *FilterBuilder {
	fb.filters = append(fb.filters, filter)
	return fb
}

// Build returns the complete filter string joined with commas
func (fb *FilterBuilder) Build() string {
	if len(fb.filters) == 0 {
		return ""
	}
	return strings.Join(fb.filters, ",")
}

// Labeled wraps the chain as a filter_complex branch: [in]chain[out].
// An empty chain becomes a passthrough filter.
func (fb *FilterBuilder) Labeled(in, out string, passthrough string) string {
	chain := fb.Build()
	if chain == "" {
		chain = passthrough
	}
	return fmt.Sprintf("[%s]%s[%s]", in, chain, out)
}

// num formats a float without exponent or trailing zeros
func num(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
