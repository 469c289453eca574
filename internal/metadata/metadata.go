// Package metadata persists what a decode needs from its encode: the
// original duration and the raw segments.
package metadata

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/keagan/dilate/internal/segment"
	"github.com/keagan/dilate/internal/storage"
)

// RunMetadata is written after a successful encode.
type RunMetadata struct {
	// Duration of the original source in seconds.
	Duration float64 `json:"duration"`
	// Segments as supplied, before gap filling and alignment.
	Segments []segment.Segment `json:"segments"`
}

// Validate checks the record is usable for a decode.
func (m *RunMetadata) Validate() error {
	if !(m.Duration > 0) {
		return fmt.Errorf("duration must be positive, got %g", m.Duration)
	}
	return segment.Validate(m.Segments, m.Duration)
}

// Marshal encodes m as indented JSON.
func Marshal(m *RunMetadata) ([]byte, error) {
	segs := m.Segments
	if segs == nil {
		segs = []segment.Segment{}
	}
	return json.MarshalIndent(RunMetadata{Duration: m.Duration, Segments: segs}, "", "  ")
}

// Unmarshal decodes and validates a record. Unknown fields are rejected.
func Unmarshal(data []byte) (*RunMetadata, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var m RunMetadata
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("malformed run metadata: %w", err)
	}
	if dec.More() {
		return nil, fmt.Errorf("malformed run metadata: trailing data")
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("invalid run metadata: %w", err)
	}
	return &m, nil
}

// Save writes m to key in store.
func Save(ctx context.Context, store storage.Store, key string, m *RunMetadata) error {
	data, err := Marshal(m)
	if err != nil {
		return err
	}
	if err := store.Put(ctx, key, data); err != nil {
		return fmt.Errorf("failed to save run metadata: %w", err)
	}
	return nil
}

// Load reads and validates the record at key.
func Load(ctx context.Context, store storage.Store, key string) (*RunMetadata, error) {
	data, err := store.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to load run metadata: %w", err)
	}
	return Unmarshal(data)
}
