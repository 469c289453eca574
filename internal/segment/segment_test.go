package segment

import (
	"errors"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFillGaps(t *testing.T) {
	t.Run("single interior segment", func(t *testing.T) {
		p := FillGaps([]Segment{{10, 20, 0.5}}, 30)
		assert.Equal(t, Original, p.Space())
		assert.Equal(t, []Segment{
			{0, 10, 1.0},
			{10, 20, 0.5},
			{20, 30, 1.0},
		}, p.Segments())
	})

	t.Run("unsorted input", func(t *testing.T) {
		p := FillGaps([]Segment{{20, 25, 2.0}, {0, 5, 0.1}}, 25)
		assert.Equal(t, []Segment{
			{0, 5, 0.1},
			{5, 20, 1.0},
			{20, 25, 2.0},
		}, p.Segments())
	})

	t.Run("empty list covers everything", func(t *testing.T) {
		p := FillGaps(nil, 12.5)
		assert.Equal(t, []Segment{{0, 12.5, 1.0}}, p.Segments())
	})

	t.Run("no zero length inserts", func(t *testing.T) {
		p := FillGaps([]Segment{{0, 10, 0.5}, {10, 30, 0.2}}, 30)
		assert.Equal(t, 2, p.Len())
	})

	t.Run("input slice untouched", func(t *testing.T) {
		in := []Segment{{20, 25, 2.0}, {0, 5, 0.1}}
		FillGaps(in, 25)
		assert.Equal(t, Segment{20, 25, 2.0}, in[0])
	})
}

func TestFillGapsIdempotent(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 200; i++ {
		segs, total := randomSparse(rng)
		require.NoError(t, Validate(segs, total))

		once := FillGaps(segs, total)
		twice := FillGaps(once.Segments(), total)
		assert.True(t, once.Equal(twice), "iteration %d: %v != %v", i, once, twice)
	}
}

func TestFillGapsCoverage(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	for i := 0; i < 200; i++ {
		segs, total := randomSparse(rng)
		p := FillGaps(segs, total)

		require.Greater(t, p.Len(), 0)
		assert.Equal(t, 0.0, p.At(0).Start)
		assert.Equal(t, total, p.Duration())

		inserted := 0
		for j := 0; j < p.Len(); j++ {
			s := p.At(j)
			assert.Greater(t, s.End, s.Start)
			if j > 0 {
				assert.Equal(t, p.At(j-1).End, s.Start)
			}
			if !contains(segs, s) {
				assert.True(t, s.PassThrough())
				inserted++
			}
		}
		assert.Equal(t, len(segs)+inserted, p.Len())
	}
}

func TestValidate(t *testing.T) {
	t.Run("overlap", func(t *testing.T) {
		err := Validate([]Segment{{0, 10, 1.0}, {5, 15, 1.0}}, 30)
		var overlap *OverlapError
		require.True(t, errors.As(err, &overlap), "got %v", err)
		assert.Equal(t, Segment{0, 10, 1.0}, overlap.First)
		assert.Equal(t, Segment{5, 15, 1.0}, overlap.Second)
	})

	t.Run("overlap detected regardless of input order", func(t *testing.T) {
		err := Validate([]Segment{{5, 15, 1.0}, {0, 10, 1.0}}, 30)
		var overlap *OverlapError
		assert.True(t, errors.As(err, &overlap))
	})

	t.Run("touching segments are fine", func(t *testing.T) {
		assert.NoError(t, Validate([]Segment{{0, 10, 0.5}, {10, 15, 2}}, 15))
	})

	t.Run("end past duration", func(t *testing.T) {
		err := Validate([]Segment{{10, 31, 0.5}}, 30)
		var oob *OutOfBoundsError
		require.True(t, errors.As(err, &oob))
		assert.Equal(t, 30.0, oob.Duration)
	})

	t.Run("negative start", func(t *testing.T) {
		err := Validate([]Segment{{-1, 5, 0.5}}, 30)
		var oob *OutOfBoundsError
		assert.True(t, errors.As(err, &oob))
	})

	t.Run("non-positive interest", func(t *testing.T) {
		for _, interest := range []float64{0, -0.5} {
			err := Validate([]Segment{{0, 5, interest}}, 30)
			var inv *InvalidInterestError
			assert.True(t, errors.As(err, &inv), "interest %g", interest)
		}
	})

	t.Run("empty segment", func(t *testing.T) {
		err := Validate([]Segment{{5, 5, 0.5}}, 30)
		var empty *EmptySegmentError
		assert.True(t, errors.As(err, &empty))
	})
}

func TestNormalize(t *testing.T) {
	_, err := Normalize([]Segment{{0, 10, 1.0}, {5, 15, 1.0}}, 30)
	assert.Error(t, err)

	p, err := Normalize([]Segment{{10, 20, 0.5}}, 30)
	require.NoError(t, err)
	assert.Equal(t, 3, p.Len())
}

func TestPartitionAccessors(t *testing.T) {
	p := NewPartition(Compressed, []Segment{{0, 5, 0.5}, {5, 15, 1.0}})
	assert.Equal(t, Compressed, p.Space())
	assert.Equal(t, 15.0, p.Duration())
	assert.Equal(t, []float64{0, 5, 15}, p.Bounds())

	segs := p.Segments()
	segs[0].Interest = 9
	assert.Equal(t, 0.5, p.At(0).Interest, "partition must not share its backing array")

	assert.Equal(t, 0.0, Partition{}.Duration())
	assert.Nil(t, Partition{}.Bounds())
}

func TestParse(t *testing.T) {
	seg, err := Parse("10-20=0.5")
	require.NoError(t, err)
	assert.Equal(t, Segment{10, 20, 0.5}, seg)

	seg, err = Parse("00:01:00-00:02:30.5=2")
	require.NoError(t, err)
	assert.Equal(t, Segment{60, 150.5, 2}, seg)

	for _, bad := range []string{"10-20", "10=0.5", "a-20=1", "10-b=1", "10-20=x"} {
		_, err := Parse(bad)
		assert.Error(t, err, bad)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "segments.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte("- start: 0\n  end: 60\n  interest: 0.5\n- {start: 90, end: 120, interest: 0.02}\n"), 0644))
	segs, err := LoadFile(yamlPath)
	require.NoError(t, err)
	assert.Equal(t, []Segment{{0, 60, 0.5}, {90, 120, 0.02}}, segs)

	jsonPath := filepath.Join(dir, "segments.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`[{"start": 11, "end": 23, "interest": 0.1}]`), 0644))
	segs, err = LoadFile(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, []Segment{{11, 23, 0.1}}, segs)

	_, err = LoadFile(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

// randomSparse builds a valid, shuffled, sparse segment list.
func randomSparse(rng *rand.Rand) ([]Segment, float64) {
	total := 10 + rng.Float64()*500
	var segs []Segment
	cursor := 0.0
	for cursor < total {
		gap := rng.Float64() * 20
		length := 0.5 + rng.Float64()*40
		start := cursor + gap
		end := start + length
		if end > total {
			break
		}
		interests := []float64{0.01, 0.25, 0.5, 1.0, 1.5, 3.0}
		segs = append(segs, Segment{Start: start, End: end, Interest: interests[rng.Intn(len(interests))]})
		if rng.Intn(3) == 0 {
			cursor = end
		} else {
			cursor = end + rng.Float64()*5
		}
	}
	rng.Shuffle(len(segs), func(i, j int) { segs[i], segs[j] = segs[j], segs[i] })
	return segs, total
}

func contains(segs []Segment, s Segment) bool {
	for _, c := range segs {
		if c == s {
			return true
		}
	}
	return false
}
