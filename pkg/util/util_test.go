package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatSeconds(t *testing.T) {
	assert.Equal(t, "00:00:00.000000", FormatSeconds(0))
	assert.Equal(t, "00:00:07.400000", FormatSeconds(7.4))
	assert.Equal(t, "01:02:03.500000", FormatSeconds(3723.5))
	assert.Equal(t, "00:00:00.000000", FormatSeconds(-1))
}

func TestParseTimestamp(t *testing.T) {
	t.Run("seconds", func(t *testing.T) {
		v, err := ParseTimestamp("45.5")
		require.NoError(t, err)
		assert.InDelta(t, 45.5, v, 1e-9)
	})

	t.Run("minutes and seconds", func(t *testing.T) {
		v, err := ParseTimestamp("02:30")
		require.NoError(t, err)
		assert.InDelta(t, 150.0, v, 1e-9)
	})

	t.Run("hours minutes seconds", func(t *testing.T) {
		v, err := ParseTimestamp("01:00:01.25")
		require.NoError(t, err)
		assert.InDelta(t, 3601.25, v, 1e-9)
	})

	t.Run("invalid", func(t *testing.T) {
		for _, in := range []string{"", "abc", "1:2:3:4", "-5", "1:-2"} {
			_, err := ParseTimestamp(in)
			assert.Error(t, err, in)
		}
	})
}

func TestParseFrameRate(t *testing.T) {
	assert.InDelta(t, 30.0, ParseFrameRate("30/1"), 1e-9)
	assert.InDelta(t, 29.97, ParseFrameRate("30000/1001"), 1e-3)
	assert.Equal(t, 0.0, ParseFrameRate("0/0"))
	assert.Equal(t, 0.0, ParseFrameRate("garbage"))
}

func TestSiblingPath(t *testing.T) {
	assert.Equal(t, "out/video.meta.json", SiblingPath("out/video.mp4", ".meta", ".json"))
	assert.Equal(t, "noext.meta.json", SiblingPath("noext", ".meta", ".json"))
}

func TestIndexedName(t *testing.T) {
	assert.Equal(t, "split_0003.mkv", IndexedName("split", 3, ".mkv"))
}
