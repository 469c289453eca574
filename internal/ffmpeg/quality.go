package ffmpeg

import (
	"fmt"
	"math"

	"github.com/keagan/dilate/internal/media"
)

// crfRange is the usable quality scale per codec, best first.
var crfRange = map[string][2]int{
	"h264": {0, 51},
	"hevc": {0, 51},
	"vp9":  {0, 63},
	"av1":  {0, 63},
}

// observed spread of log1p(pixel-frames per bit)
const (
	minLogScore = 0.5
	maxLogScore = 5.0
)

// EstimateCRF maps a source's pixel-frames per bit onto the codec's CRF
// scale, so re-encodes land near the source's quality. Sparse bitrates map
// to high CRF values.
func EstimateCRF(codec string, bitrate int64, width, height int, fps float64) (int, error) {
	r, ok := crfRange[codec]
	if !ok {
		return 0, fmt.Errorf("unsupported codec %q", codec)
	}
	if bitrate <= 0 || width <= 0 || height <= 0 || fps <= 0 {
		return 0, fmt.Errorf("bitrate, resolution and fps must be positive")
	}

	score := float64(width*height) * fps / float64(bitrate)
	norm := (math.Log1p(score) - minLogScore) / (maxLogScore - minLogScore)
	norm = math.Min(math.Max(norm, 0), 1)

	return int(math.Round(float64(r[0]) + norm*float64(r[1]-r[0]))), nil
}

// crfFor picks the configured CRF, else an estimate, else the default.
func (e *Executor) crfFor(src *media.Metadata) int {
	if e.cfg.CRF > 0 {
		return e.cfg.CRF
	}
	if src == nil {
		return DefaultCRF
	}
	crf, err := EstimateCRF(src.VideoCodec, src.VideoBitrate, src.Width, src.Height, src.FPS)
	if err != nil {
		e.logger.Debug().Err(err).Int("crf", DefaultCRF).Msg("crf estimate unavailable, using default")
		return DefaultCRF
	}
	return crf
}
