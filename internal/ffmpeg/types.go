package ffmpeg

// Progress represents ffmpeg progress data
type Progress struct {
	Frame   int
	FPS     float64
	Bitrate string
	Time    string
	Speed   string
}

// RunOptions configures ffmpeg execution
type RunOptions struct {
	Args            []string
	ProgressHandler ProgressFunc
	LogHandler      func(line string)
}

// ProgressFunc is a callback for progress updates during ffmpeg operations.
// Called once per completed progress block.
type ProgressFunc func(*Progress)

// Default encoding settings
const (
	DefaultCRF        = 23
	DefaultPreset     = "medium"
	DefaultVideoCodec = "libx264"
	DefaultAudioCodec = "aac"
	DefaultContainer  = "mkv"

	// stderr lines kept for error reports
	stderrTail = 20
)

// videoEncoders maps probed codec names to the encoder that re-creates them.
var videoEncoders = map[string]string{
	"h264":  "libx264",
	"hevc":  "libx265",
	"vp9":   "libvpx-vp9",
	"av1":   "libsvtav1",
	"mpeg4": "mpeg4",
}

var audioEncoders = map[string]string{
	"aac":    "aac",
	"opus":   "libopus",
	"mp3":    "libmp3lame",
	"vorbis": "libvorbis",
	"flac":   "flac",
	"ac3":    "ac3",
}

// videoEncoder picks the configured encoder, else one matching the source codec.
func videoEncoder(configured, source string) string {
	if configured != "" {
		return configured
	}
	if enc, ok := videoEncoders[source]; ok {
		return enc
	}
	return DefaultVideoCodec
}

func audioEncoder(configured, source string) string {
	if configured != "" {
		return configured
	}
	if enc, ok := audioEncoders[source]; ok {
		return enc
	}
	return DefaultAudioCodec
}
