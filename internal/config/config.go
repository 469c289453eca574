package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type contextKey string

const configKey contextKey = "config"

// Config holds all application configuration
type Config struct {
	// Core settings
	TempDir     string  `yaml:"temp_dir"`
	Concurrency int     `yaml:"concurrency"`
	KeepTemp    bool    `yaml:"keep_temp"`
	Tolerance   float64 `yaml:"tolerance"`

	// FFmpeg settings
	FFmpeg FFmpegConfig `yaml:"ffmpeg"`

	// Where metadata and published outputs go
	Storage StorageConfig `yaml:"storage"`

	Log LogConfig `yaml:"log"`
}

type FFmpegConfig struct {
	BinaryPath string `yaml:"binary_path"`
	ProbePath  string `yaml:"probe_path"`
	Threads    int    `yaml:"threads"`
	Preset     string `yaml:"preset"`
	// Empty codecs follow the source.
	VideoCodec string `yaml:"video_codec"`
	AudioCodec string `yaml:"audio_codec"`
	// 0 estimates a CRF from the source bitrate.
	CRF int `yaml:"crf"`
	// atempo or rubberband
	AudioFilter string `yaml:"audio_filter"`
	// Extension of intermediate files.
	Container string `yaml:"container"`
}

type StorageConfig struct {
	// fs or s3
	Backend string `yaml:"backend"`
	Dir     string `yaml:"dir"`
	Bucket  string `yaml:"bucket"`
	Prefix  string `yaml:"prefix"`
	Region  string `yaml:"region"`
}

type LogConfig struct {
	// console or json
	Format string `yaml:"format"`
}

// Load reads configuration from file or returns defaults
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	if path == "" {
		path = findConfigFile()
	}

	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return cfg, nil
}

// Save writes configuration to file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Validate rejects settings the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.Concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1, got %d", c.Concurrency)
	}
	if c.Tolerance <= 0 || c.Tolerance >= 1 {
		return fmt.Errorf("tolerance must be in (0, 1), got %g", c.Tolerance)
	}
	if c.FFmpeg.CRF < 0 || c.FFmpeg.CRF > 63 {
		return fmt.Errorf("ffmpeg.crf must be between 0 and 63, got %d", c.FFmpeg.CRF)
	}
	switch c.FFmpeg.AudioFilter {
	case "atempo", "rubberband":
	default:
		return fmt.Errorf("unknown ffmpeg.audio_filter %q", c.FFmpeg.AudioFilter)
	}
	switch c.Storage.Backend {
	case "fs":
	case "s3":
		if c.Storage.Bucket == "" {
			return fmt.Errorf("storage.bucket is required for the s3 backend")
		}
	default:
		return fmt.Errorf("unknown storage.backend %q", c.Storage.Backend)
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("unknown log.format %q", c.Log.Format)
	}
	return nil
}

// Default returns the built-in configuration.
func Default() *Config {
	return defaultConfig()
}

func defaultConfig() *Config {
	return &Config{
		TempDir:     filepath.Join(os.TempDir(), "dilate"),
		Concurrency: 4,
		KeepTemp:    false,
		Tolerance:   0.01,
		FFmpeg: FFmpegConfig{
			BinaryPath:  "ffmpeg",
			ProbePath:   "ffprobe",
			Threads:     0,
			Preset:      "medium",
			AudioFilter: "atempo",
			Container:   "mkv",
		},
		Storage: StorageConfig{
			Backend: "fs",
		},
		Log: LogConfig{
			Format: "console",
		},
	}
}

func findConfigFile() string {
	candidates := []string{
		"./dilate.yaml",
		"./dilate.yml",
		filepath.Join(os.Getenv("HOME"), ".dilate", "config.yaml"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// WithConfig stores config in context
func WithConfig(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey, cfg)
}

// FromContext retrieves config from context
func FromContext(ctx context.Context) *Config {
	if cfg, ok := ctx.Value(configKey).(*Config); ok {
		return cfg
	}
	return defaultConfig()
}
