package main

import (
	"context"
	"fmt"
	"io"

	"github.com/keagan/dilate/internal/config"
	"github.com/keagan/dilate/internal/ffmpeg"
	"github.com/keagan/dilate/internal/keyframe"
	"github.com/keagan/dilate/internal/media"
	"github.com/keagan/dilate/internal/metadata"
	"github.com/keagan/dilate/internal/pipeline"
	"github.com/keagan/dilate/internal/segment"
	"github.com/keagan/dilate/internal/storage"
	"github.com/keagan/dilate/pkg/util"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	segmentFlags []string
	segmentsFile string
	metadataKey  string
	outputPath   string
	keepTemp     bool
	publish      bool
	workers      int
	planDecode   bool
)

var encodeCmd = &cobra.Command{
	Use:   "encode [input video]",
	Short: "Compress a video by segment interest",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := runConfig(cmd)

		segs, err := loadSegments()
		if err != nil {
			return err
		}

		pipe, err := newPipeline(cmd.Context(), cfg)
		if err != nil {
			return err
		}

		output := outputPath
		if output == "" {
			output = util.SiblingPath(args[0], ".compressed", "."+cfg.FFmpeg.Container)
		}

		res, err := pipe.Encode(cmd.Context(), pipeline.EncodeOptions{
			Input:       args[0],
			Output:      output,
			Segments:    segs,
			MetadataKey: metadataKey,
			Publish:     publish,
		})
		if err != nil {
			return err
		}

		logResult(res)
		return nil
	},
}

var decodeCmd = &cobra.Command{
	Use:   "decode [compressed video]",
	Short: "Restore the original timing of an encoded video",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := runConfig(cmd)

		pipe, err := newPipeline(cmd.Context(), cfg)
		if err != nil {
			return err
		}

		output := outputPath
		if output == "" {
			output = util.SiblingPath(args[0], ".restored", "."+cfg.FFmpeg.Container)
		}

		res, err := pipe.Decode(cmd.Context(), pipeline.DecodeOptions{
			Input:       args[0],
			Output:      output,
			MetadataKey: metadataKey,
			Publish:     publish,
		})
		if err != nil {
			return err
		}

		logResult(res)
		return nil
	},
}

var planCmd = &cobra.Command{
	Use:   "plan [video]",
	Short: "Print the segment plan without transcoding",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg := runConfig(cmd)

		exec, err := ffmpeg.New(log.Logger, cfg.FFmpeg)
		if err != nil {
			return err
		}

		h := media.NewHandle(args[0])
		duration, err := exec.ProbeDuration(ctx, h)
		if err != nil {
			return err
		}
		kf, err := exec.ProbeKeyframes(ctx, h)
		if err != nil {
			return err
		}
		cuts := pipeline.CutPoints(kf, duration)

		var plan *pipeline.Plan
		if planDecode {
			store, err := storage.New(ctx, log.Logger, cfg.Storage)
			if err != nil {
				return err
			}
			key := metadataKey
			if key == "" {
				key = util.SiblingPath(args[0], ".meta", ".json")
			}
			meta, err := metadata.Load(ctx, store, key)
			if err != nil {
				return err
			}
			plan, err = pipeline.PlanDecode(meta, cuts)
			if err != nil {
				return err
			}
		} else {
			segs, err := loadSegments()
			if err != nil {
				return err
			}
			plan, err = pipeline.PlanEncode(segs, duration, cuts)
			if err != nil {
				return err
			}
		}

		return printYAML(cmd.OutOrStdout(), planView(plan, duration, len(kf)))
	},
}

var probeCmd = &cobra.Command{
	Use:   "probe [video]",
	Short: "Print media metadata and keyframe count",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg := runConfig(cmd)

		exec, err := ffmpeg.New(log.Logger, cfg.FFmpeg)
		if err != nil {
			return err
		}

		h := media.NewHandle(args[0])
		md, err := exec.ProbeMetadata(ctx, h)
		if err != nil {
			return err
		}
		kf, err := exec.ProbeKeyframes(ctx, h)
		if err != nil {
			return err
		}

		view := probeView{Metadata: md, Keyframes: len(kf)}
		if crf, err := ffmpeg.EstimateCRF(md.VideoCodec, md.VideoBitrate, md.Width, md.Height, md.FPS); err == nil {
			view.EstimatedCRF = crf
		}
		return printYAML(cmd.OutOrStdout(), view)
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Config management commands",
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write the default configuration",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "./dilate.yaml"
		if len(args) == 1 {
			path = args[0]
		}
		if util.FileExists(path) {
			return fmt.Errorf("%s already exists", path)
		}
		if err := config.Default().Save(path); err != nil {
			return err
		}
		log.Info().Str("path", path).Msg("config written")
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		return printYAML(cmd.OutOrStdout(), config.FromContext(cmd.Context()))
	},
}

func init() {
	for _, c := range []*cobra.Command{encodeCmd, planCmd} {
		c.Flags().StringArrayVarP(&segmentFlags, "segment", "s", nil, "segment as START-END=INTEREST, repeatable (e.g. 1:30-2:00=0.1)")
		c.Flags().StringVar(&segmentsFile, "segments-file", "", "YAML or JSON file with a list of {start, end, interest}")
	}
	for _, c := range []*cobra.Command{encodeCmd, decodeCmd, planCmd} {
		c.Flags().StringVar(&metadataKey, "metadata", "", "run metadata key (default: <compressed>.meta.json)")
	}
	for _, c := range []*cobra.Command{encodeCmd, decodeCmd} {
		c.Flags().StringVarP(&outputPath, "output", "o", "", "output file")
		c.Flags().BoolVar(&keepTemp, "keep-temp", false, "keep the run directory after success")
		c.Flags().BoolVar(&publish, "publish", false, "upload the output to the configured storage")
		c.Flags().IntVarP(&workers, "workers", "w", 0, "segments transformed in parallel (default: config concurrency)")
	}
	planCmd.Flags().BoolVar(&planDecode, "decode", false, "plan a decode of a compressed file")

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
}

// runConfig applies command-line overrides to the loaded config.
func runConfig(cmd *cobra.Command) *config.Config {
	cfg := *config.FromContext(cmd.Context())
	if cmd.Flags().Changed("keep-temp") {
		cfg.KeepTemp = keepTemp
	}
	if workers > 0 {
		cfg.Concurrency = workers
	}
	return &cfg
}

func newPipeline(ctx context.Context, cfg *config.Config) (*pipeline.Pipeline, error) {
	exec, err := ffmpeg.New(log.Logger, cfg.FFmpeg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize ffmpeg: %w", err)
	}

	store, err := storage.New(ctx, log.Logger, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	return pipeline.New(log.Logger, pipeline.Config{
		Workers:   cfg.Concurrency,
		TempDir:   cfg.TempDir,
		Tolerance: cfg.Tolerance,
		KeepTemp:  cfg.KeepTemp,
		Container: cfg.FFmpeg.Container,
	}, exec, store), nil
}

func loadSegments() ([]segment.Segment, error) {
	segs, err := segment.ParseAll(segmentFlags)
	if err != nil {
		return nil, err
	}
	if segmentsFile != "" {
		fromFile, err := segment.LoadFile(segmentsFile)
		if err != nil {
			return nil, err
		}
		segs = append(segs, fromFile...)
	}
	return segs, nil
}

func logResult(res *pipeline.Result) {
	event := log.Info().
		Str("output", res.Output).
		Float64("duration", res.Duration).
		Str("metadata", res.MetadataKey).
		Int("duration_warnings", len(res.Mismatches))
	if res.Published != "" {
		event = event.Str("published", res.Published)
	}
	if res.RunDir != "" {
		event = event.Str("run_dir", res.RunDir)
	}
	event.Msg("done")
}

type probeView struct {
	Metadata     *media.Metadata `yaml:"metadata"`
	Keyframes    int             `yaml:"keyframes"`
	EstimatedCRF int             `yaml:"estimated_crf,omitempty"`
}

type planSegment struct {
	Start    string  `yaml:"start"`
	End      string  `yaml:"end"`
	Interest float64 `yaml:"interest"`
}

type planOutput struct {
	Duration  float64       `yaml:"duration"`
	Keyframes int           `yaml:"keyframes"`
	Expected  float64       `yaml:"expected_duration"`
	Original  []planSegment `yaml:"original"`
	Predicted []planSegment `yaml:"compressed"`
	Aligned   []planSegment `yaml:"aligned"`
	Drift     []float64     `yaml:"drift,flow"`
}

func planView(plan *pipeline.Plan, duration float64, keyframes int) planOutput {
	before := plan.Original
	if plan.Aligned.Space() == segment.Compressed {
		before = plan.Compressed
	}
	return planOutput{
		Duration:  duration,
		Keyframes: keyframes,
		Expected:  plan.Expected,
		Original:  planSegments(plan.Original),
		Predicted: planSegments(plan.Compressed),
		Aligned:   planSegments(plan.Aligned),
		Drift:     keyframe.Drift(before, plan.Aligned),
	}
}

func planSegments(p segment.Partition) []planSegment {
	out := make([]planSegment, 0, p.Len())
	for _, s := range p.Segments() {
		out = append(out, planSegment{
			Start:    util.FormatSeconds(s.Start),
			End:      util.FormatSeconds(s.End),
			Interest: s.Interest,
		})
	}
	return out
}

func printYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}
