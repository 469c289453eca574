package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/keagan/dilate/internal/config"
	"github.com/keagan/dilate/internal/logging"
	"github.com/keagan/dilate/internal/pipeline"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	verbose bool
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		event := log.Error().Err(err)
		var re *pipeline.RunError
		if errors.As(err, &re) {
			event = event.Str("run_dir", re.RunDir)
		}
		event.Msg("dilate failed")
		stop()
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "dilate",
	Short: "dilate - interest-weighted time compression for video",
	Long: "Speeds up the boring parts of a video and slows down the interesting ones, " +
		"then restores the original timing from the saved run metadata.",
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Initialize logging with defaults until the config is known
		logging.Init(verbose, "console")

		// Load config
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		logging.Init(verbose, cfg.Log.Format)

		// Store config in context
		ctx := config.WithConfig(cmd.Context(), cfg)
		cmd.SetContext(ctx)

		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./dilate.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(encodeCmd)
	rootCmd.AddCommand(decodeCmd)
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(probeCmd)
	rootCmd.AddCommand(configCmd)
}
