package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"iptv-curator/config"
	"iptv-curator/logger"
	"iptv-curator/pipeline"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		logger.Default.Errorf("%v", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath  string
		outputDir   string
		noCheck     bool
		noEPG       bool
		maxChannels int
	)

	cmd := &cobra.Command{
		Use:           "iptv-curator",
		Short:         "Collect, verify and curate IPTV live-stream playlists",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			config.SetConfig(cfg)

			_, err = pipeline.Run(cmd.Context(), cfg, pipeline.Options{
				SkipCheck:   noCheck,
				SkipEPG:     noEPG,
				MaxChannels: maxChannels,
				OutputDir:   outputDir,
			})
			return err
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "config.json", "path to the configuration file")
	cmd.Flags().StringVarP(&outputDir, "output-dir", "o", "", "override the configured output directory")
	cmd.Flags().BoolVar(&noCheck, "no-check", false, "skip stream verification and treat every URL as valid")
	cmd.Flags().BoolVar(&noEPG, "no-epg", false, "skip EPG enrichment")
	cmd.Flags().IntVar(&maxChannels, "max-channels", 0, "cap the number of channels processed (0 = unlimited)")

	return cmd
}
