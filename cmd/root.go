package cmd

import (
	"fmt"
	"os"

	"github.com/sh1Nome/extract-streams-web/infrastructure/config"

	"github.com/spf13/cobra"
)

var (
	cfgFile string
	cfg     *config.Config
	cfgErr  error
)

var rootCmd = &cobra.Command{
	Use:   "extract-streams-web",
	Short: "Extract every audio track from a video into a ZIP archive",
	Long: `extract-streams-web re-encodes each audio track of a video container
to AAC and bundles the results into one ZIP archive.

  - Serve the upload API over HTTP
  - Extract tracks from a local file
  - Inspect the audio tracks ffprobe reports

Example:
  extract-streams-web serve
  extract-streams-web extract --input movie.mkv --output ./out`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config/config.yaml)")
}

func initConfig() {
	if cfgFile == "" {
		cfgFile = config.DefaultPath
	}

	// A missing file falls back to defaults; an unreadable or invalid one is
	// reported by the commands that need it.
	cfg, cfgErr = config.LoadOrDefault(cfgFile)
	if cfgErr != nil {
		cfg = nil
	}
}

// GetConfig returns the loaded configuration
func GetConfig() *config.Config {
	return cfg
}

func requireConfig() (*config.Config, error) {
	if cfg == nil {
		if cfgErr != nil {
			return nil, fmt.Errorf("configuration not loaded from %s: %w", cfgFile, cfgErr)
		}
		return nil, fmt.Errorf("configuration not loaded")
	}
	return cfg, nil
}
