package cmd

import (
	"context"
	"fmt"
	"strconv"

	"github.com/sh1Nome/extract-streams-web/domain/audio"
	"github.com/sh1Nome/extract-streams-web/infrastructure/filesystem"

	"github.com/spf13/cobra"
)

var tracksInputPath string

var tracksCmd = &cobra.Command{
	Use:   "tracks",
	Short: "List the audio tracks of a video",
	Long: `Probe a video with ffprobe and list its audio tracks in the order they
would be extracted, together with the archive entry each one becomes.

Example:
  extract-streams-web tracks --input movie.mkv`,
	RunE: runTracks,
}

func init() {
	rootCmd.AddCommand(tracksCmd)
	tracksCmd.Flags().StringVar(&tracksInputPath, "input", "", "Path to source video file (required)")
	tracksCmd.MarkFlagRequired("input")
}

func runTracks(cmd *cobra.Command, args []string) error {
	cfg, err := requireConfig()
	if err != nil {
		return err
	}

	toolkit := newToolkit(cfg)
	if err := verifyTools(cmd.Context(), toolkit.Prober); err != nil {
		return err
	}

	return RunTracksWithDependencies(cmd.Context(), toolkit, filesystem.NewChecker(), cfg.Encoding(), tracksInputPath, DefaultOutput)
}

// RunTracksWithDependencies runs the tracks command with injected dependencies (for testing)
func RunTracksWithDependencies(
	ctx context.Context,
	lister audio.TrackLister,
	files FileInspector,
	policy audio.EncodingPolicy,
	inputPath string,
	output OutputWriter,
) error {
	if !files.Exists(inputPath) {
		return fmt.Errorf("source video not found: %s", inputPath)
	}

	tracks, err := lister.ListAudioTracks(ctx, inputPath)
	if err != nil {
		return err
	}

	if len(tracks) == 0 {
		fmt.Fprintf(output, "No audio tracks found in %s\n", inputPath)
		return nil
	}

	rows := make([][]string, 0, len(tracks))
	for _, t := range tracks {
		rows = append(rows, []string{
			strconv.Itoa(t.Position),
			strconv.Itoa(t.Index),
			policy.TrackFileName(t.Position),
		})
	}

	fmt.Fprintln(output, renderTable(
		[]string{"#", "Stream", "Archive entry"},
		rows,
		[]columnAlignment{alignRight, alignRight, alignLeft},
	))
	return nil
}
