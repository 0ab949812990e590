package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/sh1Nome/extract-streams-web/domain/audio"
	"github.com/sh1Nome/extract-streams-web/infrastructure/filesystem"

	"github.com/spf13/cobra"
)

var (
	extractInputPath   string
	extractOutputDir   string
	extractArchiveName string
)

// Extractor runs the extraction pipeline over in-memory file contents
type Extractor interface {
	Extract(ctx context.Context, fileName string, data []byte) (*audio.Result, error)
}

// FileInspector checks local input files
type FileInspector interface {
	Exists(path string) bool
	Size(path string) int64
}

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract every audio track of a local video into a ZIP archive",
	Long: `Run the same pipeline as the HTTP API on a local file.

Each audio track is re-encoded with the configured codec and bitrate and the
results are written as one ZIP archive to the output directory. The archive
is named after the input unless --name is given.

Example:
  extract-streams-web extract --input movie.mkv
  extract-streams-web extract --input /videos/movie.mkv --output ./out --name movie.zip`,
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)
	extractCmd.Flags().StringVar(&extractInputPath, "input", "", "Path to source video file (required)")
	extractCmd.Flags().StringVar(&extractOutputDir, "output", ".", "Directory to write the archive to")
	extractCmd.Flags().StringVar(&extractArchiveName, "name", "", "Archive file name (default <input>_audio.zip)")
	extractCmd.MarkFlagRequired("input")
}

func runExtract(cmd *cobra.Command, args []string) error {
	cfg, err := requireConfig()
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	toolkit := newToolkit(cfg)
	service := newService(cfg, toolkit, logger)

	return RunExtractWithDependencies(
		cmd.Context(),
		service,
		toolkit,
		filesystem.NewChecker(),
		extractInputPath,
		extractOutputDir,
		extractArchiveName,
		DefaultOutput,
	)
}

// RunExtractWithDependencies runs the extract command with injected dependencies (for testing)
func RunExtractWithDependencies(
	ctx context.Context,
	extractor Extractor,
	verifier Verifier,
	files FileInspector,
	inputPath string,
	outputDir string,
	archiveName string,
	output OutputWriter,
) error {
	if !files.Exists(inputPath) {
		return fmt.Errorf("source video not found: %s", inputPath)
	}

	if err := verifyTools(ctx, verifier); err != nil {
		return err
	}

	if archiveName == "" {
		archiveName = defaultArchiveName(inputPath)
	}
	if filepath.Base(archiveName) != archiveName {
		return fmt.Errorf("archive name must not contain a directory: %q", archiveName)
	}

	fmt.Fprintf(output, "Extracting audio tracks from %s (%s)...\n", inputPath, humanize.Bytes(uint64(files.Size(inputPath))))

	data, err := os.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("failed to read source video: %w", err)
	}

	result, err := extractor.Extract(ctx, filepath.Base(inputPath), data)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	archivePath := filepath.Join(outputDir, archiveName)
	if err := os.WriteFile(archivePath, result.Archive, 0o644); err != nil {
		return fmt.Errorf("failed to write archive: %w", err)
	}

	if result.Tracks == 0 {
		fmt.Fprintf(output, "No audio tracks found; wrote empty archive %s\n", archivePath)
		return nil
	}
	fmt.Fprintf(output, "Extracted %d audio track(s) into %s (%s)\n",
		result.Tracks, archivePath, humanize.Bytes(uint64(len(result.Archive))))
	return nil
}

func defaultArchiveName(inputPath string) string {
	base := filepath.Base(inputPath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if stem == "" {
		stem = "audio"
	}
	return stem + "_audio.zip"
}
