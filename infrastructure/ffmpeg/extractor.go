package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/sh1Nome/extract-streams-web/domain/audio"
)

// DefaultExtractTimeout bounds a single ffmpeg encode
const DefaultExtractTimeout = 10 * time.Minute

// Extractor implements audio.TrackExtractor using ffmpeg
type Extractor struct {
	ffmpegPath string
	runner     CommandRunner
	timeout    time.Duration
	encoding   audio.EncodingPolicy
}

// ExtractorOption is a functional option for configuring Extractor
type ExtractorOption func(*Extractor)

// WithExtractorFFmpegPath sets a custom ffmpeg executable path
func WithExtractorFFmpegPath(path string) ExtractorOption {
	return func(e *Extractor) {
		e.ffmpegPath = path
	}
}

// WithExtractorCommandRunner sets a custom command runner (for testing)
func WithExtractorCommandRunner(runner CommandRunner) ExtractorOption {
	return func(e *Extractor) {
		e.runner = runner
	}
}

// WithExtractTimeout bounds each ffmpeg invocation; zero disables the bound
func WithExtractTimeout(d time.Duration) ExtractorOption {
	return func(e *Extractor) {
		e.timeout = d
	}
}

// WithEncoding overrides the codec and bitrate used for every track
func WithEncoding(policy audio.EncodingPolicy) ExtractorOption {
	return func(e *Extractor) {
		e.encoding = policy
	}
}

// NewExtractor creates a new FFmpeg-based audio track extractor
func NewExtractor(opts ...ExtractorOption) *Extractor {
	e := &Extractor{
		ffmpegPath: "ffmpeg",
		runner:     &ExecCommandRunner{},
		timeout:    DefaultExtractTimeout,
		encoding:   audio.DefaultEncoding,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Args returns the ffmpeg arguments used to extract track into outputPath
func (e *Extractor) Args(sourcePath string, track audio.Track, outputPath string) []string {
	return []string{
		"-nostdin",
		"-hide_banner",
		"-loglevel", "error",
		"-y",
		"-i", sourcePath,
		"-map", "0:" + strconv.Itoa(track.Index), // Only this stream
		"-vn",                    // No video
		"-c:a", e.encoding.Codec, // Audio codec
		"-b:a", e.encoding.Bitrate, // Audio bitrate
		outputPath,
	}
}

// ExtractTrack implements audio.TrackExtractor
func (e *Extractor) ExtractTrack(ctx context.Context, sourcePath string, track audio.Track, outputPath string) error {
	runCtx, cancel := withTimeout(ctx, e.timeout)
	defer cancel()

	if err := e.runner.Run(runCtx, e.ffmpegPath, e.Args(sourcePath, track, outputPath)...); err != nil {
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			err = fmt.Errorf("ffmpeg timed out after %s: %w", e.timeout, err)
		}
		return audio.NewTrackExtractionError(track.Index, fmt.Errorf("ffmpeg audio extraction failed: %w", err))
	}

	return nil
}

// VerifyInstalled checks that ffmpeg is available
func (e *Extractor) VerifyInstalled(ctx context.Context) error {
	_, err := e.runner.Output(ctx, e.ffmpegPath, "-version")
	if err != nil {
		return fmt.Errorf("ffmpeg not found or not executable: %w", err)
	}
	return nil
}

// Ensure Extractor implements audio.TrackExtractor
var _ audio.TrackExtractor = (*Extractor)(nil)
