package extraction

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sh1Nome/extract-streams-web/domain/audio"
)

// DefaultMaxConcurrent is the default number of simultaneous track extractions
const DefaultMaxConcurrent = 2

// Orchestrator turns one source file into one encoded file per audio track
type Orchestrator struct {
	source        audio.TrackSource
	encoding      audio.EncodingPolicy
	maxConcurrent int
	logger        *zap.Logger
}

// OrchestratorOption is a functional option for configuring Orchestrator
type OrchestratorOption func(*Orchestrator)

// WithMaxConcurrent bounds how many tracks are extracted at once; values
// below 1 are treated as 1
func WithMaxConcurrent(n int) OrchestratorOption {
	return func(o *Orchestrator) {
		if n < 1 {
			n = 1
		}
		o.maxConcurrent = n
	}
}

// WithEncoding sets the policy used to name track outputs
func WithEncoding(policy audio.EncodingPolicy) OrchestratorOption {
	return func(o *Orchestrator) {
		o.encoding = policy
	}
}

// WithOrchestratorLogger sets the logger for per-track progress
func WithOrchestratorLogger(logger *zap.Logger) OrchestratorOption {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// NewOrchestrator creates a new Orchestrator over the given track source
func NewOrchestrator(source audio.TrackSource, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		source:        source,
		encoding:      audio.DefaultEncoding,
		maxConcurrent: DefaultMaxConcurrent,
		logger:        zap.NewNop(),
	}

	for _, opt := range opts {
		opt(o)
	}

	return o
}

// ExtractAll lists the audio tracks of sourcePath and extracts each into
// outputDir. Results follow probe order regardless of completion order.
// The first failing track cancels the rest and no partial result is returned.
func (o *Orchestrator) ExtractAll(ctx context.Context, sourcePath, outputDir string) ([]audio.ExtractedTrack, error) {
	tracks, err := o.source.ListAudioTracks(ctx, sourcePath)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, audio.Wrap(audio.ErrPipelineIO, "list audio tracks", ctxErr)
		}
		if !audio.IsKnown(err) {
			err = audio.Wrap(audio.ErrTrackDiscoveryFailed, "list audio tracks", err)
		}
		return nil, err
	}

	if len(tracks) == 0 {
		o.logger.Info("no audio tracks found", zap.String("source", sourcePath))
		return []audio.ExtractedTrack{}, nil
	}

	results := make([]audio.ExtractedTrack, len(tracks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.maxConcurrent)

	for i, track := range tracks {
		i, track := i, track
		outputPath := o.encoding.TrackPath(outputDir, track)
		g.Go(func() error {
			// A sibling already failed
			if err := gctx.Err(); err != nil {
				return err
			}

			started := time.Now()
			if err := o.source.ExtractTrack(gctx, sourcePath, track, outputPath); err != nil {
				if !errors.Is(err, audio.ErrTrackExtractionFailed) {
					err = audio.NewTrackExtractionError(track.Index, err)
				}
				return err
			}

			results[i] = audio.ExtractedTrack{Track: track, Path: outputPath}
			o.logger.Debug("audio track extracted",
				zap.Int("track_index", track.Index),
				zap.Int("position", track.Position),
				zap.Duration("elapsed", time.Since(started)),
			)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, audio.Wrap(audio.ErrPipelineIO, "extract audio tracks", ctxErr)
		}
		return nil, err
	}

	return results, nil
}
