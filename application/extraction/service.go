package extraction

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/sh1Nome/extract-streams-web/domain/audio"
)

// TrackBatchExtractor turns one source file into a set of extracted tracks
type TrackBatchExtractor interface {
	ExtractAll(ctx context.Context, sourcePath, outputDir string) ([]audio.ExtractedTrack, error)
}

// Service runs the whole upload-to-archive pipeline for one request
type Service struct {
	workspaces audio.WorkspaceManager
	extractor  TrackBatchExtractor
	archiver   audio.Archiver
	logger     *zap.Logger
}

// NewService creates a new extraction Service
func NewService(workspaces audio.WorkspaceManager, extractor TrackBatchExtractor, archiver audio.Archiver, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		workspaces: workspaces,
		extractor:  extractor,
		archiver:   archiver,
		logger:     logger,
	}
}

// Extract writes data to a private workspace, extracts every audio track and
// returns them as one ZIP archive. The workspace is removed before returning
// on every path. Returned errors always match one of the audio error kinds.
func (s *Service) Extract(ctx context.Context, fileName string, data []byte) (*audio.Result, error) {
	started := time.Now()
	media := audio.NewSourceMedia(fileName, data)

	log := s.logger.With(zap.String("file_name", fileName))

	result, err := s.run(ctx, media, log)
	if err != nil {
		fields := []zap.Field{
			zap.Error(err),
			zap.Duration("elapsed", time.Since(started)),
		}
		if idx, ok := audio.FailedTrackIndex(err); ok {
			fields = append(fields, zap.Int("track_index", idx))
		}
		log.Error("audio extraction failed", fields...)
		return nil, err
	}

	log.Info("audio extraction finished",
		zap.Int("tracks", result.Tracks),
		zap.String("archive", result.FileName),
		zap.String("archive_size", humanize.Bytes(uint64(len(result.Archive)))),
		zap.Duration("elapsed", time.Since(started)),
	)
	return result, nil
}

func (s *Service) run(ctx context.Context, media *audio.SourceMedia, log *zap.Logger) (*audio.Result, error) {
	ws, err := s.workspaces.Acquire(media.Extension())
	if err != nil {
		return nil, audio.Wrap(audio.ErrPipelineIO, "acquire workspace", err)
	}
	defer s.workspaces.Release(ws)

	log = log.With(zap.String("workspace", ws.ID))
	log.Info("audio extraction started", zap.String("upload_size", humanize.Bytes(uint64(len(media.Data)))))

	if err := os.WriteFile(ws.SourcePath, media.Data, 0o600); err != nil {
		return nil, audio.Wrap(audio.ErrPipelineIO, "write source file", err)
	}

	tracks, err := s.extractor.ExtractAll(ctx, ws.SourcePath, ws.TrackDir)
	if err != nil {
		return nil, classify(err)
	}

	archive, err := s.archiver.CreateArchive(ctx, audio.Paths(tracks), ws.ArchivePath)
	if err != nil {
		return nil, classify(err)
	}

	return &audio.Result{
		Archive:  archive,
		FileName: filepath.Base(ws.ArchivePath),
		Tracks:   len(tracks),
	}, nil
}

// classify passes taxonomy errors through and wraps anything else
func classify(err error) error {
	if audio.IsKnown(err) {
		return err
	}
	return audio.Wrap(audio.ErrPipelineIO, "", err)
}
