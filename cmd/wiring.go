package cmd

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sh1Nome/extract-streams-web/application/extraction"
	"github.com/sh1Nome/extract-streams-web/infrastructure/archive"
	"github.com/sh1Nome/extract-streams-web/infrastructure/config"
	"github.com/sh1Nome/extract-streams-web/infrastructure/ffmpeg"
	"github.com/sh1Nome/extract-streams-web/infrastructure/filesystem"
	"github.com/sh1Nome/extract-streams-web/infrastructure/logging"
)

// verifyTimeout bounds the ffmpeg/ffprobe -version check at startup
const verifyTimeout = 5 * time.Second

// Verifier reports whether the external tools are usable
type Verifier interface {
	VerifyInstalled(ctx context.Context) error
}

// newToolkit builds the ffprobe/ffmpeg adapters from config
func newToolkit(cfg *config.Config) *ffmpeg.Toolkit {
	runner := &ffmpeg.ExecCommandRunner{}
	prober := ffmpeg.NewProber(
		ffmpeg.WithFFprobePath(cfg.FFmpeg.ProbeBinary),
		ffmpeg.WithProberCommandRunner(runner),
		ffmpeg.WithProbeTimeout(cfg.FFmpeg.ProbeTimeout),
	)
	extractor := ffmpeg.NewExtractor(
		ffmpeg.WithExtractorFFmpegPath(cfg.FFmpeg.Binary),
		ffmpeg.WithExtractorCommandRunner(runner),
		ffmpeg.WithExtractTimeout(cfg.FFmpeg.ExtractTimeout),
		ffmpeg.WithEncoding(cfg.Encoding()),
	)
	return ffmpeg.NewToolkit(prober, extractor)
}

// newService wires the full extraction pipeline using production implementations
func newService(cfg *config.Config, toolkit *ffmpeg.Toolkit, logger *zap.Logger) *extraction.Service {
	workspaces := filesystem.NewWorkspaceManager(
		filesystem.WithTempDir(cfg.Workspace.TempDir),
		filesystem.WithLogger(logger),
	)
	orchestrator := extraction.NewOrchestrator(toolkit,
		extraction.WithMaxConcurrent(cfg.FFmpeg.MaxConcurrent),
		extraction.WithEncoding(cfg.Encoding()),
		extraction.WithOrchestratorLogger(logger),
	)
	return extraction.NewService(workspaces, orchestrator, archive.NewZipArchiver(), logger)
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return logger, nil
}

func verifyTools(ctx context.Context, verifier Verifier) error {
	if verifier == nil {
		return nil
	}
	verifyCtx, cancel := context.WithTimeout(ctx, verifyTimeout)
	defer cancel()
	if err := verifier.VerifyInstalled(verifyCtx); err != nil {
		return fmt.Errorf("ffmpeg verification failed: %w", err)
	}
	return nil
}
