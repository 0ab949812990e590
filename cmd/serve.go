package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/sh1Nome/extract-streams-web/infrastructure/httpapi"
	"github.com/sh1Nome/extract-streams-web/infrastructure/i18n"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the audio extraction API over HTTP",
	Long: `Start the HTTP server exposing POST /api/v1/extract_audio.

Upload a video as the multipart field "file"; the response is a ZIP archive
holding one AAC file per audio track.

Example:
  extract-streams-web serve
  EXTRACT_SERVER_ADDR=127.0.0.1:9000 extract-streams-web serve
  curl -F "file=@movie.mkv;type=video/x-matroska" -o audio.zip localhost:8080/api/v1/extract_audio`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := requireConfig()
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	translator, err := i18n.NewTranslator()
	if err != nil {
		return fmt.Errorf("init translations: %w", err)
	}

	toolkit := newToolkit(cfg)
	service := newService(cfg, toolkit, logger)

	srv := httpapi.NewHTTPServer(httpapi.Config{
		Addr:                cfg.Server.Addr,
		MaxUploadBytes:      cfg.Server.MaxUploadBytes,
		MaxInflightRequests: cfg.Server.MaxInflightRequests,
	}, service, translator, logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return RunServeWithDependencies(ctx, srv, toolkit, cfg.Server.ShutdownTimeout, logger)
}

// RunServeWithDependencies runs srv until ctx is done, then shuts it down
// gracefully within shutdownTimeout (for testing)
func RunServeWithDependencies(ctx context.Context, srv *http.Server, verifier Verifier, shutdownTimeout time.Duration, logger *zap.Logger) error {
	if err := verifyTools(ctx, verifier); err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
