package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/sh1Nome/extract-streams-web/infrastructure/i18n"
)

// Config holds server-specific configuration.
type Config struct {
	Addr                string
	MaxUploadBytes      int64
	MaxInflightRequests int
}

// NewRouter wires middleware and routes around the extraction handler.
func NewRouter(cfg Config, extractor Extractor, translator *i18n.Translator, logger *zap.Logger) chi.Router {
	if logger == nil {
		logger = zap.NewNop()
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(AccessLog(logger))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", Health)

	h := NewHandler(extractor, translator, logger, cfg.MaxUploadBytes)
	r.Route("/api/v1", func(r chi.Router) {
		if cfg.MaxInflightRequests > 0 {
			r.Use(middleware.Throttle(cfg.MaxInflightRequests))
		}
		RegisterRoutes(r, h)
	})

	return r
}

// RegisterRoutes mounts the API endpoints on r.
func RegisterRoutes(r chi.Router, h *Handler) {
	r.Post("/extract_audio", h.ExtractAudio)
}

func NewHTTPServer(cfg Config, extractor Extractor, translator *i18n.Translator, logger *zap.Logger) *http.Server {
	return &http.Server{
		Addr:    cfg.Addr,
		Handler: NewRouter(cfg, extractor, translator, logger),
	}
}
