package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/sh1Nome/extract-streams-web/domain/audio"
	"github.com/sh1Nome/extract-streams-web/infrastructure/i18n"
)

// UploadField is the multipart form field carrying the video
const UploadField = "file"

// Extractor runs the extraction pipeline for one uploaded file
type Extractor interface {
	Extract(ctx context.Context, fileName string, data []byte) (*audio.Result, error)
}

// Handler serves the audio extraction API
type Handler struct {
	extractor      Extractor
	translator     *i18n.Translator
	logger         *zap.Logger
	maxUploadBytes int64
}

// NewHandler creates a new Handler. maxUploadBytes <= 0 disables the size limit.
func NewHandler(extractor Extractor, translator *i18n.Translator, logger *zap.Logger, maxUploadBytes int64) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		extractor:      extractor,
		translator:     translator,
		logger:         logger,
		maxUploadBytes: maxUploadBytes,
	}
}

// video container extensions accepted when the client sends no useful content type
var videoExtensions = map[string]string{
	".mp4":  "video/mp4",
	".m4v":  "video/x-m4v",
	".mkv":  "video/x-matroska",
	".webm": "video/webm",
	".mov":  "video/quicktime",
	".avi":  "video/x-msvideo",
	".wmv":  "video/x-ms-wmv",
	".flv":  "video/x-flv",
	".mpg":  "video/mpeg",
	".mpeg": "video/mpeg",
	".ts":   "video/mp2t",
	".m2ts": "video/mp2t",
	".3gp":  "video/3gpp",
}

// ExtractAudio accepts a multipart upload and responds with a ZIP of its audio tracks
func (h *Handler) ExtractAudio(w http.ResponseWriter, r *http.Request) {
	if h.maxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	}

	name, data, err := h.readUpload(r)
	if err != nil {
		h.writeUploadError(w, r, err)
		return
	}

	result, err := h.extractor.Extract(r.Context(), name, data)
	if err != nil {
		h.writeExtractionError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": result.FileName}))
	w.Header().Set("Content-Length", strconv.Itoa(len(result.Archive)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(result.Archive); err != nil {
		h.logger.Warn("failed to write archive response", zap.Error(err))
	}
}

// Health reports that the process is serving requests
func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

var (
	errMissingFile     = errors.New("missing file part")
	errInvalidFileType = errors.New("uploaded file is not a video")
)

// readUpload streams the multipart body and returns the first "file" part.
// The content type is checked before the part body is read.
func (h *Handler) readUpload(r *http.Request) (string, []byte, error) {
	reader, err := r.MultipartReader()
	if err != nil {
		return "", nil, errors.Join(errMissingFile, err)
	}

	for {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			return "", nil, errMissingFile
		}
		if err != nil {
			return "", nil, errors.Join(errMissingFile, err)
		}

		if part.FormName() != UploadField {
			part.Close()
			continue
		}

		if !isVideo(part) {
			part.Close()
			return "", nil, errInvalidFileType
		}

		data, err := io.ReadAll(part)
		part.Close()
		if err != nil {
			return "", nil, errors.Join(errMissingFile, err)
		}
		return part.FileName(), data, nil
	}
}

func isVideo(part *multipart.Part) bool {
	contentType := strings.TrimSpace(part.Header.Get("Content-Type"))
	if contentType == "" || strings.HasPrefix(contentType, "application/octet-stream") {
		ext := strings.ToLower(filepath.Ext(part.FileName()))
		if known, ok := videoExtensions[ext]; ok {
			contentType = known
		} else {
			contentType = mime.TypeByExtension(ext)
		}
	}

	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return strings.HasPrefix(mediaType, "video/")
}

func (h *Handler) writeUploadError(w http.ResponseWriter, r *http.Request, err error) {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		h.logger.Warn("upload rejected", zap.String("reason", "too large"), zap.Int64("limit", tooLarge.Limit))
		h.writeMessage(w, r, http.StatusRequestEntityTooLarge, i18n.KeyFileTooLarge)
	case errors.Is(err, errInvalidFileType):
		h.logger.Warn("upload rejected", zap.String("reason", "invalid file type"))
		h.writeMessage(w, r, http.StatusBadRequest, i18n.KeyInvalidFileType)
	default:
		h.logger.Warn("upload rejected", zap.String("reason", "missing file"), zap.Error(err))
		h.writeMessage(w, r, http.StatusBadRequest, i18n.KeyMissingFile)
	}
}

func (h *Handler) writeExtractionError(w http.ResponseWriter, r *http.Request, err error) {
	switch audio.KindOf(err) {
	case audio.ErrTrackDiscoveryFailed, audio.ErrTrackExtractionFailed:
		h.writeMessage(w, r, http.StatusInternalServerError, i18n.KeyAudioExtractionFailed)
	default:
		h.writeMessage(w, r, http.StatusInternalServerError, i18n.KeyUnexpected)
	}
}

func (h *Handler) writeMessage(w http.ResponseWriter, r *http.Request, status int, key i18n.Key) {
	writeJSON(w, status, map[string]string{
		"message": h.translator.Message(r.Header.Get("Accept-Language"), key),
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body) //nolint:errcheck
}
