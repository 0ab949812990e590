package filesystem

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sh1Nome/extract-streams-web/domain/audio"
)

// workspacePrefix starts the name of every path a WorkspaceManager creates
const workspacePrefix = "extract-"

// WorkspaceManager implements audio.WorkspaceManager on the local filesystem.
// Every workspace gets a fresh random identifier; nothing in its paths comes
// from client input except a sanitized extension.
type WorkspaceManager struct {
	root   string
	logger *zap.Logger
	newID  func() string
}

// WorkspaceOption is a functional option for configuring WorkspaceManager
type WorkspaceOption func(*WorkspaceManager)

// WithTempDir sets the directory workspaces are created in (default os.TempDir)
func WithTempDir(dir string) WorkspaceOption {
	return func(m *WorkspaceManager) {
		if dir != "" {
			m.root = dir
		}
	}
}

// WithLogger sets the logger used to report cleanup failures
func WithLogger(logger *zap.Logger) WorkspaceOption {
	return func(m *WorkspaceManager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithIDGenerator replaces the workspace identifier source (for testing)
func WithIDGenerator(fn func() string) WorkspaceOption {
	return func(m *WorkspaceManager) {
		m.newID = fn
	}
}

// NewWorkspaceManager creates a new filesystem-backed workspace manager
func NewWorkspaceManager(opts ...WorkspaceOption) *WorkspaceManager {
	m := &WorkspaceManager{
		root:   os.TempDir(),
		logger: zap.NewNop(),
		newID:  uuid.NewString,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Acquire creates the source file and track directory for a new workspace
// and reserves the archive path. ext is sanitized before use.
func (m *WorkspaceManager) Acquire(ext string) (*audio.Workspace, error) {
	id := m.newID()
	base := filepath.Join(m.root, workspacePrefix+id)

	ws := &audio.Workspace{
		ID:          id,
		SourcePath:  base + "-source" + audio.SanitizeExtension(ext),
		TrackDir:    base + "-tracks",
		ArchivePath: base + "-audio.zip",
	}

	f, err := os.OpenFile(ws.SourcePath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return nil, fmt.Errorf("failed to create source file: %w", err)
	}
	if err := f.Close(); err != nil {
		m.removeFile(ws.ID, "source", ws.SourcePath)
		return nil, fmt.Errorf("failed to create source file: %w", err)
	}

	if err := os.Mkdir(ws.TrackDir, 0o700); err != nil {
		// Only the source file is ours at this point
		m.removeFile(ws.ID, "source", ws.SourcePath)
		return nil, fmt.Errorf("failed to create track directory: %w", err)
	}

	m.logger.Debug("workspace acquired",
		zap.String("workspace", ws.ID),
		zap.String("source", ws.SourcePath),
	)
	return ws, nil
}

// Release removes the source file, the track directory and the archive file,
// in that order. Failures are logged and never returned.
func (m *WorkspaceManager) Release(ws *audio.Workspace) {
	if ws == nil {
		return
	}

	m.removeFile(ws.ID, "source", ws.SourcePath)

	if ws.TrackDir != "" {
		if err := os.RemoveAll(ws.TrackDir); err != nil {
			m.logger.Warn("failed to remove workspace path",
				zap.String("workspace", ws.ID),
				zap.String("kind", "tracks"),
				zap.String("path", ws.TrackDir),
				zap.Error(err),
			)
		}
	}

	m.removeFile(ws.ID, "archive", ws.ArchivePath)

	m.logger.Debug("workspace released", zap.String("workspace", ws.ID))
}

func (m *WorkspaceManager) removeFile(id, kind, path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		m.logger.Warn("failed to remove workspace path",
			zap.String("workspace", id),
			zap.String("kind", kind),
			zap.String("path", path),
			zap.Error(err),
		)
	}
}

// Ensure WorkspaceManager implements audio.WorkspaceManager
var _ audio.WorkspaceManager = (*WorkspaceManager)(nil)
