package archive

import (
	"archive/zip"
	"compress/flate"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/sh1Nome/extract-streams-web/domain/audio"
	"github.com/sh1Nome/extract-streams-web/infrastructure/filesystem"
)

// entryModTime is stamped on every entry so archives of the same tracks
// carry identical metadata. It is the earliest time a ZIP header can encode.
var entryModTime = time.Date(1980, time.January, 1, 0, 0, 0, 0, time.UTC)

// ZipArchiver implements audio.Archiver using deflate-compressed ZIP files
type ZipArchiver struct {
	level       int
	fileChecker audio.FileChecker
}

// Option is a functional option for configuring ZipArchiver
type Option func(*ZipArchiver)

// WithCompressionLevel sets the deflate level (flate.HuffmanOnly through flate.BestCompression)
func WithCompressionLevel(level int) Option {
	return func(a *ZipArchiver) {
		a.level = level
	}
}

// WithFileChecker sets a custom file checker (for testing)
func WithFileChecker(checker audio.FileChecker) Option {
	return func(a *ZipArchiver) {
		a.fileChecker = checker
	}
}

// NewZipArchiver creates a new ZIP archiver
func NewZipArchiver(opts ...Option) *ZipArchiver {
	a := &ZipArchiver{
		level:       flate.DefaultCompression,
		fileChecker: filesystem.NewChecker(),
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// CreateArchive implements audio.Archiver
func (a *ZipArchiver) CreateArchive(ctx context.Context, files []string, archivePath string) ([]byte, error) {
	if a.level < flate.HuffmanOnly || a.level > flate.BestCompression {
		return nil, audio.Wrap(audio.ErrArchiveCreationFailed, fmt.Sprintf("invalid compression level %d", a.level), nil)
	}

	seen := make(map[string]string, len(files))
	for _, file := range files {
		if !a.fileChecker.Exists(file) {
			return nil, audio.Wrap(audio.ErrArchiveCreationFailed, "missing input "+file, nil)
		}
		name := filepath.Base(file)
		if prev, dup := seen[name]; dup {
			return nil, audio.Wrap(audio.ErrArchiveCreationFailed, fmt.Sprintf("entry %q used by both %s and %s", name, prev, file), nil)
		}
		seen[name] = file
	}

	if err := a.writeArchive(ctx, files, archivePath); err != nil {
		return nil, audio.Wrap(audio.ErrArchiveCreationFailed, "write "+filepath.Base(archivePath), err)
	}

	data, err := os.ReadFile(archivePath)
	if err != nil {
		return nil, audio.Wrap(audio.ErrArchiveCreationFailed, "read back archive", err)
	}

	return data, nil
}

func (a *ZipArchiver) writeArchive(ctx context.Context, files []string, archivePath string) (err error) {
	// O_EXCL: the archive path must be fresh for this request
	out, err := os.OpenFile(archivePath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
	}()

	zw := zip.NewWriter(out)
	level := a.level
	zw.RegisterCompressor(zip.Deflate, func(w io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(w, level)
	})

	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := addEntry(zw, file); err != nil {
			return err
		}
	}

	return zw.Close()
}

func addEntry(zw *zip.Writer, path string) error {
	in, err := os.Open(path)
	if err != nil {
		return err
	}
	defer in.Close()

	w, err := zw.CreateHeader(&zip.FileHeader{
		Name:     filepath.Base(path),
		Method:   zip.Deflate,
		Modified: entryModTime,
	})
	if err != nil {
		return fmt.Errorf("create entry %s: %w", filepath.Base(path), err)
	}

	if _, err := io.Copy(w, in); err != nil {
		return fmt.Errorf("write entry %s: %w", filepath.Base(path), err)
	}
	return nil
}

// Ensure ZipArchiver implements audio.Archiver
var _ audio.Archiver = (*ZipArchiver)(nil)
