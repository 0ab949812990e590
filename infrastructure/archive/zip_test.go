package archive

import (
	"archive/zip"
	"bytes"
	"compress/flate"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/sh1Nome/extract-streams-web/domain/audio"
)

func writeFiles(t *testing.T, dir string, contents map[string][]byte, order []string) []string {
	t.Helper()
	paths := make([]string, 0, len(order))
	for _, name := range order {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, contents[name], 0o600); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
		paths = append(paths, path)
	}
	return paths
}

func readEntries(t *testing.T, data []byte) ([]string, map[string][]byte) {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	names := make([]string, 0, len(zr.File))
	contents := make(map[string][]byte, len(zr.File))
	for _, f := range zr.File {
		if f.Method != zip.Deflate {
			t.Errorf("entry %s method = %d, want deflate", f.Name, f.Method)
		}
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("open entry %s: %v", f.Name, err)
		}
		b, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatalf("read entry %s: %v", f.Name, err)
		}
		names = append(names, f.Name)
		contents[f.Name] = b
	}
	return names, contents
}

func TestZipArchiver_CreateArchive_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	contents := map[string][]byte{
		"audio_track_1.aac": bytes.Repeat([]byte("first track "), 100),
		"audio_track_2.aac": {0x00, 0xff, 0x10, 0x20},
		"audio_track_3.aac": {},
	}
	// Deliberately not lexical order
	order := []string{"audio_track_2.aac", "audio_track_1.aac", "audio_track_3.aac"}
	files := writeFiles(t, dir, contents, order)

	archivePath := filepath.Join(dir, "out.zip")
	data, err := NewZipArchiver().CreateArchive(context.Background(), files, archivePath)
	if err != nil {
		t.Fatalf("CreateArchive() unexpected error: %v", err)
	}

	onDisk, err := os.ReadFile(archivePath)
	if err != nil {
		t.Fatalf("read archive: %v", err)
	}
	if !bytes.Equal(onDisk, data) {
		t.Error("returned bytes differ from archive on disk")
	}

	names, got := readEntries(t, data)
	if len(names) != len(order) {
		t.Fatalf("archive has %d entries, want %d", len(names), len(order))
	}
	for i, name := range order {
		if names[i] != name {
			t.Errorf("entry %d = %q, want %q", i, names[i], name)
		}
		if !bytes.Equal(got[name], contents[name]) {
			t.Errorf("entry %s content mismatch", name)
		}
	}
}

func TestZipArchiver_CreateArchive_Empty(t *testing.T) {
	archivePath := filepath.Join(t.TempDir(), "empty.zip")
	data, err := NewZipArchiver().CreateArchive(context.Background(), nil, archivePath)
	if err != nil {
		t.Fatalf("CreateArchive() unexpected error: %v", err)
	}
	names, _ := readEntries(t, data)
	if len(names) != 0 {
		t.Errorf("expected empty archive, got entries %v", names)
	}
}

func TestZipArchiver_CreateArchive_DeterministicEntries(t *testing.T) {
	dir := t.TempDir()
	files := writeFiles(t, dir, map[string][]byte{"audio_track_1.aac": []byte("abc")}, []string{"audio_track_1.aac"})

	a := NewZipArchiver(WithCompressionLevel(flate.BestCompression))
	first, err := a.CreateArchive(context.Background(), files, filepath.Join(dir, "a.zip"))
	if err != nil {
		t.Fatalf("CreateArchive() unexpected error: %v", err)
	}
	second, err := a.CreateArchive(context.Background(), files, filepath.Join(dir, "b.zip"))
	if err != nil {
		t.Fatalf("CreateArchive() unexpected error: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Error("archives of identical input differ")
	}
}

type stubChecker struct{ exists bool }

func (s stubChecker) Exists(string) bool { return s.exists }

func TestZipArchiver_CreateArchive_Errors(t *testing.T) {
	dir := t.TempDir()
	files := writeFiles(t, dir, map[string][]byte{"audio_track_1.aac": []byte("x")}, []string{"audio_track_1.aac"})

	sub := filepath.Join(dir, "sub")
	if err := os.Mkdir(sub, 0o700); err != nil {
		t.Fatal(err)
	}
	dupFiles := append(files, writeFiles(t, sub, map[string][]byte{"audio_track_1.aac": []byte("y")}, []string{"audio_track_1.aac"})...)

	existing := filepath.Join(dir, "existing.zip")
	if err := os.WriteFile(existing, []byte("taken"), 0o600); err != nil {
		t.Fatal(err)
	}

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	tests := []struct {
		name        string
		ctx         context.Context
		archiver    *ZipArchiver
		files       []string
		archivePath string
	}{
		{
			name:        "missing input",
			ctx:         context.Background(),
			archiver:    NewZipArchiver(WithFileChecker(stubChecker{exists: false})),
			files:       files,
			archivePath: filepath.Join(dir, "missing.zip"),
		},
		{
			name:        "duplicate entry names",
			ctx:         context.Background(),
			archiver:    NewZipArchiver(),
			files:       dupFiles,
			archivePath: filepath.Join(dir, "dup.zip"),
		},
		{
			name:        "archive path collision",
			ctx:         context.Background(),
			archiver:    NewZipArchiver(),
			files:       files,
			archivePath: existing,
		},
		{
			name:        "unwritable directory",
			ctx:         context.Background(),
			archiver:    NewZipArchiver(),
			files:       files,
			archivePath: filepath.Join(dir, "no-such-dir", "out.zip"),
		},
		{
			name:        "invalid level",
			ctx:         context.Background(),
			archiver:    NewZipArchiver(WithCompressionLevel(42)),
			files:       files,
			archivePath: filepath.Join(dir, "level.zip"),
		},
		{
			name:        "cancelled",
			ctx:         cancelled,
			archiver:    NewZipArchiver(),
			files:       files,
			archivePath: filepath.Join(dir, "cancelled.zip"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := tt.archiver.CreateArchive(tt.ctx, tt.files, tt.archivePath)
			if !errors.Is(err, audio.ErrArchiveCreationFailed) {
				t.Fatalf("CreateArchive() error = %v, want ErrArchiveCreationFailed", err)
			}
			if data != nil {
				t.Error("CreateArchive() returned bytes on failure")
			}
		})
	}
}
