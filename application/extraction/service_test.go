package extraction

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/sh1Nome/extract-streams-web/domain/audio"
	"github.com/sh1Nome/extract-streams-web/infrastructure/archive"
	"github.com/sh1Nome/extract-streams-web/infrastructure/filesystem"
)

type serviceFixture struct {
	root    string
	source  *fakeSource
	service *Service
	logs    *observer.ObservedLogs
}

func newServiceFixture(t *testing.T, source *fakeSource) *serviceFixture {
	t.Helper()
	root := t.TempDir()
	core, logs := observer.New(zapcore.InfoLevel)
	logger := zap.New(core)

	svc := NewService(
		filesystem.NewWorkspaceManager(filesystem.WithTempDir(root), filesystem.WithLogger(logger)),
		NewOrchestrator(source, WithMaxConcurrent(4)),
		archive.NewZipArchiver(),
		logger,
	)
	return &serviceFixture{root: root, source: source, service: svc, logs: logs}
}

func (f *serviceFixture) assertWorkspaceClean(t *testing.T) {
	t.Helper()
	entries, err := os.ReadDir(f.root)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		t.Errorf("leftover temporary path: %s", e.Name())
	}
}

func archiveEntries(t *testing.T, data []byte) ([]string, map[string][]byte) {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	var names []string
	contents := make(map[string][]byte)
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatal(err)
		}
		b, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatal(err)
		}
		names = append(names, f.Name)
		contents[f.Name] = b
	}
	return names, contents
}

func TestService_Extract_TwoTracks(t *testing.T) {
	f := newServiceFixture(t, &fakeSource{
		indices: []int{1, 2},
		delays:  map[int]time.Duration{1: 30 * time.Millisecond},
	})

	upload := []byte("fake video bytes")
	result, err := f.service.Extract(context.Background(), "holiday.mp4", upload)
	if err != nil {
		t.Fatalf("Extract() unexpected error: %v", err)
	}

	if result.Tracks != 2 {
		t.Errorf("Tracks = %d, want 2", result.Tracks)
	}
	if !strings.HasPrefix(result.FileName, "extract-") || !strings.HasSuffix(result.FileName, "-audio.zip") {
		t.Errorf("FileName = %q, want extract-<id>-audio.zip", result.FileName)
	}
	if strings.Contains(result.FileName, "holiday") {
		t.Errorf("FileName %q must not be derived from the upload name", result.FileName)
	}

	names, contents := archiveEntries(t, result.Archive)
	want := []string{"audio_track_1.aac", "audio_track_2.aac"}
	if len(names) != len(want) {
		t.Fatalf("archive entries = %v, want %v", names, want)
	}
	for i, name := range want {
		if names[i] != name {
			t.Errorf("entry %d = %q, want %q", i, names[i], name)
		}
		if !bytes.Equal(contents[name], trackBytes(upload, i+1)) {
			t.Errorf("entry %s = %q, want extractor output", name, contents[name])
		}
	}

	f.assertWorkspaceClean(t)

	finished := f.logs.FilterMessage("audio extraction finished").All()
	if len(finished) != 1 {
		t.Fatalf("expected one finish log, got %d", len(finished))
	}
	if finished[0].ContextMap()["tracks"] != int64(2) {
		t.Errorf("finish log tracks = %v, want 2", finished[0].ContextMap()["tracks"])
	}
}

func TestService_Extract_NoAudioTracks(t *testing.T) {
	f := newServiceFixture(t, &fakeSource{})

	result, err := f.service.Extract(context.Background(), "silent.mp4", []byte("video only"))
	if err != nil {
		t.Fatalf("Extract() unexpected error: %v", err)
	}
	if result.Tracks != 0 {
		t.Errorf("Tracks = %d, want 0", result.Tracks)
	}
	names, _ := archiveEntries(t, result.Archive)
	if len(names) != 0 {
		t.Errorf("expected empty archive, got %v", names)
	}
	f.assertWorkspaceClean(t)
}

func TestService_Extract_TrackFailure(t *testing.T) {
	f := newServiceFixture(t, &fakeSource{
		indices: []int{1, 2, 3},
		failOn:  map[int]error{3: errors.New("corrupt stream")},
	})

	result, err := f.service.Extract(context.Background(), "movie.mkv", []byte("data"))
	if result != nil {
		t.Error("Extract() returned a result on failure")
	}
	if !errors.Is(err, audio.ErrTrackExtractionFailed) {
		t.Fatalf("Extract() error = %v, want ErrTrackExtractionFailed", err)
	}
	if idx, ok := audio.FailedTrackIndex(err); !ok || idx != 3 {
		t.Errorf("FailedTrackIndex() = %d, %v; want 3, true", idx, ok)
	}
	f.assertWorkspaceClean(t)

	failed := f.logs.FilterMessage("audio extraction failed").All()
	if len(failed) != 1 || failed[0].ContextMap()["track_index"] != int64(3) {
		t.Errorf("expected failure log with track_index 3, got %+v", failed)
	}
}

func TestService_Extract_DiscoveryFailure(t *testing.T) {
	f := newServiceFixture(t, &fakeSource{
		listErr: audio.Wrap(audio.ErrTrackDiscoveryFailed, "ffprobe", errors.New("Invalid data found")),
	})

	_, err := f.service.Extract(context.Background(), "notes.txt", []byte("plain text"))
	if !errors.Is(err, audio.ErrTrackDiscoveryFailed) {
		t.Fatalf("Extract() error = %v, want ErrTrackDiscoveryFailed", err)
	}
	f.assertWorkspaceClean(t)
}

func TestService_Extract_ArchiveErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantKind error
	}{
		{"classified", audio.Wrap(audio.ErrArchiveCreationFailed, "disk full", nil), audio.ErrArchiveCreationFailed},
		{"unclassified", errors.New("boom"), audio.ErrPipelineIO},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			svc := NewService(
				filesystem.NewWorkspaceManager(filesystem.WithTempDir(root)),
				NewOrchestrator(&fakeSource{indices: []int{1}}),
				&fakeArchiver{err: tt.err},
				nil,
			)

			_, err := svc.Extract(context.Background(), "a.mp4", []byte("x"))
			if audio.KindOf(err) != tt.wantKind {
				t.Errorf("Extract() error = %v, want kind %v", err, tt.wantKind)
			}
			entries, _ := os.ReadDir(root)
			if len(entries) != 0 {
				t.Errorf("workspace not cleaned: %d entries", len(entries))
			}
		})
	}
}

func TestService_Extract_WorkspaceFailure(t *testing.T) {
	svc := NewService(
		filesystem.NewWorkspaceManager(filesystem.WithTempDir("/nonexistent/extract-streams-web")),
		NewOrchestrator(&fakeSource{}),
		archive.NewZipArchiver(),
		nil,
	)

	_, err := svc.Extract(context.Background(), "a.mp4", []byte("x"))
	if !errors.Is(err, audio.ErrPipelineIO) {
		t.Fatalf("Extract() error = %v, want ErrPipelineIO", err)
	}
}

func TestService_Extract_ConcurrentRequestsIsolated(t *testing.T) {
	f := newServiceFixture(t, &fakeSource{
		indices: []int{1, 2},
		delays:  map[int]time.Duration{1: 10 * time.Millisecond},
	})

	const n = 8
	var (
		wg      sync.WaitGroup
		uploads = make([][]byte, n)
		results = make([]*audio.Result, n)
		errs    = make([]error, n)
	)
	for i := 0; i < n; i++ {
		i := i
		uploads[i] = []byte(fmt.Sprintf("request-%d", i))
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = f.service.Extract(context.Background(), "same-name.mp4", uploads[i])
		}()
	}
	wg.Wait()

	names := make(map[string]bool, n)
	for i := 0; i < n; i++ {
		if errs[i] != nil {
			t.Fatalf("Extract() request %d unexpected error: %v", i, errs[i])
		}
		if names[results[i].FileName] {
			t.Errorf("archive name %q returned twice", results[i].FileName)
		}
		names[results[i].FileName] = true

		_, contents := archiveEntries(t, results[i].Archive)
		for pos := 1; pos <= 2; pos++ {
			name := audio.DefaultEncoding.TrackFileName(pos)
			if !bytes.Equal(contents[name], trackBytes(uploads[i], pos)) {
				t.Errorf("request %d entry %s = %q, saw another request's data", i, name, contents[name])
			}
		}
	}

	f.assertWorkspaceClean(t)
}
