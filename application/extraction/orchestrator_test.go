package extraction

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sh1Nome/extract-streams-web/domain/audio"
)

func newSourceFile(t *testing.T, content string) (string, string) {
	t.Helper()
	dir := t.TempDir()
	src := filepath.Join(dir, "source.mkv")
	if err := os.WriteFile(src, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	out := filepath.Join(dir, "tracks")
	if err := os.Mkdir(out, 0o700); err != nil {
		t.Fatal(err)
	}
	return src, out
}

func TestOrchestrator_ExtractAll_NoTracks(t *testing.T) {
	src, out := newSourceFile(t, "video")
	source := &fakeSource{}

	got, err := NewOrchestrator(source).ExtractAll(context.Background(), src, out)
	if err != nil {
		t.Fatalf("ExtractAll() unexpected error: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("ExtractAll() = %v, want empty non-nil slice", got)
	}
	if len(source.extracted) != 0 {
		t.Errorf("expected no extractions, got %v", source.extracted)
	}
}

func TestOrchestrator_ExtractAll_OrderIndependentOfCompletion(t *testing.T) {
	src, out := newSourceFile(t, "video")
	source := &fakeSource{
		indices: []int{1, 2, 3, 4},
		// Earlier tracks finish later
		delays: map[int]time.Duration{
			1: 60 * time.Millisecond,
			2: 40 * time.Millisecond,
			3: 20 * time.Millisecond,
		},
	}

	got, err := NewOrchestrator(source, WithMaxConcurrent(4)).ExtractAll(context.Background(), src, out)
	if err != nil {
		t.Fatalf("ExtractAll() unexpected error: %v", err)
	}

	if len(got) != 4 {
		t.Fatalf("ExtractAll() returned %d tracks, want 4", len(got))
	}
	for i, et := range got {
		wantName := audio.DefaultEncoding.TrackFileName(i + 1)
		if et.Track.Position != i+1 || et.Track.Index != i+1 {
			t.Errorf("result %d track = %+v", i, et.Track)
		}
		if filepath.Base(et.Path) != wantName || filepath.Dir(et.Path) != out {
			t.Errorf("result %d path = %q, want %s in %s", i, et.Path, wantName, out)
		}
		if _, err := os.Stat(et.Path); err != nil {
			t.Errorf("result %d file missing: %v", i, err)
		}
	}
}

func TestOrchestrator_ExtractAll_RespectsConcurrencyLimit(t *testing.T) {
	src, out := newSourceFile(t, "video")
	delays := map[int]time.Duration{}
	indices := []int{0, 1, 2, 3, 4, 5}
	for _, idx := range indices {
		delays[idx] = 15 * time.Millisecond
	}
	source := &fakeSource{indices: indices, delays: delays}

	if _, err := NewOrchestrator(source, WithMaxConcurrent(2)).ExtractAll(context.Background(), src, out); err != nil {
		t.Fatalf("ExtractAll() unexpected error: %v", err)
	}
	if source.maxActive > 2 {
		t.Errorf("observed %d concurrent extractions, limit is 2", source.maxActive)
	}
	if len(source.extracted) != len(indices) {
		t.Errorf("extracted %d tracks, want %d", len(source.extracted), len(indices))
	}
}

func TestOrchestrator_ExtractAll_SerialWhenLimitBelowOne(t *testing.T) {
	src, out := newSourceFile(t, "video")
	source := &fakeSource{
		indices: []int{1, 2, 3},
		delays:  map[int]time.Duration{1: 5 * time.Millisecond, 2: 5 * time.Millisecond, 3: 5 * time.Millisecond},
	}

	if _, err := NewOrchestrator(source, WithMaxConcurrent(0)).ExtractAll(context.Background(), src, out); err != nil {
		t.Fatalf("ExtractAll() unexpected error: %v", err)
	}
	if source.maxActive != 1 {
		t.Errorf("observed %d concurrent extractions, want 1", source.maxActive)
	}
}

func TestOrchestrator_ExtractAll_FailFast(t *testing.T) {
	src, out := newSourceFile(t, "video")
	cause := errors.New("unsupported codec")
	source := &fakeSource{
		indices: []int{1, 2, 3},
		delays: map[int]time.Duration{
			1: 10 * time.Second, // would block the test if not cancelled
			3: 10 * time.Second,
		},
		failOn: map[int]error{2: cause},
	}

	started := time.Now()
	got, err := NewOrchestrator(source, WithMaxConcurrent(3)).ExtractAll(context.Background(), src, out)
	if time.Since(started) > 5*time.Second {
		t.Fatal("in-flight siblings were not cancelled")
	}

	if got != nil {
		t.Errorf("ExtractAll() returned partial result %v", got)
	}
	if !errors.Is(err, audio.ErrTrackExtractionFailed) {
		t.Fatalf("ExtractAll() error = %v, want ErrTrackExtractionFailed", err)
	}
	if !errors.Is(err, cause) {
		t.Errorf("ExtractAll() error = %v, want cause in chain", err)
	}
	if idx, ok := audio.FailedTrackIndex(err); !ok || idx != 2 {
		t.Errorf("FailedTrackIndex() = %d, %v; want 2, true", idx, ok)
	}
	if len(source.extracted) != 0 {
		t.Errorf("expected no completed siblings, got %v", source.extracted)
	}
}

func TestOrchestrator_ExtractAll_KeepsTrackErrors(t *testing.T) {
	src, out := newSourceFile(t, "video")
	original := audio.NewTrackExtractionError(7, errors.New("exit status 1"))
	source := &fakeSource{indices: []int{7}, failOn: map[int]error{7: original}}

	_, err := NewOrchestrator(source).ExtractAll(context.Background(), src, out)
	if err != original {
		t.Errorf("ExtractAll() error = %v, want the extractor's error unchanged", err)
	}
}

func TestOrchestrator_ExtractAll_ListErrors(t *testing.T) {
	src, out := newSourceFile(t, "video")

	tests := []struct {
		name    string
		listErr error
	}{
		{"already classified", audio.Wrap(audio.ErrTrackDiscoveryFailed, "ffprobe", errors.New("exit status 1"))},
		{"plain error", errors.New("boom")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewOrchestrator(&fakeSource{listErr: tt.listErr}).ExtractAll(context.Background(), src, out)
			if !errors.Is(err, audio.ErrTrackDiscoveryFailed) {
				t.Errorf("ExtractAll() error = %v, want ErrTrackDiscoveryFailed", err)
			}
			if !errors.Is(err, tt.listErr) {
				t.Errorf("ExtractAll() error = %v, lost original", err)
			}
		})
	}
}

func TestOrchestrator_ExtractAll_ParentCancelled(t *testing.T) {
	src, out := newSourceFile(t, "video")
	source := &fakeSource{
		indices: []int{1, 2},
		delays:  map[int]time.Duration{1: 10 * time.Second, 2: 10 * time.Second},
	}

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	_, err := NewOrchestrator(source, WithMaxConcurrent(2)).ExtractAll(ctx, src, out)
	if !errors.Is(err, audio.ErrPipelineIO) {
		t.Fatalf("ExtractAll() error = %v, want ErrPipelineIO", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("ExtractAll() error = %v, want context.Canceled in chain", err)
	}
}
