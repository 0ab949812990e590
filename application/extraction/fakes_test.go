package extraction

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/sh1Nome/extract-streams-web/domain/audio"
)

// fakeSource implements audio.TrackSource for testing. Each extracted file
// holds the source bytes followed by the stream index, so results can be
// traced back to the request that produced them.
type fakeSource struct {
	indices []int
	listErr error
	delays  map[int]time.Duration
	failOn  map[int]error

	mu        sync.Mutex
	active    int
	maxActive int
	extracted []int
}

func (f *fakeSource) ListAudioTracks(ctx context.Context, sourcePath string) ([]audio.Track, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	if _, err := os.Stat(sourcePath); err != nil {
		return nil, fmt.Errorf("source not readable: %w", err)
	}
	return audio.NewTracks(f.indices), nil
}

func (f *fakeSource) ExtractTrack(ctx context.Context, sourcePath string, track audio.Track, outputPath string) error {
	f.mu.Lock()
	f.active++
	if f.active > f.maxActive {
		f.maxActive = f.active
	}
	f.mu.Unlock()
	defer func() {
		f.mu.Lock()
		f.active--
		f.mu.Unlock()
	}()

	if d := f.delays[track.Index]; d > 0 {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if err := f.failOn[track.Index]; err != nil {
		return err
	}

	src, err := os.ReadFile(sourcePath)
	if err != nil {
		return err
	}
	if err := os.WriteFile(outputPath, trackBytes(src, track.Index), 0o600); err != nil {
		return err
	}

	f.mu.Lock()
	f.extracted = append(f.extracted, track.Index)
	f.mu.Unlock()
	return nil
}

func trackBytes(src []byte, index int) []byte {
	return append(append([]byte(nil), src...), []byte(fmt.Sprintf("#%d", index))...)
}

// fakeArchiver implements audio.Archiver for testing
type fakeArchiver struct {
	err error
}

func (f *fakeArchiver) CreateArchive(ctx context.Context, files []string, archivePath string) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []byte("archive"), nil
}
