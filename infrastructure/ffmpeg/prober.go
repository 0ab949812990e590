package ffmpeg

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sh1Nome/extract-streams-web/domain/audio"
)

// DefaultProbeTimeout bounds a single ffprobe invocation
const DefaultProbeTimeout = 30 * time.Second

// Prober implements audio.TrackLister using ffprobe
type Prober struct {
	ffprobePath string
	runner      CommandRunner
	timeout     time.Duration
}

// ProberOption is a functional option for configuring Prober
type ProberOption func(*Prober)

// WithFFprobePath sets a custom ffprobe executable path
func WithFFprobePath(path string) ProberOption {
	return func(p *Prober) {
		p.ffprobePath = path
	}
}

// WithProberCommandRunner sets a custom command runner (for testing)
func WithProberCommandRunner(runner CommandRunner) ProberOption {
	return func(p *Prober) {
		p.runner = runner
	}
}

// WithProbeTimeout bounds each ffprobe invocation; zero disables the bound
func WithProbeTimeout(d time.Duration) ProberOption {
	return func(p *Prober) {
		p.timeout = d
	}
}

// NewProber creates a new ffprobe-based track lister
func NewProber(opts ...ProberOption) *Prober {
	p := &Prober{
		ffprobePath: "ffprobe",
		runner:      &ExecCommandRunner{},
		timeout:     DefaultProbeTimeout,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// textDemuxers are ffmpeg demuxers that accept arbitrary text as "media"
var textDemuxers = map[string]bool{
	"tty": true,
}

// probeResult is the subset of ffprobe JSON output we request
type probeResult struct {
	Streams []struct {
		Index *int `json:"index"`
	} `json:"streams"`
	Format struct {
		FormatName string `json:"format_name"`
	} `json:"format"`
}

// ListAudioTracks implements audio.TrackLister
func (p *Prober) ListAudioTracks(ctx context.Context, sourcePath string) ([]audio.Track, error) {
	args := []string{
		"-v", "error",
		"-select_streams", "a", // Audio streams only
		"-show_entries", "stream=index:format=format_name",
		"-of", "json",
		"--", sourcePath,
	}

	runCtx, cancel := withTimeout(ctx, p.timeout)
	defer cancel()

	out, err := p.runner.Output(runCtx, p.ffprobePath, args...)
	if err != nil {
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			err = fmt.Errorf("ffprobe timed out after %s: %w", p.timeout, err)
		}
		return nil, audio.Wrap(audio.ErrTrackDiscoveryFailed, "ffprobe", err)
	}

	indices, err := parseStreamIndices(out)
	if err != nil {
		return nil, audio.Wrap(audio.ErrTrackDiscoveryFailed, "parse ffprobe output", err)
	}

	return audio.NewTracks(indices), nil
}

func parseStreamIndices(out []byte) ([]int, error) {
	var result probeResult
	if err := json.Unmarshal(out, &result); err != nil {
		return nil, err
	}

	if textDemuxers[result.Format.FormatName] {
		return nil, fmt.Errorf("unsupported container format %q", result.Format.FormatName)
	}

	indices := make([]int, 0, len(result.Streams))
	seen := make(map[int]bool, len(result.Streams))
	for i, stream := range result.Streams {
		if stream.Index == nil {
			return nil, fmt.Errorf("stream %d has no index", i)
		}
		idx := *stream.Index
		if idx < 0 {
			return nil, fmt.Errorf("stream %d has negative index %d", i, idx)
		}
		if seen[idx] {
			return nil, fmt.Errorf("duplicate stream index %d", idx)
		}
		seen[idx] = true
		indices = append(indices, idx)
	}
	return indices, nil
}

// VerifyInstalled checks that ffprobe is available
func (p *Prober) VerifyInstalled(ctx context.Context) error {
	_, err := p.runner.Output(ctx, p.ffprobePath, "-version")
	if err != nil {
		return fmt.Errorf("ffprobe not found or not executable: %w", err)
	}
	return nil
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// Ensure Prober implements audio.TrackLister
var _ audio.TrackLister = (*Prober)(nil)
