package ffmpeg

import (
	"context"

	"github.com/sh1Nome/extract-streams-web/domain/audio"
)

// Toolkit pairs an ffprobe lister with an ffmpeg extractor
type Toolkit struct {
	*Prober
	*Extractor
}

// NewToolkit creates a Toolkit from an already configured prober and extractor
func NewToolkit(prober *Prober, extractor *Extractor) *Toolkit {
	return &Toolkit{
		Prober:    prober,
		Extractor: extractor,
	}
}

// VerifyInstalled checks that both ffprobe and ffmpeg are available
func (t *Toolkit) VerifyInstalled(ctx context.Context) error {
	if err := t.Prober.VerifyInstalled(ctx); err != nil {
		return err
	}
	return t.Extractor.VerifyInstalled(ctx)
}

// Ensure Toolkit implements audio.TrackSource
var _ audio.TrackSource = (*Toolkit)(nil)
