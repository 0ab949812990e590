package audio

import (
	"fmt"
	"path/filepath"
)

// Track describes one audio stream found in a source container
type Track struct {
	Index    int // stream index as reported by the probe
	Position int // 1-based order among the audio streams
}

// ExtractedTrack pairs a track with the file its encoded audio was written to
type ExtractedTrack struct {
	Track Track
	Path  string
}

// EncodingPolicy describes how each audio track is re-encoded
type EncodingPolicy struct {
	Codec     string
	Bitrate   string
	Extension string
}

// Default encoding settings for extracted tracks
const (
	DefaultCodec     = "aac"
	DefaultBitrate   = "192k"
	DefaultExtension = ".aac"
)

// DefaultEncoding is AAC at 192 kb/s in a raw ADTS file
var DefaultEncoding = EncodingPolicy{
	Codec:     DefaultCodec,
	Bitrate:   DefaultBitrate,
	Extension: DefaultExtension,
}

// Validate checks that the policy names a codec, bitrate and extension
func (p EncodingPolicy) Validate() error {
	if p.Codec == "" {
		return fmt.Errorf("audio codec is required")
	}
	if p.Bitrate == "" {
		return fmt.Errorf("audio bitrate is required")
	}
	if SanitizeExtension(p.Extension) == "" {
		return fmt.Errorf("invalid audio extension %q", p.Extension)
	}
	return nil
}

// TrackFileName returns the output name for the track at the given 1-based
// position, e.g. audio_track_1.aac
func (p EncodingPolicy) TrackFileName(position int) string {
	return fmt.Sprintf("audio_track_%d%s", position, SanitizeExtension(p.Extension))
}

// TrackPath returns the output path for a track inside outputDir
func (p EncodingPolicy) TrackPath(outputDir string, track Track) string {
	return filepath.Join(outputDir, p.TrackFileName(track.Position))
}

// NewTracks numbers probe-reported stream indices by position, keeping probe order
func NewTracks(indices []int) []Track {
	tracks := make([]Track, 0, len(indices))
	for i, idx := range indices {
		tracks = append(tracks, Track{Index: idx, Position: i + 1})
	}
	return tracks
}

// Paths returns the file paths of the extracted tracks in order
func Paths(tracks []ExtractedTrack) []string {
	paths := make([]string, len(tracks))
	for i, t := range tracks {
		paths[i] = t.Path
	}
	return paths
}

// Result is the output of one extraction pipeline run
type Result struct {
	Archive  []byte
	FileName string
	Tracks   int
}
