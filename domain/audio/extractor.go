package audio

import "context"

// TrackLister discovers the audio streams of a media file
type TrackLister interface {
	// ListAudioTracks returns the audio tracks in probe order. A container
	// without audio yields an empty slice and no error.
	ListAudioTracks(ctx context.Context, sourcePath string) ([]Track, error)
}

// TrackExtractor encodes a single audio stream into a standalone file
type TrackExtractor interface {
	// ExtractTrack writes the encoded audio of track to outputPath
	ExtractTrack(ctx context.Context, sourcePath string, track Track, outputPath string) error
}

// TrackSource lists and extracts audio tracks from a media path.
// This is a port that can be implemented by different infrastructure adapters
type TrackSource interface {
	TrackLister
	TrackExtractor
}

// Archiver packs an ordered set of files into one archive blob
type Archiver interface {
	// CreateArchive writes files to archivePath, one entry per file in order,
	// and returns the archive bytes
	CreateArchive(ctx context.Context, files []string, archivePath string) ([]byte, error)
}

// FileChecker defines the interface for checking file existence
type FileChecker interface {
	// Exists returns true if the file exists
	Exists(path string) bool
}
