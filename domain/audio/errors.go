package audio

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds surfaced by the extraction pipeline. Every error it returns
// matches exactly one of these with errors.Is.
var (
	// ErrTrackDiscoveryFailed is returned when probing the container for audio streams fails
	ErrTrackDiscoveryFailed = errors.New("audio track discovery failed")

	// ErrTrackExtractionFailed is returned when encoding one audio stream fails
	ErrTrackExtractionFailed = errors.New("audio track extraction failed")

	// ErrArchiveCreationFailed is returned when packaging the extracted tracks fails
	ErrArchiveCreationFailed = errors.New("archive creation failed")

	// ErrPipelineIO is returned for any other failure inside the pipeline
	ErrPipelineIO = errors.New("extraction pipeline failed")
)

// TrackError reports a failure tied to one specific audio stream
type TrackError struct {
	Kind       error
	TrackIndex int
	Err        error
}

func (e *TrackError) Error() string {
	kind := e.Kind
	if kind == nil {
		kind = ErrTrackExtractionFailed
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: track %d: %v", kind, e.TrackIndex, e.Err)
	}
	return fmt.Sprintf("%s: track %d", kind, e.TrackIndex)
}

func (e *TrackError) Unwrap() []error {
	kind := e.Kind
	if kind == nil {
		kind = ErrTrackExtractionFailed
	}
	if e.Err == nil {
		return []error{kind}
	}
	return []error{kind, e.Err}
}

// NewTrackExtractionError wraps err as an extraction failure for the given stream index
func NewTrackExtractionError(trackIndex int, err error) error {
	return &TrackError{
		Kind:       ErrTrackExtractionFailed,
		TrackIndex: trackIndex,
		Err:        err,
	}
}

// Wrap tags err with one of the kind sentinels above and an operation label
func Wrap(kind error, operation string, err error) error {
	if kind == nil {
		kind = ErrPipelineIO
	}
	operation = strings.TrimSpace(operation)
	switch {
	case err == nil && operation == "":
		return kind
	case err == nil:
		return fmt.Errorf("%w: %s", kind, operation)
	case operation == "":
		return fmt.Errorf("%w: %w", kind, err)
	default:
		return fmt.Errorf("%w: %s: %w", kind, operation, err)
	}
}

// KindOf maps err onto the fixed set of kinds. Errors outside the taxonomy
// are reported as ErrPipelineIO; nil stays nil.
func KindOf(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrTrackDiscoveryFailed):
		return ErrTrackDiscoveryFailed
	case errors.Is(err, ErrTrackExtractionFailed):
		return ErrTrackExtractionFailed
	case errors.Is(err, ErrArchiveCreationFailed):
		return ErrArchiveCreationFailed
	default:
		return ErrPipelineIO
	}
}

// IsKnown reports whether err already belongs to the taxonomy
func IsKnown(err error) bool {
	return errors.Is(err, ErrTrackDiscoveryFailed) ||
		errors.Is(err, ErrTrackExtractionFailed) ||
		errors.Is(err, ErrArchiveCreationFailed) ||
		errors.Is(err, ErrPipelineIO)
}

// FailedTrackIndex returns the stream index carried by a TrackError in err's chain
func FailedTrackIndex(err error) (int, bool) {
	var trackErr *TrackError
	if errors.As(err, &trackErr) {
		return trackErr.TrackIndex, true
	}
	return 0, false
}
