package audio

import (
	"path/filepath"
	"strings"
)

// maxExtensionLength caps the suffix carried over from an untrusted file name
const maxExtensionLength = 10

// SourceMedia is an uploaded media container and the name it arrived with.
// The name is only used to infer a file extension.
type SourceMedia struct {
	Name string
	Data []byte
}

// NewSourceMedia creates a SourceMedia. Content is not inspected; an empty
// upload is left for the probe to reject.
func NewSourceMedia(name string, data []byte) *SourceMedia {
	if data == nil {
		data = []byte{}
	}

	return &SourceMedia{
		Name: name,
		Data: data,
	}
}

// Extension returns the sanitized, lower-cased extension of the name hint
// including the leading dot, or "" when the hint has no usable extension.
func (s *SourceMedia) Extension() string {
	return SanitizeExtension(filepath.Ext(filepath.Base(s.Name)))
}

// SanitizeExtension keeps an extension only if it is short and alphanumeric
func SanitizeExtension(ext string) string {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	if ext == "" || len(ext) > maxExtensionLength {
		return ""
	}
	for _, r := range ext {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ""
		}
	}
	return "." + ext
}
