package chart

import (
	"errors"
	"path/filepath"
	"strings"
)

var ErrEmptyArtifact = errors.New("audio artifact is empty")

const defaultExt = ".wav"

var mimeTypes = map[string]string{
	".wav":  "audio/wav",
	".mp3":  "audio/mpeg",
	".m4a":  "audio/mp4",
	".aac":  "audio/aac",
	".ogg":  "audio/ogg",
	".flac": "audio/flac",
	".webm": "audio/webm",
}

// AudioArtifact is one completed recording. The payload is copied on
// construction and never exposed for mutation.
type AudioArtifact struct {
	data []byte
	ext  string
}

// NewArtifact copies data into a new artifact. name is the capture source's
// file name and is only used to pick the container extension.
func NewArtifact(data []byte, name string) (AudioArtifact, error) {
	if len(data) == 0 {
		return AudioArtifact{}, ErrEmptyArtifact
	}

	ext := strings.ToLower(filepath.Ext(strings.TrimSpace(name)))
	if _, ok := mimeTypes[ext]; !ok {
		ext = defaultExt
	}

	buf := make([]byte, len(data))
	copy(buf, data)
	return AudioArtifact{data: buf, ext: ext}, nil
}

func (a AudioArtifact) IsZero() bool {
	return len(a.data) == 0
}

func (a AudioArtifact) Len() int {
	return len(a.data)
}

// Bytes returns the payload. Callers must not modify it.
func (a AudioArtifact) Bytes() []byte {
	return a.data
}

func (a AudioArtifact) Ext() string {
	if a.ext == "" {
		return defaultExt
	}
	return a.ext
}

func (a AudioArtifact) MIMEType() string {
	return mimeTypes[a.Ext()]
}
