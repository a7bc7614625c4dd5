package alarm

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

var (
	// ErrEmptyToneName is returned for a LocalTone without a name.
	ErrEmptyToneName = errors.New("tone name is empty")
	// ErrInvalidTrackURI is returned for a StreamingTrack with a malformed URI.
	ErrInvalidTrackURI = errors.New("invalid track uri")
	// ErrNegativeOffset is returned for a StreamingTrack that starts before zero.
	ErrNegativeOffset = errors.New("start offset is negative")
)

// DefaultToneName is used when no tone is configured.
const DefaultToneName = "default"

// AudioPreference is what an alarm wants to play.
// The implementations are LocalTone and StreamingTrack.
type AudioPreference interface {
	// Validate checks the preference is well formed.
	Validate() error

	isAudioPreference()
}

// LocalTone is a sound shipped with the device.
type LocalTone struct {
	// Name identifies the tone in the tone library.
	Name string
}

// StreamingTrack is a track on a remote streaming service.
type StreamingTrack struct {
	// URI identifies the track, for example "spotify:track:abc".
	URI string
	// Fallback is played when the track cannot be prepared.
	Fallback LocalTone
	// StartOffset is where playback starts inside the track.
	StartOffset time.Duration
}

// NewLocalTone returns a validated LocalTone.
func NewLocalTone(name string) (LocalTone, error) {
	t := LocalTone{Name: strings.TrimSpace(name)}

	return t, t.Validate()
}

// NewStreamingTrack returns a validated StreamingTrack.
func NewStreamingTrack(uri string, fallback LocalTone, offset time.Duration) (StreamingTrack, error) {
	t := StreamingTrack{URI: strings.TrimSpace(uri), Fallback: fallback, StartOffset: offset}

	return t, t.Validate()
}

// Validate implements AudioPreference.
func (t LocalTone) Validate() error {
	if t.Name == "" {
		return ErrEmptyToneName
	}

	return nil
}

// Validate implements AudioPreference.
func (t StreamingTrack) Validate() error {
	u, err := url.Parse(t.URI)
	if err != nil || t.URI == "" || u.Scheme == "" {
		return fmt.Errorf("%w: %q", ErrInvalidTrackURI, t.URI)
	}

	if t.StartOffset < 0 {
		return ErrNegativeOffset
	}

	if err = t.Fallback.Validate(); err != nil {
		return fmt.Errorf("fallback: %w", err)
	}

	return nil
}

func (LocalTone) isAudioPreference()      {}
func (StreamingTrack) isAudioPreference() {}

// Describe renders a preference for displays and logs.
func Describe(p AudioPreference) string {
	switch v := p.(type) {
	case LocalTone:
		return "Tone: " + v.Name
	case StreamingTrack:
		return "Stream: " + v.URI
	default:
		return "Unknown"
	}
}
