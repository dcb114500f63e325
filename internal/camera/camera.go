// Package camera provides live video acquisition from local camera devices.
//
// A Source hands out a Stream built from one or more Tracks. The caller owns
// the Stream and must Stop it to release the hardware.
package camera

import (
	"context"
	"errors"
	"image"
	"sync"

	"github.com/google/uuid"
)

var (
	// ErrPermissionDenied is returned when the device refuses access.
	ErrPermissionDenied = errors.New("camera permission denied")
	// ErrNotFound is returned when no camera device is available.
	ErrNotFound = errors.New("no camera device found")
	// ErrOverconstrained is returned when no device satisfies a required constraint.
	ErrOverconstrained = errors.New("no camera device satisfies the constraints")
	// ErrTrackEnded is returned when reading from a stopped track.
	ErrTrackEnded = errors.New("track has ended")
	// ErrUnsupported is returned by backends that are not compiled in.
	ErrUnsupported = errors.New("camera backend not supported in this build")
)

// TrackState mirrors the lifecycle of a media track.
type TrackState string

const (
	TrackLive  TrackState = "live"
	TrackEnded TrackState = "ended"
)

// KindVideo is the only track kind produced by this package.
const KindVideo = "video"

// Settings are the values a track actually runs with after constraint
// resolution.
type Settings struct {
	DeviceID   string
	FacingMode FacingMode
	Width      int
	Height     int
	FrameRate  float64
}

// Track is a single independently stoppable media channel.
type Track interface {
	ID() string
	Kind() string
	Settings() Settings
	State() TrackState
	// ReadFrame returns the current frame of the track.
	ReadFrame(ctx context.Context) (image.Image, error)
	// Stop releases the underlying device. It is safe to call more than once.
	Stop()
}

// Source acquires streams from camera hardware.
type Source interface {
	Devices(ctx context.Context) ([]DeviceInfo, error)
	Acquire(ctx context.Context, c Constraints) (*Stream, error)
}

// DeviceInfo describes a single camera known to a Source.
type DeviceInfo struct {
	DeviceID string     `json:"device_id"`
	Label    string     `json:"label"`
	Facing   FacingMode `json:"facing,omitempty"`
}

// Stream is a handle to live camera output.
type Stream struct {
	id     string
	tracks []Track

	mu      sync.Mutex
	stopped bool
}

// NewStream wraps tracks into a stream with a fresh identifier.
func NewStream(tracks ...Track) *Stream {
	return &Stream{
		id:     uuid.NewString(),
		tracks: tracks,
	}
}

func (s *Stream) ID() string {
	return s.id
}

// Tracks returns every track of the stream.
func (s *Stream) Tracks() []Track {
	out := make([]Track, len(s.tracks))
	copy(out, s.tracks)
	return out
}

// VideoTracks returns only the video tracks of the stream.
func (s *Stream) VideoTracks() []Track {
	var out []Track
	for _, t := range s.tracks {
		if t.Kind() == KindVideo {
			out = append(out, t)
		}
	}
	return out
}

// Active reports whether at least one track is still live.
func (s *Stream) Active() bool {
	for _, t := range s.tracks {
		if t.State() == TrackLive {
			return true
		}
	}
	return false
}

// Stop stops every track of the stream.
func (s *Stream) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.stopped = true
	for _, t := range s.tracks {
		t.Stop()
	}
}
