//go:build gocv
// +build gocv

package camera

import (
	"context"
	"fmt"
	"image"
	"strconv"
	"sync"

	"github.com/google/uuid"
	"gocv.io/x/gocv"
)

// GoCVSource opens cameras through OpenCV.
type GoCVSource struct {
	DevicesList []DeviceInfo
}

// NewGoCVSource returns a source over the given device map.
func NewGoCVSource(devices []DeviceInfo) *GoCVSource {
	return &GoCVSource{DevicesList: devices}
}

func (s *GoCVSource) Devices(ctx context.Context) ([]DeviceInfo, error) {
	return s.DevicesList, nil
}

func (s *GoCVSource) Acquire(ctx context.Context, c Constraints) (*Stream, error) {
	device, err := SelectDevice(s.DevicesList, c)
	if err != nil {
		return nil, err
	}
	index, err := strconv.Atoi(device.DeviceID)
	if err != nil {
		return nil, fmt.Errorf("invalid device id %q: %w", device.DeviceID, err)
	}

	vc, err := gocv.OpenVideoCapture(index)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPermissionDenied, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("%w: device %d", ErrNotFound, index)
	}

	want := ResolveSettings(device, c)
	vc.Set(gocv.VideoCaptureFrameWidth, float64(want.Width))
	vc.Set(gocv.VideoCaptureFrameHeight, float64(want.Height))
	vc.Set(gocv.VideoCaptureFPS, want.FrameRate)

	// The driver may not honour the request; report what it settled on.
	got := want
	if w := int(vc.Get(gocv.VideoCaptureFrameWidth)); w > 0 {
		got.Width = w
	}
	if h := int(vc.Get(gocv.VideoCaptureFrameHeight)); h > 0 {
		got.Height = h
	}
	if fps := vc.Get(gocv.VideoCaptureFPS); fps > 0 {
		got.FrameRate = fps
	}

	return NewStream(&gocvTrack{
		id:       uuid.NewString(),
		settings: got,
		vc:       vc,
		mat:      gocv.NewMat(),
		state:    TrackLive,
	}), nil
}

type gocvTrack struct {
	id       string
	settings Settings

	mu    sync.Mutex
	vc    *gocv.VideoCapture
	mat   gocv.Mat
	state TrackState
}

func (t *gocvTrack) ID() string         { return t.id }
func (t *gocvTrack) Kind() string       { return KindVideo }
func (t *gocvTrack) Settings() Settings { return t.settings }

func (t *gocvTrack) State() TrackState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

func (t *gocvTrack) ReadFrame(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == TrackEnded {
		return nil, ErrTrackEnded
	}
	if ok := t.vc.Read(&t.mat); !ok || t.mat.Empty() {
		return nil, fmt.Errorf("failed to read frame from device %s", t.settings.DeviceID)
	}
	return t.mat.ToImage()
}

func (t *gocvTrack) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == TrackEnded {
		return
	}
	t.state = TrackEnded
	t.mat.Close()
	t.vc.Close()
}
