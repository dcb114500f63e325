package camera

import (
	"context"
	"image"
	"image/color"
	"sync"

	"github.com/google/uuid"
)

// SyntheticSource produces generated colour-bar frames. It stands in for real
// hardware in tests and in demo mode.
type SyntheticSource struct {
	// DevicesList defaults to a single rear-facing camera.
	DevicesList []DeviceInfo
	// DenyPermission makes Acquire fail as if the user refused access.
	DenyPermission bool

	mu       sync.Mutex
	acquired []*SyntheticTrack
}

// NewSyntheticSource returns a source with one environment-facing device.
func NewSyntheticSource() *SyntheticSource {
	return &SyntheticSource{
		DevicesList: []DeviceInfo{{DeviceID: "synthetic-0", Label: "synthetic rear camera", Facing: FacingEnvironment}},
	}
}

func (s *SyntheticSource) Devices(ctx context.Context) ([]DeviceInfo, error) {
	return s.DevicesList, nil
}

func (s *SyntheticSource) Acquire(ctx context.Context, c Constraints) (*Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.DenyPermission {
		return nil, ErrPermissionDenied
	}
	device, err := SelectDevice(s.DevicesList, c)
	if err != nil {
		return nil, err
	}

	track := &SyntheticTrack{
		id:       uuid.NewString(),
		settings: ResolveSettings(device, c),
		state:    TrackLive,
	}
	s.mu.Lock()
	s.acquired = append(s.acquired, track)
	s.mu.Unlock()

	return NewStream(track), nil
}

// Acquired returns every track handed out so far.
func (s *SyntheticSource) Acquired() []*SyntheticTrack {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*SyntheticTrack, len(s.acquired))
	copy(out, s.acquired)
	return out
}

// SyntheticTrack is a video track whose frames shift on every read.
type SyntheticTrack struct {
	id       string
	settings Settings

	mu    sync.Mutex
	state TrackState
	tick  int
}

func (t *SyntheticTrack) ID() string         { return t.id }
func (t *SyntheticTrack) Kind() string       { return KindVideo }
func (t *SyntheticTrack) Settings() Settings { return t.settings }

func (t *SyntheticTrack) State() TrackState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

func (t *SyntheticTrack) ReadFrame(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t.mu.Lock()
	if t.state == TrackEnded {
		t.mu.Unlock()
		return nil, ErrTrackEnded
	}
	t.tick++
	tick := t.tick
	t.mu.Unlock()

	return colorBars(t.settings.Width, t.settings.Height, tick), nil
}

func (t *SyntheticTrack) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = TrackEnded
}

var bars = []color.RGBA{
	{192, 192, 192, 255},
	{192, 192, 0, 255},
	{0, 192, 192, 255},
	{0, 192, 0, 255},
	{192, 0, 192, 255},
	{192, 0, 0, 255},
	{0, 0, 192, 255},
}

func colorBars(w, h, tick int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	barWidth := w / len(bars)
	if barWidth == 0 {
		barWidth = 1
	}
	for x := 0; x < w; x++ {
		c := bars[((x/barWidth)+tick)%len(bars)]
		for y := 0; y < h; y++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}
