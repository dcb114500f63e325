package camera

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"io/fs"
	"log/slog"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
)

const (
	// maxFrameBytes bounds a single MJPEG frame; larger runs are treated as noise.
	maxFrameBytes = 8 * 1024 * 1024
	// stderrTailBytes is how much ffmpeg diagnostic output is kept for errors.
	stderrTailBytes = 4096
)

// FFmpegSource captures from the platform camera API through an ffmpeg
// subprocess emitting MJPEG on stdout.
type FFmpegSource struct {
	DevicesList []DeviceInfo
	// Binary defaults to "ffmpeg" on PATH.
	Binary string
}

// NewFFmpegSource returns a source over the given device map.
func NewFFmpegSource(devices []DeviceInfo) *FFmpegSource {
	return &FFmpegSource{DevicesList: devices, Binary: "ffmpeg"}
}

func (s *FFmpegSource) Devices(ctx context.Context) ([]DeviceInfo, error) {
	return s.DevicesList, nil
}

func (s *FFmpegSource) Acquire(ctx context.Context, c Constraints) (*Stream, error) {
	device, err := SelectDevice(s.DevicesList, c)
	if err != nil {
		return nil, err
	}
	binary := s.Binary
	if binary == "" {
		binary = "ffmpeg"
	}
	path, err := exec.LookPath(binary)
	if err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return nil, startError(err, "")
		}
		return nil, fmt.Errorf("%w: ffmpeg not found: %v", ErrNotFound, err)
	}

	settings := ResolveSettings(device, c)
	procCtx, cancel := context.WithCancel(context.Background())
	cmd := exec.CommandContext(procCtx, path, ffmpegArgs(runtime.GOOS, settings)...)
	stderr := &tailBuffer{max: stderrTailBytes}
	cmd.Stderr = stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to get stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		cancel()
		return nil, startError(err, "")
	}

	track := &ffmpegTrack{
		id:       uuid.NewString(),
		settings: settings,
		cancel:   cancel,
		ready:    make(chan struct{}),
		done:     make(chan struct{}),
		state:    TrackLive,
	}
	go track.read(stdout)
	go func() {
		err := cmd.Wait()
		if err != nil && procCtx.Err() == nil {
			slog.Warn("ffmpeg exited", "device", settings.DeviceID, "err", err)
		}
		track.markEnded()
		close(track.done)
	}()

	// Surface an immediate failure (busy device, denied access) to the caller
	// instead of handing out a dead track.
	select {
	case <-track.ready:
	case <-track.done:
		cancel()
		return nil, startError(errors.New("ffmpeg exited before the first frame"), stderr.String())
	case <-ctx.Done():
		track.Stop()
		return nil, ctx.Err()
	}

	return NewStream(track), nil
}

// startError reports a camera that could not be started. Only an access
// failure, from the OS or in ffmpeg's diagnostics, counts as a denied
// permission.
func startError(err error, stderr string) error {
	detail := lastLine(stderr)
	if detail != "" {
		err = fmt.Errorf("%w: %s", err, detail)
	}
	if errors.Is(err, fs.ErrPermission) || strings.Contains(stderr, "Permission denied") {
		return fmt.Errorf("%w: %w", ErrPermissionDenied, err)
	}
	return fmt.Errorf("failed to start camera: %w", err)
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	return strings.TrimSpace(s)
}

// tailBuffer keeps the last max bytes written to it.
type tailBuffer struct {
	max int

	mu  sync.Mutex
	buf []byte
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf = append(b.buf, p...)
	if over := len(b.buf) - b.max; over > 0 {
		b.buf = append(b.buf[:0], b.buf[over:]...)
	}
	return len(p), nil
}

func (b *tailBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.buf)
}

func ffmpegArgs(goos string, s Settings) []string {
	size := fmt.Sprintf("%dx%d", s.Width, s.Height)
	rate := strconv.FormatFloat(s.FrameRate, 'f', -1, 64)

	var args []string
	switch goos {
	case "darwin":
		args = []string{"-f", "avfoundation", "-framerate", rate, "-video_size", size, "-i", s.DeviceID}
	case "windows":
		args = []string{"-f", "dshow", "-framerate", rate, "-video_size", size, "-i", "video=" + s.DeviceID}
	default:
		args = []string{"-f", "v4l2", "-framerate", rate, "-video_size", size, "-i", "/dev/video" + s.DeviceID}
	}

	return append(args,
		"-an",
		"-f", "mjpeg",
		"-q:v", "3",
		"-",
	)
}

type ffmpegTrack struct {
	id       string
	settings Settings
	cancel   context.CancelFunc
	ready    chan struct{}
	done     chan struct{}

	mu        sync.Mutex
	state     TrackState
	latest    []byte
	readyOnce sync.Once
}

func (t *ffmpegTrack) ID() string         { return t.id }
func (t *ffmpegTrack) Kind() string       { return KindVideo }
func (t *ffmpegTrack) Settings() Settings { return t.settings }

func (t *ffmpegTrack) State() TrackState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

func (t *ffmpegTrack) ReadFrame(ctx context.Context) (image.Image, error) {
	select {
	case <-t.ready:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	t.mu.Lock()
	if t.state == TrackEnded {
		t.mu.Unlock()
		return nil, ErrTrackEnded
	}
	data := t.latest
	t.mu.Unlock()

	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode frame: %w", err)
	}
	return img, nil
}

func (t *ffmpegTrack) Stop() {
	t.markEnded()
	t.cancel()
}

func (t *ffmpegTrack) markEnded() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = TrackEnded
}

func (t *ffmpegTrack) read(r io.Reader) {
	err := SplitMJPEG(r, func(frame []byte) {
		t.mu.Lock()
		t.latest = frame
		t.mu.Unlock()
		t.readyOnce.Do(func() { close(t.ready) })
	})
	if err != nil {
		slog.Debug("MJPEG stream closed", "device", t.settings.DeviceID, "err", err)
	}
}

// SplitMJPEG reads a concatenated MJPEG byte stream and calls emit with each
// complete JPEG image, delimited by SOI (FFD8) and EOI (FFD9) markers.
// It returns nil at EOF.
func SplitMJPEG(r io.Reader, emit func([]byte)) error {
	reader := bufio.NewReaderSize(r, 256*1024)

	var frame bytes.Buffer
	var prev byte
	inFrame := false

	for {
		b, err := reader.ReadByte()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		switch {
		case !inFrame && prev == 0xFF && b == 0xD8:
			frame.Reset()
			frame.Write([]byte{0xFF, 0xD8})
			inFrame = true
		case inFrame:
			frame.WriteByte(b)
			if prev == 0xFF && b == 0xD9 {
				out := make([]byte, frame.Len())
				copy(out, frame.Bytes())
				emit(out)
				frame.Reset()
				inFrame = false
				b = 0
			} else if frame.Len() > maxFrameBytes {
				frame.Reset()
				inFrame = false
			}
		}
		prev = b
	}
}
