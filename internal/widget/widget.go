// Package widget implements the capture widget: it owns a live camera stream,
// freezes frames into JPEG stills and hands them out for download.
package widget

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"log/slog"
	"sync"

	"golang.org/x/image/draw"

	"github.com/snapscribe/snapscribe/internal/blobstore"
	"github.com/snapscribe/snapscribe/internal/camera"
)

const (
	// SaveFilename is the fixed name every download is offered under.
	SaveFilename = "captured-image.jpeg"
	MIMETypeJPEG = "image/jpeg"

	DefaultQuality = 92
	liveQuality    = 70

	// DefaultPreviewWidth caps the width of live preview frames.
	DefaultPreviewWidth = 960
)

var (
	ErrNoStream  = errors.New("no active camera stream")
	ErrNoCapture = errors.New("no image has been captured")
)

// Frame describes a captured still.
type Frame struct {
	Ref    blobstore.Ref `json:"ref"`
	Width  int           `json:"width"`
	Height int           `json:"height"`
	Size   int           `json:"size"`
}

// Download is the result of a save.
type Download struct {
	Filename string `json:"filename"`
	MIMEType string `json:"mime_type"`
	Size     int    `json:"size"`
}

// State is everything a view needs to render the widget.
type State struct {
	Streaming  bool          `json:"streaming"`
	Captured   bool          `json:"captured"`
	CaptureRef blobstore.Ref `json:"capture_ref,omitempty"`
	Width      int           `json:"width,omitempty"`
	Height     int           `json:"height,omitempty"`
}

type Option func(*Widget)

func WithConstraints(c camera.Constraints) Option {
	return func(w *Widget) { w.constraints = c }
}

// WithErrorHandler replaces the default slog reporter for acquisition errors.
func WithErrorHandler(fn func(error)) Option {
	return func(w *Widget) { w.onError = fn }
}

func WithQuality(q int) Option {
	return func(w *Widget) { w.quality = q }
}

func WithStore(s *blobstore.Store) Option {
	return func(w *Widget) { w.blobs = s }
}

// WithPreviewWidth sets the widest live frame LiveFrame returns. Zero keeps
// the native size.
func WithPreviewWidth(px int) Option {
	return func(w *Widget) { w.previewWidth = px }
}

type Widget struct {
	source       camera.Source
	constraints  camera.Constraints
	blobs        *blobstore.Store
	onError      func(error)
	quality      int
	previewWidth int

	mu       sync.Mutex
	stream   *camera.Stream
	captured *Frame
}

func New(source camera.Source, opts ...Option) *Widget {
	w := &Widget{
		source:       source,
		constraints:  camera.DefaultConstraints(),
		blobs:        blobstore.New(),
		quality:      DefaultQuality,
		previewWidth: DefaultPreviewWidth,
		onError: func(err error) {
			slog.Error("Error accessing the camera", "err", err)
		},
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Mount acquires the camera stream. A failure is reported to the error
// handler and leaves the widget without a stream until the next Mount.
func (w *Widget) Mount(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stream != nil && w.stream.Active() {
		return nil
	}

	stream, err := w.source.Acquire(ctx, w.constraints)
	if err != nil {
		err = fmt.Errorf("failed to acquire camera stream: %w", err)
		w.onError(err)
		return err
	}
	w.stream = stream

	for _, t := range stream.VideoTracks() {
		s := t.Settings()
		slog.Info("Camera stream started", "stream", stream.ID(), "track", t.ID(), "device", s.DeviceID, "width", s.Width, "height", s.Height, "fps", s.FrameRate)
	}
	return nil
}

// Unmount stops every track and releases the current capture. It is safe to
// call on any path, including more than once.
func (w *Widget) Unmount() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stream != nil {
		w.stream.Stop()
		slog.Info("Camera stream stopped", "stream", w.stream.ID())
		w.stream = nil
	}
	if w.captured != nil {
		w.blobs.Revoke(w.captured.Ref)
		w.captured = nil
	}
}

// Capture freezes the current video frame into a JPEG still. The previous
// capture, if any, is revoked.
func (w *Widget) Capture(ctx context.Context) (*Frame, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	track, err := w.videoTrack()
	if err != nil {
		return nil, err
	}

	src, err := track.ReadFrame(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read video frame: %w", err)
	}

	data, width, height, err := renderJPEG(src, w.quality)
	if err != nil {
		return nil, err
	}

	frame := &Frame{
		Ref:    w.blobs.Create(data, MIMETypeJPEG),
		Width:  width,
		Height: height,
		Size:   len(data),
	}
	if w.captured != nil {
		w.blobs.Revoke(w.captured.Ref)
	}
	w.captured = frame

	slog.Debug("Image captured", "ref", frame.Ref, "width", width, "height", height, "bytes", len(data))
	return frame, nil
}

// Save writes the current capture to dst under SaveFilename. The stored
// image is left untouched.
func (w *Widget) Save(dst io.Writer) (Download, error) {
	// A concurrent Capture revokes the old ref, so the lookup stays under mu.
	w.mu.Lock()
	frame := w.captured
	var blob *blobstore.Blob
	ok := false
	if frame != nil {
		blob, ok = w.blobs.Get(frame.Ref)
	}
	w.mu.Unlock()

	if !ok {
		return Download{}, ErrNoCapture
	}

	n, err := dst.Write(blob.Data)
	if err != nil {
		return Download{}, fmt.Errorf("failed to write image: %w", err)
	}

	slog.Info("Image saved", "filename", SaveFilename, "ref", frame.Ref, "bytes", n)
	return Download{Filename: SaveFilename, MIMEType: blob.MIMEType, Size: n}, nil
}

// Blob resolves a capture reference. Revoked references are not found.
func (w *Widget) Blob(ref blobstore.Ref) (*blobstore.Blob, bool) {
	return w.blobs.Get(ref)
}

// LiveFrame returns the current video frame as JPEG for the video surface,
// scaled down to the preview width. Captures are never scaled.
func (w *Widget) LiveFrame(ctx context.Context) ([]byte, error) {
	w.mu.Lock()
	track, err := w.videoTrack()
	w.mu.Unlock()
	if err != nil {
		return nil, err
	}

	src, err := track.ReadFrame(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read video frame: %w", err)
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, scalePreview(src, w.previewWidth), &jpeg.Options{Quality: liveQuality}); err != nil {
		return nil, fmt.Errorf("failed to encode live frame: %w", err)
	}
	return buf.Bytes(), nil
}

func (w *Widget) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()

	st := State{Streaming: w.stream != nil && w.stream.Active()}
	if w.captured != nil {
		st.Captured = true
		st.CaptureRef = w.captured.Ref
		st.Width = w.captured.Width
		st.Height = w.captured.Height
	}
	return st
}

// videoTrack must be called with mu held.
func (w *Widget) videoTrack() (camera.Track, error) {
	if w.stream == nil || !w.stream.Active() {
		return nil, ErrNoStream
	}
	tracks := w.stream.VideoTracks()
	if len(tracks) == 0 {
		return nil, ErrNoStream
	}
	return tracks[0], nil
}

// renderJPEG draws src onto a bitmap of its native size and encodes it.
func renderJPEG(src image.Image, quality int) ([]byte, int, int, error) {
	bounds := src.Bounds()
	if bounds.Empty() {
		return nil, 0, 0, fmt.Errorf("video frame has no dimensions")
	}

	canvas := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(canvas, canvas.Bounds(), src, bounds.Min, draw.Src)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, canvas, &jpeg.Options{Quality: quality}); err != nil {
		return nil, 0, 0, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), bounds.Dx(), bounds.Dy(), nil
}

// previewSize fits width x height into maxWidth, keeping the aspect ratio.
func previewSize(width, height, maxWidth int) (int, int) {
	if maxWidth <= 0 || width <= maxWidth {
		return width, height
	}
	h := height * maxWidth / width
	if h < 1 {
		h = 1
	}
	return maxWidth, h
}

func scalePreview(src image.Image, maxWidth int) image.Image {
	bounds := src.Bounds()
	w, h := previewSize(bounds.Dx(), bounds.Dy(), maxWidth)
	if w == bounds.Dx() {
		return src
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, bounds, draw.Src, nil)
	return dst
}
