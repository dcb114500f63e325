package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/snapscribe/snapscribe/internal/camera"
	"github.com/snapscribe/snapscribe/internal/widget"
)

const streamBoundary = "frame"

// HandleStream serves the live video surface as an MJPEG stream.
func (h *Handler) HandleStream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	first, err := h.widget.LiveFrame(ctx)
	if err != nil {
		code := http.StatusServiceUnavailable
		if !errors.Is(err, widget.ErrNoStream) {
			code = http.StatusInternalServerError
		}
		h.writeError(w, "Live stream unavailable: "+err.Error(), code)
		return
	}

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary="+streamBoundary)
	w.Header().Set("Cache-Control", "no-store")
	rc := http.NewResponseController(w)

	interval := h.StreamInterval
	if interval <= 0 {
		interval = defaultStreamInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	frame := first
	for {
		if err := writePart(w, frame); err != nil {
			slog.Debug("Live stream client gone", "err", err)
			return
		}
		if err := rc.Flush(); err != nil {
			slog.Debug("Live stream flush failed", "err", err)
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		frame, err = h.widget.LiveFrame(ctx)
		if err != nil {
			// Unmount ends the stream; only other failures are worth a warning.
			if !errors.Is(err, widget.ErrNoStream) && !errors.Is(err, camera.ErrTrackEnded) && ctx.Err() == nil {
				slog.Warn("Live stream ended", "err", err)
			}
			return
		}
	}
}

func writePart(w http.ResponseWriter, frame []byte) error {
	if _, err := fmt.Fprintf(w, "--%s\r\nContent-Type: %s\r\nContent-Length: %d\r\n\r\n", streamBoundary, widget.MIMETypeJPEG, len(frame)); err != nil {
		return err
	}
	if _, err := w.Write(frame); err != nil {
		return err
	}
	_, err := w.Write([]byte("\r\n"))
	return err
}
