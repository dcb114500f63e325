// Package handlers serves the capture widget over HTTP.
package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/snapscribe/snapscribe/internal/widget"
)

const defaultStreamInterval = time.Second / 15

type Handler struct {
	widget *widget.Widget

	// StreamInterval paces frames on /api/stream.
	StreamInterval time.Duration
}

func New(w *widget.Widget) *Handler {
	return &Handler{
		widget:         w,
		StreamInterval: defaultStreamInterval,
	}
}

// Routes registers every widget endpoint on a new mux.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/state", h.HandleState)
	mux.HandleFunc("/api/stream", h.HandleStream)
	mux.HandleFunc("/api/capture", h.HandleCapture)
	mux.HandleFunc("/api/captures/", h.HandleCaptureBlob)
	mux.HandleFunc("/api/save", h.HandleSave)
	mux.HandleFunc("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("OK")); err != nil {
			slog.Error("Unable to write healthcheck", "err", err)
		}
	})
	mux.HandleFunc("/", h.HandleIndex)
	return mux
}

// Response helpers
func (h *Handler) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Unable to encode JSON response", "err", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, message string, code int) {
	slog.Error(message, "status", code)
	http.Error(w, message, code)
}

// statusFor maps widget preconditions to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, widget.ErrNoStream), errors.Is(err, widget.ErrNoCapture):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
