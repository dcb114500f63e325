package handlers

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/snapscribe/snapscribe/internal/blobstore"
	"github.com/snapscribe/snapscribe/internal/widget"
)

func captureURL(id string) string {
	return "/api/captures/" + id
}

func (h *Handler) HandleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	h.writeJSON(w, h.widget.State())
}

func (h *Handler) HandleCapture(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	frame, err := h.widget.Capture(r.Context())
	if err != nil {
		h.writeError(w, "Failed to capture image: "+err.Error(), statusFor(err))
		return
	}

	h.writeJSON(w, map[string]any{
		"ref":    frame.Ref,
		"url":    captureURL(frame.Ref.ID()),
		"width":  frame.Width,
		"height": frame.Height,
		"size":   frame.Size,
	})
}

func (h *Handler) HandleCaptureBlob(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/api/captures/")
	if id == "" || strings.Contains(id, "/") {
		http.NotFound(w, r)
		return
	}

	blob, ok := h.widget.Blob(blobstore.ParseRef(id))
	if !ok {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", blob.MIMEType)
	w.Header().Set("Content-Length", strconv.Itoa(len(blob.Data)))
	w.Header().Set("Cache-Control", "no-store")
	if _, err := w.Write(blob.Data); err != nil {
		slog.Error("Unable to write capture", "id", id, "err", err)
	}
}

// HandleSave offers the current capture as a download.
func (h *Handler) HandleSave(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var buf bytes.Buffer
	dl, err := h.widget.Save(&buf)
	if err != nil {
		h.writeError(w, "Nothing to save: "+err.Error(), statusFor(err))
		return
	}

	w.Header().Set("Content-Type", dl.MIMEType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", widget.SaveFilename))
	w.Header().Set("Content-Length", strconv.Itoa(dl.Size))
	if _, err := w.Write(buf.Bytes()); err != nil {
		slog.Error("Unable to write download", "err", err)
	}
}
