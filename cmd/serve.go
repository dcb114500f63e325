package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/snapscribe/snapscribe/internal/config"
	"github.com/snapscribe/snapscribe/internal/handlers"
	"github.com/snapscribe/snapscribe/internal/widget"
)

func newServeCmd() *cobra.Command {
	var port string
	var camFlags cameraFlags

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the capture widget web interface",
		Long: `Starts the capture widget on the specified port.

The camera is acquired when the server starts and released when it stops.
The page shows the live camera feed, a Capture Image button, and once an
image is captured, the still and a Save Image button that downloads it as
captured-image.jpeg.`,
		Example: `  # Start server on default port 8888 with the rear camera on /dev/video0
  snapscribe serve

  # Use the front camera if there is no rear one
  snapscribe serve --facing environment --facing-ideal --devices user=0

  # Demo without hardware
  snapscribe serve --source synthetic --port 3000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			source, constraints, err := camFlags.build()
			if err != nil {
				return err
			}
			if port == "" {
				cfg, err := config.Load()
				if err != nil {
					return err
				}
				port = cfg.Port
			}

			w := widget.New(source, widget.WithConstraints(constraints))
			// Acquisition failures are logged by the widget; the page then
			// shows an empty video surface until restart.
			_ = w.Mount(cmd.Context())
			defer w.Unmount()

			ln, err := net.Listen("tcp", ":"+port)
			if err != nil {
				return fmt.Errorf("failed to listen on port %s: %w", port, err)
			}
			return serveWidget(cmd.Context(), w, ln)
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "", "Port to listen on; defaults to SNAPSCRIBE_PORT or 8888")
	camFlags.register(cmd)

	return cmd
}

// serveWidget serves the widget on ln until ctx is done. The camera is
// released before waiting on open connections, which ends live streams.
func serveWidget(ctx context.Context, w *widget.Widget, ln net.Listener) error {
	server := &http.Server{
		Handler: handlers.New(w).Routes(),
	}

	// Start server in goroutine
	serverErr := make(chan error, 1)
	go func() {
		url := "http://" + ln.Addr().String()
		if _, port, err := net.SplitHostPort(ln.Addr().String()); err == nil {
			url = "http://localhost:" + port
		}
		slog.Info("Capture widget available", "addr", ln.Addr().String(), "url", url)
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Wait for context cancellation (Ctrl+C) or server error
	select {
	case <-ctx.Done():
		slog.Info("Shutting down server...")
		w.Unmount()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown failed", "err", err)
			return err
		}
		slog.Info("Server stopped")
		return nil
	case err := <-serverErr:
		return err
	}
}
