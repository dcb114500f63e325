package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/snapscribe/snapscribe/internal/widget"
)

func newCaptureCmd() *cobra.Command {
	var outputDir string
	var camFlags cameraFlags

	cmd := &cobra.Command{
		Use:   "capture",
		Short: "Capture a single still from the camera",
		Long: `Opens the camera, captures one frame as JPEG and saves it as
captured-image.jpeg in the output directory. The camera is released before
the command returns.`,
		Example: `  # Capture from the rear camera into the current directory
  snapscribe capture

  # Capture into ./shots using OpenCV (build with -tags gocv)
  snapscribe capture --source gocv --output ./shots`,
		RunE: func(cmd *cobra.Command, args []string) error {
			source, constraints, err := camFlags.build()
			if err != nil {
				return err
			}

			w := widget.New(source, widget.WithConstraints(constraints))
			if err := w.Mount(cmd.Context()); err != nil {
				return err
			}
			defer w.Unmount()

			if _, err := w.Capture(cmd.Context()); err != nil {
				return err
			}

			if err := os.MkdirAll(outputDir, 0755); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
			path := filepath.Join(outputDir, widget.SaveFilename)
			f, err := os.Create(path)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", path, err)
			}
			defer f.Close()

			dl, err := w.Save(f)
			if err != nil {
				return err
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("failed to write %s: %w", path, err)
			}

			slog.Info("Capture written", "path", path, "bytes", dl.Size)
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputDir, "output", "o", ".", "Directory to save captured-image.jpeg in")
	camFlags.register(cmd)

	return cmd
}
