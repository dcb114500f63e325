package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/snapscribe/snapscribe/internal/camera"
	"github.com/snapscribe/snapscribe/internal/config"
)

// cameraFlags are shared by every command that opens the camera.
type cameraFlags struct {
	source  string
	devices string
	facing  string
	ideal   bool
}

func (f *cameraFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.source, "source", "", "Camera backend (ffmpeg, gocv, synthetic); defaults to CAMERA_SOURCE")
	cmd.Flags().StringVar(&f.devices, "devices", "", "Facing-to-device map, e.g. environment=0,user=1; defaults to CAMERA_DEVICES")
	cmd.Flags().StringVar(&f.facing, "facing", string(camera.FacingEnvironment), "Camera facing mode (environment, user, any)")
	cmd.Flags().BoolVar(&f.ideal, "facing-ideal", false, "Treat the facing mode as a preference instead of a requirement")
}

func (f *cameraFlags) build() (camera.Source, camera.Constraints, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, camera.Constraints{}, fmt.Errorf("failed to load config: %w", err)
	}
	if f.source != "" {
		cfg.CameraSource = f.source
	}
	if f.devices != "" {
		cfg.CameraDevices = f.devices
	}

	devices, err := cfg.Devices()
	if err != nil {
		return nil, camera.Constraints{}, err
	}
	source, err := camera.NewSource(cfg.CameraSource, devices)
	if err != nil {
		return nil, camera.Constraints{}, err
	}

	c := camera.DefaultConstraints()
	switch f.facing {
	case "any", "":
		c.Facing = camera.FacingConstraint{Mode: camera.FacingAny}
	case string(camera.FacingEnvironment), string(camera.FacingUser):
		c.Facing = camera.FacingConstraint{Mode: camera.FacingMode(f.facing), Exact: !f.ideal}
	default:
		return nil, camera.Constraints{}, fmt.Errorf("unknown facing mode: %s", f.facing)
	}

	return source, c, nil
}
