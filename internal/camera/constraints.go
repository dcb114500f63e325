package camera

import (
	"fmt"
	"strconv"
	"strings"
)

// FacingMode names which way a camera points.
type FacingMode string

const (
	FacingEnvironment FacingMode = "environment"
	FacingUser        FacingMode = "user"
	FacingAny         FacingMode = ""
)

// FacingConstraint selects a facing mode. With Exact set, devices that do not
// face that way are rejected instead of used as a fallback.
type FacingConstraint struct {
	Mode  FacingMode
	Exact bool
}

// Range is a numeric constraint. Zero values mean unset.
type Range struct {
	Ideal float64
	Max   float64
}

// Constraints describe the stream a caller wants.
type Constraints struct {
	Facing    FacingConstraint
	Width     Range
	Height    Range
	FrameRate Range
}

// DefaultConstraints asks for the rear camera at 1080p, 30fps ideal, 60fps cap.
func DefaultConstraints() Constraints {
	return Constraints{
		Facing:    FacingConstraint{Mode: FacingEnvironment, Exact: true},
		Width:     Range{Ideal: 1920},
		Height:    Range{Ideal: 1080},
		FrameRate: Range{Ideal: 30, Max: 60},
	}
}

// SelectDevice picks the device satisfying the facing constraint.
func SelectDevice(devices []DeviceInfo, c Constraints) (DeviceInfo, error) {
	if len(devices) == 0 {
		return DeviceInfo{}, ErrNotFound
	}
	if c.Facing.Mode == FacingAny {
		return devices[0], nil
	}
	for _, d := range devices {
		if d.Facing == c.Facing.Mode {
			return d, nil
		}
	}
	if c.Facing.Exact {
		return DeviceInfo{}, fmt.Errorf("%w: facing mode %q", ErrOverconstrained, c.Facing.Mode)
	}
	return devices[0], nil
}

// ResolveSettings applies ideal values with sane fallbacks and clamps the
// frame rate to its max.
func ResolveSettings(d DeviceInfo, c Constraints) Settings {
	s := Settings{
		DeviceID:   d.DeviceID,
		FacingMode: d.Facing,
		Width:      640,
		Height:     480,
		FrameRate:  30,
	}
	if c.Width.Ideal > 0 {
		s.Width = int(c.Width.Ideal)
	}
	if c.Width.Max > 0 && float64(s.Width) > c.Width.Max {
		s.Width = int(c.Width.Max)
	}
	if c.Height.Ideal > 0 {
		s.Height = int(c.Height.Ideal)
	}
	if c.Height.Max > 0 && float64(s.Height) > c.Height.Max {
		s.Height = int(c.Height.Max)
	}
	if c.FrameRate.Ideal > 0 {
		s.FrameRate = c.FrameRate.Ideal
	}
	if c.FrameRate.Max > 0 && s.FrameRate > c.FrameRate.Max {
		s.FrameRate = c.FrameRate.Max
	}
	return s
}

// ParseDeviceMap parses "environment=0,user=1" into device descriptions keyed
// by their device index. Devices keep the order they are listed in; the
// first one is the fallback when no facing mode matches.
func ParseDeviceMap(spec string) ([]DeviceInfo, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, nil
	}

	var devices []DeviceInfo
	for _, entry := range strings.Split(spec, ",") {
		facing, id, ok := strings.Cut(strings.TrimSpace(entry), "=")
		if !ok {
			return nil, fmt.Errorf("invalid camera device entry %q, expected facing=index", entry)
		}
		facing = strings.TrimSpace(facing)
		id = strings.TrimSpace(id)
		if _, err := strconv.Atoi(id); err != nil {
			return nil, fmt.Errorf("invalid camera device index %q: %w", id, err)
		}
		switch FacingMode(facing) {
		case FacingEnvironment, FacingUser:
		default:
			return nil, fmt.Errorf("unknown facing mode %q", facing)
		}
		devices = append(devices, DeviceInfo{
			DeviceID: id,
			Label:    fmt.Sprintf("camera %s (%s)", id, facing),
			Facing:   FacingMode(facing),
		})
	}

	return devices, nil
}
