//go:build !gocv
// +build !gocv

package camera

import (
	"context"
	"fmt"
)

// GoCVSource is unavailable without the gocv build tag.
type GoCVSource struct {
	DevicesList []DeviceInfo
}

// NewGoCVSource returns a source that always fails to acquire.
func NewGoCVSource(devices []DeviceInfo) *GoCVSource {
	return &GoCVSource{DevicesList: devices}
}

func (s *GoCVSource) Devices(ctx context.Context) ([]DeviceInfo, error) {
	return s.DevicesList, nil
}

// Acquire returns ErrUnsupported when built without the gocv tag.
func (s *GoCVSource) Acquire(ctx context.Context, c Constraints) (*Stream, error) {
	_ = ctx
	_ = c
	return nil, fmt.Errorf("%w: gocv build tag is not enabled", ErrUnsupported)
}
