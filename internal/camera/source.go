package camera

import "fmt"

// Source kinds accepted by NewSource.
const (
	SourceFFmpeg    = "ffmpeg"
	SourceGoCV      = "gocv"
	SourceSynthetic = "synthetic"
)

// NewSource builds the named backend over a device map.
func NewSource(kind string, devices []DeviceInfo) (Source, error) {
	switch kind {
	case SourceFFmpeg, "":
		return NewFFmpegSource(devices), nil
	case SourceGoCV:
		return NewGoCVSource(devices), nil
	case SourceSynthetic:
		s := NewSyntheticSource()
		if len(devices) > 0 {
			s.DevicesList = devices
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unsupported camera source: %s", kind)
	}
}
