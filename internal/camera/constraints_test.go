package camera

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConstraints(t *testing.T) {
	c := DefaultConstraints()

	assert.Equal(t, FacingEnvironment, c.Facing.Mode)
	assert.True(t, c.Facing.Exact)
	assert.Equal(t, 1920.0, c.Width.Ideal)
	assert.Equal(t, 1080.0, c.Height.Ideal)
	assert.Equal(t, 30.0, c.FrameRate.Ideal)
	assert.Equal(t, 60.0, c.FrameRate.Max)
}

func TestSelectDevice(t *testing.T) {
	front := DeviceInfo{DeviceID: "0", Facing: FacingUser}
	rear := DeviceInfo{DeviceID: "1", Facing: FacingEnvironment}

	tests := []struct {
		name    string
		devices []DeviceInfo
		facing  FacingConstraint
		want    string
		wantErr error
	}{
		{
			name:    "no devices",
			facing:  FacingConstraint{Mode: FacingEnvironment, Exact: true},
			wantErr: ErrNotFound,
		},
		{
			name:    "exact match",
			devices: []DeviceInfo{front, rear},
			facing:  FacingConstraint{Mode: FacingEnvironment, Exact: true},
			want:    "1",
		},
		{
			name:    "exact without match is overconstrained",
			devices: []DeviceInfo{front},
			facing:  FacingConstraint{Mode: FacingEnvironment, Exact: true},
			wantErr: ErrOverconstrained,
		},
		{
			name:    "ideal falls back to first device",
			devices: []DeviceInfo{front},
			facing:  FacingConstraint{Mode: FacingEnvironment},
			want:    "0",
		},
		{
			name:    "any facing",
			devices: []DeviceInfo{rear, front},
			want:    "1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SelectDevice(tt.devices, Constraints{Facing: tt.facing})
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.DeviceID)
		})
	}
}

func TestResolveSettings(t *testing.T) {
	d := DeviceInfo{DeviceID: "0", Facing: FacingEnvironment}

	s := ResolveSettings(d, DefaultConstraints())
	assert.Equal(t, 1920, s.Width)
	assert.Equal(t, 1080, s.Height)
	assert.Equal(t, 30.0, s.FrameRate)
	assert.Equal(t, FacingEnvironment, s.FacingMode)

	s = ResolveSettings(d, Constraints{FrameRate: Range{Ideal: 120, Max: 60}})
	assert.Equal(t, 60.0, s.FrameRate)
	assert.Equal(t, 640, s.Width)
	assert.Equal(t, 480, s.Height)
}

func TestParseDeviceMap(t *testing.T) {
	tests := []struct {
		name    string
		spec    string
		ids     []string
		facings []FacingMode
	}{
		{
			name:    "listed order is kept",
			spec:    "user=1, environment=0",
			ids:     []string{"1", "0"},
			facings: []FacingMode{FacingUser, FacingEnvironment},
		},
		{
			name:    "multi digit indexes",
			spec:    "environment=10,user=2",
			ids:     []string{"10", "2"},
			facings: []FacingMode{FacingEnvironment, FacingUser},
		},
		{
			name: "empty",
			spec: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			devices, err := ParseDeviceMap(tt.spec)
			require.NoError(t, err)
			require.Len(t, devices, len(tt.ids))
			for i, d := range devices {
				assert.Equal(t, tt.ids[i], d.DeviceID)
				assert.Equal(t, tt.facings[i], d.Facing)
			}
		})
	}

	for _, bad := range []string{"environment", "environment=x", "side=0"} {
		_, err := ParseDeviceMap(bad)
		assert.Error(t, err, bad)
	}
}

func TestFallbackUsesFirstListedDevice(t *testing.T) {
	devices, err := ParseDeviceMap("environment=10,environment=2")
	require.NoError(t, err)

	ideal := DefaultConstraints()
	ideal.Facing = FacingConstraint{Mode: FacingUser}
	d, err := SelectDevice(devices, ideal)
	require.NoError(t, err)
	assert.Equal(t, "10", d.DeviceID)

	anyFacing := DefaultConstraints()
	anyFacing.Facing = FacingConstraint{Mode: FacingAny}
	d, err = SelectDevice(devices, anyFacing)
	require.NoError(t, err)
	assert.Equal(t, "10", d.DeviceID)
}
