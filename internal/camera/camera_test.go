package camera

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/jpeg"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyntheticStreamLifecycle(t *testing.T) {
	ctx := context.Background()
	src := NewSyntheticSource()

	stream, err := src.Acquire(ctx, DefaultConstraints())
	require.NoError(t, err)
	require.Len(t, stream.VideoTracks(), 1)
	assert.True(t, stream.Active())
	assert.NotEmpty(t, stream.ID())

	track := stream.VideoTracks()[0]
	img, err := track.ReadFrame(ctx)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 1920, 1080), img.Bounds())

	stream.Stop()
	stream.Stop()
	assert.False(t, stream.Active())
	for _, tr := range stream.Tracks() {
		assert.Equal(t, TrackEnded, tr.State())
	}

	_, err = track.ReadFrame(ctx)
	assert.ErrorIs(t, err, ErrTrackEnded)
}

func TestSyntheticPermissionDenied(t *testing.T) {
	src := NewSyntheticSource()
	src.DenyPermission = true

	_, err := src.Acquire(context.Background(), DefaultConstraints())
	assert.ErrorIs(t, err, ErrPermissionDenied)
	assert.Empty(t, src.Acquired())
}

func TestSyntheticNoRearCamera(t *testing.T) {
	src := NewSyntheticSource()
	src.DevicesList = []DeviceInfo{{DeviceID: "front", Facing: FacingUser}}

	_, err := src.Acquire(context.Background(), DefaultConstraints())
	assert.ErrorIs(t, err, ErrOverconstrained)
}

func TestSplitMJPEG(t *testing.T) {
	frame := func(fill byte) []byte {
		img := image.NewGray(image.Rect(0, 0, 4, 4))
		for i := range img.Pix {
			img.Pix[i] = fill
		}
		var buf bytes.Buffer
		require.NoError(t, jpeg.Encode(&buf, img, nil))
		return buf.Bytes()
	}
	a, b := frame(10), frame(200)

	var stream bytes.Buffer
	stream.Write([]byte{0x00, 0x13})
	stream.Write(a)
	stream.Write([]byte{0xFF, 0x00})
	stream.Write(b)

	var got [][]byte
	err := SplitMJPEG(&stream, func(f []byte) { got = append(got, f) })
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, a, got[0])
	assert.Equal(t, b, got[1])

	_, err = jpeg.Decode(bytes.NewReader(got[1]))
	assert.NoError(t, err)
}

func TestFFmpegArgs(t *testing.T) {
	s := Settings{DeviceID: "2", Width: 1920, Height: 1080, FrameRate: 30}

	linux := ffmpegArgs("linux", s)
	assert.Contains(t, linux, "/dev/video2")
	assert.Contains(t, linux, "1920x1080")
	assert.Contains(t, linux, "v4l2")
	assert.Equal(t, "-", linux[len(linux)-1])

	assert.Contains(t, ffmpegArgs("darwin", s), "avfoundation")
	assert.Contains(t, ffmpegArgs("windows", s), "video=2")
}

func TestFFmpegMissingBinary(t *testing.T) {
	src := NewFFmpegSource([]DeviceInfo{{DeviceID: "0", Facing: FacingEnvironment}})
	src.Binary = "definitely-not-ffmpeg-binary"

	_, err := src.Acquire(context.Background(), DefaultConstraints())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFFmpegBinaryNotExecutable(t *testing.T) {
	bin := filepath.Join(t.TempDir(), "ffmpeg")
	require.NoError(t, os.WriteFile(bin, []byte("#!/bin/sh\n"), 0o644))

	src := NewFFmpegSource([]DeviceInfo{{DeviceID: "0", Facing: FacingEnvironment}})
	src.Binary = bin

	_, err := src.Acquire(context.Background(), DefaultConstraints())
	assert.ErrorIs(t, err, ErrPermissionDenied)
}

func TestFFmpegExitBeforeFirstFrame(t *testing.T) {
	bin, err := exec.LookPath("false")
	if err != nil {
		t.Skip("false not available")
	}

	src := NewFFmpegSource([]DeviceInfo{{DeviceID: "0", Facing: FacingEnvironment}})
	src.Binary = bin

	_, err = src.Acquire(context.Background(), DefaultConstraints())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrPermissionDenied)
	assert.Contains(t, err.Error(), "failed to start camera")
}

func TestStartError(t *testing.T) {
	exited := errors.New("ffmpeg exited before the first frame")
	tests := []struct {
		name       string
		err        error
		stderr     string
		permission bool
		contains   string
	}{
		{
			name:       "os access failure",
			err:        &fs.PathError{Op: "fork/exec", Path: "/usr/bin/ffmpeg", Err: fs.ErrPermission},
			permission: true,
		},
		{
			name:       "device access denied",
			err:        exited,
			stderr:     "ffmpeg version 6.1\n[video4linux2,v4l2 @ 0x1] Cannot open video device /dev/video0: Permission denied\n",
			permission: true,
			contains:   "Permission denied",
		},
		{
			name:     "device busy",
			err:      exited,
			stderr:   "[video4linux2,v4l2 @ 0x1] ioctl(VIDIOC_STREAMON): Device or resource busy\n",
			contains: "failed to start camera",
		},
		{
			name:     "bad arguments",
			err:      exited,
			stderr:   "Unrecognized option 'video_size'.\n",
			contains: "Unrecognized option",
		},
		{
			name:     "no output",
			err:      exited,
			contains: "failed to start camera: ffmpeg exited before the first frame",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := startError(tt.err, tt.stderr)
			assert.Equal(t, tt.permission, errors.Is(err, ErrPermissionDenied), err.Error())
			assert.ErrorIs(t, err, tt.err)
			if tt.contains != "" {
				assert.Contains(t, err.Error(), tt.contains)
			}
		})
	}
}

func TestTailBufferKeepsLastBytes(t *testing.T) {
	b := &tailBuffer{max: 8}
	_, _ = b.Write([]byte("0123456789"))
	_, _ = b.Write([]byte("ab"))
	assert.Equal(t, "456789ab", b.String())
}

func TestNewSource(t *testing.T) {
	for _, kind := range []string{SourceFFmpeg, SourceGoCV, SourceSynthetic, ""} {
		src, err := NewSource(kind, nil)
		require.NoError(t, err, kind)
		assert.NotNil(t, src)
	}
	_, err := NewSource("v4l2-direct", nil)
	assert.Error(t, err)
}
