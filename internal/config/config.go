// Package config reads runtime settings from the environment.
package config

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/snapscribe/snapscribe/internal/camera"
)

type Config struct {
	GeminiAPIKey string
	GeminiModel  string

	// CameraSource is one of camera.SourceFFmpeg, SourceGoCV or SourceSynthetic.
	CameraSource string
	// CameraDevices maps facing modes to device indexes, e.g. "environment=0,user=1".
	CameraDevices string

	Port string
}

// Load reads .env if present, then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		GeminiAPIKey:  os.Getenv("GEMINI_API_KEY"),
		GeminiModel:   os.Getenv("GEMINI_MODEL"),
		CameraSource:  getenv("CAMERA_SOURCE", camera.SourceFFmpeg),
		CameraDevices: getenv("CAMERA_DEVICES", "environment=0"),
		Port:          getenv("SNAPSCRIBE_PORT", "8888"),
	}

	return cfg, nil
}

// Devices parses CameraDevices.
func (c *Config) Devices() ([]camera.DeviceInfo, error) {
	return camera.ParseDeviceMap(c.CameraDevices)
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
