// Package camera provides frame capture for the breathing pipeline.
//
// A Source hands out the latest RGB frame on demand. Webcam wraps an
// OpenCV capture device; ReplaySource and MockSource serve offline runs
// and tests.
package camera

import (
	"fmt"
	"time"
)

// Config holds capture device settings.
type Config struct {
	// Device is a device index ("0"), a device path ("/dev/video0") or a
	// device name as reported by Devices().
	Device string `json:"device"`

	// === Resolution ===
	Width     int `json:"width"`     // Requested frame width in pixels
	Height    int `json:"height"`    // Requested frame height in pixels
	Framerate int `json:"framerate"` // Requested FPS

	// === Readiness ===
	// ReadyTimeout bounds the startup wait for the first usable frame.
	ReadyTimeout time.Duration `json:"ready_timeout"`

	// ReadyPoll is the interval between readiness probes.
	ReadyPoll time.Duration `json:"ready_poll"`
}

// Capture limits
const (
	// MinReadyDimension is the smallest width and height a device frame
	// must reach before it is handed downstream. Smaller frames show up while
	// some drivers are still negotiating a resolution.
	MinReadyDimension = 17

	MaxWidth     = 7680
	MaxHeight    = 4320
	MaxFramerate = 240
)

// DefaultConfig returns the configuration of the deployed scene: the first
// device at 800x608.
func DefaultConfig() Config {
	return Config{
		Device:       "0",
		Width:        800,
		Height:       608,
		Framerate:    30,
		ReadyTimeout: 10 * time.Second,
		ReadyPoll:    50 * time.Millisecond,
	}
}

// Validate checks if the config values are within valid ranges.
func (c *Config) Validate() error {
	if c.Device == "" {
		return fmt.Errorf("camera: device must be set")
	}
	if c.Width < MinReadyDimension || c.Width > MaxWidth {
		return fmt.Errorf("camera: width must be between %d and %d, got %d", MinReadyDimension, MaxWidth, c.Width)
	}
	if c.Height < MinReadyDimension || c.Height > MaxHeight {
		return fmt.Errorf("camera: height must be between %d and %d, got %d", MinReadyDimension, MaxHeight, c.Height)
	}
	if c.Framerate < 1 || c.Framerate > MaxFramerate {
		return fmt.Errorf("camera: framerate must be between 1 and %d, got %d", MaxFramerate, c.Framerate)
	}
	if c.ReadyTimeout <= 0 {
		return fmt.Errorf("camera: ready_timeout must be positive, got %v", c.ReadyTimeout)
	}
	if c.ReadyPoll <= 0 || c.ReadyPoll > c.ReadyTimeout {
		return fmt.Errorf("camera: ready_poll must be positive and at most ready_timeout, got %v", c.ReadyPoll)
	}
	return nil
}

// FrameInterval returns the tick period matching the requested frame rate.
func (c *Config) FrameInterval() time.Duration {
	if c.Framerate <= 0 {
		return time.Second / 30
	}
	return time.Second / time.Duration(c.Framerate)
}
