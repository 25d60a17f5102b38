// Package pipeline runs the per-frame breathing loop: capture, detect,
// select, gate, size, estimate, then hand the result to overlays and sinks.
package pipeline

import (
	"fmt"
	"time"

	"github.com/teslashibe/go-breathe/pkg/breathing"
)

// DefaultAcceptanceThreshold is the confidence a detection must exceed.
const DefaultAcceptanceThreshold = 0.05

// Config holds pipeline configuration.
type Config struct {
	// AcceptanceThreshold gates the best detection. Only confidences
	// strictly greater pass.
	AcceptanceThreshold float64 `json:"acceptance_threshold"`

	ReadyTimeout time.Duration `json:"ready_timeout"`
	ReadyPoll    time.Duration `json:"ready_poll"`

	// Interval between ticks in Run.
	Interval time.Duration `json:"interval"`

	// MissLogThreshold is the consecutive-miss count that logs a lost chest.
	MissLogThreshold int `json:"miss_log_threshold"`

	HistorySize int `json:"history_size"`

	Breathing breathing.Config `json:"breathing"`
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		AcceptanceThreshold: DefaultAcceptanceThreshold,
		ReadyTimeout:        10 * time.Second,
		ReadyPoll:           50 * time.Millisecond,
		Interval:            time.Second / 30,
		MissLogThreshold:    30,
		HistorySize:         breathing.DefaultHistorySize,
		Breathing:           breathing.DefaultConfig(),
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.AcceptanceThreshold < 0 || c.AcceptanceThreshold >= 1 {
		return fmt.Errorf("pipeline: acceptance_threshold must be in [0, 1), got %v", c.AcceptanceThreshold)
	}
	if c.ReadyTimeout <= 0 {
		return fmt.Errorf("pipeline: ready_timeout must be positive")
	}
	if c.Interval <= 0 {
		return fmt.Errorf("pipeline: interval must be positive")
	}
	return c.Breathing.Validate()
}
