// Package config provides configuration helpers for go-breathe commands.
//
// Values come from a .env file when one exists, then from the process
// environment. Command-line flags override both.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Defaults for the deployed scene.
const (
	DefaultDevice              = "0"
	DefaultWidth               = 800
	DefaultHeight              = 608
	DefaultFramerate           = 30
	DefaultModelPath           = "models/chest_detector.onnx"
	DefaultBackend             = "onnxruntime"
	DefaultAcceptanceThreshold = 0.05
	DefaultBreathingThreshold  = 0.01
	DefaultStatusThreshold     = 0.005
	DefaultReadyTimeout        = 10 * time.Second
	DefaultLogLevel            = "info"
)

// Config holds everything cmd/breathe needs to start a session.
type Config struct {
	// Capture
	Device    string
	Width     int
	Height    int
	Framerate int
	ReplayDir string

	// Detector
	ModelPath  string
	Backend    string
	ORTLibPath string

	// Estimation
	AcceptanceThreshold float64
	BreathingThreshold  float64
	StatusThreshold     float64

	// Runtime
	ReadyTimeout time.Duration
	WebPort      string
	RecordPath   string
	LogLevel     string
}

// Load reads .env (if present) and the environment into a Config.
// The returned bool reports whether a .env file was loaded.
func Load() (Config, bool) {
	loaded := godotenv.Load() == nil

	return Config{
		Device:    GetEnv("CAMERA_DEVICE", DefaultDevice),
		Width:     GetEnvInt("CAMERA_WIDTH", DefaultWidth),
		Height:    GetEnvInt("CAMERA_HEIGHT", DefaultHeight),
		Framerate: GetEnvInt("CAMERA_FPS", DefaultFramerate),
		ReplayDir: GetEnv("REPLAY_DIR", ""),

		ModelPath:  GetEnv("MODEL_PATH", DefaultModelPath),
		Backend:    GetEnv("DETECTOR_BACKEND", DefaultBackend),
		ORTLibPath: GetEnv("ONNXRUNTIME_LIB", ""),

		AcceptanceThreshold: GetEnvFloat("ACCEPTANCE_THRESHOLD", DefaultAcceptanceThreshold),
		BreathingThreshold:  GetEnvFloat("BREATHING_THRESHOLD", DefaultBreathingThreshold),
		StatusThreshold:     GetEnvFloat("STATUS_THRESHOLD", DefaultStatusThreshold),

		ReadyTimeout: GetEnvDuration("READY_TIMEOUT", DefaultReadyTimeout),
		WebPort:      GetEnv("WEB_PORT", ""),
		RecordPath:   GetEnv("RECORD_PATH", ""),
		LogLevel:     GetEnv("LOG_LEVEL", DefaultLogLevel),
	}, loaded
}

// GetEnv returns the value of key, or def when unset or empty.
func GetEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// GetEnvInt returns key parsed as an int, or def when unset or malformed.
func GetEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

// GetEnvFloat returns key parsed as a float64, or def when unset or malformed.
func GetEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

// GetEnvDuration returns key parsed with time.ParseDuration, or def.
func GetEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
