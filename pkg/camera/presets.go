package camera

import "sort"

// Preset names for common configurations
const (
	PresetDefault    = "default"
	PresetWebcamTest = "webcam-test"
	Preset720p       = "720p"
)

// Presets returns all available preset configurations.
func Presets() map[string]Config {
	return map[string]Config{
		PresetDefault:    DefaultConfig(),
		PresetWebcamTest: WebcamTestConfig(),
		Preset720p:       HD720Config(),
	}
}

// PresetNames returns the sorted list of available preset names.
func PresetNames() []string {
	names := make([]string, 0, 3)
	for name := range Presets() {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetPreset returns a preset config by name, or nil if not found.
func GetPreset(name string) *Config {
	if cfg, ok := Presets()[name]; ok {
		return &cfg
	}
	return nil
}

// WebcamTestConfig returns the plain preview configuration: 640x480 at 15 FPS.
func WebcamTestConfig() Config {
	cfg := DefaultConfig()
	cfg.Width = 640
	cfg.Height = 480
	cfg.Framerate = 15
	return cfg
}

// HD720Config returns 720p HD configuration.
func HD720Config() Config {
	cfg := DefaultConfig()
	cfg.Width = 1280
	cfg.Height = 720
	return cfg
}
