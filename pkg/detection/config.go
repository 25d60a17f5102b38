package detection

import (
	"fmt"
	"runtime"
)

// Backend names accepted by New.
const (
	BackendORT    = "onnxruntime"
	BackendOpenCV = "opencv"
	BackendMock   = "mock"
)

// TensorLayout is the memory order of the model input.
type TensorLayout string

const (
	LayoutNHWC TensorLayout = "nhwc"
	LayoutNCHW TensorLayout = "nchw"
)

// GridLayout describes the detector output: Slots predictions of
// 4 box values, 1 confidence and NumClasses class scores each.
type GridLayout struct {
	Slots      int `json:"slots"`
	NumClasses int `json:"num_classes"`
	// ChannelMajor is set for [1, stride, slots] outputs. The default is
	// slot-major: [.., slots, stride].
	ChannelMajor bool `json:"channel_major"`
}

// Stride returns the number of values per slot.
func (g GridLayout) Stride() int {
	return 5 + g.NumClasses
}

// Len returns the number of values the grid occupies.
func (g GridLayout) Len() int {
	return g.Slots * g.Stride()
}

// Config holds detector configuration.
type Config struct {
	Backend        string `json:"backend"`
	ModelPath      string `json:"model_path"`
	RuntimeLibPath string `json:"runtime_lib_path,omitempty"` // onnxruntime shared library

	InputWidth   int          `json:"input_width"`
	InputHeight  int          `json:"input_height"`
	Layout       TensorLayout `json:"layout"`
	FlipVertical bool         `json:"flip_vertical"` // Feed rows bottom-up

	// InputName and OutputName override the names read from the model.
	InputName  string `json:"input_name,omitempty"`
	OutputName string `json:"output_name,omitempty"`

	Grid   GridLayout `json:"grid"`
	Labels []string   `json:"labels"`

	Threads int `json:"threads"`
}

// DefaultConfig returns the settings of the deployed chest model.
func DefaultConfig() Config {
	return Config{
		Backend:      BackendORT,
		ModelPath:    "models/chest_detector.onnx",
		InputWidth:   224,
		InputHeight:  224,
		Layout:       LayoutNHWC,
		FlipVertical: true,
		Grid: GridLayout{
			Slots:      1029,
			NumClasses: 2,
		},
		Labels:  []string{LabelChest, LabelHead},
		Threads: runtime.NumCPU(),
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendORT, BackendOpenCV, BackendMock:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownBackend, c.Backend)
	}
	if c.Backend != BackendMock && c.ModelPath == "" {
		return fmt.Errorf("detection: model_path must be set")
	}
	if c.InputWidth <= 0 || c.InputHeight <= 0 {
		return fmt.Errorf("detection: input size must be positive, got %dx%d", c.InputWidth, c.InputHeight)
	}
	if c.Layout != LayoutNHWC && c.Layout != LayoutNCHW {
		return fmt.Errorf("detection: layout must be %q or %q, got %q", LayoutNHWC, LayoutNCHW, c.Layout)
	}
	if c.Grid.Slots <= 0 {
		return fmt.Errorf("detection: grid slots must be positive, got %d", c.Grid.Slots)
	}
	if c.Grid.NumClasses < 0 {
		return fmt.Errorf("detection: grid num_classes must not be negative")
	}
	if len(c.Labels) != c.Grid.NumClasses {
		return fmt.Errorf("detection: %d labels for %d classes", len(c.Labels), c.Grid.NumClasses)
	}
	return nil
}

// InputShape returns the input tensor shape for the configured layout.
func (c *Config) InputShape() []int64 {
	w, h := int64(c.InputWidth), int64(c.InputHeight)
	if c.Layout == LayoutNCHW {
		return []int64{1, 3, h, w}
	}
	return []int64{1, h, w, 3}
}

// InputLen returns the number of values in one input tensor.
func (c *Config) InputLen() int {
	return c.InputWidth * c.InputHeight * 3
}
