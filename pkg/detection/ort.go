package detection

import (
	"fmt"
	"log/slog"
	"os"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/teslashibe/go-breathe/internal/log"
	"github.com/teslashibe/go-breathe/pkg/camera"
)

var runtimeMu sync.Mutex

// InitRuntime loads the onnxruntime shared library and creates the
// process-wide environment. It is a no-op once the environment exists.
func InitRuntime(libPath string) error {
	runtimeMu.Lock()
	defer runtimeMu.Unlock()

	if ort.IsInitialized() {
		return nil
	}
	if libPath != "" {
		ort.SetSharedLibraryPath(libPath)
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return fmt.Errorf("detection: initialize onnxruntime: %w", err)
	}
	return nil
}

// ShutdownRuntime destroys the onnxruntime environment. Call it once at
// exit, after every ORTDetector is closed.
func ShutdownRuntime() error {
	runtimeMu.Lock()
	defer runtimeMu.Unlock()

	if !ort.IsInitialized() {
		return nil
	}
	return ort.DestroyEnvironment()
}

// Inspect reads input and output names and shapes from an ONNX file.
// The runtime must be initialized.
func Inspect(path string) (ModelInfo, error) {
	if _, err := os.Stat(path); err != nil {
		return ModelInfo{}, initErr(BackendORT, path, ErrModelNotFound, err)
	}

	ins, outs, err := ort.GetInputOutputInfo(path)
	if err != nil {
		return ModelInfo{}, initErr(BackendORT, path, ErrModelLoad, err)
	}

	info := ModelInfo{Backend: BackendORT, Path: path}
	for _, in := range ins {
		info.Inputs = append(info.Inputs, TensorInfo{Name: in.Name, Shape: []int64(in.Dimensions)})
	}
	for _, out := range outs {
		info.Outputs = append(info.Outputs, TensorInfo{Name: out.Name, Shape: []int64(out.Dimensions)})
	}
	return info, nil
}

// ORTDetector runs the model with onnxruntime.
type ORTDetector struct {
	cfg    Config
	info   ModelInfo
	logger *slog.Logger

	mu      sync.Mutex
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]
	closed  bool
}

// NewORT loads cfg.ModelPath and prepares a session with preallocated
// input and output tensors.
func NewORT(cfg Config, logger *slog.Logger) (*ORTDetector, error) {
	logger = log.Or(logger)
	path := cfg.ModelPath

	if _, err := os.Stat(path); err != nil {
		return nil, initErr(BackendORT, path, ErrModelNotFound, err)
	}
	if err := InitRuntime(cfg.RuntimeLibPath); err != nil {
		return nil, initErr(BackendORT, path, ErrSessionCreate, err)
	}

	info, err := Inspect(path)
	if err != nil {
		return nil, err
	}
	if len(info.Inputs) == 0 || len(info.Outputs) == 0 {
		return nil, initErr(BackendORT, path, ErrModelLoad, fmt.Errorf("model declares no inputs or outputs"))
	}

	logger.Info("model loaded",
		"path", path,
		"inputs", info.InputNames(),
		"outputs", info.OutputNames())

	inName, inShape := cfg.InputName, cfg.InputShape()
	if inName == "" {
		inName = info.Inputs[0].Name
	}
	if err := checkInput(info.Inputs[0], cfg); err != nil {
		return nil, initErr(BackendORT, path, ErrModelLoad, err)
	}

	outName := cfg.OutputName
	if outName == "" {
		outName = info.Outputs[0].Name
	}
	outShape, ok := concrete(info.Outputs[0].Shape)
	if !ok {
		outShape = gridShape(cfg.Grid)
	}
	if elements(outShape) < cfg.Grid.Len() {
		return nil, initErr(BackendORT, path, ErrModelLoad,
			fmt.Errorf("output %s holds %d values, grid needs %d", info.Outputs[0], elements(outShape), cfg.Grid.Len()))
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, initErr(BackendORT, path, ErrSessionCreate, err)
	}
	defer options.Destroy()

	if cfg.Threads > 0 {
		options.SetIntraOpNumThreads(cfg.Threads)
	}

	input, err := ort.NewEmptyTensor[float32](ort.NewShape(inShape...))
	if err != nil {
		return nil, initErr(BackendORT, path, ErrSessionCreate, fmt.Errorf("input tensor: %w", err))
	}

	output, err := ort.NewEmptyTensor[float32](ort.NewShape(outShape...))
	if err != nil {
		input.Destroy()
		return nil, initErr(BackendORT, path, ErrSessionCreate, fmt.Errorf("output tensor: %w", err))
	}

	session, err := ort.NewAdvancedSession(
		path,
		[]string{inName},
		[]string{outName},
		[]ort.ArbitraryTensor{input},
		[]ort.ArbitraryTensor{output},
		options,
	)
	if err != nil {
		input.Destroy()
		output.Destroy()
		return nil, initErr(BackendORT, path, ErrSessionCreate, err)
	}

	return &ORTDetector{
		cfg:     cfg,
		info:    info,
		logger:  logger,
		session: session,
		input:   input,
		output:  output,
	}, nil
}

// Detect implements Detector.
func (d *ORTDetector) Detect(frame *camera.Frame) ([]Candidate, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil, ErrClosed
	}
	if !frame.Ready() {
		return nil, camera.ErrNotReady
	}

	PreprocessInto(d.input.GetData(), frame, d.cfg)

	if err := d.session.Run(); err != nil {
		return nil, fmt.Errorf("detection: run session: %w", err)
	}
	return DecodeGrid(d.output.GetData(), d.cfg.Grid)
}

// Info implements Detector.
func (d *ORTDetector) Info() ModelInfo {
	return d.info
}

// Close implements Detector. The runtime environment stays up; see
// ShutdownRuntime.
func (d *ORTDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}
	d.closed = true

	err := d.session.Destroy()
	d.input.Destroy()
	d.output.Destroy()
	return err
}

func gridShape(g GridLayout) []int64 {
	if g.ChannelMajor {
		return []int64{1, int64(g.Stride()), int64(g.Slots)}
	}
	return []int64{1, int64(g.Slots), int64(g.Stride())}
}

var _ Detector = (*ORTDetector)(nil)

// checkInput compares a declared model input against the configured
// tensor. A fully known 4-D input must match axis by axis, which catches a
// model expecting NCHW under the NHWC default. Other inputs are only
// checked for size.
func checkInput(in TensorInfo, cfg Config) error {
	declared, ok := concrete(in.Shape)
	if !ok {
		return nil
	}

	want := cfg.InputShape()
	if len(declared) == len(want) {
		for i := 1; i < len(want); i++ {
			if declared[i] != want[i] {
				return fmt.Errorf("input %s does not match configured %s shape %v", in, cfg.Layout, want)
			}
		}
		return nil
	}

	if elements(declared) != cfg.InputLen() {
		return fmt.Errorf("input %s holds %d values, configured %dx%dx3", in, elements(declared), cfg.InputWidth, cfg.InputHeight)
	}
	return nil
}
