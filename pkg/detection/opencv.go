package detection

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"math"
	"os"
	"sync"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-breathe/internal/log"
	"github.com/teslashibe/go-breathe/pkg/camera"
)

// OpenCVDetector runs the model with the OpenCV DNN module on the CPU.
type OpenCVDetector struct {
	cfg    Config
	info   ModelInfo
	logger *slog.Logger

	mu     sync.Mutex
	net    gocv.Net
	input  []float32
	raw    []byte
	closed bool
}

// NewOpenCV loads cfg.ModelPath with gocv.
func NewOpenCV(cfg Config, logger *slog.Logger) (*OpenCVDetector, error) {
	logger = log.Or(logger)
	path := cfg.ModelPath

	if _, err := os.Stat(path); err != nil {
		return nil, initErr(BackendOpenCV, path, ErrModelNotFound, err)
	}

	net := gocv.ReadNetFromONNX(path)
	if net.Empty() {
		return nil, initErr(BackendOpenCV, path, ErrModelLoad, nil)
	}

	net.SetPreferableBackend(gocv.NetBackendDefault)
	net.SetPreferableTarget(gocv.NetTargetCPU)

	inName := cfg.InputName
	if inName == "" {
		inName = "input"
	}
	outName := cfg.OutputName
	if outName == "" {
		if layers := net.GetUnconnectedOutLayers(); len(layers) > 0 {
			outName = net.GetLayer(layers[0]).GetName()
		} else {
			outName = "output"
		}
	}

	info := ModelInfo{
		Backend: BackendOpenCV,
		Path:    path,
		Inputs:  []TensorInfo{{Name: inName, Shape: cfg.InputShape()}},
		Outputs: []TensorInfo{{Name: outName, Shape: gridShape(cfg.Grid)}},
	}
	logger.Info("model loaded",
		"path", path,
		"inputs", info.InputNames(),
		"outputs", info.OutputNames())

	return &OpenCVDetector{
		cfg:    cfg,
		info:   info,
		logger: logger,
		net:    net,
		input:  make([]float32, cfg.InputLen()),
		raw:    make([]byte, cfg.InputLen()*4),
	}, nil
}

// Detect implements Detector.
func (d *OpenCVDetector) Detect(frame *camera.Frame) ([]Candidate, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil, ErrClosed
	}
	if !frame.Ready() {
		return nil, camera.ErrNotReady
	}

	PreprocessInto(d.input, frame, d.cfg)
	for i, v := range d.input {
		binary.LittleEndian.PutUint32(d.raw[i*4:], math.Float32bits(v))
	}

	shape := d.cfg.InputShape()
	sizes := make([]int, len(shape))
	for i, s := range shape {
		sizes[i] = int(s)
	}

	blob, err := gocv.NewMatWithSizesFromBytes(sizes, gocv.MatTypeCV32F, d.raw)
	if err != nil {
		return nil, fmt.Errorf("detection: input blob: %w", err)
	}
	defer blob.Close()

	d.net.SetInput(blob, "")

	output := d.net.Forward(d.info.Outputs[0].Name)
	defer output.Close()

	data, err := output.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("detection: read output: %w", err)
	}
	return DecodeGrid(data, d.cfg.Grid)
}

// Info implements Detector.
func (d *OpenCVDetector) Info() ModelInfo {
	return d.info
}

// Close implements Detector.
func (d *OpenCVDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}
	d.closed = true
	return d.net.Close()
}

var _ Detector = (*OpenCVDetector)(nil)
