package camera

import (
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-breathe/internal/log"
)

// Webcam captures frames from an OpenCV video device.
type Webcam struct {
	cfg    Config
	logger *slog.Logger
	name   string

	mu     sync.Mutex
	cap    *gocv.VideoCapture
	bgr    gocv.Mat // Reused every tick
	rgb    gocv.Mat // Reused every tick
	seq    uint64
	closed bool
}

// OpenWebcam opens the configured device and requests the configured
// resolution and frame rate. Drivers may deliver something else; the actual
// size is whatever Capture reports.
func OpenWebcam(cfg Config, logger *slog.Logger) (*Webcam, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("camera: invalid config: %w", err)
	}
	logger = log.Or(logger)

	target, name, err := resolveDevice(cfg.Device)
	if err != nil {
		return nil, err
	}

	vc, err := gocv.OpenVideoCapture(target)
	if err != nil {
		return nil, fmt.Errorf("camera: open %s: %w", name, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("camera: open %s: device not opened", name)
	}

	vc.Set(gocv.VideoCaptureFrameWidth, float64(cfg.Width))
	vc.Set(gocv.VideoCaptureFrameHeight, float64(cfg.Height))
	vc.Set(gocv.VideoCaptureFPS, float64(cfg.Framerate))

	logger.Info("webcam opened",
		"device", name,
		"requested_width", cfg.Width,
		"requested_height", cfg.Height,
		"requested_fps", cfg.Framerate,
	)

	return &Webcam{
		cfg:    cfg,
		logger: logger,
		name:   name,
		cap:    vc,
		bgr:    gocv.NewMat(),
		rgb:    gocv.NewMat(),
	}, nil
}

// Capture reads the next frame from the device.
func (w *Webcam) Capture() (*Frame, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil, ErrClosed
	}

	if ok := w.cap.Read(&w.bgr); !ok || w.bgr.Empty() {
		return nil, ErrNotReady
	}
	if w.bgr.Cols() < MinReadyDimension || w.bgr.Rows() < MinReadyDimension {
		return nil, ErrNotReady
	}

	gocv.CvtColor(w.bgr, &w.rgb, gocv.ColorBGRToRGB)

	w.seq++
	return &Frame{
		Width:    w.rgb.Cols(),
		Height:   w.rgb.Rows(),
		Pix:      w.rgb.ToBytes(),
		Seq:      w.seq,
		Captured: time.Now(),
	}, nil
}

// Name returns the device name.
func (w *Webcam) Name() string {
	return w.name
}

// Close stops capture and releases the device and its buffers.
// It is safe to call Close multiple times.
func (w *Webcam) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	w.bgr.Close()
	w.rgb.Close()
	err := w.cap.Close()

	w.logger.Info("webcam closed", "device", w.name, "frames", w.seq)
	return err
}

// resolveDevice maps a configured device string onto what gocv accepts:
// an integer index, or a path / pipeline string.
func resolveDevice(device string) (interface{}, string, error) {
	if idx, err := strconv.Atoi(device); err == nil {
		return idx, fmt.Sprintf("video%d", idx), nil
	}

	if d, err := FindDevice(device); err == nil {
		if d.Path != "" {
			return d.Path, d.Name, nil
		}
		return d.Index, d.Name, nil
	}

	return device, device, nil
}

var _ Source = (*Webcam)(nil)
