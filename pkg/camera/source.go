package camera

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/sethvargo/go-retry"
)

// Sentinel errors for capture conditions.
var (
	// ErrNotReady is returned by Capture until the device delivers a frame
	// of at least MinReadyDimension in both directions.
	ErrNotReady = errors.New("camera: not ready")

	// ErrDeviceNotReady is returned by WaitReady when the device never
	// became ready within the timeout.
	ErrDeviceNotReady = errors.New("camera: device did not become ready")

	// ErrNoDevice is returned when no capture device exists.
	ErrNoDevice = errors.New("camera: no capture device found")

	// ErrClosed is returned by Capture after Close.
	ErrClosed = errors.New("camera: source closed")

	// ErrExhausted is returned by finite sources once every frame has
	// been delivered.
	ErrExhausted = errors.New("camera: source exhausted")
)

// Source captures frames from a camera or other input.
type Source interface {
	// Capture returns the latest frame. It returns ErrNotReady while the
	// device is still warming up.
	Capture() (*Frame, error)

	// Name returns a human-readable source name.
	Name() string

	// Close releases the device. After Close, Capture returns ErrClosed.
	io.Closer
}

// WaitReady polls src until it yields a ready frame, which is returned.
// It gives up after timeout with an error wrapping ErrDeviceNotReady.
// Errors other than ErrNotReady abort the wait immediately.
func WaitReady(ctx context.Context, src Source, timeout, poll time.Duration) (*Frame, error) {
	if poll <= 0 {
		poll = 50 * time.Millisecond
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var frame *Frame
	var last error
	b := retry.WithMaxDuration(timeout, retry.NewConstant(poll))

	err := retry.Do(ctx, b, func(ctx context.Context) error {
		f, err := src.Capture()
		switch {
		case err == nil && f.Ready():
			frame = f
			return nil
		case err == nil, errors.Is(err, ErrNotReady):
			last = ErrNotReady
			return retry.RetryableError(ErrNotReady)
		default:
			return err
		}
	})
	if err == nil {
		return frame, nil
	}

	if errors.Is(err, ErrNotReady) || errors.Is(err, context.DeadlineExceeded) {
		if last == nil {
			last = err
		}
		return nil, fmt.Errorf("%w after %v (%s): %v", ErrDeviceNotReady, timeout, src.Name(), last)
	}
	return nil, err
}
