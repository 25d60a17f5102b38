// Package overlay draws the selected chest box over camera frames.
package overlay

import (
	"log/slog"

	"github.com/teslashibe/go-breathe/internal/log"
	"github.com/teslashibe/go-breathe/pkg/camera"
	"github.com/teslashibe/go-breathe/pkg/detection"
)

// Box is a screen-space rectangle with its origin at the top-left corner.
type Box struct {
	X, Y float64
	W, H float64
}

// ToScreen converts a normalized center box into a screen-space box of a
// screenW x screenH surface.
func ToScreen(c detection.Candidate, screenW, screenH int) Box {
	sw, sh := float64(screenW), float64(screenH)
	return Box{
		X: (c.X - c.W/2) * sw,
		Y: (c.Y - c.H/2) * sh,
		W: c.W * sw,
		H: c.H * sh,
	}
}

// Drawer renders a box over a frame.
type Drawer interface {
	DrawBox(frame *camera.Frame, box Box, label string) error
}

// LogDrawer logs each box instead of drawing it.
type LogDrawer struct {
	logger *slog.Logger
}

// NewLogDrawer creates a LogDrawer. A nil logger uses the global logger.
func NewLogDrawer(logger *slog.Logger) *LogDrawer {
	logger = log.Or(logger)
	return &LogDrawer{logger: logger}
}

// DrawBox implements Drawer.
func (d *LogDrawer) DrawBox(_ *camera.Frame, box Box, label string) error {
	d.logger.Debug("drawing box",
		"label", label,
		"x", box.X,
		"y", box.Y,
		"w", box.W,
		"h", box.H)
	return nil
}

// Multi fans a box out to several drawers. The first error wins but every
// drawer runs.
type Multi []Drawer

// DrawBox implements Drawer.
func (m Multi) DrawBox(frame *camera.Frame, box Box, label string) error {
	var first error
	for _, d := range m {
		if err := d.DrawBox(frame, box, label); err != nil && first == nil {
			first = err
		}
	}
	return first
}

var (
	_ Drawer = (*LogDrawer)(nil)
	_ Drawer = Multi(nil)
)
