package overlay

import (
	"bytes"
	"fmt"
	"image/jpeg"

	"github.com/fogleman/gg"

	"github.com/teslashibe/go-breathe/pkg/camera"
)

// DefaultJPEGQuality for rendered frames.
const DefaultJPEGQuality = 75

// Renderer draws the box and label onto a copy of the frame and hands the
// JPEG to a callback.
type Renderer struct {
	Quality   int
	LineWidth float64
	OnFrame   func(jpeg []byte)
}

// NewRenderer creates a renderer delivering frames to onFrame.
func NewRenderer(onFrame func(jpeg []byte)) *Renderer {
	return &Renderer{
		Quality:   DefaultJPEGQuality,
		LineWidth: 3,
		OnFrame:   onFrame,
	}
}

// DrawBox implements Drawer.
func (r *Renderer) DrawBox(frame *camera.Frame, box Box, label string) error {
	data, err := r.Render(frame, box, label)
	if err != nil {
		return err
	}
	if r.OnFrame != nil {
		r.OnFrame(data)
	}
	return nil
}

// Render returns the annotated frame as JPEG.
func (r *Renderer) Render(frame *camera.Frame, box Box, label string) ([]byte, error) {
	if frame == nil || frame.Width == 0 || frame.Height == 0 {
		return nil, fmt.Errorf("overlay: empty frame")
	}

	dc := gg.NewContextForImage(frame.RGBA())

	dc.SetRGB(0, 1, 0)
	dc.SetLineWidth(r.LineWidth)
	dc.DrawRectangle(box.X, box.Y, box.W, box.H)
	dc.Stroke()

	if label != "" {
		ty := box.Y - 4
		if ty < 12 {
			ty = box.Y + 14
		}
		dc.DrawString(label, box.X+2, ty)
	}

	q := r.Quality
	if q <= 0 || q > 100 {
		q = DefaultJPEGQuality
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dc.Image(), &jpeg.Options{Quality: q}); err != nil {
		return nil, fmt.Errorf("overlay: encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

var _ Drawer = (*Renderer)(nil)
