package detection

import (
	"image"

	"github.com/disintegration/imaging"
	"github.com/teslashibe/go-breathe/pkg/camera"
)

// Preprocess resizes frame to the model input and returns the normalized
// tensor in the configured layout.
func Preprocess(frame *camera.Frame, cfg Config) []float32 {
	dst := make([]float32, cfg.InputLen())
	PreprocessInto(dst, frame, cfg)
	return dst
}

// PreprocessInto is Preprocess writing into dst, which must hold at least
// cfg.InputLen() values. Channels are scaled to [0,1].
func PreprocessInto(dst []float32, frame *camera.Frame, cfg Config) {
	w, h := cfg.InputWidth, cfg.InputHeight

	var img *image.NRGBA
	if frame.Width == w && frame.Height == h {
		img = imaging.Clone(frame)
	} else {
		img = imaging.Resize(frame, w, h, imaging.Linear)
	}

	plane := w * h
	for y := 0; y < h; y++ {
		src := y
		if cfg.FlipVertical {
			src = h - 1 - y
		}
		row := img.Pix[src*img.Stride:]

		for x := 0; x < w; x++ {
			r := float32(row[x*4]) / 255
			g := float32(row[x*4+1]) / 255
			b := float32(row[x*4+2]) / 255

			i := y*w + x
			if cfg.Layout == LayoutNCHW {
				dst[i] = r
				dst[plane+i] = g
				dst[2*plane+i] = b
				continue
			}
			dst[i*3] = r
			dst[i*3+1] = g
			dst[i*3+2] = b
		}
	}
}
