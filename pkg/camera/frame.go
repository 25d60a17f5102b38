package camera

import (
	"image"
	"image/color"
	"time"
)

// Frame is one captured RGB image. Pix holds Width*Height samples in
// row-major order, top row first, three bytes (R, G, B) per sample.
type Frame struct {
	Width    int
	Height   int
	Pix      []uint8
	Seq      uint64    // Monotonic capture counter for the source
	Captured time.Time // When the frame was read from the device
}

// NewFrame allocates a black frame of the given size.
func NewFrame(width, height int) *Frame {
	return &Frame{
		Width:  width,
		Height: height,
		Pix:    make([]uint8, width*height*3),
	}
}

// Ready reports whether the frame is large enough to process.
func (f *Frame) Ready() bool {
	return f != nil && f.Width >= MinReadyDimension && f.Height >= MinReadyDimension &&
		len(f.Pix) >= f.Width*f.Height*3
}

// RGBAt returns the sample at (x, y).
func (f *Frame) RGBAt(x, y int) (r, g, b uint8) {
	i := (y*f.Width + x) * 3
	return f.Pix[i], f.Pix[i+1], f.Pix[i+2]
}

// ColorModel implements image.Image.
func (f *Frame) ColorModel() color.Model { return color.RGBAModel }

// Bounds implements image.Image.
func (f *Frame) Bounds() image.Rectangle { return image.Rect(0, 0, f.Width, f.Height) }

// At implements image.Image.
func (f *Frame) At(x, y int) color.Color {
	if x < 0 || y < 0 || x >= f.Width || y >= f.Height {
		return color.RGBA{}
	}
	r, g, b := f.RGBAt(x, y)
	return color.RGBA{R: r, G: g, B: b, A: 255}
}

// RGBA copies the frame into a new *image.RGBA.
func (f *Frame) RGBA() *image.RGBA {
	img := image.NewRGBA(f.Bounds())
	for i, j := 0, 0; i+2 < len(f.Pix) && j+3 < len(img.Pix); i, j = i+3, j+4 {
		img.Pix[j] = f.Pix[i]
		img.Pix[j+1] = f.Pix[i+1]
		img.Pix[j+2] = f.Pix[i+2]
		img.Pix[j+3] = 255
	}
	return img
}

// FromImage converts any image into a Frame, dropping alpha.
func FromImage(img image.Image) *Frame {
	b := img.Bounds()
	f := NewFrame(b.Dx(), b.Dy())

	if rgba, ok := img.(*image.NRGBA); ok {
		for y := 0; y < f.Height; y++ {
			row := rgba.Pix[rgba.PixOffset(b.Min.X, b.Min.Y+y):]
			for x := 0; x < f.Width; x++ {
				i := (y*f.Width + x) * 3
				f.Pix[i] = row[x*4]
				f.Pix[i+1] = row[x*4+1]
				f.Pix[i+2] = row[x*4+2]
			}
		}
		return f
	}

	for y := 0; y < f.Height; y++ {
		for x := 0; x < f.Width; x++ {
			r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			i := (y*f.Width + x) * 3
			f.Pix[i] = uint8(r >> 8)
			f.Pix[i+1] = uint8(g >> 8)
			f.Pix[i+2] = uint8(bl >> 8)
		}
	}
	return f
}
