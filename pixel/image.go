package pixel

import (
	"image"
	"image/color"
)

// Buffer holds the pixel values.
type Buffer struct {
	// Rect is the image bounding box.
	Rect image.Rectangle

	// Pix are the image pixels.
	Pix []byte

	// Stride is the Pix stride (in bytes) between vertically adjacent pixels.
	Stride int
}

func (p *Buffer) Bounds() image.Rectangle {
	return p.Rect
}

func makeBuffer(w, h, stride, size int) Buffer {
	return Buffer{
		Rect:   image.Rect(0, 0, w, h),
		Pix:    make([]byte, size),
		Stride: stride,
	}
}

// MonoImage is a 1-bit per pixel monochrome image, rows packed LSB first.
type MonoImage struct {
	Buffer
}

func NewMonoImage(w, h int) *MonoImage {
	stride := ((w + 7) & ^7) / 8 // round up to whole bytes
	return &MonoImage{
		Buffer: makeBuffer(w, h, stride, stride*h),
	}
}

func (p *MonoImage) ColorModel() color.Model {
	return MonoModel
}

func (p *MonoImage) PixOffset(x, y int) int {
	return y*p.Stride + x/8
}

// Dot returns the state of the dot at (x, y); dots outside the image are off.
func (p *MonoImage) Dot(x, y int) bool {
	if !(image.Point{X: x, Y: y}).In(p.Rect) {
		return false
	}
	return p.Pix[p.PixOffset(x, y)]&(1<<uint(x%8)) != 0
}

// SetDot sets the state of the dot at (x, y).
func (p *MonoImage) SetDot(x, y int, on bool) {
	if !(image.Point{X: x, Y: y}).In(p.Rect) {
		return
	}
	if on {
		p.Pix[p.PixOffset(x, y)] |= 1 << uint(x%8)
	} else {
		p.Pix[p.PixOffset(x, y)] &^= 1 << uint(x%8)
	}
}

func (p *MonoImage) At(x, y int) color.Color {
	if !(image.Point{X: x, Y: y}).In(p.Rect) {
		return color.Transparent
	}
	return Mono{On: p.Dot(x, y)}
}

func (p *MonoImage) Set(x, y int, c color.Color) {
	p.SetDot(x, y, IsOn(c))
}

// Count returns the number of lit dots.
func (p *MonoImage) Count() (n int) {
	for y := p.Rect.Min.Y; y < p.Rect.Max.Y; y++ {
		for x := p.Rect.Min.X; x < p.Rect.Max.X; x++ {
			if p.Dot(x, y) {
				n++
			}
		}
	}
	return
}
