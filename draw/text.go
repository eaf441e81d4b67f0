package draw

import (
	"fmt"
	"image"
	"image/color"
	"os"

	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Face is an alias for [golang.org/x/image/font.Face].
type Face = font.Face

// DefaultFace is a 7x13 bitmap font, which fits a 19 dot high display.
var DefaultFace Face = basicfont.Face7x13

// LoadFace loads a TrueType font file at size points (one point per dot).
func LoadFace(name string, size float64) (Face, error) {
	b, err := os.ReadFile(name)
	if err != nil {
		return nil, err
	}
	f, err := truetype.Parse(b)
	if err != nil {
		return nil, fmt.Errorf("draw: parse %s: %w", name, err)
	}
	return truetype.NewFace(f, &truetype.Options{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	}), nil
}

// Text draws s with its top-left corner at (x, y). Only dots covered by glyphs
// are written, the background is left alone.
func Text(dst Image, face Face, x, y int, s string, c color.Color) {
	if face == nil {
		face = DefaultFace
	}
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.P(x, y+face.Metrics().Ascent.Ceil()),
	}
	d.DrawString(s)
}

// TextBounds returns the area Text would cover.
func TextBounds(face Face, x, y int, s string) image.Rectangle {
	if face == nil {
		face = DefaultFace
	}
	m := face.Metrics()
	w := font.MeasureString(face, s).Ceil()
	return image.Rect(x, y, x+w, y+m.Ascent.Ceil()+m.Descent.Ceil())
}
