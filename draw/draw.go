// Package draw has drawing primitives for one bit displays.
package draw

import (
	"image"
	"image/draw"
)

// Image is an alias for [image/draw.Image]. Both pixel.MonoImage and the
// flipdot drivers implement it.
type Image = draw.Image

// Op is an alias for [image/draw.Op].
type Op = draw.Op

// Compositing operators.
const (
	Over = draw.Over
	Src  = draw.Src
)

// Draw aligns r.Min in dst with sp in src and composes src onto dst.
func Draw(dst Image, r image.Rectangle, src image.Image, sp image.Point, op Op) {
	draw.Draw(dst, r, src, sp, op)
}
