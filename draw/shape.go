package draw

import (
	"image"
	"image/color"
)

// Line draws a line from a to b, both ends included.
func Line(dst Image, a, b image.Point, c color.Color) {
	dx, sx := abs(b.X-a.X), sign(b.X-a.X)
	dy, sy := -abs(b.Y-a.Y), sign(b.Y-a.Y)
	e := dx + dy
	for p := a; ; {
		dst.Set(p.X, p.Y, c)
		if p == b {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			p.X += sx
		}
		if e2 <= dx {
			e += dx
			p.Y += sy
		}
	}
}

// Box draws a filled rectangle.
func Box(dst Image, rect image.Rectangle, c color.Color) {
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			dst.Set(x, y, c)
		}
	}
}

// Rectangle draws the outline of rect.
func Rectangle(dst Image, rect image.Rectangle, c color.Color) {
	RoundedRectangle(dst, rect, 0, c)
}

// RoundedRectangle draws the outline of rect with corners of the given radius.
func RoundedRectangle(dst Image, rect image.Rectangle, radius int, c color.Color) {
	s := rounded{rect: rect.Canon(), r: radius}.clamp()
	for y := s.rect.Min.Y; y < s.rect.Max.Y; y++ {
		for x := s.rect.Min.X; x < s.rect.Max.X; x++ {
			if s.in(x, y) && !(s.in(x-1, y) && s.in(x+1, y) && s.in(x, y-1) && s.in(x, y+1)) {
				dst.Set(x, y, c)
			}
		}
	}
}

// RoundedBox draws a filled rectangle with corners of the given radius.
func RoundedBox(dst Image, rect image.Rectangle, radius int, c color.Color) {
	s := rounded{rect: rect.Canon(), r: radius}.clamp()
	for y := s.rect.Min.Y; y < s.rect.Max.Y; y++ {
		for x := s.rect.Min.X; x < s.rect.Max.X; x++ {
			if s.in(x, y) {
				dst.Set(x, y, c)
			}
		}
	}
}

// rounded is a rectangle with its corners cut along circles of radius r.
type rounded struct {
	rect image.Rectangle
	r    int
}

func (s rounded) clamp() rounded {
	if m := min(s.rect.Dx(), s.rect.Dy()) / 2; s.r > m {
		s.r = m
	}
	if s.r < 0 {
		s.r = 0
	}
	return s
}

func (s rounded) in(x, y int) bool {
	if !(image.Point{X: x, Y: y}).In(s.rect) {
		return false
	}

	// nearest corner circle center, or the point itself outside the corners
	cx, cy := x, y
	if x < s.rect.Min.X+s.r {
		cx = s.rect.Min.X + s.r
	} else if x >= s.rect.Max.X-s.r {
		cx = s.rect.Max.X - s.r - 1
	}
	if y < s.rect.Min.Y+s.r {
		cy = s.rect.Min.Y + s.r
	} else if y >= s.rect.Max.Y-s.r {
		cy = s.rect.Max.Y - s.r - 1
	}
	dx, dy := x-cx, y-cy
	return dx*dx+dy*dy <= s.r*s.r
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func sign(v int) int {
	switch {
	case v < 0:
		return -1
	case v > 0:
		return 1
	}
	return 0
}
