// Package pixel implements a 1-bit image type suitable for bistable dot displays.
//
// The types are compatible with Go's native [color.Color] and [image.Image] /
// [draw.Image] interfaces, so standard drawing and font code can render into them.
package pixel
