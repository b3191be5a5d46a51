package export

import (
	"image"
	"image/draw"
)

// Compose places front and back side by side on a transparent canvas as
// wide as both and as tall as the taller one.
func Compose(front, back image.Image) *image.RGBA {
	fb, bb := front.Bounds(), back.Bounds()

	w := fb.Dx() + bb.Dx()
	h := max(fb.Dy(), bb.Dy())
	canvas := image.NewRGBA(image.Rect(0, 0, w, h))

	draw.Draw(canvas, image.Rect(0, 0, fb.Dx(), fb.Dy()), front, fb.Min, draw.Src)
	draw.Draw(canvas, image.Rect(fb.Dx(), 0, w, bb.Dy()), back, bb.Min, draw.Src)

	return canvas
}
