package vision

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Colors used on annotated frames.
var (
	ColorKnown   = color.RGBA{R: 46, G: 125, B: 50, A: 255}
	ColorUnknown = color.RGBA{R: 244, G: 67, B: 54, A: 255}
	ColorInfo    = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	ColorScore   = color.RGBA{R: 255, G: 255, B: 0, A: 255}
	ColorWarning = color.RGBA{R: 255, G: 0, B: 0, A: 255}
)

// Canvas is a mutable copy of a frame used to draw boxes and labels.
type Canvas struct {
	img *image.RGBA
}

// NewCanvas copies the frame into a drawable RGBA image.
func NewCanvas(frame image.Image) *Canvas {
	b := frame.Bounds()
	img := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(img, img.Bounds(), frame, b.Min, draw.Src)
	return &Canvas{img: img}
}

// Image returns the annotated frame.
func (c *Canvas) Image() *image.RGBA {
	return c.img
}

// Box draws a rectangle outline of the given thickness.
func (c *Canvas) Box(r image.Rectangle, col color.Color, thickness int) {
	r = r.Intersect(c.img.Bounds())
	if r.Empty() {
		return
	}
	src := image.NewUniform(col)
	for i := 0; i < thickness; i++ {
		inner := r.Inset(i)
		if inner.Empty() {
			return
		}
		draw.Draw(c.img, image.Rect(inner.Min.X, inner.Min.Y, inner.Max.X, inner.Min.Y+1), src, image.Point{}, draw.Over)
		draw.Draw(c.img, image.Rect(inner.Min.X, inner.Max.Y-1, inner.Max.X, inner.Max.Y), src, image.Point{}, draw.Over)
		draw.Draw(c.img, image.Rect(inner.Min.X, inner.Min.Y, inner.Min.X+1, inner.Max.Y), src, image.Point{}, draw.Over)
		draw.Draw(c.img, image.Rect(inner.Max.X-1, inner.Min.Y, inner.Max.X, inner.Max.Y), src, image.Point{}, draw.Over)
	}
}

// Text draws a label with its baseline at (x, y). Labels that would start above
// the frame are pushed down so they stay visible.
func (c *Canvas) Text(x, y int, text string, col color.Color) {
	face := basicfont.Face7x13
	if y < face.Ascent {
		y = face.Ascent
	}
	d := &font.Drawer{
		Dst:  c.img,
		Src:  image.NewUniform(col),
		Face: face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}
