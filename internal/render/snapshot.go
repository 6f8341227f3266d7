// Package render draws the overlay geometry (displays, target, overlay) as a
// PNG so replays can be inspected without a desktop.
package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"

	"github.com/mj1618/overlaywin/internal/model"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// DefaultWidth is the image width used when Scene.Width is unset.
const DefaultWidth = 960

// Scene is the geometry to draw, in desktop coordinates.
type Scene struct {
	Displays []model.Display
	Target   model.Rect
	Overlay  model.Rect
	// Visible draws the overlay solid; a hidden overlay is drawn dimmed.
	Visible bool
	Width   int
}

var (
	background   = color.RGBA{R: 24, G: 24, B: 28, A: 255}
	displayColor = color.RGBA{R: 120, G: 120, B: 130, A: 255}
	targetColor  = color.RGBA{R: 255, G: 64, B: 64, A: 255}
	overlayColor = color.RGBA{R: 64, G: 220, B: 96, A: 255}
	hiddenColor  = color.RGBA{R: 64, G: 110, B: 72, A: 255}
	textColor    = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	outlineColor = color.RGBA{R: 0, G: 0, B: 0, A: 200}
)

// Draw renders the scene scaled to fit its width.
func Draw(s Scene) *image.RGBA {
	width := s.Width
	if width <= 0 {
		width = DefaultWidth
	}
	desk := desktop(s)
	scale := float64(width) / float64(desk.Width)
	height := int(float64(desk.Height)*scale + 0.5)
	if height < 1 {
		height = 1
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), image.NewUniform(background), image.Point{}, draw.Src)

	toImage := func(r model.Rect) (x1, y1, x2, y2 int) {
		x1 = int(float64(r.X-desk.X) * scale)
		y1 = int(float64(r.Y-desk.Y) * scale)
		x2 = int(float64(r.X+r.Width-desk.X) * scale)
		y2 = int(float64(r.Y+r.Height-desk.Y) * scale)
		return
	}

	for i, d := range s.Displays {
		x1, y1, x2, y2 := toImage(d.Bounds)
		drawRectangle(img, x1, y1, x2, y2, displayColor)
		label := fmt.Sprintf("display %d %dx%d @%gx", i, d.Bounds.Width, d.Bounds.Height, d.ScaleFactor)
		drawTextWithOutline(img, label, x1+4, y1+14, textColor, outlineColor)
	}
	if !s.Target.IsZero() {
		x1, y1, x2, y2 := toImage(s.Target)
		drawRectangle(img, x1, y1, x2, y2, targetColor)
		drawTextWithOutline(img, "target "+s.Target.String(), x1+4, y2-4, textColor, outlineColor)
	}
	if !s.Overlay.IsZero() {
		c := overlayColor
		label := "overlay " + s.Overlay.String()
		if !s.Visible {
			c = hiddenColor
			label += " hidden"
		}
		x1, y1, x2, y2 := toImage(s.Overlay)
		drawRectangle(img, x1, y1, x2, y2, c)
		drawRectangle(img, x1+1, y1+1, x2-1, y2-1, c)
		drawTextWithOutline(img, label, x1+4, y1+14, textColor, outlineColor)
	}
	return img
}

// WritePNG renders the scene and encodes it to w.
func WritePNG(w io.Writer, s Scene) error {
	return png.Encode(w, Draw(s))
}

// desktop returns the rectangle enclosing every display and window in the scene.
func desktop(s Scene) model.Rect {
	var rects []model.Rect
	for _, d := range s.Displays {
		rects = append(rects, d.Bounds)
	}
	for _, r := range []model.Rect{s.Target, s.Overlay} {
		if !r.IsZero() {
			rects = append(rects, r)
		}
	}
	if len(rects) == 0 {
		return model.Rect{Width: 1920, Height: 1080}
	}
	minX, minY := rects[0].X, rects[0].Y
	maxX, maxY := rects[0].X+rects[0].Width, rects[0].Y+rects[0].Height
	for _, r := range rects[1:] {
		minX = min(minX, r.X)
		minY = min(minY, r.Y)
		maxX = max(maxX, r.X+r.Width)
		maxY = max(maxY, r.Y+r.Height)
	}
	if maxX <= minX {
		maxX = minX + 1
	}
	if maxY <= minY {
		maxY = minY + 1
	}
	return model.Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}

// drawRectangle draws a rectangle outline clamped to the image.
func drawRectangle(img *image.RGBA, x1, y1, x2, y2 int, c color.Color) {
	b := img.Bounds()
	x1, y1 = max(x1, b.Min.X), max(y1, b.Min.Y)
	x2, y2 = min(x2, b.Max.X), min(y2, b.Max.Y)
	if x2 <= x1 || y2 <= y1 {
		return
	}
	for x := x1; x < x2; x++ {
		img.Set(x, y1, c)
		img.Set(x, y2-1, c)
	}
	for y := y1; y < y2; y++ {
		img.Set(x1, y, c)
		img.Set(x2-1, y, c)
	}
}

// drawTextWithOutline draws text with its baseline at (x, y).
func drawTextWithOutline(img *image.RGBA, text string, x, y int, textColor, outlineColor color.Color) {
	drawer := func(c color.Color, dx, dy int) *font.Drawer {
		return &font.Drawer{
			Dst:  img,
			Src:  image.NewUniform(c),
			Face: basicfont.Face7x13,
			Dot:  fixed.P(x+dx, y+dy),
		}
	}
	for dx := -1; dx <= 1; dx++ {
		for dy := -1; dy <= 1; dy++ {
			if dx == 0 && dy == 0 {
				continue
			}
			drawer(outlineColor, dx, dy).DrawString(text)
		}
	}
	drawer(textColor, 0, 0).DrawString(text)
}
