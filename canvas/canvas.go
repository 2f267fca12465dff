/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package canvas holds the local raster both peers draw into. It is owned
// by a single goroutine and performs no locking.
package canvas

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/fogleman/gg"

	"github.com/Seednode/sketchduel/stroke"
)

const (
	DefaultWidth  = 800
	DefaultHeight = 600

	// MaxSide bounds each side of the raster, whether resized locally or
	// adopted from a peer's snapshot.
	MaxSide = 4096
)

var Background = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}

type Canvas struct {
	img      *image.RGBA
	revision uint64
}

func New(width, height int) *Canvas {
	c := &Canvas{img: image.NewRGBA(image.Rect(0, 0, clampSide(width), clampSide(height)))}
	c.fill()
	return c
}

func (c *Canvas) Bounds() image.Rectangle {
	return c.img.Bounds()
}

// Image exposes the raster for rendering. Callers must not retain or modify
// it past the current event.
func (c *Canvas) Image() *image.RGBA {
	return c.img
}

func (c *Canvas) At(x, y int) color.RGBA {
	return c.img.RGBAAt(x, y)
}

// Revision increases on every mutation.
func (c *Canvas) Revision() uint64 {
	return c.revision
}

// ApplyStroke draws s on top of the current content and returns the region
// that changed. Strokes are not deduplicated.
func (c *Canvas) ApplyStroke(s stroke.Stroke) image.Rectangle {
	width := float64(max(s.Pen.Width, 1))
	col := s.Pen.Color(Background)

	dc := gg.NewContextForRGBA(c.img)
	dc.SetRGBA255(int(col.R), int(col.G), int(col.B), int(col.A))

	x1, y1 := float64(s.From.X), float64(s.From.Y)
	x2, y2 := float64(s.To.X), float64(s.To.Y)

	if s.From == s.To {
		dc.DrawCircle(x1, y1, width/2)
		dc.Fill()
	} else {
		dc.SetLineWidth(width)
		dc.SetLineCapRound()
		dc.SetLineJoinRound()
		dc.DrawLine(x1, y1, x2, y2)
		dc.Stroke()
	}

	c.revision++

	adjust := s.Pen.Width * 2
	dirty := image.Rectangle{
		Min: image.Pt(s.From.X, s.From.Y),
		Max: image.Pt(s.To.X, s.To.Y),
	}.Canon().Inset(-adjust)

	return dirty.Intersect(c.img.Bounds())
}

// Clear resets every pixel to the background.
func (c *Canvas) Clear() {
	c.fill()
	c.revision++
}

// ReplaceWith discards the current raster and adopts src, including its
// size.
func (c *Canvas) ReplaceWith(src image.Image) {
	b := src.Bounds()
	img := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(img, img.Bounds(), src, b.Min, draw.Src)
	c.img = img
	c.revision++
}

// Export returns a copy of the raster suitable for a snapshot.
func (c *Canvas) Export() *image.RGBA {
	out := image.NewRGBA(c.img.Bounds())
	copy(out.Pix, c.img.Pix)
	return out
}

// Resize grows the raster to at least width x height, capped at MaxSide,
// keeping existing content in the top-left corner. It never shrinks.
func (c *Canvas) Resize(width, height int) bool {
	width, height = clampSide(width), clampSide(height)

	b := c.img.Bounds()
	if width <= b.Dx() && height <= b.Dy() {
		return false
	}

	img := image.NewRGBA(image.Rect(0, 0, max(width, b.Dx()), max(height, b.Dy())))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: Background}, image.Point{}, draw.Src)
	draw.Draw(img, b, c.img, b.Min, draw.Src)
	c.img = img
	c.revision++

	return true
}

func clampSide(n int) int {
	return min(max(n, 1), MaxSide)
}

func (c *Canvas) fill() {
	draw.Draw(c.img, c.img.Bounds(), &image.Uniform{C: Background}, image.Point{}, draw.Src)
}
