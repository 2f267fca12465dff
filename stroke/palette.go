/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package stroke

import "image/color"

// Palette is the fixed set of pen colours offered to the drawer.
var Palette = []Swatch{
	{Name: "black", R: 0, G: 0, B: 0},
	{Name: "red", R: 255, G: 0, B: 0},
	{Name: "green", R: 0, G: 255, B: 0},
	{Name: "blue", R: 0, G: 0, B: 255},
	{Name: "yellow", R: 255, G: 255, B: 0},
}

type Swatch struct {
	Name    string
	R, G, B uint8
}

// Apply returns p recoloured to the swatch with the eraser switched off.
func (s Swatch) Apply(p Pen) Pen {
	p.R, p.G, p.B = s.R, s.G, s.B
	p.Eraser = false
	return p
}

// Color is the colour a stroke with this pen leaves on a canvas whose
// background is bg.
func (p Pen) Color(bg color.RGBA) color.RGBA {
	if p.Eraser {
		return bg
	}
	return color.RGBA{R: p.R, G: p.G, B: p.B, A: 0xff}
}
