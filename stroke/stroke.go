/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package stroke encodes single freehand line segments and pen attributes
// to and from the compact text tokens carried by DRAW and PARAMS records.
//
// A stroke token is "x1,y1;x2,y2;r,g,b,eraser,width". A pen token is the
// trailing "r,g,b,eraser,width" part on its own. Fields are decimal only, so
// neither separator can appear inside a value.
package stroke

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	DefaultWidth = 3

	pointSep = ";"
	fieldSep = ","
)

var ErrMalformedStroke = errors.New("malformed stroke")

type Point struct {
	X, Y int
}

func (p Point) String() string {
	return strconv.Itoa(p.X) + fieldSep + strconv.Itoa(p.Y)
}

// Pen holds the attributes a stroke is drawn with. Eraser strokes are
// painted in the canvas background colour regardless of R, G and B. Width
// is at least 1 on the wire; Encode writes 1 for anything smaller.
type Pen struct {
	R, G, B uint8
	Eraser  bool
	Width   int
}

func DefaultPen() Pen {
	return Pen{Width: DefaultWidth}
}

type Stroke struct {
	From, To Point
	Pen      Pen
}

// Encode returns the pen token "r,g,b,eraser,width".
func (p Pen) Encode() string {
	p.Width = max(p.Width, 1)

	eraser := "0"
	if p.Eraser {
		eraser = "1"
	}

	return strings.Join([]string{
		strconv.Itoa(int(p.R)),
		strconv.Itoa(int(p.G)),
		strconv.Itoa(int(p.B)),
		eraser,
		strconv.Itoa(p.Width),
	}, fieldSep)
}

// Encode returns the stroke token "x1,y1;x2,y2;r,g,b,eraser,width".
func (s Stroke) Encode() string {
	return s.From.String() + pointSep + s.To.String() + pointSep + s.Pen.Encode()
}

// Decode parses a stroke token. The pen part may omit the width, in which
// case DefaultWidth is used.
func Decode(token string) (Stroke, error) {
	parts := strings.Split(token, pointSep)
	if len(parts) != 3 {
		return Stroke{}, fmt.Errorf("%w: expected 3 groups, got %d", ErrMalformedStroke, len(parts))
	}

	from, err := decodePoint(parts[0])
	if err != nil {
		return Stroke{}, err
	}

	to, err := decodePoint(parts[1])
	if err != nil {
		return Stroke{}, err
	}

	pen, err := DecodePen(parts[2])
	if err != nil {
		return Stroke{}, err
	}

	return Stroke{From: from, To: to, Pen: pen}, nil
}

// DecodePen parses a pen token of four (no width) or five fields.
func DecodePen(token string) (Pen, error) {
	fields := strings.Split(token, fieldSep)
	if len(fields) != 4 && len(fields) != 5 {
		return Pen{}, fmt.Errorf("%w: expected 4 or 5 pen fields, got %d", ErrMalformedStroke, len(fields))
	}

	var channels [3]uint8
	for i := range channels {
		v, err := strconv.ParseUint(fields[i], 10, 8)
		if err != nil {
			return Pen{}, fmt.Errorf("%w: colour channel %q", ErrMalformedStroke, fields[i])
		}
		channels[i] = uint8(v)
	}

	eraser, err := strconv.Atoi(fields[3])
	if err != nil {
		return Pen{}, fmt.Errorf("%w: eraser flag %q", ErrMalformedStroke, fields[3])
	}

	width := DefaultWidth
	if len(fields) == 5 {
		width, err = strconv.Atoi(fields[4])
		if err != nil || width < 1 {
			return Pen{}, fmt.Errorf("%w: width %q", ErrMalformedStroke, fields[4])
		}
	}

	return Pen{
		R:      channels[0],
		G:      channels[1],
		B:      channels[2],
		Eraser: eraser != 0,
		Width:  width,
	}, nil
}

func decodePoint(field string) (Point, error) {
	xy := strings.Split(field, fieldSep)
	if len(xy) != 2 {
		return Point{}, fmt.Errorf("%w: point %q", ErrMalformedStroke, field)
	}

	x, err := strconv.Atoi(xy[0])
	if err != nil {
		return Point{}, fmt.Errorf("%w: coordinate %q", ErrMalformedStroke, xy[0])
	}

	y, err := strconv.Atoi(xy[1])
	if err != nil {
		return Point{}, fmt.Errorf("%w: coordinate %q", ErrMalformedStroke, xy[1])
	}

	return Point{X: x, Y: y}, nil
}
