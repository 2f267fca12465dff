/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package canvas

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/png"
	"strings"
)

var ErrMalformedSnapshot = errors.New("malformed snapshot")

// EncodePNG returns the raster as PNG bytes.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer

	enc := png.Encoder{CompressionLevel: png.BestSpeed}
	if err := enc.Encode(&buf, img); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// EncodeSnapshot returns the base64 PNG form carried by IMAGE records.
func EncodeSnapshot(img image.Image) (string, error) {
	data, err := EncodePNG(img)
	if err != nil {
		return "", err
	}

	return base64.StdEncoding.EncodeToString(data), nil
}

// DecodeSnapshot parses the payload of an IMAGE record.
func DecodeSnapshot(payload string) (image.Image, error) {
	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSnapshot, err)
	}

	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSnapshot, err)
	}
	if cfg.Width < 1 || cfg.Height < 1 || cfg.Width > MaxSide || cfg.Height > MaxSide {
		return nil, fmt.Errorf("%w: %dx%d exceeds %dx%d", ErrMalformedSnapshot, cfg.Width, cfg.Height, MaxSide, MaxSide)
	}

	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSnapshot, err)
	}

	return img, nil
}

// Snapshot encodes the current raster.
func (c *Canvas) Snapshot() (string, error) {
	return EncodeSnapshot(c.img)
}

// Restore replaces the raster with a decoded IMAGE payload. On error the
// canvas is left untouched.
func (c *Canvas) Restore(payload string) error {
	img, err := DecodeSnapshot(payload)
	if err != nil {
		return err
	}

	c.ReplaceWith(img)

	return nil
}
