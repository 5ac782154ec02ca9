// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package imaging decodes uploaded photos and produces downscaled JPEG
// thumbnails. Sources narrower than the target are re-encoded at their
// own size rather than upscaled.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif" // register decoders
	"image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// Variant describes a single output size.
type Variant struct {
	Name    string // e.g., "thumb"
	Width   int    // Target width in pixels
	Quality int    // JPEG quality 1-100
}

// Thumb is the variant stored next to every photo.
var Thumb = Variant{Name: "thumb", Width: 400, Quality: 80}

// MaxPixels bounds decoded image size to keep memory in check.
const MaxPixels = 40_000_000

// ProcessedImage holds one generated variant ready for upload.
type ProcessedImage struct {
	Name        string
	Width       int
	Height      int
	Data        []byte
	ContentType string // Always "image/jpeg"
}

// Probe returns the format and dimensions of an encoded image without
// decoding the pixel data.
func Probe(data []byte) (format string, width, height int, err error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", 0, 0, fmt.Errorf("imaging: probe failed: %w", err)
	}
	return format, cfg.Width, cfg.Height, nil
}

// Generate decodes the source and renders it at the variant width,
// keeping the aspect ratio.
func Generate(original []byte, v Variant) (*ProcessedImage, error) {
	_, w, h, err := Probe(original)
	if err != nil {
		return nil, err
	}
	if w <= 0 || h <= 0 || w*h > MaxPixels {
		return nil, fmt.Errorf("imaging: unsupported dimensions %dx%d", w, h)
	}

	src, _, err := image.Decode(bytes.NewReader(original))
	if err != nil {
		return nil, fmt.Errorf("imaging: decode failed: %w", err)
	}

	targetW := v.Width
	if w <= targetW {
		targetW = w
	}
	targetH := h * targetW / w
	if targetH < 1 {
		targetH = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, targetW, targetH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: v.Quality}); err != nil {
		return nil, fmt.Errorf("imaging: encode %s: %w", v.Name, err)
	}

	return &ProcessedImage{
		Name:        v.Name,
		Width:       targetW,
		Height:      targetH,
		Data:        buf.Bytes(),
		ContentType: "image/jpeg",
	}, nil
}
