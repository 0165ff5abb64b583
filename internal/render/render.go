package render

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"

	"github.com/disintegration/imaging"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

// DefaultSize is the bounding box (in pixels) rendered rasters are fit into.
const DefaultSize = 512

// RasterizeFile renders an SVG file to PNG bytes, scaled to fit a
// size x size bounding box.
func RasterizeFile(path string, size int) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SVG: %w", err)
	}
	defer f.Close()

	data, err := Rasterize(f, size)
	if err != nil {
		return nil, fmt.Errorf("failed to rasterize %s: %w", path, err)
	}

	return data, nil
}

// Rasterize renders SVG markup from r to PNG bytes, scaled to fit a
// size x size bounding box.
func Rasterize(r io.Reader, size int) ([]byte, error) {
	if size <= 0 {
		size = DefaultSize
	}

	icon, err := oksvg.ReadIconStream(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse SVG: %w", err)
	}

	w := int(icon.ViewBox.W)
	h := int(icon.ViewBox.H)
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("SVG has no drawable area (viewBox %gx%g)", icon.ViewBox.W, icon.ViewBox.H)
	}

	icon.SetTarget(0, 0, float64(w), float64(h))
	rgba := image.NewRGBA(image.Rect(0, 0, w, h))
	scanner := rasterx.NewScannerGV(w, h, rgba, rgba.Bounds())
	icon.Draw(rasterx.NewDasher(w, h, scanner), 1)

	// Scale to the target bounding box, preserving aspect ratio. Images
	// already inside the box are left at their native resolution.
	var out image.Image = rgba
	if w > size || h > size {
		out = imaging.Fit(rgba, size, size, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, out); err != nil {
		return nil, fmt.Errorf("failed to encode PNG: %w", err)
	}

	return buf.Bytes(), nil
}
