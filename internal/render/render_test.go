package render

import (
	"bytes"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const testSVG = `<svg xmlns="http://www.w3.org/2000/svg" width="64" height="64" viewBox="0 0 64 64">
  <rect x="8" y="8" width="48" height="48" fill="red"/>
</svg>`

const largeSVG = `<svg xmlns="http://www.w3.org/2000/svg" width="1024" height="768" viewBox="0 0 1024 768">
  <circle cx="512" cy="384" r="300" fill="blue"/>
</svg>`

func TestRasterize(t *testing.T) {
	data, err := Rasterize(strings.NewReader(testSVG), 512)
	if err != nil {
		t.Fatalf("Rasterize failed: %v", err)
	}

	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Output is not a valid PNG: %v", err)
	}

	bounds := img.Bounds()
	if bounds.Dx() != 64 || bounds.Dy() != 64 {
		t.Errorf("Expected 64x64 raster, got %dx%d", bounds.Dx(), bounds.Dy())
	}
}

func TestRasterizeFitsLargeImages(t *testing.T) {
	data, err := Rasterize(strings.NewReader(largeSVG), 512)
	if err != nil {
		t.Fatalf("Rasterize failed: %v", err)
	}

	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Output is not a valid PNG: %v", err)
	}

	bounds := img.Bounds()
	if bounds.Dx() > 512 || bounds.Dy() > 512 {
		t.Errorf("Expected raster to fit 512x512, got %dx%d", bounds.Dx(), bounds.Dy())
	}
}

func TestRasterizeMalformedSVG(t *testing.T) {
	_, err := Rasterize(strings.NewReader("<svg><this is not svg"), 512)
	if err == nil {
		t.Error("Expected error for malformed SVG, got nil")
	}
}

func TestRasterizeEmptyViewBox(t *testing.T) {
	svg := `<svg xmlns="http://www.w3.org/2000/svg" width="0" height="0"></svg>`
	_, err := Rasterize(strings.NewReader(svg), 512)
	if err == nil {
		t.Error("Expected error for empty viewBox, got nil")
	}
}

func TestRasterizeFile(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "square.svg")
	if err := os.WriteFile(path, []byte(testSVG), 0644); err != nil {
		t.Fatalf("Failed to write test SVG: %v", err)
	}

	data, err := RasterizeFile(path, 512)
	if err != nil {
		t.Fatalf("RasterizeFile failed: %v", err)
	}

	if _, err := png.Decode(bytes.NewReader(data)); err != nil {
		t.Fatalf("Output is not a valid PNG: %v", err)
	}
}

func TestRasterizeFileMissing(t *testing.T) {
	_, err := RasterizeFile("/nonexistent/missing.svg", 512)
	if err == nil {
		t.Error("Expected error for missing file, got nil")
	}
}
