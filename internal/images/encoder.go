package images

import (
	"encoding/base64"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/accessible-graphics/svgcaption/internal/render"
	"github.com/google/uuid"
)

// ImageRecord pairs an encoded raster with the identifier used to reconcile
// its caption later, regardless of the order the service returns results in.
type ImageRecord struct {
	ID            string
	SourcePath    string
	Base64Payload string
}

// DataURL returns the record payload as a data URL suitable for a
// chat-completions image_url part.
func (r ImageRecord) DataURL() string {
	return "data:image/png;base64," + r.Base64Payload
}

// Encoder converts SVG files into base64-encoded PNG records.
type Encoder struct {
	RasterSize int
}

// NewEncoder creates an encoder rendering into the default bounding box.
func NewEncoder() *Encoder {
	return &Encoder{RasterSize: render.DefaultSize}
}

// ListSVGs returns the paths of all .svg files at the top level of dir,
// sorted by name. Subdirectories are not descended into.
func ListSVGs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read input directory: %w", err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(entry.Name()), ".svg") {
			paths = append(paths, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(paths)

	return paths, nil
}

// EncodeDirectory encodes every .svg file at the top level of dir. Files that
// fail to rasterize are logged and skipped; the rest of the directory is
// still processed.
func (e *Encoder) EncodeDirectory(dir string) ([]ImageRecord, error) {
	paths, err := ListSVGs(dir)
	if err != nil {
		return nil, err
	}

	slog.Info("Found SVG files", "dir", dir, "count", len(paths))

	records := make([]ImageRecord, 0, len(paths))
	for _, path := range paths {
		record, err := e.EncodeFile(path)
		if err != nil {
			slog.Warn("Skipping file", "path", path, "error", err)
			continue
		}

		records = append(records, record)
	}

	return records, nil
}

// EncodeFile rasterizes a single SVG and returns the encoded record.
func (e *Encoder) EncodeFile(path string) (ImageRecord, error) {
	data, err := render.RasterizeFile(path, e.RasterSize)
	if err != nil {
		return ImageRecord{}, err
	}

	return ImageRecord{
		ID:            newCustomID(path),
		SourcePath:    path,
		Base64Payload: base64.StdEncoding.EncodeToString(data),
	}, nil
}

// newCustomID builds an identifier from the file basename plus a short
// random suffix, so ids stay readable but unique across a batch.
func newCustomID(path string) string {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	u := uuid.New()
	return fmt.Sprintf("%s-%x", base, u[:4])
}
