package images

import (
	"bytes"
	"encoding/base64"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const testSVG = `<svg xmlns="http://www.w3.org/2000/svg" width="32" height="32" viewBox="0 0 32 32">
  <rect width="32" height="32" fill="green"/>
</svg>`

func writeTestDir(t *testing.T) string {
	t.Helper()
	tmpDir := t.TempDir()

	for _, name := range []string{"apple.svg", "banana.svg", "cherry.svg"} {
		if err := os.WriteFile(filepath.Join(tmpDir, name), []byte(testSVG), 0644); err != nil {
			t.Fatalf("Failed to write %s: %v", name, err)
		}
	}

	// Files that must be ignored or skipped
	if err := os.WriteFile(filepath.Join(tmpDir, "broken.svg"), []byte("<svg>not valid"), 0644); err != nil {
		t.Fatalf("Failed to write broken.svg: %v", err)
	}
	if err := os.WriteFile(filepath.Join(tmpDir, "notes.txt"), []byte("not an image"), 0644); err != nil {
		t.Fatalf("Failed to write notes.txt: %v", err)
	}

	return tmpDir
}

func TestEncodeDirectory(t *testing.T) {
	dir := writeTestDir(t)

	encoder := NewEncoder()
	records, err := encoder.EncodeDirectory(dir)
	if err != nil {
		t.Fatalf("EncodeDirectory failed: %v", err)
	}

	if len(records) != 3 {
		t.Fatalf("Expected 3 records (broken.svg skipped), got %d", len(records))
	}

	seen := make(map[string]bool)
	for _, record := range records {
		if seen[record.ID] {
			t.Errorf("Duplicate id %s", record.ID)
		}
		seen[record.ID] = true

		data, err := base64.StdEncoding.DecodeString(record.Base64Payload)
		if err != nil {
			t.Errorf("Payload for %s is not valid base64: %v", record.ID, err)
			continue
		}
		if _, err := png.Decode(bytes.NewReader(data)); err != nil {
			t.Errorf("Payload for %s is not a PNG: %v", record.ID, err)
		}
	}

	// Ids carry the source basename for readability
	if !strings.HasPrefix(records[0].ID, "apple-") {
		t.Errorf("Expected id prefixed with basename, got %s", records[0].ID)
	}
}

func TestEncodeDirectoryDistinctIDsForSameName(t *testing.T) {
	dir := writeTestDir(t)

	encoder := NewEncoder()

	first, err := encoder.EncodeFile(filepath.Join(dir, "apple.svg"))
	if err != nil {
		t.Fatalf("EncodeFile failed: %v", err)
	}
	second, err := encoder.EncodeFile(filepath.Join(dir, "apple.svg"))
	if err != nil {
		t.Fatalf("EncodeFile failed: %v", err)
	}

	if first.ID == second.ID {
		t.Errorf("Expected distinct ids for repeated encodes, got %s twice", first.ID)
	}
}

func TestEncodeDirectoryMissing(t *testing.T) {
	encoder := NewEncoder()
	_, err := encoder.EncodeDirectory("/nonexistent/path")
	if err == nil {
		t.Error("Expected error for missing directory, got nil")
	}
}

func TestDataURL(t *testing.T) {
	record := ImageRecord{Base64Payload: "aGVsbG8="}
	expected := "data:image/png;base64,aGVsbG8="
	if record.DataURL() != expected {
		t.Errorf("Expected %s, got %s", expected, record.DataURL())
	}
}
