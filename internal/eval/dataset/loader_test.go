package dataset

import (
	"os"
	"path/filepath"
	"testing"
)

func writeJSONL(t *testing.T) string {
	t.Helper()
	tmpDir := t.TempDir()
	jsonlPath := filepath.Join(tmpDir, "refs.jsonl")

	testData := `{"name":"apple","caption":"red apple"}
{"name":"balloons","caption":"3 blue balloons"}
{"name":"plane","caption":"avión de papel","locale":"es"}
`
	if err := os.WriteFile(jsonlPath, []byte(testData), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}
	return jsonlPath
}

func TestLoadJSONL(t *testing.T) {
	loader := NewLoader(writeJSONL(t))

	records, err := loader.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if len(records) != 3 {
		t.Fatalf("Expected 3 records, got %d", len(records))
	}

	if records[0].Name != "apple" || records[0].Caption != "red apple" {
		t.Errorf("Unexpected first record: %+v", records[0])
	}
	if records[2].Locale != "es" {
		t.Errorf("Expected locale es, got %q", records[2].Locale)
	}
}

func TestLoadSample(t *testing.T) {
	loader := NewLoader(writeJSONL(t))

	records, err := loader.LoadSample(2)
	if err != nil {
		t.Fatalf("LoadSample failed: %v", err)
	}

	if len(records) != 2 {
		t.Errorf("Expected 2 records, got %d", len(records))
	}

	// Negative limit means load everything
	records, err = loader.LoadSample(-1)
	if err != nil {
		t.Fatalf("LoadSample(-1) failed: %v", err)
	}
	if len(records) != 3 {
		t.Errorf("Expected 3 records, got %d", len(records))
	}
}

func TestLoadUnsupportedFormat(t *testing.T) {
	loader := NewLoader("refs.txt")

	if _, err := loader.Load(); err == nil {
		t.Error("Expected error for unsupported format, got nil")
	}
	if _, err := loader.LoadSample(10); err == nil {
		t.Error("Expected error for unsupported format in LoadSample, got nil")
	}
}

func TestLoadNonExistentFile(t *testing.T) {
	loader := NewLoader("/nonexistent/path/refs.jsonl")

	if _, err := loader.Load(); err == nil {
		t.Error("Expected error for non-existent file, got nil")
	}
}

func TestByName(t *testing.T) {
	records := []ReferenceRecord{
		{Name: "apple", Caption: "red apple"},
		{Name: "plane", Caption: "paper plane"},
	}

	index, err := ByName(records)
	if err != nil {
		t.Fatalf("ByName failed: %v", err)
	}
	if index["apple"].Caption != "red apple" {
		t.Errorf("Unexpected index entry: %+v", index["apple"])
	}

	records = append(records, ReferenceRecord{Name: "apple", Caption: "green apple"})
	if _, err := ByName(records); err == nil {
		t.Error("Expected error for duplicate name, got nil")
	}
}
