package captioncmd

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/accessible-graphics/svgcaption/internal/openai"
	"github.com/accessible-graphics/svgcaption/internal/results"
)

// fakeFileServer serves batch output and error file downloads.
func fakeFileServer(t *testing.T, outputJSONL, errorJSONL string) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/files/file-out/content", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, outputJSONL)
	})
	mux.HandleFunc("/v1/files/file-err/content", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, errorJSONL)
	})

	return httptest.NewServer(mux)
}

func TestReconcileCompleted(t *testing.T) {
	output := `{"custom_id":"a-1","response":{"body":{"choices":[{"message":{"content":"red apple"}}]}}}` + "\n" +
		`{"custom_id":"b-2","response":{"body":{"choices":[{"message":{"content":"I can't see the image"}}]}}}` + "\n"
	server := fakeFileServer(t, output, "")
	defer server.Close()

	client := openai.NewClientWithOptions("test-key", server.URL, nil)
	job := &openai.Batch{ID: "batch-xyz", Status: openai.StatusCompleted, OutputFileID: "file-out"}
	csvPath := filepath.Join(t.TempDir(), "captions.csv")

	err := reconcile(context.Background(), client, job, []string{"a-1", "b-2"}, results.DefaultTables(), csvPath)
	if err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}

	rows, err := results.ReadCSV(csvPath)
	if err != nil {
		t.Fatalf("ReadCSV failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(rows))
	}
	if rows[0].IsFallback || !rows[1].IsFallback {
		t.Errorf("Expected one fallback row, got %+v", rows)
	}
}

func TestReconcileFailedWithPartialOutput(t *testing.T) {
	// The service returned one of two results before failing; the partial
	// CSV is still written, the error file saved, and the run still fails.
	output := `{"custom_id":"a-1","response":{"body":{"choices":[{"message":{"content":"red apple"}}]}}}` + "\n"
	errors := `{"custom_id":"b-2","error":{"message":"boom"}}` + "\n"
	server := fakeFileServer(t, output, errors)
	defer server.Close()

	client := openai.NewClientWithOptions("test-key", server.URL, nil)
	job := &openai.Batch{ID: "batch-xyz", Status: openai.StatusFailed, OutputFileID: "file-out", ErrorFileID: "file-err"}

	tmpDir := t.TempDir()
	csvPath := filepath.Join(tmpDir, "captions.csv")

	err := reconcile(context.Background(), client, job, []string{"a-1", "b-2"}, results.DefaultTables(), csvPath)
	if err == nil {
		t.Fatal("Expected error for failed batch, got nil")
	}
	if !strings.Contains(err.Error(), "failed") {
		t.Errorf("Expected batch status in error, got: %v", err)
	}

	rows, readErr := results.ReadCSV(csvPath)
	if readErr != nil {
		t.Fatalf("Expected partial CSV written, got: %v", readErr)
	}
	if len(rows) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(rows))
	}
	if rows[0].Caption != "red apple" {
		t.Errorf("Expected partial result kept, got %+v", rows[0])
	}
	if !rows[1].Missing {
		t.Errorf("Expected missing row for the failed request, got %+v", rows[1])
	}

	saved, readErr := os.ReadFile(filepath.Join(tmpDir, "batch_errors.jsonl"))
	if readErr != nil {
		t.Fatalf("Expected error file saved: %v", readErr)
	}
	if string(saved) != errors {
		t.Errorf("Expected error file content %q, got %q", errors, string(saved))
	}
}

func TestReconcileFailedWithoutOutput(t *testing.T) {
	server := fakeFileServer(t, "", "")
	defer server.Close()

	client := openai.NewClientWithOptions("test-key", server.URL, nil)
	job := &openai.Batch{ID: "batch-xyz", Status: openai.StatusExpired}

	tmpDir := t.TempDir()
	csvPath := filepath.Join(tmpDir, "captions.csv")

	// A CSV from an earlier successful run must survive the failure
	prior := []results.CaptionResult{{ID: "old-1", Caption: "dog"}}
	if err := results.WriteCSV(csvPath, prior); err != nil {
		t.Fatalf("Failed to write prior CSV: %v", err)
	}
	before, err := os.ReadFile(csvPath)
	if err != nil {
		t.Fatalf("Failed to read prior CSV: %v", err)
	}

	err = reconcile(context.Background(), client, job, []string{"a-1"}, results.DefaultTables(), csvPath)
	if err == nil {
		t.Fatal("Expected error for expired batch, got nil")
	}
	if !strings.Contains(err.Error(), "expired") {
		t.Errorf("Expected batch status in error, got: %v", err)
	}

	after, err := os.ReadFile(csvPath)
	if err != nil {
		t.Fatalf("Failed to re-read CSV: %v", err)
	}
	if string(before) != string(after) {
		t.Error("Expected prior CSV untouched after failed batch")
	}
}

func TestReconcileCompletedWithoutOutputFile(t *testing.T) {
	server := fakeFileServer(t, "", "")
	defer server.Close()

	client := openai.NewClientWithOptions("test-key", server.URL, nil)
	job := &openai.Batch{ID: "batch-xyz", Status: openai.StatusCompleted}
	csvPath := filepath.Join(t.TempDir(), "captions.csv")

	err := reconcile(context.Background(), client, job, []string{"a-1"}, results.DefaultTables(), csvPath)
	if err == nil {
		t.Fatal("Expected error for completed batch without output file, got nil")
	}
}
