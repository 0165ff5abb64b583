package captioncmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestStripIDSuffix(t *testing.T) {
	tests := []struct {
		id       string
		expected string
	}{
		{"apple-1a2b3c4d", "apple"},
		{"paper-plane-deadbeef", "paper-plane"},
		{"apple", "apple"},
		{"apple-notahex1", "apple-notahex1"},
		{"apple-12345", "apple-12345"},
		{"-1a2b3c4d", "-1a2b3c4d"},
	}

	for _, tt := range tests {
		if got := stripIDSuffix(tt.id); got != tt.expected {
			t.Errorf("stripIDSuffix(%q) = %q, want %q", tt.id, got, tt.expected)
		}
	}
}

func TestExecuteProcess(t *testing.T) {
	tmpDir := t.TempDir()

	requestsFile := filepath.Join(tmpDir, "requests.jsonl")
	requests := `{"custom_id":"apple-1a2b3c4d","method":"POST","url":"/v1/chat/completions"}
{"custom_id":"plane-deadbeef","method":"POST","url":"/v1/chat/completions"}
`
	if err := os.WriteFile(requestsFile, []byte(requests), 0644); err != nil {
		t.Fatalf("Failed to write requests file: %v", err)
	}

	outputFile := filepath.Join(tmpDir, "output.jsonl")
	output := `{"custom_id":"apple-1a2b3c4d","response":{"body":{"choices":[{"message":{"content":"red apple"}}]}}}
{"custom_id":"plane-deadbeef","response":{"body":{"choices":[{"message":{"content":"avi√≥n de papel"}}]}}}
`
	if err := os.WriteFile(outputFile, []byte(output), 0644); err != nil {
		t.Fatalf("Failed to write output file: %v", err)
	}

	csvPath := filepath.Join(tmpDir, "captions.csv")
	if err := executeProcess(requestsFile, outputFile, csvPath, ""); err != nil {
		t.Fatalf("executeProcess failed: %v", err)
	}

	data, err := os.ReadFile(csvPath)
	if err != nil {
		t.Fatalf("Failed to read CSV: %v", err)
	}

	content := string(data)
	if !strings.Contains(content, "red apple") {
		t.Error("Expected caption in CSV")
	}
	if !strings.Contains(content, "avión de papel") {
		t.Error("Expected mojibake-repaired caption in CSV")
	}
}

func TestExecuteProcessMissingFiles(t *testing.T) {
	tmpDir := t.TempDir()
	csvPath := filepath.Join(tmpDir, "captions.csv")

	err := executeProcess("/nonexistent/requests.jsonl", "/nonexistent/output.jsonl", csvPath, "")
	if err == nil {
		t.Error("Expected error for missing submission file, got nil")
	}

	if _, statErr := os.Stat(csvPath); !os.IsNotExist(statErr) {
		t.Error("Expected no CSV written on failure")
	}
}

func TestDefaultModel(t *testing.T) {
	t.Setenv("OPENAI_MODEL", "")
	t.Setenv("GEMINI_MODEL", "")
	t.Setenv("OLLAMA_MODEL", "")

	if got := defaultModel("openai"); got != "gpt-4o" {
		t.Errorf("Expected gpt-4o, got %s", got)
	}

	t.Setenv("OPENAI_MODEL", "gpt-4o-mini")
	if got := defaultModel("openai"); got != "gpt-4o-mini" {
		t.Errorf("Expected env override, got %s", got)
	}

	if got := defaultModel("nonsense"); got != "" {
		t.Errorf("Expected empty model for unknown provider, got %s", got)
	}
}

func TestNewProviderUnsupported(t *testing.T) {
	if _, err := newProvider("foo"); err == nil {
		t.Error("Expected error for unsupported provider, got nil")
	}
}
