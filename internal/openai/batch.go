package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// CompletionWindow is the turnaround the batch is created with.
const CompletionWindow = "24h"

// BatchStatus is the lifecycle state reported by the Batch API.
type BatchStatus string

const (
	StatusValidating BatchStatus = "validating"
	StatusInProgress BatchStatus = "in_progress"
	StatusFinalizing BatchStatus = "finalizing"
	StatusCompleted  BatchStatus = "completed"
	StatusFailed     BatchStatus = "failed"
	StatusExpired    BatchStatus = "expired"
	StatusCancelling BatchStatus = "cancelling"
	StatusCancelled  BatchStatus = "cancelled"
)

// Terminal reports whether polling should stop at this status.
func (s BatchStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusExpired, StatusCancelled:
		return true
	}
	return false
}

// Batch represents a batch object returned by the API.
type Batch struct {
	ID            string         `json:"id"`
	Endpoint      string         `json:"endpoint"`
	InputFileID   string         `json:"input_file_id"`
	Status        BatchStatus    `json:"status"`
	OutputFileID  string         `json:"output_file_id,omitempty"`
	ErrorFileID   string         `json:"error_file_id,omitempty"`
	RequestCounts *RequestCounts `json:"request_counts,omitempty"`
}

// RequestCounts holds per-batch request counts.
type RequestCounts struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
}

// UploadBatchFile uploads a JSONL submission file with purpose=batch and
// returns the file id.
func (c *Client) UploadBatchFile(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open batch file: %w", err)
	}
	defer f.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	if err := writer.WriteField("purpose", "batch"); err != nil {
		return "", fmt.Errorf("failed to write purpose field: %w", err)
	}

	part, err := writer.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return "", fmt.Errorf("failed to copy batch file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.BaseURL+"/v1/files", &body)
	if err != nil {
		return "", fmt.Errorf("failed to create upload request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to upload batch file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("file upload returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var uploaded struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&uploaded); err != nil {
		return "", fmt.Errorf("failed to decode upload response: %w", err)
	}
	if uploaded.ID == "" {
		return "", fmt.Errorf("file upload response missing id")
	}

	slog.Info("Uploaded batch file", "file_id", uploaded.ID)
	return uploaded.ID, nil
}

// CreateBatch creates a batch job for a previously uploaded submission file.
func (c *Client) CreateBatch(ctx context.Context, inputFileID string) (*Batch, error) {
	requestBody := map[string]interface{}{
		"input_file_id":     inputFileID,
		"endpoint":          "/v1/chat/completions",
		"completion_window": CompletionWindow,
	}

	jsonData, err := json.Marshal(requestBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal batch request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.BaseURL+"/v1/batches", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create batch request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to create batch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("batch creation returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var b Batch
	if err := json.NewDecoder(resp.Body).Decode(&b); err != nil {
		return nil, fmt.Errorf("failed to decode batch response: %w", err)
	}

	slog.Info("Batch submitted", "batch_id", b.ID, "status", b.Status)
	return &b, nil
}

// RetrieveBatch fetches the current state of a batch job.
func (c *Client) RetrieveBatch(ctx context.Context, batchID string) (*Batch, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", c.BaseURL+"/v1/batches/"+batchID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create retrieve request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve batch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("batch retrieval returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var b Batch
	if err := json.NewDecoder(resp.Body).Decode(&b); err != nil {
		return nil, fmt.Errorf("failed to decode batch response: %w", err)
	}

	return &b, nil
}

// WaitForBatch polls a batch at a fixed interval until it reaches a terminal
// status. The interval is advisory, not a backoff schedule.
func (c *Client) WaitForBatch(ctx context.Context, batchID string, interval time.Duration) (*Batch, error) {
	for {
		b, err := c.RetrieveBatch(ctx, batchID)
		if err != nil {
			return nil, err
		}

		if b.RequestCounts != nil {
			slog.Info("Batch status", "batch_id", batchID, "status", b.Status,
				"completed", b.RequestCounts.Completed, "failed", b.RequestCounts.Failed, "total", b.RequestCounts.Total)
		} else {
			slog.Info("Batch status", "batch_id", batchID, "status", b.Status)
		}

		if b.Status.Terminal() {
			return b, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		c.sleep(interval)
	}
}

// FileContent downloads the content of a file (batch output or error file).
func (c *Client) FileContent(ctx context.Context, fileID string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", c.BaseURL+"/v1/files/"+fileID+"/content", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create download request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("file download returned status %d: %s", resp.StatusCode, string(respBody))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read file content: %w", err)
	}

	return data, nil
}
