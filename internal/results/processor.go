package results

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
)

// MissingCaption marks rows for ids the service returned no result for.
const MissingCaption = "[ERROR] no result returned"

// errorCaptionPrefix marks rows whose batch record was an error object, so
// they read distinctly from a model that returned nothing.
const errorCaptionPrefix = "[ERROR]"

// CaptionResult is one reconciled row of the final CSV.
type CaptionResult struct {
	ID         string
	Caption    string
	IsFallback bool
	Missing    bool
}

// outputLine is one record of the batch output file. Either response or
// error is set.
type outputLine struct {
	CustomID string `json:"custom_id"`
	Response *struct {
		Body struct {
			Choices []struct {
				Message struct {
					Content string `json:"content"`
				} `json:"message"`
			} `json:"choices"`
		} `json:"body"`
	} `json:"response"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Processor reconciles batch output records against the submitted ids.
type Processor struct {
	tables *Tables
}

// NewProcessor creates a processor using the given tables.
func NewProcessor(tables *Tables) *Processor {
	return &Processor{tables: tables}
}

// Process parses the batch output and produces exactly one result per
// submitted id, in submission order. Ids missing from the output get an
// error-marked row; output records for ids never submitted are a
// data-integrity error.
func (p *Processor) Process(submittedIDs []string, output io.Reader) ([]CaptionResult, error) {
	submitted := make(map[string]bool, len(submittedIDs))
	for _, id := range submittedIDs {
		if submitted[id] {
			return nil, fmt.Errorf("duplicate submitted id: %s", id)
		}
		submitted[id] = true
	}

	captions := make(map[string]string, len(submittedIDs))

	scanner := bufio.NewScanner(output)
	const maxCapacity = 10 * 1024 * 1024 // 10MB per line
	buf := make([]byte, maxCapacity)
	scanner.Buffer(buf, maxCapacity)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		// A bad line only loses its own record; the affected id still
		// surfaces as a missing-result row below.
		var record outputLine
		if err := json.Unmarshal(line, &record); err != nil {
			slog.Warn("Skipping unparseable output line", "line", lineNum, "error", err)
			continue
		}

		if record.CustomID == "" {
			slog.Warn("Skipping output line without custom_id", "line", lineNum)
			continue
		}
		if !submitted[record.CustomID] {
			return nil, fmt.Errorf("output contains unknown custom_id %s (line %d)", record.CustomID, lineNum)
		}
		if _, dup := captions[record.CustomID]; dup {
			return nil, fmt.Errorf("output contains duplicate custom_id %s (line %d)", record.CustomID, lineNum)
		}

		captions[record.CustomID] = p.extractCaption(record)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading batch output: %w", err)
	}

	results := make([]CaptionResult, 0, len(submittedIDs))
	for _, id := range submittedIDs {
		caption, ok := captions[id]
		if !ok {
			slog.Warn("No result returned for submitted id", "id", id)
			results = append(results, CaptionResult{
				ID:      id,
				Caption: MissingCaption,
				Missing: true,
			})
			continue
		}

		results = append(results, CaptionResult{
			ID:         id,
			Caption:    caption,
			IsFallback: p.tables.IsFallback(caption),
		})
	}

	return results, nil
}

func (p *Processor) extractCaption(record outputLine) string {
	if record.Error != nil {
		slog.Warn("Batch request failed", "id", record.CustomID, "error", record.Error.Message)
		return fmt.Sprintf("%s %s", errorCaptionPrefix, record.Error.Message)
	}
	if record.Response == nil || len(record.Response.Body.Choices) == 0 {
		slog.Warn("Batch response has no choices", "id", record.CustomID)
		return fmt.Sprintf("%s response contained no caption", errorCaptionPrefix)
	}

	return p.tables.RepairMojibake(record.Response.Body.Choices[0].Message.Content)
}

// WriteCSV writes results as id,caption,is_fallback rows. The file is
// written to a temp file and renamed so a failed run never leaves a
// truncated CSV behind.
func WriteCSV(path string, results []CaptionResult) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".captions-*.csv")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	writer := csv.NewWriter(tmp)

	if err := writer.Write([]string{"id", "caption", "is_fallback"}); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, result := range results {
		row := []string{result.ID, result.Caption, strconv.FormatBool(result.IsFallback)}
		if err := writer.Write(row); err != nil {
			tmp.Close()
			return fmt.Errorf("failed to write CSV row for %s: %w", result.ID, err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to flush CSV: %w", err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to move CSV into place: %w", err)
	}

	return nil
}

// ReadCSV loads a previously written results CSV.
func ReadCSV(path string) ([]CaptionResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open results CSV: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read results CSV: %w", err)
	}

	if len(rows) == 0 {
		return nil, fmt.Errorf("results CSV is empty")
	}

	results := make([]CaptionResult, 0, len(rows)-1)
	for i, row := range rows[1:] {
		if len(row) != 3 {
			return nil, fmt.Errorf("malformed CSV row %d: expected 3 columns, got %d", i+2, len(row))
		}

		isFallback, err := strconv.ParseBool(row[2])
		if err != nil {
			return nil, fmt.Errorf("malformed is_fallback at row %d: %w", i+2, err)
		}

		results = append(results, CaptionResult{
			ID:         row[0],
			Caption:    row[1],
			IsFallback: isFallback,
			Missing:    row[1] == MissingCaption,
		})
	}

	return results, nil
}
