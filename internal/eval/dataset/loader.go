package dataset

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/parquet-go/parquet-go"
)

// Loader handles loading of reference-caption datasets
type Loader struct {
	datasetPath string
}

// NewLoader creates a new dataset loader
func NewLoader(datasetPath string) *Loader {
	return &Loader{
		datasetPath: datasetPath,
	}
}

// Load loads records from a dataset file (JSONL or Parquet)
func (l *Loader) Load() ([]ReferenceRecord, error) {
	ext := strings.ToLower(filepath.Ext(l.datasetPath))

	switch ext {
	case ".parquet":
		return l.loadParquet(-1)
	case ".jsonl", ".json":
		return l.loadJSONL(-1)
	default:
		return nil, fmt.Errorf("unsupported file format: %s (supported: .parquet, .jsonl)", ext)
	}
}

// LoadSample loads a limited number of records (useful for testing)
func (l *Loader) LoadSample(limit int) ([]ReferenceRecord, error) {
	if limit < 0 {
		return l.Load()
	}

	ext := strings.ToLower(filepath.Ext(l.datasetPath))

	switch ext {
	case ".parquet":
		return l.loadParquet(limit)
	case ".jsonl", ".json":
		return l.loadJSONL(limit)
	default:
		return nil, fmt.Errorf("unsupported file format: %s", ext)
	}
}

// loadJSONL loads up to limit records from a JSONL file (-1 for all)
func (l *Loader) loadJSONL(limit int) ([]ReferenceRecord, error) {
	file, err := os.Open(l.datasetPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset file: %w", err)
	}
	defer file.Close()

	var records []ReferenceRecord
	scanner := bufio.NewScanner(file)

	const maxCapacity = 10 * 1024 * 1024 // 10MB per line
	buf := make([]byte, maxCapacity)
	scanner.Buffer(buf, maxCapacity)

	lineNum := 0
	for scanner.Scan() {
		if limit >= 0 && len(records) >= limit {
			break
		}

		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var record ReferenceRecord
		if err := json.Unmarshal(line, &record); err != nil {
			return nil, fmt.Errorf("failed to parse JSON at line %d: %w", lineNum, err)
		}

		records = append(records, record)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading dataset: %w", err)
	}

	slog.Debug("Finished reading JSONL dataset", "total_records", len(records), "total_lines", lineNum)

	return records, nil
}

// loadParquet loads up to limit records from a Parquet file (-1 for all)
func (l *Loader) loadParquet(limit int) ([]ReferenceRecord, error) {
	file, err := os.Open(l.datasetPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	pf, err := parquet.OpenFile(file, info.Size())
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet: %w", err)
	}

	slog.Debug("Parquet file opened", "num_rows", pf.NumRows(), "num_row_groups", len(pf.RowGroups()))

	reader := parquet.NewGenericReader[ReferenceRecord](pf)
	defer reader.Close()

	var records []ReferenceRecord
	rows := make([]ReferenceRecord, 128) // Read in batches

	for limit < 0 || len(records) < limit {
		n, err := reader.Read(rows)
		if n > 0 {
			if limit >= 0 && n > limit-len(records) {
				n = limit - len(records)
			}
			records = append(records, rows[:n]...)
		}
		if err != nil {
			break
		}
	}

	slog.Debug("Finished reading Parquet dataset", "total_records", len(records))

	return records, nil
}

// ByName indexes records by name, rejecting duplicates that would make
// caption matching ambiguous.
func ByName(records []ReferenceRecord) (map[string]ReferenceRecord, error) {
	index := make(map[string]ReferenceRecord, len(records))
	for _, record := range records {
		if _, dup := index[record.Name]; dup {
			return nil, fmt.Errorf("duplicate reference name: %s", record.Name)
		}
		index[record.Name] = record
	}
	return index, nil
}
