package captioncmd

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/accessible-graphics/svgcaption/internal/batch"
	"github.com/accessible-graphics/svgcaption/internal/images"
	"github.com/accessible-graphics/svgcaption/internal/openai"
	"github.com/accessible-graphics/svgcaption/internal/results"
)

type batchOptions struct {
	inputDir     string
	outputCSV    string
	requestsFile string
	tablesPath   string
	model        string
	pollInterval time.Duration
}

func executeBatch(ctx context.Context, opts batchOptions) error {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return fmt.Errorf("OPENAI_API_KEY environment variable not set")
	}

	tables, err := loadTables(opts.tablesPath)
	if err != nil {
		return err
	}

	slog.Info("Starting batch captioning", "input", opts.inputDir, "model", opts.model)

	// Encode all SVGs up front; per-file failures are skipped inside
	encoder := images.NewEncoder()
	records, err := encoder.EncodeDirectory(opts.inputDir)
	if err != nil {
		return fmt.Errorf("failed to encode images: %w", err)
	}
	if len(records) == 0 {
		return fmt.Errorf("no SVG files could be encoded in %s", opts.inputDir)
	}

	requests := make([]batch.Request, 0, len(records))
	ids := make([]string, 0, len(records))
	for _, record := range records {
		requests = append(requests, batch.NewRequest(opts.model, record))
		ids = append(ids, record.ID)
	}

	f, err := os.Create(opts.requestsFile)
	if err != nil {
		return fmt.Errorf("failed to create submission file: %w", err)
	}
	if err := batch.WriteJSONL(f, requests); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close submission file: %w", err)
	}

	slog.Info("Batch input file created", "path", opts.requestsFile, "requests", len(requests))

	client := openai.NewClient(apiKey)

	fileID, err := client.UploadBatchFile(ctx, opts.requestsFile)
	if err != nil {
		return err
	}

	job, err := client.CreateBatch(ctx, fileID)
	if err != nil {
		return err
	}

	job, err = client.WaitForBatch(ctx, job.ID, opts.pollInterval)
	if err != nil {
		return err
	}

	return reconcile(ctx, client, job, ids, tables, opts.outputCSV)
}

// reconcile turns a terminal batch into the final CSV. A non-completed
// batch is an error, but any partial output the service returned is still
// processed first.
func reconcile(ctx context.Context, client *openai.Client, job *openai.Batch, ids []string, tables *results.Tables, outputCSV string) error {
	if job.ErrorFileID != "" {
		errPath := filepath.Join(filepath.Dir(outputCSV), "batch_errors.jsonl")
		if content, err := client.FileContent(ctx, job.ErrorFileID); err != nil {
			slog.Warn("Failed to download error file", "file_id", job.ErrorFileID, "error", err)
		} else if err := os.WriteFile(errPath, content, 0644); err != nil {
			slog.Warn("Failed to save error file", "path", errPath, "error", err)
		} else {
			slog.Info("Error file saved", "path", errPath)
		}
	}

	processed := false
	if job.OutputFileID != "" {
		content, err := client.FileContent(ctx, job.OutputFileID)
		if err != nil {
			if job.Status == openai.StatusCompleted {
				return err
			}
			slog.Warn("Failed to download partial output", "file_id", job.OutputFileID, "error", err)
		} else {
			processor := results.NewProcessor(tables)
			rows, err := processor.Process(ids, bytes.NewReader(content))
			if err != nil {
				return err
			}
			if err := results.WriteCSV(outputCSV, rows); err != nil {
				return err
			}
			processed = true
			logRowCounts(rows, outputCSV)
		}
	}

	if job.Status != openai.StatusCompleted {
		if processed {
			slog.Warn("CSV contains partial results only", "path", outputCSV)
		}
		return fmt.Errorf("batch %s ended with status %s", job.ID, job.Status)
	}
	if !processed {
		return fmt.Errorf("batch %s completed without an output file", job.ID)
	}

	fmt.Printf("\nResults saved to: %s\n", outputCSV)
	return nil
}

func logRowCounts(rows []results.CaptionResult, outputCSV string) {
	fallbacks := 0
	missing := 0
	for _, row := range rows {
		if row.Missing {
			missing++
		} else if row.IsFallback {
			fallbacks++
		}
	}
	slog.Info("Results written", "path", outputCSV, "rows", len(rows), "fallbacks", fallbacks, "missing", missing)
}

func loadTables(path string) (*results.Tables, error) {
	if path == "" {
		return results.DefaultTables(), nil
	}
	return results.LoadTables(path)
}
