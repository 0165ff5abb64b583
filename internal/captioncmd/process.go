package captioncmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/accessible-graphics/svgcaption/internal/batch"
	"github.com/accessible-graphics/svgcaption/internal/results"
)

// executeProcess re-runs result processing offline against a previously
// written submission and output file pair. Running it twice over the same
// inputs yields an identical CSV.
func executeProcess(requestsFile, outputFile, outputCSV, tablesPath string) error {
	tables, err := loadTables(tablesPath)
	if err != nil {
		return err
	}

	reqFile, err := os.Open(requestsFile)
	if err != nil {
		return fmt.Errorf("failed to open submission file: %w", err)
	}
	defer reqFile.Close()

	ids, err := batch.ReadSubmittedIDs(reqFile)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return fmt.Errorf("submission file %s contains no requests", requestsFile)
	}

	outFile, err := os.Open(outputFile)
	if err != nil {
		return fmt.Errorf("failed to open batch output file: %w", err)
	}
	defer outFile.Close()

	processor := results.NewProcessor(tables)
	rows, err := processor.Process(ids, outFile)
	if err != nil {
		return err
	}

	if err := results.WriteCSV(outputCSV, rows); err != nil {
		return err
	}

	logRowCounts(rows, outputCSV)
	slog.Info("Processing complete", "submitted", len(ids), "rows", len(rows))

	return nil
}
