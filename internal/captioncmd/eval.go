package captioncmd

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/accessible-graphics/svgcaption/internal/eval/dataset"
	"github.com/accessible-graphics/svgcaption/internal/eval/metrics"
	evalresults "github.com/accessible-graphics/svgcaption/internal/eval/results"
	"github.com/accessible-graphics/svgcaption/internal/results"
)

func executeEval(resultsCSV, datasetPath string, sampleSize int) error {
	slog.Info("Starting caption evaluation", "results", resultsCSV, "dataset", datasetPath)

	rows, err := results.ReadCSV(resultsCSV)
	if err != nil {
		return err
	}

	loader := dataset.NewLoader(datasetPath)
	records, err := loader.LoadSample(sampleSize)
	if err != nil {
		return fmt.Errorf("failed to load dataset: %w", err)
	}

	references, err := dataset.ByName(records)
	if err != nil {
		return err
	}

	slog.Info("Dataset loaded", "references", len(references))

	var evalResults []evalresults.EvalResult
	var scores []float64
	fallbacks := 0
	missing := 0

	for _, row := range rows {
		if row.Missing {
			missing++
			continue
		}

		name := stripIDSuffix(row.ID)
		reference, ok := references[name]
		if !ok {
			slog.Warn("No reference caption for result", "id", row.ID, "name", name)
			continue
		}

		if row.IsFallback {
			fallbacks++
		}

		comparison := metrics.CompareCaptions(row.Caption, reference.Caption)

		evalResults = append(evalResults, evalresults.EvalResult{
			Identifier: row.ID,
			Generated:  row.Caption,
			Reference:  reference.Caption,
			IsFallback: row.IsFallback,
			TokenF1:    comparison.TokenF1,
			CharSim:    comparison.CharSim,
			Score:      comparison.Score,
		})

		// Fallback rows are reported but not scored; a refusal says
		// nothing about caption quality.
		if !row.IsFallback {
			scores = append(scores, comparison.Score)
		}
	}

	summary := metrics.Summarize(scores)
	summary.Total = len(rows)
	summary.Fallbacks = fallbacks
	summary.Missing = missing

	savedPath, err := evalresults.SaveToYAML(resultsCSV, datasetPath, sampleSize, summary, evalResults)
	if err != nil {
		return err
	}

	printSummary(summary)
	fmt.Printf("\nEvaluation results saved to: %s\n", savedPath)

	return nil
}

// stripIDSuffix removes the random 8-hex-char suffix batch ids carry, so
// "apple-1a2b3c4d" matches the reference named "apple". Sync-run ids have
// no suffix and pass through unchanged.
func stripIDSuffix(id string) string {
	i := strings.LastIndex(id, "-")
	if i <= 0 {
		return id
	}

	suffix := id[i+1:]
	if len(suffix) != 8 {
		return id
	}
	for _, r := range suffix {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') {
			return id
		}
	}

	return id[:i]
}

func printSummary(summary metrics.Summary) {
	fmt.Println("\n========================================")
	fmt.Println("Caption Evaluation Summary")
	fmt.Println("========================================")
	fmt.Printf("Total Rows:         %d\n", summary.Total)
	fmt.Printf("Scored Captions:    %d\n", summary.Evaluated)
	fmt.Printf("Fallback Captions:  %d\n", summary.Fallbacks)
	fmt.Printf("Missing Results:    %d\n", summary.Missing)
	fmt.Println()
	fmt.Printf("Average Score:      %.2f%%\n", summary.AverageScore*100)
	fmt.Printf("Median Score:       %.2f%%\n", summary.MedianScore*100)
	fmt.Printf("Min Score:          %.2f%%\n", summary.MinScore*100)
	fmt.Printf("Max Score:          %.2f%%\n", summary.MaxScore*100)
	fmt.Println("========================================")
}
