package captioncmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

// NewBatchCmd creates the batch command running the full pipeline
func NewBatchCmd() *cobra.Command {
	var opts batchOptions

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Caption a directory of SVGs through the OpenAI Batch API",
		Long: `Rasterizes every SVG in the input directory, submits all images as a
single OpenAI Batch API job, polls the job until it finishes, and reconciles
the results into a CSV with one row per input image (id, caption,
is_fallback).

The submission file is kept next to the CSV so a finished job can be
re-processed offline with the process command.`,
		Example: `  # Caption all SVGs in ./files/test_set
  svgcaption batch --input ./files/test_set --output captions.csv

  # Use a different model and a faster poll interval
  svgcaption batch --input ./svgs --model gpt-4o-mini --poll-interval 10s`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(opts.inputDir); os.IsNotExist(err) {
				return fmt.Errorf("input directory not found: %s", opts.inputDir)
			}
			if opts.model == "" {
				opts.model = defaultModel("openai")
			}
			return executeBatch(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.inputDir, "input", "", "Directory of SVG files to caption (required)")
	cmd.Flags().StringVar(&opts.outputCSV, "output", "captions.csv", "Path of the output CSV")
	cmd.Flags().StringVar(&opts.requestsFile, "requests-file", "batch_requests.jsonl", "Where to write the batch submission file")
	cmd.Flags().StringVar(&opts.tablesPath, "tables", "", "YAML file overriding the fallback/mojibake tables")
	cmd.Flags().StringVar(&opts.model, "model", "", "Model name (defaults to OPENAI_MODEL or gpt-4o)")
	cmd.Flags().DurationVar(&opts.pollInterval, "poll-interval", 30*time.Second, "How often to poll the batch status")

	_ = cmd.MarkFlagRequired("input")
	return cmd
}

// NewProcessCmd creates the process command for offline result processing
func NewProcessCmd() *cobra.Command {
	var requestsFile string
	var outputFile string
	var outputCSV string
	var tablesPath string

	cmd := &cobra.Command{
		Use:   "process",
		Short: "Rebuild the CSV from saved batch submission and output files",
		Long: `Re-runs fallback detection, mojibake repair, and reconciliation over a
previously downloaded batch output file, without any network access.

Processing the same files twice produces an identical CSV, so the tables can
be tweaked and re-applied after the fact.`,
		Example: `  svgcaption process --requests batch_requests.jsonl --batch-output batch_output.jsonl --output captions.csv`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return executeProcess(requestsFile, outputFile, outputCSV, tablesPath)
		},
	}

	cmd.Flags().StringVar(&requestsFile, "requests", "batch_requests.jsonl", "Batch submission file written by the batch command")
	cmd.Flags().StringVar(&outputFile, "batch-output", "", "Batch output JSONL file (required)")
	cmd.Flags().StringVar(&outputCSV, "output", "captions.csv", "Path of the output CSV")
	cmd.Flags().StringVar(&tablesPath, "tables", "", "YAML file overriding the fallback/mojibake tables")

	_ = cmd.MarkFlagRequired("batch-output")
	return cmd
}

// NewRunCmd creates the run command for synchronous per-image captioning
func NewRunCmd() *cobra.Command {
	var inputDir string
	var provider string
	var model string
	var outputCSV string
	var tablesPath string
	var retries int

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Caption SVGs one at a time through a vision provider",
		Long: `Captions each SVG with an individual chat-completions request instead of a
batch job. Slower and more expensive per image, but results arrive
immediately and fallback responses are retried on the spot.

Supported providers: openai, gemini, ollama.`,
		Example: `  # Caption with OpenAI, retrying fallback responses twice
  svgcaption run --input ./svgs --provider openai --retries 2

  # Caption with a local Ollama model
  svgcaption run --input ./svgs --provider ollama --model llava`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(inputDir); os.IsNotExist(err) {
				return fmt.Errorf("input directory not found: %s", inputDir)
			}
			return executeRun(cmd.Context(), inputDir, provider, model, outputCSV, tablesPath, retries)
		},
	}

	cmd.Flags().StringVar(&inputDir, "input", "", "Directory of SVG files to caption (required)")
	cmd.Flags().StringVar(&provider, "provider", "openai", "Vision provider (openai, gemini, or ollama)")
	cmd.Flags().StringVar(&model, "model", "", "Model name (defaults to provider's default)")
	cmd.Flags().StringVar(&outputCSV, "output", "captions.csv", "Path of the output CSV")
	cmd.Flags().StringVar(&tablesPath, "tables", "", "YAML file overriding the fallback/mojibake tables")
	cmd.Flags().IntVar(&retries, "retries", 2, "Retries per image when the model returns a fallback response")

	_ = cmd.MarkFlagRequired("input")
	return cmd
}

// NewEvalCmd creates the eval command scoring captions against references
func NewEvalCmd() *cobra.Command {
	var resultsCSV string
	var datasetPath string
	var sampleSize int

	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Score a captions CSV against a reference dataset",
		Long: `Compares generated captions against reference captions from a Parquet or
JSONL dataset and writes per-caption scores plus an aggregate summary to a
YAML file under evals/.

Reference rows are matched by image name; the random id suffix batch ids
carry is stripped before matching.`,
		Example: `  # Score against a JSONL reference set
  svgcaption eval --results captions.csv --dataset refs.jsonl

  # Score a sample of 100 references from a Parquet file
  svgcaption eval --results captions.csv --dataset refs.parquet --sample 100`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(datasetPath); os.IsNotExist(err) {
				return fmt.Errorf("dataset file not found: %s", datasetPath)
			}
			return executeEval(resultsCSV, datasetPath, sampleSize)
		},
	}

	cmd.Flags().StringVar(&resultsCSV, "results", "captions.csv", "Captions CSV produced by batch, process, or run")
	cmd.Flags().StringVar(&datasetPath, "dataset", "", "Reference caption dataset (.parquet or .jsonl, required)")
	cmd.Flags().IntVar(&sampleSize, "sample", -1, "Number of reference records to load (-1 for all)")

	_ = cmd.MarkFlagRequired("dataset")
	return cmd
}
