package results

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/accessible-graphics/svgcaption/internal/eval/metrics"
	"gopkg.in/yaml.v3"
)

// EvalConfig represents the configuration section of the eval YAML
type EvalConfig struct {
	ResultsCSV  string `yaml:"resultscsv"`
	DatasetPath string `yaml:"datasetpath"`
	SampleSize  int    `yaml:"samplesize"`
	Timestamp   string `yaml:"timestamp"`
}

// EvalResult represents a single caption evaluation result
type EvalResult struct {
	Identifier string  `yaml:"identifier"`
	Generated  string  `yaml:"generated"`
	Reference  string  `yaml:"reference"`
	IsFallback bool    `yaml:"isfallback"`
	TokenF1    float64 `yaml:"tokenf1"`
	CharSim    float64 `yaml:"charsim"`
	Score      float64 `yaml:"score"`
}

// EvalSummary represents the aggregate section of the eval YAML
type EvalSummary struct {
	Total        int     `yaml:"total"`
	Evaluated    int     `yaml:"evaluated"`
	Fallbacks    int     `yaml:"fallbacks"`
	Missing      int     `yaml:"missing"`
	AverageScore float64 `yaml:"averagescore"`
	MedianScore  float64 `yaml:"medianscore"`
	MinScore     float64 `yaml:"minscore"`
	MaxScore     float64 `yaml:"maxscore"`
}

// EvalSpec represents the complete evaluation document
type EvalSpec struct {
	Config  EvalConfig   `yaml:"config"`
	Summary EvalSummary  `yaml:"summary"`
	Results []EvalResult `yaml:"results"`
}

// SaveToYAML saves evaluation results to a timestamped YAML file in the
// evals/ directory and returns the file path.
func SaveToYAML(resultsCSV, datasetPath string, sampleSize int, summary metrics.Summary, evalResults []EvalResult) (string, error) {
	if err := os.MkdirAll("evals", 0755); err != nil {
		return "", fmt.Errorf("failed to create evals directory: %w", err)
	}

	timestamp := time.Now().Format("2006-01-02_15-04-05")

	spec := EvalSpec{
		Config: EvalConfig{
			ResultsCSV:  resultsCSV,
			DatasetPath: datasetPath,
			SampleSize:  sampleSize,
			Timestamp:   timestamp,
		},
		Summary: EvalSummary{
			Total:        summary.Total,
			Evaluated:    summary.Evaluated,
			Fallbacks:    summary.Fallbacks,
			Missing:      summary.Missing,
			AverageScore: summary.AverageScore,
			MedianScore:  summary.MedianScore,
			MinScore:     summary.MinScore,
			MaxScore:     summary.MaxScore,
		},
		Results: evalResults,
	}

	filename := fmt.Sprintf("evals/captions-%s.yaml", timestamp)

	data, err := yaml.Marshal(&spec)
	if err != nil {
		return "", fmt.Errorf("failed to marshal YAML: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write YAML file: %w", err)
	}

	absPath, _ := filepath.Abs(filename)
	return absPath, nil
}
