package captioncmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/accessible-graphics/svgcaption/internal/batch"
	"github.com/accessible-graphics/svgcaption/internal/gemini"
	"github.com/accessible-graphics/svgcaption/internal/images"
	"github.com/accessible-graphics/svgcaption/internal/ollama"
	"github.com/accessible-graphics/svgcaption/internal/openai"
	"github.com/accessible-graphics/svgcaption/internal/providers"
	"github.com/accessible-graphics/svgcaption/internal/render"
	"github.com/accessible-graphics/svgcaption/internal/results"
)

// retryDelay is the pause before re-asking after a fallback or API error.
const retryDelay = time.Second

func executeRun(ctx context.Context, inputDir, provider, model, outputCSV, tablesPath string, retries int) error {
	tables, err := loadTables(tablesPath)
	if err != nil {
		return err
	}

	p, err := newProvider(provider)
	if err != nil {
		return err
	}

	if model == "" {
		model = defaultModel(provider)
	}

	config := providers.Config{
		Model:     model,
		Prompt:    batch.Prompt,
		MaxTokens: batch.MaxTokens,
	}

	slog.Info("Starting sync captioning", "input", inputDir, "provider", provider, "model", model)

	paths, err := images.ListSVGs(inputDir)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("no SVG files found in %s", inputDir)
	}

	rows := make([]results.CaptionResult, 0, len(paths))
	for i, path := range paths {
		name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		slog.Info("Processing image", "name", name, "progress", fmt.Sprintf("%d/%d", i+1, len(paths)))

		png, err := render.RasterizeFile(path, render.DefaultSize)
		if err != nil {
			slog.Warn("Skipping file", "path", path, "error", err)
			continue
		}

		caption := captionWithRetries(ctx, p, config, png, retries, tables)
		caption = tables.RepairMojibake(caption)

		rows = append(rows, results.CaptionResult{
			ID:         name,
			Caption:    caption,
			IsFallback: tables.IsFallback(caption),
		})
	}

	if len(rows) == 0 {
		return fmt.Errorf("no images could be captioned in %s", inputDir)
	}

	if err := results.WriteCSV(outputCSV, rows); err != nil {
		return err
	}

	logRowCounts(rows, outputCSV)
	fmt.Printf("\nResults saved to: %s\n", outputCSV)

	return nil
}

// captionWithRetries re-asks the model when it returns a refusal instead of
// a description. The last caption is kept either way so downstream filtering
// can still see what came back.
func captionWithRetries(ctx context.Context, p providers.Provider, config providers.Config, png []byte, retries int, tables *results.Tables) string {
	var caption string

	for attempt := 0; attempt <= retries; attempt++ {
		var err error
		caption, err = p.CaptionImage(ctx, config, png)
		if err != nil {
			slog.Warn("Caption request failed", "attempt", attempt+1, "error", err)
			time.Sleep(retryDelay)
			continue
		}

		caption = strings.TrimSpace(caption)
		if !tables.IsFallback(caption) {
			return caption
		}

		slog.Warn("Fallback response", "attempt", attempt+1, "caption", caption)
		time.Sleep(retryDelay)
	}

	return caption
}

func newProvider(name string) (providers.Provider, error) {
	switch name {
	case "openai":
		apiKey := os.Getenv("OPENAI_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY environment variable not set")
		}
		return openai.NewClient(apiKey), nil
	case "gemini":
		return gemini.New(), nil
	case "ollama":
		return ollama.New(), nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", name)
	}
}

func defaultModel(provider string) string {
	switch provider {
	case "openai":
		if model := os.Getenv("OPENAI_MODEL"); model != "" {
			return model
		}
		return "gpt-4o"
	case "gemini":
		if model := os.Getenv("GEMINI_MODEL"); model != "" {
			return model
		}
		return "gemini-1.5-flash"
	case "ollama":
		if model := os.Getenv("OLLAMA_MODEL"); model != "" {
			return model
		}
		return "mistral-small3.2:24b"
	default:
		return ""
	}
}
