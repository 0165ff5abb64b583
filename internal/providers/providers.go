package providers

import (
	"context"
)

// Config represents the configuration for a vision LLM provider
type Config struct {
	Model       string
	Prompt      string
	MaxTokens   int
	Temperature float64
}

// Provider defines the interface for a vision LLM provider
type Provider interface {
	CaptionImage(ctx context.Context, config Config, png []byte) (string, error)
}
