package openai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/accessible-graphics/svgcaption/internal/providers"
)

// DefaultBaseURL is the production OpenAI API endpoint.
const DefaultBaseURL = "https://api.openai.com"

// Client talks to the OpenAI API. The zero sleep and base URL are
// overridable so tests can run against httptest servers without waiting.
type Client struct {
	BaseURL    string
	APIKey     string
	httpClient *http.Client
	sleep      func(time.Duration)
}

// NewClient creates a client for the production API.
func NewClient(apiKey string) *Client {
	return &Client{
		BaseURL: DefaultBaseURL,
		APIKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
		sleep: time.Sleep,
	}
}

// NewClientWithOptions creates a client with an explicit base URL and sleep
// function, for tests.
func NewClientWithOptions(apiKey, baseURL string, sleep func(time.Duration)) *Client {
	c := NewClient(apiKey)
	c.BaseURL = baseURL
	if sleep != nil {
		c.sleep = sleep
	}
	return c
}

// CaptionImage requests a caption for a PNG image via the synchronous
// chat-completions endpoint.
func (c *Client) CaptionImage(ctx context.Context, config providers.Config, png []byte) (string, error) {
	encoded := base64.StdEncoding.EncodeToString(png)

	requestBody := map[string]interface{}{
		"model": config.Model,
		"messages": []map[string]interface{}{
			{
				"role": "user",
				"content": []map[string]interface{}{
					{
						"type": "text",
						"text": config.Prompt,
					},
					{
						"type": "image_url",
						"image_url": map[string]string{
							"url":    "data:image/png;base64," + encoded,
							"detail": "low",
						},
					},
				},
			},
		},
		"max_tokens":  config.MaxTokens,
		"temperature": config.Temperature,
	}

	jsonData, err := json.Marshal(requestBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal caption request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.BaseURL+"/v1/chat/completions", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create caption request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to call OpenAI API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("openAI API returned status %d: %s", resp.StatusCode, string(body))
	}

	var response struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return "", fmt.Errorf("failed to decode response body: %w", err)
	}

	if len(response.Choices) == 0 {
		return "", fmt.Errorf("no choices returned from OpenAI")
	}

	return response.Choices[0].Message.Content, nil
}
