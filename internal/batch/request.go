package batch

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"

	"github.com/accessible-graphics/svgcaption/internal/images"
)

// Prompt is the fixed instruction sent with every image.
const Prompt = "Describe the image in the context of a kid website for accessibility giving one word or max 6 words saying what the object is including numbers. Don't say emojis."

// Endpoint is the relative chat-completions endpoint batch requests target.
const Endpoint = "/v1/chat/completions"

// MaxTokens caps the caption length per request.
const MaxTokens = 50

// Request is one line of the batch submission file.
type Request struct {
	CustomID string `json:"custom_id"`
	Method   string `json:"method"`
	URL      string `json:"url"`
	Body     Body   `json:"body"`
}

// Body is the chat-completions payload embedded in a batch request.
type Body struct {
	Model     string    `json:"model"`
	Messages  []Message `json:"messages"`
	MaxTokens int       `json:"max_tokens"`
}

// Message is a chat message with mixed text and image content.
type Message struct {
	Role    string    `json:"role"`
	Content []Content `json:"content"`
}

// Content is one part of a chat message.
type Content struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

// ImageURL wraps a data URL for an image part.
type ImageURL struct {
	URL string `json:"url"`
}

// NewRequest builds the batch request for a single encoded image.
func NewRequest(model string, record images.ImageRecord) Request {
	return Request{
		CustomID: record.ID,
		Method:   "POST",
		URL:      Endpoint,
		Body: Body{
			Model: model,
			Messages: []Message{
				{
					Role: "user",
					Content: []Content{
						{Type: "text", Text: Prompt},
						{Type: "image_url", ImageURL: &ImageURL{URL: record.DataURL()}},
					},
				},
			},
			MaxTokens: MaxTokens,
		},
	}
}

// WriteJSONL serializes requests as newline-delimited JSON, one independently
// parseable object per line. Duplicate custom_ids would corrupt result
// reconciliation, so they are rejected.
func WriteJSONL(w io.Writer, requests []Request) error {
	seen := make(map[string]bool, len(requests))

	for _, request := range requests {
		if seen[request.CustomID] {
			return fmt.Errorf("duplicate custom_id in batch: %s", request.CustomID)
		}
		seen[request.CustomID] = true

		line, err := json.Marshal(request)
		if err != nil {
			return fmt.Errorf("failed to marshal request %s: %w", request.CustomID, err)
		}

		if _, err := w.Write(append(line, '\n')); err != nil {
			return fmt.Errorf("failed to write request %s: %w", request.CustomID, err)
		}
	}

	return nil
}

// ReadSubmittedIDs extracts the custom_ids from a previously written
// submission file, in file order.
func ReadSubmittedIDs(r io.Reader) ([]string, error) {
	var ids []string

	scanner := bufio.NewScanner(r)
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

		var request struct {
			CustomID string `json:"custom_id"`
		}
		if err := json.Unmarshal(line, &request); err != nil {
			return nil, fmt.Errorf("failed to parse submission line %d: %w", lineNum, err)
		}
		if request.CustomID == "" {
			return nil, fmt.Errorf("missing custom_id at submission line %d", lineNum)
		}

		ids = append(ids, request.CustomID)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading submission file: %w", err)
	}

	return ids, nil
}
