// Package ai provides a client for the OpenAI Responses and Embeddings APIs.
// Recommendations use structured output so the model always returns parseable JSON.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/shelfscout/shelfscout-server/internal/domain"
)

// Config holds the client configuration.
type Config struct {
	BaseURL        string
	APIKey         string
	Model          string
	EmbeddingModel string
	Timeout        time.Duration
}

// Client talks to an OpenAI-compatible API.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	apiKey         string
	model          string
	embeddingModel string
	logger         *slog.Logger
}

// NewClient creates a client. The base URL should not include the /v1 prefix.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		httpClient:     &http.Client{Timeout: timeout},
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:         cfg.APIKey,
		model:          cfg.Model,
		embeddingModel: cfg.EmbeddingModel,
		logger:         logger.With("component", "ai"),
	}
}

// recommendationSchema constrains the model to 1-3 suggestions with all fields present.
// Kept as a raw JSON document so it matches what the API expects byte for byte.
const recommendationSchema = `{
  "type": "object",
  "properties": {
    "recommendations": {
      "type": "array",
      "minItems": 1,
      "maxItems": 3,
      "items": {
        "type": "object",
        "properties": {
          "title": {"type": "string"},
          "author": {"type": "string"},
          "description": {"type": "string", "maxLength": 300},
          "reason": {"type": "string"}
        },
        "required": ["title", "author", "description", "reason"],
        "additionalProperties": false
      }
    }
  },
  "required": ["recommendations"],
  "additionalProperties": false
}`

type responsesRequest struct {
	Model        string          `json:"model"`
	Instructions string          `json:"instructions"`
	Input        string          `json:"input"`
	Text         *textFormatting `json:"text,omitempty"`
}

type textFormatting struct {
	Format textFormat `json:"format"`
}

type textFormat struct {
	Type   string          `json:"type"`
	Name   string          `json:"name"`
	Strict bool            `json:"strict"`
	Schema json.RawMessage `json:"schema"`
}

type responsesResponse struct {
	Output []struct {
		Type    string `json:"type"`
		Role    string `json:"role"`
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	} `json:"output"`
}

// Recommend asks the model for book suggestions. The instructions carry the
// persona and the reader's preferences, the prompt carries the query itself.
func (c *Client) Recommend(ctx context.Context, instructions, prompt string) ([]domain.BookSuggestion, error) {
	reqBody := responsesRequest{
		Model:        c.model,
		Instructions: instructions,
		Input:        prompt,
		Text: &textFormatting{
			Format: textFormat{
				Type:   "json_schema",
				Name:   "book_recommendations",
				Strict: true,
				Schema: json.RawMessage(recommendationSchema),
			},
		},
	}

	text, err := c.complete(ctx, reqBody)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Recommendations []domain.BookSuggestion `json:"recommendations"`
	}
	if err := json.Unmarshal([]byte(text), &parsed); err != nil {
		return nil, fmt.Errorf("parse model output: %w", err)
	}

	if len(parsed.Recommendations) == 0 {
		return nil, fmt.Errorf("model returned no recommendations")
	}

	return parsed.Recommendations, nil
}

// complete posts to the Responses API and returns the concatenated assistant text.
func (c *Client) complete(ctx context.Context, reqBody responsesRequest) (string, error) {
	b, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/responses", bytes.NewReader(b))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close() //nolint:errcheck // Read-only body

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body) //nolint:errcheck // Best-effort error detail
		c.logger.Error("Responses API request failed", "status", resp.StatusCode)
		return "", fmt.Errorf("responses API error %d: %s", resp.StatusCode, string(body))
	}

	var parsed responsesResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, item := range parsed.Output {
		if item.Type == "message" && item.Role == "assistant" {
			for _, content := range item.Content {
				if content.Type == "output_text" && strings.TrimSpace(content.Text) != "" {
					if sb.Len() > 0 {
						sb.WriteString("\n")
					}
					sb.WriteString(content.Text)
				}
			}
		}
	}

	out := strings.TrimSpace(sb.String())
	if out == "" {
		return "", fmt.Errorf("empty response from model (no output_text items found)")
	}
	return out, nil
}

// Embed returns the embedding vector for the given text.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	reqBody := map[string]any{
		"model": c.embeddingModel,
		"input": text,
	}
	b, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/embeddings", bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() //nolint:errcheck // Read-only body

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body) //nolint:errcheck // Best-effort error detail
		c.logger.Error("Embeddings API request failed", "status", resp.StatusCode)
		return nil, fmt.Errorf("embeddings API error %d: %s", resp.StatusCode, string(body))
	}

	var parsed struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, err
	}
	if len(parsed.Data) == 0 || len(parsed.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("empty embedding")
	}

	return parsed.Data[0].Embedding, nil
}
