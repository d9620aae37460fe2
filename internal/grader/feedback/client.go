// Package feedback asks an external text service to explain why a
// submission failed. Its failure never fails the submission; callers
// degrade to FallbackMessage.
package feedback

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// FallbackMessage is used whenever the feedback service is unavailable.
const FallbackMessage = "Unable to generate feedback at this time. Please review your code and try again."

const (
	defaultModel       = "gpt-3.5-turbo"
	defaultTimeout     = 15 * time.Second
	defaultMaxTokens   = 500
	defaultTemperature = 0.5
)

// Explainer produces a textual hint for a failed submission.
type Explainer interface {
	Explain(ctx context.Context, code, questionDescription, diagnostic string) (string, error)
}

// Config holds feedback client settings.
type Config struct {
	BaseURL string        `yaml:"baseURL"`
	APIKey  string        `yaml:"apiKey"`
	Model   string        `yaml:"model"`
	Timeout time.Duration `yaml:"timeout"`
}

// Client calls an OpenAI-compatible chat completions endpoint.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewClient creates a feedback client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("feedback base url is required")
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Explain asks the text service for a constructive hint.
func (c *Client) Explain(ctx context.Context, code, questionDescription, diagnostic string) (string, error) {
	prompt := fmt.Sprintf(
		"A user submitted the following code for this problem:\n\nProblem: %s\n\nCode:\n%s\n\nError/Issue: %s\n\nProvide a helpful hint or explanation of what might be wrong with the code. Be constructive and educational.",
		questionDescription, code, diagnostic,
	)

	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: "You are a helpful coding mentor. Provide constructive feedback on coding problems."},
			{Role: "user", Content: prompt},
		},
		Temperature: defaultTemperature,
		MaxTokens:   defaultMaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("encode feedback request failed: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build feedback request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("feedback request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("feedback service returned %d: %s", resp.StatusCode, payload)
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode feedback response failed: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("feedback response has no choices")
	}
	return parsed.Choices[0].Message.Content, nil
}

// NoopExplainer always returns the fallback message. Used when no
// feedback service is configured.
type NoopExplainer struct{}

// Explain returns the fallback message.
func (NoopExplainer) Explain(ctx context.Context, code, questionDescription, diagnostic string) (string, error) {
	return FallbackMessage, nil
}
