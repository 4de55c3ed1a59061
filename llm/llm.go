// Package llm is a small client for OpenAI-compatible chat completion APIs.
// DeepSeek is the default provider.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode"
)

// Defaults for the DeepSeek API.
const (
	DefaultBaseURL     = "https://api.deepseek.com/v1"
	DefaultModel       = "deepseek-chat"
	DefaultMaxTokens   = 4096
	DefaultTemperature = 0.2
	DefaultTimeout     = 120 * time.Second
)

// ErrNoAPIKey is returned by New when no API key is configured.
var ErrNoAPIKey = errors.New("no API key configured")

// Completer produces a completion for a single user prompt.
type Completer interface {
	Complete(ctx context.Context, prompt string) (*Completion, error)
}

// Completion is the text of a response and its token usage.
type Completion struct {
	Text        string
	TotalTokens int
	// Estimated is true when the API reported no usage and TotalTokens is
	// an estimate.
	Estimated bool
}

// Config configures a Client.
type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
}

// APIError is a non-2xx response from the API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("chat API returned HTTP %d: %s", e.StatusCode, e.Body)
}

// Client calls the /chat/completions endpoint.
type Client struct {
	cfg    Config
	client *http.Client
}

var _ Completer = (*Client)(nil)

// New creates a client, filling unset fields with the DeepSeek defaults.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, ErrNoAPIKey
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	return &Client{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.cfg.Model
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage *struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
}

// Complete sends prompt as a single user message.
func (c *Client) Complete(ctx context.Context, prompt string) (*Completion, error) {
	body, err := json.Marshal(chatRequest{
		Model:       c.cfg.Model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("chat API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}

	var cr chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return nil, fmt.Errorf("failed to decode chat response: %w", err)
	}
	if len(cr.Choices) == 0 {
		return nil, fmt.Errorf("chat response has no choices")
	}

	completion := &Completion{Text: cr.Choices[0].Message.Content}
	if cr.Usage != nil && cr.Usage.TotalTokens > 0 {
		completion.TotalTokens = cr.Usage.TotalTokens
	} else {
		completion.TotalTokens = EstimateTokens(prompt) + EstimateTokens(completion.Text)
		completion.Estimated = true
	}

	return completion, nil
}

// EstimateTokens roughly estimates the token count of text: about 1.5
// characters per token for Chinese and 4 for everything else.
func EstimateTokens(text string) int {
	han, other := 0, 0
	for _, r := range text {
		if unicode.Is(unicode.Han, r) {
			han++
		} else {
			other++
		}
	}
	return int(float64(han)/1.5 + float64(other)/4)
}
