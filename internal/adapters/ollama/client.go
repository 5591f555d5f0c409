// Package ollama provides an adapter for the Ollama LLM service.
// It answers free-text messages by sending them to a local Ollama instance.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ewilliams-labs/song-bot/internal/core/ports"
)

const (
	defaultBaseURL = "http://localhost:11434"
	DefaultModel   = "deepseek-r1:8b"
)

const systemPrompt = "You are a helpful assistant."

type Client struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

var _ ports.Responder = (*Client)(nil)

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Options  *chatOptions  `json:"options,omitempty"`
}

type chatOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict"`
}

type chatResponse struct {
	Message chatMessage `json:"message"`
	Error   string      `json:"error,omitempty"`
}

func NewClient(baseURL, model string) *Client {
	baseURL = strings.TrimRight(baseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if model == "" {
		model = DefaultModel
	}
	return &Client{
		baseURL: baseURL,
		model:   model,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Answer implements ports.Responder.
func (c *Client) Answer(ctx context.Context, message string) (string, error) {
	payload := chatRequest{
		Model:  c.model,
		Stream: false,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: message},
		},
		Options: &chatOptions{Temperature: 0.7, NumPredict: 150},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", failure(ports.ResponderOther, fmt.Errorf("ollama: marshal request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return "", failure(ports.ResponderOther, fmt.Errorf("ollama: build request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", failure(ports.ResponderOther, fmt.Errorf("ollama: request failed: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return "", failure(ports.ResponderRateLimited, fmt.Errorf("ollama: unexpected status %d", resp.StatusCode))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", failure(ports.ResponderOther, fmt.Errorf("ollama: unexpected status %d", resp.StatusCode))
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", failure(ports.ResponderOther, fmt.Errorf("ollama: decode response: %w", err))
	}
	if parsed.Error != "" {
		return "", failure(ports.ResponderOther, fmt.Errorf("ollama: %s", parsed.Error))
	}

	answer := stripThinking(parsed.Message.Content)
	if answer == "" {
		return "", failure(ports.ResponderOther, errors.New("ollama: empty response"))
	}
	return answer, nil
}

// stripThinking drops the <think>...</think> preamble reasoning models emit.
func stripThinking(content string) string {
	if _, after, ok := strings.Cut(content, "</think>"); ok {
		content = after
	}
	return strings.TrimSpace(content)
}

func failure(kind ports.ResponderFailureKind, err error) error {
	return &ports.ResponderError{Kind: kind, Err: err}
}
