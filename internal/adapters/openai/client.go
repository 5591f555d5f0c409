// Package openai answers free-text messages with the OpenAI chat completions API.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	gopenai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/ewilliams-labs/song-bot/internal/core/ports"
)

const (
	DefaultModel = "gpt-3.5-turbo"

	systemPrompt = "You are a helpful assistant."
	maxTokens    = 150
	temperature  = 0.7
)

// Client is a ports.Responder backed by go-openai.
type Client struct {
	client *gopenai.Client
	model  string
	logger *zap.Logger
}

var _ ports.Responder = (*Client)(nil)

// NewClient builds a client. baseURL may be empty for the public endpoint.
func NewClient(apiKey, model, baseURL string, logger *zap.Logger) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("openai: api key is required")
	}
	if model == "" {
		model = DefaultModel
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	cfg := gopenai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	logger.Info("openai: client initialized", zap.String("model", model))
	return &Client{client: gopenai.NewClientWithConfig(cfg), model: model, logger: logger}, nil
}

// Answer implements ports.Responder.
func (c *Client) Answer(ctx context.Context, message string) (string, error) {
	req := gopenai.ChatCompletionRequest{
		Model: c.model,
		Messages: []gopenai.ChatCompletionMessage{
			{Role: gopenai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: gopenai.ChatMessageRoleUser, Content: message},
		},
		MaxTokens:   maxTokens,
		Temperature: temperature,
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		kind := classify(err)
		c.logger.Warn("openai: chat completion failed", zap.Stringer("kind", kind), zap.Error(err))
		return "", &ports.ResponderError{Kind: kind, Err: fmt.Errorf("openai: %w", err)}
	}
	if len(resp.Choices) == 0 {
		return "", &ports.ResponderError{Kind: ports.ResponderOther, Err: errors.New("openai: no choices returned")}
	}

	c.logger.Debug("openai: answered", zap.String("finish_reason", string(resp.Choices[0].FinishReason)))
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func classify(err error) ports.ResponderFailureKind {
	var apiErr *gopenai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Type == "insufficient_quota" || apiErr.Code == "insufficient_quota" {
			return ports.ResponderQuotaExceeded
		}
		if apiErr.HTTPStatusCode == http.StatusTooManyRequests {
			return ports.ResponderRateLimited
		}
		return ports.ResponderOther
	}

	var reqErr *gopenai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode == http.StatusTooManyRequests {
		return ports.ResponderRateLimited
	}
	return ports.ResponderOther
}
