// Package llm talks to an OpenAI-compatible chat completions endpoint.
// The base URL decides the provider: Gemini's OpenAI-compatible API, OpenAI, or a local Ollama server.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	openai "github.com/sashabaranov/go-openai"
)

// DefaultBaseURL is Gemini's OpenAI-compatible endpoint.
const DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai"

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-2.0-flash"

// Completer sends one completion request and returns the model's reply.
type Completer interface {
	Complete(ctx context.Context, req Request) (*Response, error)
}

// Message represents a chat message.
type Message struct {
	Role    string `json:"role"` // "system", "user", or "assistant"
	Content string `json:"content"`
}

// Request defines a completion request.
type Request struct {
	Messages []Message

	// Temperature controls randomness. nil uses the endpoint default.
	Temperature *float64

	// MaxTokens limits response length. 0 uses the endpoint default.
	MaxTokens int

	// JSONMode asks the endpoint to return a single JSON object.
	JSONMode bool
}

// Response contains the completion result.
type Response struct {
	RequestID    string
	Content      string
	Model        string
	FinishReason string
	TokensUsed   int
}

// Client is a Completer backed by go-openai.
type Client struct {
	api        *openai.Client
	model      string
	httpClient *http.Client
	logger     *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(client *Client) {
		client.httpClient = c
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(client *Client) {
		client.logger = logger
	}
}

// WithModel overrides DefaultModel.
func WithModel(model string) ClientOption {
	return func(client *Client) {
		if model != "" {
			client.model = model
		}
	}
}

// NewClient creates a client for the endpoint at baseURL.
func NewClient(baseURL, apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		model: DefaultModel,
		httpClient: &http.Client{
			Timeout: 180 * time.Second,
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}

	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = baseURL
	cfg.HTTPClient = c.httpClient
	c.api = openai.NewClientWithConfig(cfg)

	return c
}

// Model returns the model name sent with each request.
func (c *Client) Model() string {
	return c.model
}

// Complete sends the request. Errors are classified as TransientError or FatalError.
func (c *Client) Complete(ctx context.Context, req Request) (*Response, error) {
	if len(req.Messages) == 0 {
		return nil, NewFatalError(errors.New("at least one message is required"))
	}

	requestID := uuid.New().String()

	chatReq := openai.ChatCompletionRequest{
		Model:     c.model,
		Messages:  make([]openai.ChatCompletionMessage, 0, len(req.Messages)),
		MaxTokens: req.MaxTokens,
	}
	for _, m := range req.Messages {
		chatReq.Messages = append(chatReq.Messages, openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}
	if req.Temperature != nil {
		chatReq.Temperature = float32(*req.Temperature)
	}
	if req.JSONMode {
		chatReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	start := time.Now()
	c.logger.Debug("LLM request", "request_id", requestID, "model", c.model, "messages", len(req.Messages))

	resp, err := c.api.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		c.logger.Warn("LLM request failed",
			"request_id", requestID,
			"model", c.model,
			"duration_ms", time.Since(start).Milliseconds(),
			"error", err)
		return nil, classifyError(err)
	}

	if len(resp.Choices) == 0 {
		return nil, NewTransientError(errors.New("LLM returned no choices"))
	}

	choice := resp.Choices[0]
	c.logger.Debug("LLM response",
		"request_id", requestID,
		"model", resp.Model,
		"finish_reason", choice.FinishReason,
		"tokens", resp.Usage.TotalTokens,
		"duration_ms", time.Since(start).Milliseconds())

	return &Response{
		RequestID:    requestID,
		Content:      choice.Message.Content,
		Model:        resp.Model,
		FinishReason: string(choice.FinishReason),
		TokensUsed:   resp.Usage.TotalTokens,
	}, nil
}

func classifyError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return classifyStatus(apiErr.HTTPStatusCode, err)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return classifyStatus(reqErr.HTTPStatusCode, err)
	}
	// network failures, timeouts and cancellations
	return NewTransientError(fmt.Errorf("LLM request failed: %w", err))
}

func classifyStatus(statusCode int, err error) error {
	wrapped := fmt.Errorf("LLM API error (status %d): %w", statusCode, err)

	switch {
	case statusCode == http.StatusTooManyRequests:
		return NewTransientError(wrapped)
	case statusCode >= 500:
		return NewTransientError(wrapped)
	default:
		return NewFatalError(wrapped)
	}
}
