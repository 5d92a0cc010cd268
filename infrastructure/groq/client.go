// Package groq implements content.Generator against an OpenAI-compatible
// chat completions endpoint. Groq is the default provider.
package groq

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"marketing-export/domain/content"
)

// Provider defaults
const (
	DefaultBaseURL = "https://api.groq.com/openai/v1"
	DefaultModel   = "llama-3.3-70b-versatile"
	DefaultTimeout = 60 * time.Second
)

// maxErrorBody bounds how much of an error response is kept in messages
const maxErrorBody = 512

// Client calls POST {baseURL}/chat/completions
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  *slog.Logger
}

// Option is a functional option for configuring Client
type Option func(*Client)

// WithBaseURL points the client at another OpenAI-compatible endpoint
func WithBaseURL(url string) Option {
	return func(c *Client) {
		if url != "" {
			c.baseURL = strings.TrimRight(url, "/")
		}
	}
}

// WithHTTPClient sets the HTTP client used for requests
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.client = client
	}
}

// WithTimeout sets the per-request timeout
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.client.Timeout = d
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a chat completions client authenticated with apiKey
func NewClient(apiKey string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("%w: llm.api_key (or GROQ_API_KEY) is not set", content.ErrGeneration)
	}

	c := &Client{
		baseURL: DefaultBaseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: DefaultTimeout},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Complete implements content.Generator
func (c *Client) Complete(ctx context.Context, req content.CompletionRequest) (*content.CompletionResponse, error) {
	model := req.Model
	if model == "" {
		model = DefaultModel
	}

	body := chatRequest{
		Model:       model,
		Temperature: req.Temperature,
		Messages:    make([]chatMessage, 0, len(req.Messages)),
	}
	for _, m := range req.Messages {
		body.Messages = append(body.Messages, chatMessage{Role: string(m.Role), Content: m.Content})
	}

	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	start := time.Now()
	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp)
	}

	var chat chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chat); err != nil {
		return nil, fmt.Errorf("%w: failed to decode response: %v", content.ErrGeneration, err)
	}

	c.logger.Debug("chat completion",
		slog.String("model", chat.Model),
		slog.Int("prompt_tokens", chat.Usage.PromptTokens),
		slog.Int("completion_tokens", chat.Usage.CompletionTokens),
		slog.Duration("elapsed", time.Since(start)),
	)

	if len(chat.Choices) == 0 {
		return nil, content.ErrEmptyResponse
	}
	text := chat.Choices[0].Message.Content
	if strings.TrimSpace(text) == "" {
		return nil, content.ErrEmptyResponse
	}

	if chat.Model != "" {
		model = chat.Model
	}
	return &content.CompletionResponse{Text: text, Model: model}, nil
}

// statusError maps a non-200 response. 408, 429 and 5xx are transient.
func statusError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	message := strings.TrimSpace(string(raw))
	var parsed errorResponse
	if json.Unmarshal(raw, &parsed) == nil && parsed.Error.Message != "" {
		message = parsed.Error.Message
	}

	sentinel := content.ErrGeneration
	if resp.StatusCode == http.StatusTooManyRequests ||
		resp.StatusCode == http.StatusRequestTimeout ||
		resp.StatusCode >= http.StatusInternalServerError {
		sentinel = content.ErrProviderUnavailable
	}
	return fmt.Errorf("%w: API error (status %d): %s", sentinel, resp.StatusCode, message)
}

func classifyTransportError(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || errors.As(err, &netErr) {
		return fmt.Errorf("%w: %w", content.ErrProviderUnavailable, err)
	}
	return fmt.Errorf("%w: failed to send request: %w", content.ErrGeneration, err)
}

// Ensure Client implements content.Generator
var _ content.Generator = (*Client)(nil)
