package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"codeberg.org/luchgpt/server/internal/config"
	"codeberg.org/luchgpt/server/internal/logger"
	"codeberg.org/luchgpt/server/internal/metrics"
	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"
)

// talks to an OpenAI-compatible chat completion API
type Client struct {
	api        *openai.Client
	httpClient *http.Client
	limiter    *rate.Limiter
	maxRetries int
	backoff    time.Duration
}

var _ Completer = (*Client)(nil)

// creates a client for the configured provider
func NewClient(cfg config.AIConfig, opts ...Option) *Client {
	limit := cfg.RateLimit
	if limit <= 0 {
		limit = defaultRateLimit
	}

	burst := cfg.RateBurst
	if burst <= 0 {
		burst = defaultRateBurst
	}

	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}

	c := &Client{
		httpClient: newHTTPClient(cfg.Timeout),
		limiter:    rate.NewLimiter(rate.Limit(limit), burst),
		maxRetries: maxRetries,
		backoff:    defaultBackoff,
	}

	for _, opt := range opts {
		opt(c)
	}

	apiConfig := openai.DefaultConfig(cfg.APIKey)
	apiConfig.HTTPClient = c.httpClient

	if cfg.BaseURL != "" {
		apiConfig.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}

	c.api = openai.NewClientWithConfig(apiConfig)

	return c
}

// sends the conversation and returns the first choice
func (c *Client) Complete(ctx context.Context, req Request) (*Response, error) {
	if req.Model == "" {
		return nil, fmt.Errorf("model is required")
	}

	start := time.Now()

	resp, err := c.createWithRetry(ctx, buildRequest(req))

	metrics.AIRequestDuration.WithLabelValues(req.Model).Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.AIRequests.WithLabelValues(req.Model, metrics.OutcomeError).Inc()
		return nil, err
	}

	if len(resp.Choices) == 0 {
		metrics.AIRequests.WithLabelValues(req.Model, metrics.OutcomeError).Inc()
		return nil, fmt.Errorf("provider returned no choices")
	}

	metrics.AIRequests.WithLabelValues(req.Model, metrics.OutcomeSuccess).Inc()

	out := &Response{
		Text:  resp.Choices[0].Message.Content,
		Model: resp.Model,
	}

	if resp.Usage.TotalTokens > 0 || resp.Usage.PromptTokens > 0 {
		out.Usage = &Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		}
	}

	return out, nil
}

// ids of the models the provider serves
func (c *Client) ListModels(ctx context.Context) ([]string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	list, err := c.api.ListModels(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list models: %w", err)
	}

	ids := make([]string, 0, len(list.Models))
	for _, m := range list.Models {
		ids = append(ids, m.ID)
	}

	return ids, nil
}

func (c *Client) createWithRetry(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	var lastErr error

	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := c.backoff * time.Duration(1<<(attempt-1))

			logger.FromContext(ctx).Warn("retrying completion",
				"model", req.Model,
				"attempt", attempt+1,
				"delay", delay,
				"error", lastErr,
			)

			select {
			case <-ctx.Done():
				return openai.ChatCompletionResponse{}, ctx.Err()
			case <-time.After(delay):
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return openai.ChatCompletionResponse{}, fmt.Errorf("rate limiter: %w", err)
		}

		resp, err := c.api.CreateChatCompletion(ctx, req)
		if err == nil {
			return resp, nil
		}

		lastErr = err

		if !retryable(ctx, err) {
			break
		}
	}

	return openai.ChatCompletionResponse{}, fmt.Errorf("completion failed: %w", lastErr)
}

// 429, 5xx and transport failures are retried; other API errors are final
func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return retryableStatus(apiErr.HTTPStatusCode)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return retryableStatus(reqErr.HTTPStatusCode)
	}

	return true
}

func retryableStatus(status int) bool {
	switch status {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}

	return false
}

func buildRequest(req Request) openai.ChatCompletionRequest {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.History)+2)

	if req.SystemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.SystemPrompt,
		})
	}

	for _, turn := range req.History {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    string(turn.Role),
			Content: turn.Content,
		})
	}

	if req.ImageURL != "" {
		parts := []openai.ChatMessagePart{}

		if req.Prompt != "" {
			parts = append(parts, openai.ChatMessagePart{
				Type: openai.ChatMessagePartTypeText,
				Text: req.Prompt,
			})
		}

		parts = append(parts, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{
				URL:    req.ImageURL,
				Detail: openai.ImageURLDetailAuto,
			},
		})

		messages = append(messages, openai.ChatCompletionMessage{
			Role:         openai.ChatMessageRoleUser,
			MultiContent: parts,
		})
	} else {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleUser,
			Content: req.Prompt,
		})
	}

	return openai.ChatCompletionRequest{
		Model:       req.Model,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	}
}
