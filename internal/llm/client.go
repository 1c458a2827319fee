// Package llm talks to the Anthropic Messages API and builds the assistant
// features (analysis, step generation, chat) on top of it.
package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"gather/pkg/circuitbreaker"
	"gather/pkg/config"
	"gather/pkg/metrics"
	"gather/pkg/otel"
)

const (
	anthropicVersion = "2023-06-01"
	maxRetries       = 3
)

var ErrNotConfigured = errors.New("anthropic api key not configured")

// APIError is a non-2xx reply from the API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("anthropic api returned status %d: %s", e.StatusCode, e.Body)
}

func (e *APIError) retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system,omitempty"`
	Messages  []Message `json:"messages"`
	Stream    bool      `json:"stream,omitempty"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Error      *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Client is safe for concurrent use.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	maxTokens  int
	httpClient *http.Client
	// streamClient has no total timeout; streams end with ctx.
	streamClient *http.Client
	breaker      *circuitbreaker.CircuitBreaker
	logger       *zap.Logger
	backoff      func(attempt int) time.Duration
}

func NewClient(cfg config.AnthropicConfig, logger *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.anthropic.com/v1"
	}
	bcfg := circuitbreaker.DefaultConfig()
	bcfg.OnStateChange = func(from, to circuitbreaker.State) {
		logger.Warn("Anthropic circuit breaker state changed",
			zap.String("from", from.String()),
			zap.String("to", to.String()),
		)
	}
	return &Client{
		apiKey:       cfg.APIKey,
		baseURL:      baseURL,
		model:        cfg.Model,
		maxTokens:    maxTokens,
		httpClient:   &http.Client{Timeout: timeout},
		streamClient: &http.Client{},
		breaker:      circuitbreaker.NewCircuitBreaker(bcfg),
		logger:       logger,
		backoff: func(attempt int) time.Duration {
			return time.Duration(1<<uint(attempt-1)) * time.Second
		},
	}
}

func (c *Client) Configured() bool { return c.apiKey != "" }

// Ready returns ErrNotConfigured or circuitbreaker.ErrCircuitBreakerOpen
// when a call made now would fail without reaching the API.
func (c *Client) Ready() error {
	if !c.Configured() {
		return ErrNotConfigured
	}
	return c.breaker.Allow()
}

// Complete sends a conversation and returns the text of the reply. 429 and
// 5xx replies are retried with exponential backoff.
func (c *Client) Complete(ctx context.Context, op, system string, msgs []Message) (string, error) {
	if !c.Configured() {
		return "", ErrNotConfigured
	}
	start := time.Now()
	var out string
	err := otel.ClientSpan(ctx, "anthropic."+op, func(ctx context.Context) error {
		return c.breaker.Execute(func() error {
			var err error
			out, err = c.completeWithRetry(ctx, system, msgs)
			return err
		})
	})
	c.record(op, err, start)
	if err != nil {
		c.logger.Error("Anthropic completion failed",
			zap.String("operation", op),
			zap.Duration("took", time.Since(start)),
			zap.Error(err),
		)
		return "", err
	}
	c.logger.Debug("Anthropic completion finished",
		zap.String("operation", op),
		zap.Duration("took", time.Since(start)),
		zap.Int("response_len", len(out)),
	)
	return out, nil
}

func (c *Client) record(op string, err error, start time.Time) {
	status := "ok"
	if err != nil {
		status = "error"
		if errors.Is(err, circuitbreaker.ErrCircuitBreakerOpen) {
			status = "breaker_open"
		}
	}
	metrics.RecordLLMCallLatency(op, status, time.Since(start))
}

func (c *Client) completeWithRetry(ctx context.Context, system string, msgs []Message) (string, error) {
	body, err := json.Marshal(messagesRequest{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		System:    system,
		Messages:  msgs,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(c.backoff(attempt)):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}
		text, err := c.doComplete(ctx, body)
		if err == nil {
			return text, nil
		}
		lastErr = err
		var apiErr *APIError
		if errors.As(err, &apiErr) && !apiErr.retryable() {
			return "", err
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		c.logger.Warn("Anthropic request failed, retrying", zap.Int("attempt", attempt+1), zap.Error(err))
	}
	return "", fmt.Errorf("max retries exceeded: %w", lastErr)
}

func (c *Client) newRequest(ctx context.Context, body []byte) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/messages", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)
	return req, nil
}

func (c *Client) doComplete(ctx context.Context, body []byte) (string, error) {
	req, err := c.newRequest(ctx, body)
	if err != nil {
		return "", err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", &APIError{StatusCode: resp.StatusCode, Body: truncate(string(raw), 512)}
	}

	var parsed messagesResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("api error: %s", parsed.Error.Message)
	}
	var b strings.Builder
	for _, block := range parsed.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", errors.New("no completion returned")
	}
	return text, nil
}

// Stream sends a conversation with streaming enabled. Text deltas arrive on
// the first channel; both channels are closed when the stream ends, and at
// most one error is delivered. Cancelling ctx stops the stream.
func (c *Client) Stream(ctx context.Context, op, system string, msgs []Message) (<-chan string, <-chan error) {
	deltas := make(chan string, 16)
	errs := make(chan error, 1)

	go func() {
		defer close(deltas)
		defer close(errs)
		start := time.Now()
		err := c.stream(ctx, op, system, msgs, deltas)
		c.record(op+"_stream", err, start)
		if err != nil {
			c.logger.Warn("Anthropic stream ended with error", zap.String("operation", op), zap.Error(err))
			errs <- err
		}
	}()
	return deltas, errs
}

func (c *Client) stream(ctx context.Context, op, system string, msgs []Message, out chan<- string) error {
	if !c.Configured() {
		return ErrNotConfigured
	}
	body, err := json.Marshal(messagesRequest{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		System:    system,
		Messages:  msgs,
		Stream:    true,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	var resp *http.Response
	err = c.breaker.Execute(func() error {
		req, err := c.newRequest(ctx, body)
		if err != nil {
			return err
		}
		req.Header.Set("Accept", "text/event-stream")
		r, err := c.streamClient.Do(req)
		if err != nil {
			return fmt.Errorf("request failed: %w", err)
		}
		if r.StatusCode != http.StatusOK {
			raw, _ := io.ReadAll(r.Body)
			r.Body.Close()
			return &APIError{StatusCode: r.StatusCode, Body: truncate(string(raw), 512)}
		}
		resp = r
		return nil
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	// Closing the body unblocks the scanner when ctx is cancelled.
	stop := context.AfterFunc(ctx, func() { resp.Body.Close() })
	defer stop()

	err = readSSE(resp.Body, func(text string) bool {
		select {
		case out <- text:
			return true
		case <-ctx.Done():
			return false
		}
	})
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

type streamEvent struct {
	Type  string `json:"type"`
	Delta *struct {
		Type string `json:"type"`
		Text string `json:"text,omitempty"`
	} `json:"delta,omitempty"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// readSSE feeds content_block_delta text to emit until message_stop, the
// end of the body, or emit returning false.
func readSSE(r io.Reader, emit func(string) bool) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "" || data == "[DONE]" {
			continue
		}
		var evt streamEvent
		if err := json.Unmarshal([]byte(data), &evt); err != nil {
			continue
		}
		switch evt.Type {
		case "error":
			if evt.Error != nil {
				return fmt.Errorf("api error: %s", evt.Error.Message)
			}
			return errors.New("api error")
		case "content_block_delta":
			if evt.Delta != nil && evt.Delta.Text != "" && !emit(evt.Delta.Text) {
				return nil
			}
		case "message_stop":
			return nil
		}
	}
	return scanner.Err()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
