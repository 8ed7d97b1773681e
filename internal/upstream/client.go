// Package upstream wraps the chat-completion call to OpenRouter: one POST
// carrying the built prompt as a single user message, with bearer auth, a
// fixed model, a 30-second timeout, and retry-with-backoff around
// server-side failures.
package upstream

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
	"time"

	"github.com/draftly-app/draftly/internal/config"
	"github.com/draftly-app/draftly/internal/telemetry"
)

// Client issues generation calls against an OpenAI-compatible endpoint.
type Client struct {
	cfg        config.UpstreamConfig
	httpClient *http.Client
	retry      RetryPolicy
	metrics    *telemetry.Metrics
}

func NewClient(cfg config.UpstreamConfig, metrics *telemetry.Metrics) *Client {
	retry := DefaultRetryPolicy()
	if cfg.MaxAttempts > 0 {
		retry.MaxAttempts = cfg.MaxAttempts
	}
	if cfg.RetryBaseDelay > 0 {
		retry.BaseDelay = cfg.RetryBaseDelay
	}
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
				ForceAttemptHTTP2:   true,
			},
		},
		retry:   retry,
		metrics: metrics,
	}
}

// Generate sends the prompt and returns the first choice's message content.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	if c.cfg.APIKey == "" {
		return "", ErrMissingCredential
	}

	var output string
	err := c.retry.Do(ctx, func() error {
		out, err := c.attempt(ctx, prompt)
		if err != nil {
			return err
		}
		output = out
		return nil
	}, func(attempt int, delay time.Duration) {
		slog.Info("retrying upstream request", "attempt", attempt, "delay_ms", delay.Milliseconds())
		if c.metrics != nil {
			c.metrics.RecordUpstreamRetry()
		}
	})
	if err != nil {
		if c.metrics != nil {
			c.metrics.RecordUpstreamError(errorKind(err))
		}
		return "", err
	}
	return output, nil
}

func (c *Client) attempt(ctx context.Context, prompt string) (string, error) {
	body := chatRequestBody{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "user", Content: prompt},
		},
	}
	data, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal upstream request: %w", err)
	}

	url := c.cfg.BaseURL + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("create upstream request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	// Usage attribution headers required by OpenRouter.
	req.Header.Set("HTTP-Referer", c.cfg.SiteURL)
	req.Header.Set("X-Title", c.cfg.Title)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return "", fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return "", fmt.Errorf("upstream request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read upstream response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", &Error{Status: resp.StatusCode, Message: upstreamMessage(raw)}
	}

	var parsed chatResponseBody
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", &Error{Status: resp.StatusCode, Message: "malformed response body"}
	}
	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == "" {
		return "", &Error{Status: resp.StatusCode, Message: "response missing message content"}
	}
	return parsed.Choices[0].Message.Content, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrMissingCredential):
		return "missing_credential"
	}
	var ue *Error
	if errors.As(err, &ue) {
		if ue.Status >= 500 {
			return "server_error"
		}
		if ue.Status >= 400 {
			return "client_error"
		}
		return "bad_shape"
	}
	return "network"
}

// upstreamMessage pulls the provider's error message out of an error body,
// falling back to the raw payload.
func upstreamMessage(raw []byte) string {
	var parsed struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(raw, &parsed); err == nil && parsed.Error.Message != "" {
		return parsed.Error.Message
	}
	const maxEcho = 256
	if len(raw) > maxEcho {
		raw = raw[:maxEcho]
	}
	return string(raw)
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequestBody struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponseBody struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Index        int         `json:"index"`
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
}
