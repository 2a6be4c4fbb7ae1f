// Package httpx holds the retrying HTTP helper shared by the remote collaborators.
package httpx

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/reel/pkg/domain"
)

// Client retries transport failures and 5xx responses with exponential backoff.
type Client struct {
	HTTP       *http.Client
	MaxRetries int
	Backoff    time.Duration
	Logger     *slog.Logger
}

// New returns a client with a per-request timeout.
func New(timeout time.Duration, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Client{
		HTTP:       &http.Client{Timeout: timeout},
		MaxRetries: 3,
		Backoff:    time.Second,
		Logger:     logger,
	}
}

// Do sends the request, replaying body on every attempt. The caller closes the response body.
func (c *Client) Do(ctx context.Context, method, url string, headers map[string]string, body []byte) (*http.Response, error) {
	delay := c.Backoff
	for i := 0; ; i++ {
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, url, reader)
		if err != nil {
			return nil, err
		}
		for k, v := range headers {
			req.Header.Set(k, v)
		}

		resp, err := c.HTTP.Do(req)
		retryable := err != nil || resp.StatusCode >= 500
		if !retryable || i >= c.MaxRetries || ctx.Err() != nil {
			return resp, err
		}

		if err != nil {
			c.Logger.DebugContext(ctx, "request failed, retrying", "url", redact(url), "error", err, "delay", delay)
		} else {
			c.Logger.DebugContext(ctx, "server error, retrying", "url", redact(url), "status", resp.StatusCode, "delay", delay)
			resp.Body.Close()
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
}

// JSON reads a successful response, or turns a failed one into an error.
// Rejections that retrying cannot fix are marked fatal.
func JSON(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return data, nil
	}
	return nil, StatusError(resp.StatusCode, data)
}

// StatusError classifies a non-2xx response.
func StatusError(status int, body []byte) error {
	text := strings.TrimSpace(string(body))
	if len(text) > 500 {
		text = text[:500]
	}
	err := fmt.Errorf("API error %d: %s", status, text)
	switch {
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return domain.Fatal(err)
	case status == http.StatusTooManyRequests && isQuota(text):
		return domain.Fatal(err)
	default:
		return err
	}
}

func isQuota(body string) bool {
	body = strings.ToLower(body)
	return strings.Contains(body, "insufficient_quota") || strings.Contains(body, "resource_exhausted") || strings.Contains(body, "quota")
}

// redact drops query strings, which carry API keys for some providers.
func redact(url string) string {
	if i := strings.IndexByte(url, '?'); i >= 0 {
		return url[:i]
	}
	return url
}
