package llm

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"
)

// authStyle selects how the API key travels on the wire.
type authStyle int

const (
	authBearer authStyle = iota // Authorization: Bearer <key>
	authGoogle                  // x-goog-api-key: <key>
)

// httpClient is the shared HTTP base for all providers. Requests are JSON
// POSTs with retry on transient failures and rate limiting.
type httpClient struct {
	baseURL string
	apiKey  string
	auth    authStyle
	client  *http.Client
}

func newHTTPClient(baseURL, apiKey string, auth authStyle) httpClient {
	// RPC timeout kept generous: a 4096-token screening response on a busy
	// upstream can take well over a minute.
	return httpClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		auth:    auth,
		client: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

const (
	maxRetries        = 6
	baseRetryDelay    = 2 * time.Second
	minRateLimitDelay = 5 * time.Second // minimum delay for 429 errors
)

// retryableStatusCode returns true for HTTP status codes that warrant a retry.
func retryableStatusCode(code int) bool {
	return code == http.StatusTooManyRequests ||
		code == http.StatusBadGateway ||
		code == http.StatusServiceUnavailable ||
		code == http.StatusGatewayTimeout
}

// postJSON sends body as JSON to baseURL+path and returns the response
// bytes. Transient failures (network errors, 429/5xx) are retried with
// exponential backoff; Retry-After headers are respected.
func (c *httpClient) postJSON(ctx context.Context, path string, body []byte, contentType string) ([]byte, error) {
	url := c.baseURL + path
	if contentType == "" {
		contentType = "application/json"
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			delay := baseRetryDelay * time.Duration(1<<(attempt-1))
			slog.Warn("llm: retrying request",
				"url", url,
				"attempt", attempt,
				"delay", delay,
				"error", lastErr,
			)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}

		req.Header.Set("Content-Type", contentType)
		if c.apiKey != "" {
			switch c.auth {
			case authGoogle:
				req.Header.Set("x-goog-api-key", c.apiKey)
			default:
				req.Header.Set("Authorization", "Bearer "+c.apiKey)
			}
		}

		resp, err := c.client.Do(req)
		if err != nil {
			// Retry on network/timeout errors (not context cancellation).
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = fmt.Errorf("request to %s failed: %w", url, err)
			continue
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("reading response body: %w", err)
			continue
		}

		if resp.StatusCode == http.StatusOK {
			return respBody, nil
		}

		lastErr = fmt.Errorf("LLM API error %d: %s", resp.StatusCode, string(respBody))

		if !retryableStatusCode(resp.StatusCode) {
			return nil, lastErr
		}

		// 429s get longer waits than plain backoff.
		if resp.StatusCode == http.StatusTooManyRequests {
			rateLimitDelay := minRateLimitDelay * time.Duration(1<<attempt)
			if ra := resp.Header.Get("Retry-After"); ra != "" {
				if seconds, err := strconv.Atoi(ra); err == nil && seconds > 0 {
					headerDelay := time.Duration(seconds) * time.Second
					if headerDelay > rateLimitDelay {
						rateLimitDelay = headerDelay
					}
				}
			}
			slog.Warn("llm: rate limited, waiting before retry",
				"url", url,
				"attempt", attempt+1,
				"delay", rateLimitDelay,
			)
			select {
			case <-time.After(rateLimitDelay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}
