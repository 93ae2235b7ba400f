package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"sync"
	"time"
)

// ClientConfig configures a vendor HTTP client.
type ClientConfig struct {
	// Name identifies the adapter in logs and errors.
	Name string

	// BaseURL is the vendor API root.
	BaseURL string

	// APIKey authenticates requests.
	APIKey string

	// Timeout bounds a single HTTP request, including retries' individual
	// attempts.
	Timeout time.Duration

	// MaxRetries is the number of retries for transient failures.
	MaxRetries int

	MaxIdleConns        int
	MaxIdleConnsPerHost int
	IdleConnTimeout     time.Duration
}

// Client is the base implementation for HTTP-based vendor adapters. It
// provides connection pooling, retry with exponential backoff, and a health
// signal derived from consecutive failures. Concrete adapters embed it.
type Client struct {
	config ClientConfig
	client *http.Client

	mu                  sync.RWMutex
	healthy             bool
	consecutiveFailures int
	lastError           error
}

// NewClient creates a base vendor client with connection pooling.
func NewClient(config ClientConfig) *Client {
	if config.MaxIdleConns == 0 {
		config.MaxIdleConns = 100
	}
	if config.MaxIdleConnsPerHost == 0 {
		config.MaxIdleConnsPerHost = 10
	}
	if config.IdleConnTimeout == 0 {
		config.IdleConnTimeout = 90 * time.Second
	}

	transport := &http.Transport{
		MaxIdleConns:        config.MaxIdleConns,
		MaxIdleConnsPerHost: config.MaxIdleConnsPerHost,
		IdleConnTimeout:     config.IdleConnTimeout,
		ForceAttemptHTTP2:   true,
	}

	return &Client{
		config: config,
		client: &http.Client{
			Transport: transport,
			Timeout:   config.Timeout,
		},
		healthy: true, // start optimistic
	}
}

// Name returns the adapter's configured name.
func (c *Client) Name() string { return c.config.Name }

// Config returns the adapter's configuration.
func (c *Client) Config() ClientConfig { return c.config }

// Healthy reports whether the adapter has not tripped its failure breaker.
func (c *Client) Healthy() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.healthy
}

// recordResult updates the health signal after a request.
func (c *Client) recordResult(success bool, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if success {
		c.healthy = true
		c.consecutiveFailures = 0
		c.lastError = nil
		return
	}

	c.consecutiveFailures++
	c.lastError = err
	if c.consecutiveFailures >= 3 {
		c.healthy = false
		slog.Warn("vendor adapter marked unhealthy",
			"adapter", c.config.Name,
			"consecutive_failures", c.consecutiveFailures,
			"error", err,
		)
	}
}

// DoRequest performs an HTTP request with retry and backoff. Transient
// failures (network errors, 5xx) are retried; auth, rate-limit, and client
// errors are returned immediately as typed errors.
func (c *Client) DoRequest(ctx context.Context, method, url string, body []byte, headers map[string]string) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * time.Second
			slog.Debug("retrying vendor request",
				"adapter", c.config.Name,
				"attempt", attempt,
				"backoff", backoff,
			)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		var bodyReader io.Reader
		if body != nil {
			bodyReader = bytes.NewReader(body)
		}

		req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		for key, value := range headers {
			req.Header.Set(key, value)
		}
		if req.Header.Get("Content-Type") == "" && body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				c.recordResult(false, err)
				return nil, &TimeoutError{Adapter: c.config.Name, Timeout: c.config.Timeout}
			}
			slog.Warn("vendor request failed, will retry",
				"adapter", c.config.Name,
				"attempt", attempt+1,
				"error", err,
			)
			continue
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			c.recordResult(true, nil)
			return resp, nil
		}

		errorBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		switch resp.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			err := &AuthError{Adapter: c.config.Name, Message: string(errorBody)}
			c.recordResult(false, err)
			return nil, err

		case http.StatusTooManyRequests:
			return nil, &RateLimitError{
				Adapter:    c.config.Name,
				RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
				Message:    string(errorBody),
			}

		case http.StatusBadRequest, http.StatusNotFound, http.StatusConflict, http.StatusUnprocessableEntity:
			return nil, &APIError{
				Adapter:    c.config.Name,
				StatusCode: resp.StatusCode,
				Message:    string(errorBody),
			}

		default:
			// 5xx and everything else: retry.
			lastErr = &APIError{
				Adapter:    c.config.Name,
				StatusCode: resp.StatusCode,
				Message:    string(errorBody),
			}
			slog.Warn("vendor request returned error status, will retry",
				"adapter", c.config.Name,
				"status", resp.StatusCode,
				"attempt", attempt+1,
			)
		}
	}

	c.recordResult(false, lastErr)
	return nil, lastErr
}

// DoJSONRequest performs a JSON request and decodes the response body into
// respBody (when non-nil).
func (c *Client) DoJSONRequest(ctx context.Context, method, url string, reqBody, respBody interface{}, headers map[string]string) error {
	var bodyBytes []byte
	var err error
	if reqBody != nil {
		bodyBytes, err = json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
	}

	resp, err := c.DoRequest(ctx, method, url, bodyBytes, headers)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	responseBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return &ParseError{
			Adapter: c.config.Name,
			Cause:   fmt.Errorf("failed to read response: %w", err),
		}
	}

	if respBody != nil && len(responseBytes) > 0 {
		if err := json.Unmarshal(responseBytes, respBody); err != nil {
			return &ParseError{
				Adapter:     c.config.Name,
				RawResponse: string(responseBytes),
				Cause:       fmt.Errorf("failed to unmarshal response: %w", err),
			}
		}
	}

	return nil
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.client.CloseIdleConnections()
	slog.Debug("vendor client closed", "adapter", c.config.Name)
	return nil
}

// parseRetryAfter parses a Retry-After header in either delay-seconds or
// HTTP-date format.
func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}

	var seconds int
	if _, err := fmt.Sscanf(header, "%d", &seconds); err == nil {
		return time.Duration(seconds) * time.Second
	}

	if t, err := http.ParseTime(header); err == nil {
		return time.Until(t)
	}

	return 0
}
