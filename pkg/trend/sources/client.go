// Package sources implements the external signal adapters used by the trend
// aggregator. Each adapter registers itself with the trend source registry.
package sources

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/zeromicro/go-zero/core/logx"

	"stonks-api/pkg/trend"
)

const (
	defaultTimeout          = 8 * time.Second
	defaultMaxRetries       = 1
	defaultRetryBackoffBase = 150 * time.Millisecond
	defaultUserAgent        = "stonks-api/1.0"
	maxErrorBody            = 512
)

// Option configures an adapter.
type Option func(*client)

// WithHTTPClient injects a custom http.Client, typically a recorder or test server client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithLimiter replaces the spacing limiter derived from min_interval.
func WithLimiter(l trend.Limiter) Option {
	return func(c *client) {
		if l != nil {
			c.limiter = l
		}
	}
}

// WithClock injects the time source used for date-bounded queries.
func WithClock(now func() time.Time) Option {
	return func(c *client) {
		if now != nil {
			c.now = now
		}
	}
}

// WithRetryBackoff sets the initial retry delay; it doubles per attempt.
func WithRetryBackoff(d time.Duration) Option {
	return func(c *client) {
		if d >= 0 {
			c.backoff = d
		}
	}
}

// client is the HTTP plumbing shared by every adapter.
type client struct {
	kind       trend.Kind
	baseURL    string
	apiKey     string
	token      string
	userAgent  string
	window     string
	maxResults int

	httpClient *http.Client
	limiter    trend.Limiter
	timeout    time.Duration
	maxRetries int
	backoff    time.Duration
	now        func() time.Time
}

type clientDefaults struct {
	baseURL     string
	minInterval time.Duration
	maxResults  int
	window      string
}

func newClient(kind trend.Kind, cfg *trend.SourceConfig, defaults clientDefaults, opts ...Option) *client {
	if cfg == nil {
		cfg = &trend.SourceConfig{}
	}
	c := &client{
		kind:       kind,
		baseURL:    strings.TrimRight(firstNonEmpty(cfg.BaseURL, defaults.baseURL), "/"),
		apiKey:     cfg.APIKey,
		token:      cfg.Token,
		userAgent:  firstNonEmpty(cfg.UserAgent, defaultUserAgent),
		window:     firstNonEmpty(cfg.Window, defaults.window),
		maxResults: defaults.maxResults,
		httpClient: &http.Client{},
		timeout:    defaultTimeout,
		maxRetries: defaultMaxRetries,
		backoff:    defaultRetryBackoffBase,
		now:        time.Now,
	}
	if cfg.MaxResults > 0 {
		c.maxResults = cfg.MaxResults
	}
	if cfg.Timeout > 0 {
		c.timeout = cfg.Timeout
	}
	if cfg.MaxRetries > 0 {
		c.maxRetries = cfg.MaxRetries
	}
	interval := defaults.minInterval
	if cfg.MinInterval > 0 {
		interval = cfg.MinInterval
	}
	c.limiter = trend.NewSpacingLimiter(interval)
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *client) endpoint(path string, query url.Values) string {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// do performs one logical request. The limiter wait happens first so the
// timeout only covers network time. Transport errors, 429 and 5xx are retried
// with doubling backoff; other statuses fail immediately.
func (c *client) do(ctx context.Context, method, rawURL string, body any, headers http.Header, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%s: rate limit wait: %w", c.kind, err)
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("%s: encode request: %w", c.kind, err)
		}
	}

	var lastErr error
	backoff := c.backoff
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
		if err != nil {
			return fmt.Errorf("%s: build request: %w", c.kind, err)
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", c.userAgent)
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		for k, vs := range headers {
			for _, v := range vs {
				req.Header.Add(k, v)
			}
		}

		retryable, err := c.roundTrip(req, out)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return fmt.Errorf("%s: %w", c.kind, ctx.Err())
		}
		lastErr = err
		if !retryable || attempt == c.maxRetries {
			break
		}
		logx.WithContext(ctx).Infof("%s: attempt %d failed, retrying in %s: %v", c.kind, attempt+1, backoff, err)
		select {
		case <-ctx.Done():
			return fmt.Errorf("%s: %w", c.kind, ctx.Err())
		case <-time.After(backoff):
			backoff *= 2
		}
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("%s: request failed without error detail", c.kind)
	}
	return lastErr
}

func (c *client) roundTrip(req *http.Request, out any) (retryable bool, err error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return true, fmt.Errorf("%s: transport: %w", c.kind, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return true, fmt.Errorf("%s: read response: %w", c.kind, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		retryable = resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		return retryable, fmt.Errorf("%s: http status %d: %s", c.kind, resp.StatusCode, truncate(data, maxErrorBody))
	}
	if out == nil {
		return false, nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("%s: decode response: %w: %v", c.kind, trend.ErrMalformedResponse, err)
	}
	return false, nil
}

func (c *client) bearer() http.Header {
	return http.Header{"Authorization": []string{"Bearer " + c.token}}
}

func (c *client) requireToken() error {
	if strings.TrimSpace(c.token) == "" {
		return fmt.Errorf("%s: %w", c.kind, trend.ErrMissingCredentials)
	}
	return nil
}

func (c *client) requireAPIKey() error {
	if strings.TrimSpace(c.apiKey) == "" {
		return fmt.Errorf("%s: %w", c.kind, trend.ErrMissingCredentials)
	}
	return nil
}

func malformed(kind trend.Kind, format string, args ...any) error {
	return fmt.Errorf("%s: %w: %s", kind, trend.ErrMalformedResponse, fmt.Sprintf(format, args...))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

// IsCredentialError reports whether err was caused by a missing key or token.
func IsCredentialError(err error) bool {
	return errors.Is(err, trend.ErrMissingCredentials)
}
