package rest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/jpillora/backoff"

	"github.com/custodia-labs/tidemark/internal/core/domain"
	"github.com/custodia-labs/tidemark/internal/core/ports/driven"
	"github.com/custodia-labs/tidemark/internal/logger"
)

const (
	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxAttempts is the number of tries for a transient failure.
	DefaultMaxAttempts = 5

	// DefaultMinBackoff is the delay before the first retry.
	DefaultMinBackoff = time.Second

	// DefaultMaxBackoff caps the delay between retries.
	DefaultMaxBackoff = time.Minute

	// UserAgent identifies requests made by tidemark.
	UserAgent = "tidemark"

	maxErrorBody = 512
)

// Client performs authenticated GET requests with rate limiting and retry.
type Client struct {
	httpClient  *http.Client
	auth        driven.Authenticator
	limiter     *RateLimiter
	maxAttempts int
	minBackoff  time.Duration
	maxBackoff  time.Duration
	sleep       func(ctx context.Context, d time.Duration) error
	now         func() time.Time
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// WithRateLimiter sets the limiter consulted before every attempt.
func WithRateLimiter(l *RateLimiter) ClientOption {
	return func(c *Client) { c.limiter = l }
}

// WithMaxAttempts sets how many times a transient failure is tried.
func WithMaxAttempts(n int) ClientOption {
	return func(c *Client) {
		if n > 0 {
			c.maxAttempts = n
		}
	}
}

// WithBackoff sets the exponential backoff bounds.
func WithBackoff(minDelay, maxDelay time.Duration) ClientOption {
	return func(c *Client) {
		c.minBackoff = minDelay
		c.maxBackoff = maxDelay
	}
}

// WithSleep replaces the function used to wait between retries.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) ClientOption {
	return func(c *Client) { c.sleep = sleep }
}

// NewClient creates a client that authenticates every request with auth.
// A nil auth sends requests without credentials.
func NewClient(auth driven.Authenticator, opts ...ClientOption) *Client {
	c := &Client{
		httpClient:  &http.Client{Timeout: DefaultTimeout},
		auth:        auth,
		maxAttempts: DefaultMaxAttempts,
		minBackoff:  DefaultMinBackoff,
		maxBackoff:  DefaultMaxBackoff,
		sleep:       SleepContext,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.limiter == nil {
		c.limiter = NewRateLimiterWithConfig(fallbackRateLimit)
	}
	return c
}

// Get fetches rawURL with query merged over its existing parameters and
// returns the response body.
//
// 429, 5xx and network failures are retried with exponential backoff;
// a Retry-After header holds back the rate limiter instead. Other non-2xx
// responses fail immediately with an *APIError, except that a 401 drops a
// refreshable token and is tried once more. When attempts run out the
// last failure is returned.
func (c *Client) Get(ctx context.Context, rawURL string, query url.Values) ([]byte, error) {
	target, err := mergeQuery(rawURL, query)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid URL %q: %v", domain.ErrConfiguration, rawURL, err)
	}

	b := &backoff.Backoff{
		Min:    c.minBackoff,
		Max:    c.maxBackoff,
		Factor: 2,
		Jitter: true,
	}

	var lastErr error
	reauthed := false
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}

		body, retry, err := c.do(ctx, target, attempt)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !retry {
			if reauthed || !c.invalidate(err) {
				return nil, err
			}
			// One fresh token per call; a second 401 is final.
			reauthed = true
			logger.Warn("unauthorized on %s, refreshing token (attempt %d/%d)", target, attempt, c.maxAttempts)
			continue
		}
		if attempt == c.maxAttempts {
			break
		}

		var rlErr *RateLimitError
		if errors.As(err, &rlErr) && !rlErr.ResetAt.IsZero() {
			c.limiter.RecordRetryAfter(rlErr.ResetAt.Sub(c.now()))
			logger.Warn("rate limited on %s, holding requests until %s (attempt %d/%d)",
				target, rlErr.ResetAt.Format(time.RFC3339), attempt, c.maxAttempts)
			continue
		}

		delay := b.Duration()
		logger.Warn("retrying %s in %s (attempt %d/%d): %v", target, delay, attempt, c.maxAttempts, err)
		if err := c.sleep(ctx, delay); err != nil {
			return nil, err
		}
	}

	return nil, lastErr
}

// tokenInvalidator is implemented by authenticators that hold a
// refreshable token.
type tokenInvalidator interface {
	Invalidate()
}

// invalidate drops a held token after a 401 so the next attempt
// authenticates afresh. It reports whether a token was dropped.
func (c *Client) invalidate(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusUnauthorized {
		return false
	}
	inv, ok := c.auth.(tokenInvalidator)
	if !ok {
		return false
	}
	inv.Invalidate()
	return true
}

// do performs a single attempt. retry reports whether the failure is transient.
func (c *Client) do(ctx context.Context, target string, attempt int) (body []byte, retry bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, http.NoBody)
	if err != nil {
		return nil, false, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", UserAgent)

	if c.auth != nil {
		headers, err := c.auth.Headers(ctx)
		if err != nil {
			return nil, false, fmt.Errorf("authenticate: %w", err)
		}
		for k, vs := range headers {
			req.Header.Del(k)
			for _, v := range vs {
				req.Header.Add(k, v)
			}
		}
	}

	logger.Debug("GET %s", target)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, false, ctx.Err()
		}
		return nil, true, fmt.Errorf("GET %s: %w", target, err)
	}
	defer resp.Body.Close()

	body, err = io.ReadAll(resp.Body)
	if err != nil {
		if ctx.Err() != nil {
			return nil, false, ctx.Err()
		}
		return nil, true, fmt.Errorf("read %s: %w", target, err)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return body, false, nil
	case resp.StatusCode == http.StatusTooManyRequests:
		rlErr := &RateLimitError{Attempts: attempt, URL: target}
		if d := ParseRetryAfter(resp.Header, c.now()); d > 0 {
			rlErr.ResetAt = c.now().Add(d)
		}
		return nil, true, rlErr
	default:
		apiErr := &APIError{
			StatusCode: resp.StatusCode,
			Message:    truncate(string(body), maxErrorBody),
			URL:        target,
		}
		return nil, retryableStatus(resp.StatusCode), apiErr
	}
}

// mergeQuery sets query on top of the parameters already present in rawURL.
// A URL without extra parameters is returned untouched so pre-signed
// query strings survive.
func mergeQuery(rawURL string, query url.Values) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("missing scheme or host")
	}
	if len(query) == 0 {
		return rawURL, nil
	}
	merged := u.Query()
	for k, vs := range query {
		merged[k] = vs
	}
	u.RawQuery = merged.Encode()
	return u.String(), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// SleepContext waits for d or until ctx ends.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
