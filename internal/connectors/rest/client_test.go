package rest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/tidemark/internal/core/domain"
)

type headerAuth struct {
	header http.Header
	err    error
	calls  atomic.Int32
}

func (a *headerAuth) Headers(_ context.Context) (http.Header, error) {
	a.calls.Add(1)
	if a.err != nil {
		return nil, a.err
	}
	return a.header.Clone(), nil
}

func (a *headerAuth) AuthMethod() domain.AuthMethod { return domain.AuthMethodAPIKey }

// noSleep records requested delays without waiting.
type noSleep struct {
	delays []time.Duration
}

func (s *noSleep) sleep(ctx context.Context, d time.Duration) error {
	s.delays = append(s.delays, d)
	return ctx.Err()
}

func newTestClient(auth *headerAuth, s *noSleep, opts ...ClientOption) *Client {
	limiter := NewRateLimiterWithConfig(RateLimitConfig{RequestsPerSecond: 1000, BurstSize: 100})
	limiter.sleep = s.sleep
	base := []ClientOption{
		WithRateLimiter(limiter),
		WithSleep(s.sleep),
		WithBackoff(10*time.Millisecond, 100*time.Millisecond),
	}
	if auth == nil {
		return NewClient(nil, append(base, opts...)...)
	}
	return NewClient(auth, append(base, opts...)...)
}

func TestClient_Get_SetsHeadersAndQuery(t *testing.T) {
	var gotHeader, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Get("X-Api-Key")
		gotQuery = r.URL.RawQuery
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	auth := &headerAuth{header: http.Header{"X-Api-Key": []string{"secret"}}}
	c := newTestClient(auth, &noSleep{})

	body, err := c.Get(context.Background(), srv.URL+"/items?a=1", url.Values{"b": {"2"}})
	require.NoError(t, err)

	assert.JSONEq(t, `{"ok":true}`, string(body))
	assert.Equal(t, "secret", gotHeader)
	assert.Equal(t, "a=1&b=2", gotQuery)
}

func TestClient_Get_RetriesTooManyRequests(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	s := &noSleep{}
	c := newTestClient(nil, s)

	body, err := c.Get(context.Background(), srv.URL, nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(body))
	assert.Equal(t, int32(2), calls.Load())
	assert.Len(t, s.delays, 1)
}

func TestClient_Get_HonoursRetryAfter(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set(HeaderRetryAfter, "7")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	s := &noSleep{}
	c := newTestClient(nil, s)

	_, err := c.Get(context.Background(), srv.URL, nil)
	require.NoError(t, err)

	// The limiter waits out the Retry-After; no backoff sleep happens.
	require.Len(t, s.delays, 1)
	assert.InDelta(t, 7*time.Second, s.delays[0], float64(time.Second))
	assert.True(t, c.limiter.RetryAt().After(time.Now().Add(5*time.Second)))
}

func TestClient_Get_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := newTestClient(nil, &noSleep{})

	_, err := c.Get(context.Background(), srv.URL, nil)
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_Get_GivesUpAfterMaxAttempts(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := newTestClient(nil, &noSleep{}, WithMaxAttempts(3))

	_, err := c.Get(context.Background(), srv.URL, nil)
	require.Error(t, err)
	assert.True(t, IsRateLimited(err))
	assert.ErrorIs(t, err, domain.ErrRateLimited)
	assert.Equal(t, int32(3), calls.Load())

	var rlErr *RateLimitError
	require.True(t, errors.As(err, &rlErr))
	assert.Equal(t, 3, rlErr.Attempts)
}

func TestClient_Get_TerminalStatus(t *testing.T) {
	tests := []struct {
		name   string
		status int
		check  func(error) bool
	}{
		{"bad request", http.StatusBadRequest, func(err error) bool { return errors.Is(err, domain.ErrTerminalAPI) }},
		{"not found", http.StatusNotFound, IsNotFound},
		{"unauthorized", http.StatusUnauthorized, func(err error) bool {
			return IsUnauthorized(err) && errors.Is(err, domain.ErrAuthInvalid)
		}},
		{"forbidden", http.StatusForbidden, func(err error) bool {
			return IsForbidden(err) && errors.Is(err, domain.ErrAuthInvalid)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"error":"nope"}`))
			}))
			defer srv.Close()

			c := newTestClient(nil, &noSleep{})
			_, err := c.Get(context.Background(), srv.URL, nil)

			require.Error(t, err)
			assert.True(t, tt.check(err), "unexpected error: %v", err)
			assert.False(t, IsRetryable(err))
			assert.Equal(t, int32(1), calls.Load(), "terminal status must not be retried")
			assert.Contains(t, err.Error(), "nope")
		})
	}
}

// rotatingAuth issues a new bearer token after every Invalidate.
type rotatingAuth struct {
	generation atomic.Int32
}

func (a *rotatingAuth) Headers(_ context.Context) (http.Header, error) {
	h := http.Header{}
	h.Set("Authorization", fmt.Sprintf("Bearer token-%d", a.generation.Load()))
	return h, nil
}

func (a *rotatingAuth) AuthMethod() domain.AuthMethod { return domain.AuthMethodOAuthRefresh }

func (a *rotatingAuth) Invalidate() { a.generation.Add(1) }

func TestClient_Get_RefreshesTokenOnUnauthorized(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.Header.Get("Authorization") != "Bearer token-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	auth := &rotatingAuth{}
	c := newTestClient(nil, &noSleep{})
	c.auth = auth

	_, err := c.Get(context.Background(), srv.URL, nil)
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, int32(1), auth.generation.Load())
}

func TestClient_Get_SecondUnauthorizedIsFinal(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := newTestClient(nil, &noSleep{})
	c.auth = &rotatingAuth{}

	_, err := c.Get(context.Background(), srv.URL, nil)
	require.Error(t, err)
	assert.True(t, IsUnauthorized(err))
	assert.Equal(t, int32(2), calls.Load())
}

func TestClient_Get_AuthFailureIsTerminal(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	auth := &headerAuth{err: domain.ErrTokenRefreshFailed}
	c := newTestClient(auth, &noSleep{})

	_, err := c.Get(context.Background(), srv.URL, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrTokenRefreshFailed)
	assert.Equal(t, int32(1), auth.calls.Load())
	assert.Equal(t, int32(0), calls.Load())
}

func TestClient_Get_CancelledContext(t *testing.T) {
	c := newTestClient(nil, &noSleep{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Get(ctx, "http://127.0.0.1:1", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClient_Get_InvalidURL(t *testing.T) {
	c := newTestClient(nil, &noSleep{})

	_, err := c.Get(context.Background(), "not-a-url", nil)
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestMergeQuery_KeepsURLWithoutExtraParams(t *testing.T) {
	raw := "https://bucket.example.com/seg.gz?X-Amz-Signature=a%2Fb&X-Amz-Date=1"
	got, err := mergeQuery(raw, nil)
	require.NoError(t, err)
	assert.Equal(t, raw, got)
}
