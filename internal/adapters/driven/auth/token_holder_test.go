package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/custodia-labs/tidemark/internal/core/domain"
)

// countingSource issues numbered tokens valid for an hour from clock.
type countingSource struct {
	clock func() time.Time
	calls int
	err   error
}

func (s *countingSource) Token() (*oauth2.Token, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &oauth2.Token{
		AccessToken: fmt.Sprintf("token-%d", s.calls),
		TokenType:   "Bearer",
		Expiry:      s.clock().Add(time.Hour),
	}, nil
}

func TestTokenHolder_CachesUntilExpiry(t *testing.T) {
	now := time.Date(2025, 11, 15, 10, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	src := &countingSource{clock: clock}
	h := NewTokenHolder(src, domain.AuthMethodOAuthRefresh, WithClock(clock))

	tok, err := h.GetToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "token-1", tok)

	now = now.Add(30 * time.Minute)
	tok, err = h.GetToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "token-1", tok)
	assert.Equal(t, 1, src.calls)

	// Inside the refresh buffer the token is replaced.
	now = now.Add(29*time.Minute + 45*time.Second)
	tok, err = h.GetToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "token-2", tok)
	assert.Equal(t, 2, src.calls)
}

func TestTokenHolder_NeverReturnsExpiredSeed(t *testing.T) {
	now := time.Date(2025, 11, 15, 10, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	src := &countingSource{clock: clock}
	expired := &oauth2.Token{AccessToken: "stale", Expiry: now.Add(-time.Minute)}

	h := NewTokenHolder(src, domain.AuthMethodOAuthRefresh, WithClock(clock), WithToken(expired))
	assert.False(t, h.IsAuthenticated())

	headers, err := h.Headers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bearer token-1", headers.Get("Authorization"))
	assert.True(t, h.IsAuthenticated())
}

func TestTokenHolder_Invalidate(t *testing.T) {
	now := time.Now()
	clock := func() time.Time { return now }
	src := &countingSource{clock: clock}
	h := NewTokenHolder(src, domain.AuthMethodOAuthRefresh, WithClock(clock))

	_, err := h.GetToken(context.Background())
	require.NoError(t, err)
	h.Invalidate()
	tok, err := h.GetToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "token-2", tok)
}

func TestTokenHolder_RefreshFailure(t *testing.T) {
	src := &countingSource{clock: time.Now, err: errors.New("invalid_grant")}
	h := NewTokenHolder(src, domain.AuthMethodOAuthRefresh)

	_, err := h.Headers(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrTokenRefreshFailed)
	assert.Contains(t, err.Error(), "invalid_grant")
}

func TestTokenHolder_NoExpiryNeverRefreshes(t *testing.T) {
	src := &countingSource{clock: time.Now}
	h := NewTokenHolder(src, domain.AuthMethodOAuthRefresh,
		WithToken(&oauth2.Token{AccessToken: "forever"}))

	tok, err := h.GetToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "forever", tok)
	assert.Zero(t, src.calls)
}

func TestRefreshTokenHolder_Grant(t *testing.T) {
	var calls atomic.Int32
	var refreshTokens []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.PostForm.Get("grant_type"))
		assert.Equal(t, "client", r.PostForm.Get("client_id"))
		assert.Equal(t, "shh", r.PostForm.Get("client_secret"))
		refreshTokens = append(refreshTokens, r.PostForm.Get("refresh_token"))

		n := calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token":  fmt.Sprintf("access-%d", n),
			"token_type":    "Bearer",
			"expires_in":    1800,
			"refresh_token": fmt.Sprintf("refresh-%d", n+1),
		})
	}))
	defer srv.Close()

	now := time.Now()
	h := NewRefreshTokenHolder(context.Background(), "client", "shh", "refresh-1", srv.URL,
		WithClock(func() time.Time { return now }))

	tok, err := h.GetToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "access-1", tok)

	now = now.Add(time.Hour)
	tok, err = h.GetToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "access-2", tok)

	assert.Equal(t, []string{"refresh-1", "refresh-2"}, refreshTokens, "rotated refresh token is used")
	assert.Equal(t, domain.AuthMethodOAuthRefresh, h.AuthMethod())
}

func testServiceAccountJSON(t *testing.T, tokenURL string) []byte {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	der, err := x509.MarshalPKCS8PrivateKey(key)
	require.NoError(t, err)
	data, err := json.Marshal(map[string]string{
		"type":           "service_account",
		"project_id":     "test",
		"private_key_id": "kid",
		"private_key":    string(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})),
		"client_email":   "reader@test.iam.gserviceaccount.com",
		"token_uri":      tokenURL,
	})
	require.NoError(t, err)
	return data
}

func TestServiceAccountHolder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "urn:ietf:params:oauth:grant-type:jwt-bearer", r.PostForm.Get("grant_type"))
		assert.NotEmpty(t, r.PostForm.Get("assertion"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token":"sa-token","token_type":"Bearer","expires_in":3600}`)
	}))
	defer srv.Close()

	h, err := NewServiceAccountHolder(context.Background(), testServiceAccountJSON(t, srv.URL),
		[]string{"https://www.googleapis.com/auth/analytics.readonly"})
	require.NoError(t, err)

	tok, err := h.GetToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "sa-token", tok)
	assert.Equal(t, domain.AuthMethodServiceAccount, h.AuthMethod())
}

func TestServiceAccountHolder_BadJSON(t *testing.T) {
	_, err := NewServiceAccountHolder(context.Background(), []byte("{"), nil)
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}
