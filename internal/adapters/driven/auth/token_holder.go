package auth

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/custodia-labs/tidemark/internal/core/domain"
	"github.com/custodia-labs/tidemark/internal/core/ports/driven"
)

// Ensure TokenHolder implements both auth interfaces.
var (
	_ driven.Authenticator = (*TokenHolder)(nil)
	_ driven.TokenProvider = (*TokenHolder)(nil)
)

// DefaultRefreshBuffer is how long before expiry a token is replaced.
const DefaultRefreshBuffer = 30 * time.Second

// TokenHolder owns an OAuth access token and checks its expiry before
// every use. An expired or missing token is replaced from the source
// before it is handed out.
type TokenHolder struct {
	source oauth2.TokenSource
	method domain.AuthMethod

	mu            sync.Mutex
	token         *oauth2.Token
	refreshBuffer time.Duration
	now           func() time.Time
}

// HolderOption configures a TokenHolder.
type HolderOption func(*TokenHolder)

// WithClock sets the clock used for expiry checks.
func WithClock(now func() time.Time) HolderOption {
	return func(h *TokenHolder) { h.now = now }
}

// WithRefreshBuffer replaces tokens this long before they expire.
func WithRefreshBuffer(d time.Duration) HolderOption {
	return func(h *TokenHolder) { h.refreshBuffer = d }
}

// WithToken seeds the holder with a previously issued token.
func WithToken(tok *oauth2.Token) HolderOption {
	return func(h *TokenHolder) { h.token = tok }
}

// NewTokenHolder wraps source. source is called only when the held token
// is unusable, so it should not cache on its own.
func NewTokenHolder(source oauth2.TokenSource, method domain.AuthMethod, opts ...HolderOption) *TokenHolder {
	h := &TokenHolder{
		source:        source,
		method:        method,
		refreshBuffer: DefaultRefreshBuffer,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// NewRefreshTokenHolder exchanges a refresh token for access tokens at tokenURL.
// A rotated refresh token returned by the provider is used for the next refresh.
func NewRefreshTokenHolder(
	ctx context.Context,
	clientID, clientSecret, refreshToken, tokenURL string,
	opts ...HolderOption,
) *TokenHolder {
	conf := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint: oauth2.Endpoint{
			TokenURL:  tokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
	src := &refreshSource{ctx: ctx, conf: conf, refreshToken: refreshToken}
	return NewTokenHolder(src, domain.AuthMethodOAuthRefresh, opts...)
}

// NewServiceAccountHolder mints tokens from a Google service account key.
func NewServiceAccountHolder(
	ctx context.Context,
	credentialsJSON []byte,
	scopes []string,
	opts ...HolderOption,
) (*TokenHolder, error) {
	conf, err := google.JWTConfigFromJSON(credentialsJSON, scopes...)
	if err != nil {
		return nil, fmt.Errorf("%w: parse service account credentials: %v", domain.ErrConfiguration, err)
	}
	src := sourceFunc(func() (*oauth2.Token, error) {
		// A new source per call skips oauth2's own cache.
		return conf.TokenSource(ctx).Token()
	})
	return NewTokenHolder(src, domain.AuthMethodServiceAccount, opts...), nil
}

// Token returns a usable token, refreshing it first if needed.
func (h *TokenHolder) Token() (*oauth2.Token, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.usable(h.token) {
		return h.token, nil
	}

	tok, err := h.source.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrTokenRefreshFailed, err)
	}
	if tok == nil || tok.AccessToken == "" {
		return nil, fmt.Errorf("%w: empty access token", domain.ErrTokenRefreshFailed)
	}
	h.token = tok
	return tok, nil
}

// GetToken returns a valid access token, refreshing if necessary.
func (h *TokenHolder) GetToken(_ context.Context) (string, error) {
	tok, err := h.Token()
	if err != nil {
		return "", err
	}
	return tok.AccessToken, nil
}

// Headers returns the Authorization header for the current token.
func (h *TokenHolder) Headers(_ context.Context) (http.Header, error) {
	tok, err := h.Token()
	if err != nil {
		return nil, err
	}
	headers := http.Header{}
	headers.Set("Authorization", tok.Type()+" "+tok.AccessToken)
	return headers, nil
}

// AuthMethod returns the grant the holder was built with.
func (h *TokenHolder) AuthMethod() domain.AuthMethod {
	return h.method
}

// IsAuthenticated returns true if a usable token is currently held.
func (h *TokenHolder) IsAuthenticated() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.usable(h.token)
}

// Invalidate drops the held token so the next use refreshes.
func (h *TokenHolder) Invalidate() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.token = nil
}

// usable reports whether tok can be sent (caller must hold lock).
// Tokens without an expiry never expire.
func (h *TokenHolder) usable(tok *oauth2.Token) bool {
	if tok == nil || tok.AccessToken == "" {
		return false
	}
	if tok.Expiry.IsZero() {
		return true
	}
	return h.now().Add(h.refreshBuffer).Before(tok.Expiry)
}

type sourceFunc func() (*oauth2.Token, error)

func (f sourceFunc) Token() (*oauth2.Token, error) { return f() }

// refreshSource performs one refresh-token grant per call.
type refreshSource struct {
	ctx  context.Context
	conf *oauth2.Config

	mu           sync.Mutex
	refreshToken string
}

func (s *refreshSource) Token() (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tok, err := s.conf.TokenSource(s.ctx, &oauth2.Token{RefreshToken: s.refreshToken}).Token()
	if err != nil {
		return nil, err
	}
	if tok.RefreshToken != "" {
		s.refreshToken = tok.RefreshToken
	}
	return tok, nil
}
