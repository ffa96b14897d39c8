package auth

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/custodia-labs/tidemark/internal/core/domain"
	"github.com/custodia-labs/tidemark/internal/core/ports/driven"
)

// Ensure JWTAuthenticator implements the Authenticator interface.
var _ driven.Authenticator = (*JWTAuthenticator)(nil)

// DefaultJWTLifetime is how long a signed token stays valid.
const DefaultJWTLifetime = 10 * time.Minute

// JWTAuthenticator signs a fresh ES256 bearer token for every request.
type JWTAuthenticator struct {
	keyID    string
	issuerID string
	audience string
	key      *ecdsa.PrivateKey
	lifetime time.Duration
	now      func() time.Time
}

// JWTOption configures a JWTAuthenticator.
type JWTOption func(*JWTAuthenticator)

// WithJWTClock sets the clock used for iat and exp.
func WithJWTClock(now func() time.Time) JWTOption {
	return func(a *JWTAuthenticator) { a.now = now }
}

// NewJWTAuthenticator parses a PEM encoded EC private key (PKCS#8 or SEC 1).
func NewJWTAuthenticator(keyID, issuerID, audience string, pemKey []byte, opts ...JWTOption) (*JWTAuthenticator, error) {
	key, err := jwt.ParseECPrivateKeyFromPEM(pemKey)
	if err != nil {
		return nil, fmt.Errorf("%w: parse private key: %v", domain.ErrConfiguration, err)
	}
	a := &JWTAuthenticator{
		keyID:    keyID,
		issuerID: issuerID,
		audience: audience,
		key:      key,
		lifetime: DefaultJWTLifetime,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Token signs a new token.
func (a *JWTAuthenticator) Token() (string, error) {
	now := a.now()
	claims := jwt.MapClaims{
		"iss": a.issuerID,
		"iat": now.Unix(),
		"exp": now.Add(a.lifetime).Unix(),
		"aud": a.audience,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodES256, claims)
	token.Header["kid"] = a.keyID

	signed, err := token.SignedString(a.key)
	if err != nil {
		return "", fmt.Errorf("%w: sign token: %v", domain.ErrAuthInvalid, err)
	}
	return signed, nil
}

// Headers returns a bearer Authorization header with a freshly signed token.
func (a *JWTAuthenticator) Headers(_ context.Context) (http.Header, error) {
	token, err := a.Token()
	if err != nil {
		return nil, err
	}
	h := http.Header{}
	h.Set("Authorization", "Bearer "+token)
	return h, nil
}

// AuthMethod returns AuthMethodJWT.
func (a *JWTAuthenticator) AuthMethod() domain.AuthMethod {
	return domain.AuthMethodJWT
}
