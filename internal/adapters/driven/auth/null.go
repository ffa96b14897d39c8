package auth

import (
	"context"
	"net/http"

	"github.com/custodia-labs/tidemark/internal/core/domain"
	"github.com/custodia-labs/tidemark/internal/core/ports/driven"
)

// Ensure NullAuthenticator implements both auth interfaces.
var (
	_ driven.Authenticator = (*NullAuthenticator)(nil)
	_ driven.TokenProvider = (*NullAuthenticator)(nil)
)

// NullAuthenticator is for requests that carry no credentials,
// such as pre-signed download URLs.
type NullAuthenticator struct{}

// NewNullAuthenticator creates an authenticator that sends nothing.
func NewNullAuthenticator() *NullAuthenticator {
	return &NullAuthenticator{}
}

// Headers returns no headers.
func (a *NullAuthenticator) Headers(_ context.Context) (http.Header, error) {
	return http.Header{}, nil
}

// GetToken returns an empty string since no authentication is needed.
func (a *NullAuthenticator) GetToken(_ context.Context) (string, error) {
	return "", nil
}

// AuthMethod returns AuthMethodNone.
func (a *NullAuthenticator) AuthMethod() domain.AuthMethod {
	return domain.AuthMethodNone
}

// IsAuthenticated always returns true since no-auth is always "authenticated".
func (a *NullAuthenticator) IsAuthenticated() bool {
	return true
}
