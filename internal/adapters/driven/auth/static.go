package auth

import (
	"context"
	"encoding/base64"
	"net/http"

	"github.com/custodia-labs/tidemark/internal/core/domain"
	"github.com/custodia-labs/tidemark/internal/core/ports/driven"
)

// Ensure StaticAuthenticator implements the Authenticator interface.
var _ driven.Authenticator = (*StaticAuthenticator)(nil)

// StaticAuthenticator sends the same headers with every request.
// API keys and basic credentials don't expire, so nothing is refreshed.
type StaticAuthenticator struct {
	method  domain.AuthMethod
	headers http.Header
}

// NewAPIKeyAuthenticator sends prefix+key in the named header.
func NewAPIKeyAuthenticator(header, prefix, key string) *StaticAuthenticator {
	if header == "" {
		header = "Authorization"
	}
	h := http.Header{}
	h.Set(header, prefix+key)
	return &StaticAuthenticator{method: domain.AuthMethodAPIKey, headers: h}
}

// NewBasicAuthenticator sends HTTP basic credentials.
func NewBasicAuthenticator(username, password string) *StaticAuthenticator {
	creds := base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
	h := http.Header{}
	h.Set("Authorization", "Basic "+creds)
	return &StaticAuthenticator{method: domain.AuthMethodBasic, headers: h}
}

// Headers returns a copy of the static headers.
func (a *StaticAuthenticator) Headers(_ context.Context) (http.Header, error) {
	return a.headers.Clone(), nil
}

// AuthMethod returns the configured method.
func (a *StaticAuthenticator) AuthMethod() domain.AuthMethod {
	return a.method
}
