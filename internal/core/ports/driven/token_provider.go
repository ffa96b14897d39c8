package driven

import (
	"context"

	"github.com/custodia-labs/tidemark/internal/core/domain"
)

// TokenProvider provides raw access tokens for SDK clients that set their
// own Authorization header (e.g., Google API clients).
// Implementations check expiry before each call and refresh transparently.
type TokenProvider interface {
	// GetToken returns a valid access token.
	// If the current token is expired, it will be refreshed first.
	GetToken(ctx context.Context) (string, error)

	// AuthMethod returns the authentication method.
	AuthMethod() domain.AuthMethod

	// IsAuthenticated returns true if a valid token is currently held.
	IsAuthenticated() bool
}
