package driven

import (
	"context"
	"net/http"

	"github.com/custodia-labs/tidemark/internal/core/domain"
)

// Authenticator produces the headers that authenticate a provider request.
// Static variants compute them once, signing variants per call, and
// token variants refresh an expired token before answering.
type Authenticator interface {
	// Headers returns the headers to set on the next request.
	// A failure is terminal for the run.
	Headers(ctx context.Context) (http.Header, error)

	// AuthMethod returns the authentication method.
	AuthMethod() domain.AuthMethod
}

// AuthenticatorFactory builds an Authenticator from a connector's auth
// defaults and the credentials stored in a source config.
type AuthenticatorFactory interface {
	Create(ctx context.Context, spec domain.AuthSpec, config map[string]string) (Authenticator, error)
}
