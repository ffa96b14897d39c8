package auth

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/custodia-labs/tidemark/internal/core/domain"
	"github.com/custodia-labs/tidemark/internal/core/ports/driven"
)

// Ensure Factory implements the AuthenticatorFactory interface.
var _ driven.AuthenticatorFactory = (*Factory)(nil)

// Config keys read by the factory.
const (
	KeyAPIKey            = "api_key"
	KeyUsername          = "username"
	KeyPassword          = "password"
	KeyKeyID             = "key_id"
	KeyIssuerID          = "issuer_id"
	KeyKeyPath           = "key_path"
	KeyKeyBase64         = "key_base64"
	KeyClientID          = "client_id"
	KeyClientSecret      = "client_secret"
	KeyRefreshToken      = "refresh_token"
	KeyCredentialsPath   = "credentials_path"
	KeyCredentialsBase64 = "credentials_base64"
)

// Factory creates Authenticators from a connector's AuthSpec and the
// credentials in a source config.
type Factory struct {
	holderOpts []HolderOption
}

// NewFactory creates an authenticator factory. opts apply to every token
// holder it builds.
func NewFactory(opts ...HolderOption) *Factory {
	return &Factory{holderOpts: opts}
}

// Create builds the authenticator for spec.Method. Missing credentials
// fail immediately so no request is ever sent unauthenticated.
func (f *Factory) Create(ctx context.Context, spec domain.AuthSpec, cfg map[string]string) (driven.Authenticator, error) {
	var (
		a   driven.Authenticator
		err error
	)

	switch spec.Method {
	case "", domain.AuthMethodNone:
		a = NewNullAuthenticator()

	case domain.AuthMethodAPIKey:
		key, kerr := required(cfg, orDefault(spec.SecretKey, KeyAPIKey))
		if kerr != nil {
			return nil, kerr
		}
		a = NewAPIKeyAuthenticator(spec.HeaderName, spec.HeaderPrefix, key)

	case domain.AuthMethodBasic:
		user, uerr := required(cfg, orDefault(spec.UsernameKey, KeyUsername))
		if uerr != nil {
			return nil, uerr
		}
		pass, perr := required(cfg, orDefault(spec.SecretKey, KeyPassword))
		if perr != nil {
			return nil, perr
		}
		a = NewBasicAuthenticator(user, pass)

	case domain.AuthMethodJWT:
		a, err = f.jwt(spec, cfg)

	case domain.AuthMethodOAuthRefresh:
		a, err = f.refresh(ctx, spec, cfg)

	case domain.AuthMethodServiceAccount:
		a, err = f.serviceAccount(ctx, spec, cfg)

	default:
		return nil, fmt.Errorf("%w: auth method %q", domain.ErrUnsupportedType, spec.Method)
	}
	if err != nil {
		return nil, err
	}

	if len(spec.ExtraHeaders) > 0 {
		a = &extraHeaders{Authenticator: a, extra: spec.ExtraHeaders}
	}
	return a, nil
}

func (f *Factory) jwt(spec domain.AuthSpec, cfg map[string]string) (driven.Authenticator, error) {
	keyID, err := required(cfg, KeyKeyID)
	if err != nil {
		return nil, err
	}
	issuerID, err := required(cfg, KeyIssuerID)
	if err != nil {
		return nil, err
	}
	pemKey, err := readSecret(cfg, KeyKeyPath, KeyKeyBase64)
	if err != nil {
		return nil, err
	}
	return NewJWTAuthenticator(keyID, issuerID, spec.Audience, pemKey)
}

func (f *Factory) refresh(ctx context.Context, spec domain.AuthSpec, cfg map[string]string) (driven.Authenticator, error) {
	if spec.TokenURL == "" {
		return nil, fmt.Errorf("%w: no token URL for oauth refresh", domain.ErrConfiguration)
	}
	values := make(map[string]string, 3)
	for _, key := range []string{KeyClientID, KeyClientSecret, KeyRefreshToken} {
		v, err := required(cfg, key)
		if err != nil {
			return nil, err
		}
		values[key] = v
	}
	return NewRefreshTokenHolder(ctx,
		values[KeyClientID], values[KeyClientSecret], values[KeyRefreshToken],
		spec.TokenURL, f.holderOpts...), nil
}

func (f *Factory) serviceAccount(ctx context.Context, spec domain.AuthSpec, cfg map[string]string) (driven.Authenticator, error) {
	data, err := readSecret(cfg, KeyCredentialsPath, KeyCredentialsBase64)
	if err != nil {
		return nil, err
	}
	return NewServiceAccountHolder(ctx, data, spec.Scopes, f.holderOpts...)
}

// extraHeaders adds fixed headers, such as an API version pin.
type extraHeaders struct {
	driven.Authenticator
	extra map[string]string
}

// Provider exposes the wrapped authenticator, e.g. to reach a TokenProvider.
func (e *extraHeaders) Provider() driven.Authenticator {
	return e.Authenticator
}

func (e *extraHeaders) Headers(ctx context.Context) (http.Header, error) {
	h, err := e.Authenticator.Headers(ctx)
	if err != nil {
		return nil, err
	}
	for k, v := range e.extra {
		h.Set(k, v)
	}
	return h, nil
}

// TokenProviderFor returns the TokenProvider behind a, if it has one.
func TokenProviderFor(a driven.Authenticator) (driven.TokenProvider, bool) {
	if e, ok := a.(*extraHeaders); ok {
		a = e.Provider()
	}
	tp, ok := a.(driven.TokenProvider)
	return tp, ok
}

func required(cfg map[string]string, key string) (string, error) {
	v := strings.TrimSpace(cfg[key])
	if v == "" {
		return "", fmt.Errorf("%w: %w: missing %q", domain.ErrConfiguration, domain.ErrAuthRequired, key)
	}
	return v, nil
}

// readSecret loads a file named by pathKey, or decodes base64Key.
func readSecret(cfg map[string]string, pathKey, base64Key string) ([]byte, error) {
	if path := strings.TrimSpace(cfg[pathKey]); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("%w: read %s: %v", domain.ErrConfiguration, pathKey, err)
		}
		return data, nil
	}
	if encoded := strings.TrimSpace(cfg[base64Key]); encoded != "" {
		data, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, fmt.Errorf("%w: decode %s: %v", domain.ErrConfiguration, base64Key, err)
		}
		return data, nil
	}
	return nil, fmt.Errorf("%w: %w: one of %q or %q is required",
		domain.ErrConfiguration, domain.ErrAuthRequired, pathKey, base64Key)
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
