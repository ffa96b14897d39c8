package domain

// AuthMethod defines how a connector authenticates its requests.
type AuthMethod string

const (
	// AuthMethodNone sends no credentials (e.g., pre-signed download URLs).
	AuthMethodNone AuthMethod = "none"
	// AuthMethodAPIKey sends a static key in a request header.
	AuthMethodAPIKey AuthMethod = "api_key"
	// AuthMethodBasic uses HTTP basic authentication.
	AuthMethodBasic AuthMethod = "basic"
	// AuthMethodJWT signs a short-lived ES256 token per request.
	AuthMethodJWT AuthMethod = "jwt"
	// AuthMethodOAuthRefresh exchanges a refresh token for access tokens.
	AuthMethodOAuthRefresh AuthMethod = "oauth_refresh"
	// AuthMethodServiceAccount uses a Google service account key.
	AuthMethodServiceAccount AuthMethod = "service_account"
)

// AuthSpec carries the provider defaults an authenticator needs beyond
// the credentials found in the source config.
type AuthSpec struct {
	// Method selects the authenticator variant.
	Method AuthMethod

	// HeaderName is the header carrying an API key (AuthMethodAPIKey).
	HeaderName string

	// HeaderPrefix is prepended to the key value, e.g. "Bearer ".
	HeaderPrefix string

	// SecretKey names the config key holding the API key or password.
	// Defaults to "api_key" for AuthMethodAPIKey and "password" for AuthMethodBasic.
	SecretKey string

	// UsernameKey names the config key holding the basic auth user.
	// Defaults to "username".
	UsernameKey string

	// ExtraHeaders are sent with every request, e.g. an API version pin.
	ExtraHeaders map[string]string

	// TokenURL is the OAuth token endpoint (AuthMethodOAuthRefresh).
	TokenURL string

	// Audience is the JWT "aud" claim (AuthMethodJWT).
	Audience string

	// Scopes are requested for service account tokens.
	Scopes []string
}

// ConnectorType describes a supported connector.
type ConnectorType struct {
	// ID is the unique identifier (e.g., "gorgias", "app_store").
	ID string
	// Name is the human-readable display name.
	Name string
	// Description provides a brief explanation of the connector.
	Description string
	// Auth describes how the connector authenticates.
	Auth AuthSpec
	// Resources lists the resources the connector can extract.
	Resources []string
	// ConfigKeys lists the configuration fields used by this connector.
	ConfigKeys []ConfigKey
}

// RequiresAuth returns true if this connector sends credentials.
func (c *ConnectorType) RequiresAuth() bool {
	return c.Auth.Method != "" && c.Auth.Method != AuthMethodNone
}

// RequiredKeys returns the config keys that must be present.
func (c *ConnectorType) RequiredKeys() []string {
	var keys []string
	for _, k := range c.ConfigKeys {
		if k.Required {
			keys = append(keys, k.Key)
		}
	}
	return keys
}

// ConfigKey describes a configuration field for a connector.
type ConfigKey struct {
	// Key is the configuration key name.
	Key string
	// Label is the human-readable label for display.
	Label string
	// Description explains what this field is for.
	Description string
	// Default is the default value for this field.
	Default string
	// Required indicates whether this field must be provided.
	Required bool
	// Secret indicates whether this field should be masked in output.
	Secret bool
}
