// Package auth implements the authenticators connectors use to sign
// provider requests: static API keys and basic auth, per-request ES256
// JWTs, and OAuth token holders that refresh before expiry.
package auth
