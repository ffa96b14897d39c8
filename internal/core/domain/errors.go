package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotImplemented indicates functionality is not yet available.
	ErrNotImplemented = errors.New("not implemented")

	// ErrUnsupportedType indicates an unknown connector type or resource.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrSyncInProgress indicates a sync is already running.
	ErrSyncInProgress = errors.New("sync in progress")

	// ErrInvalidCheckpoint indicates a stored checkpoint could not be decoded.
	ErrInvalidCheckpoint = errors.New("invalid checkpoint")

	// Error taxonomy roots. Every failure surfaced by a run wraps one of these.

	// ErrConfiguration indicates the source is misconfigured: a missing
	// credential, an unknown resource, or a provider object (report,
	// account) that does not exist. Raised before any pagination begins.
	ErrConfiguration = errors.New("configuration error")

	// ErrTerminalAPI indicates a provider response that must not be retried:
	// a 4xx other than 429, malformed JSON, or a missing expected field.
	ErrTerminalAPI = errors.New("terminal API error")

	// ErrCursorStalled indicates a provider returned a continuation that
	// was already followed, which would otherwise loop forever.
	ErrCursorStalled = errors.New("pagination cursor did not advance")

	// ErrRateLimited indicates the API rate limit was exceeded and the
	// retry budget is spent.
	ErrRateLimited = errors.New("rate limited")

	// Authentication Errors.

	// ErrAuthRequired indicates the connector requires authentication but none is configured.
	ErrAuthRequired = errors.New("authentication required")

	// ErrAuthInvalid indicates the authentication credentials are invalid.
	ErrAuthInvalid = errors.New("authentication invalid")

	// ErrTokenRefreshFailed indicates token refresh operation failed.
	ErrTokenRefreshFailed = errors.New("token refresh failed")

	// Connector Errors.

	// ErrConnectorValidation indicates connector validation failed.
	// The source is misconfigured or credentials are invalid.
	ErrConnectorValidation = errors.New("connector validation failed")

	// ErrConnectorClosed indicates the connector has been closed.
	ErrConnectorClosed = errors.New("connector closed")
)
