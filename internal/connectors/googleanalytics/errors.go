package googleanalytics

import (
	"context"
	"errors"
	"io"
	"net"
	"net/url"

	"google.golang.org/api/googleapi"

	"github.com/custodia-labs/tidemark/internal/connectors/rest"
	"github.com/custodia-labs/tidemark/internal/core/domain"
)

// wrapError converts a Google API error into a *rest.APIError so it joins
// the shared taxonomy: 401 and 403 match ErrAuthInvalid, 429 and 5xx are
// retryable and every other status is terminal.
func wrapError(err error, target string) error {
	if err == nil {
		return nil
	}

	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return err
	}
	msg := gerr.Message
	if msg == "" {
		msg = gerr.Body
	}
	return &rest.APIError{StatusCode: gerr.Code, Message: msg, URL: target}
}

// retryable reports whether a failed call should be tried again. API
// errors retry on 429 and 5xx; transport failures retry unless ctx ended
// or credentials could not be obtained.
func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	var apiErr *rest.APIError
	if errors.As(err, &apiErr) {
		return rest.IsRetryable(err)
	}
	if errors.Is(err, domain.ErrTokenRefreshFailed) || errors.Is(err, domain.ErrAuthInvalid) {
		return false
	}
	var urlErr *url.Error
	var netErr net.Error
	return errors.As(err, &urlErr) || errors.As(err, &netErr) ||
		errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)
}
