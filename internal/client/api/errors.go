package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"

	"github.com/antong314/dayly/internal/common"
)

// ServerError is a non-2xx response that did not map to a sentinel. The
// retry coordinator decides from Status whether it is worth retrying.
type ServerError struct {
	Status int
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server error: %s", http.StatusText(e.Status))
}

// mapStatus converts an HTTP response status into the engine's error
// taxonomy.
func mapStatus(status int) error {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return common.ErrUnauthorized
	case http.StatusConflict:
		return common.ErrQuotaExceeded
	case http.StatusRequestEntityTooLarge, http.StatusUnsupportedMediaType, http.StatusUnprocessableEntity:
		return common.ErrPayloadInvalid
	default:
		return &ServerError{Status: status}
	}
}

// mapTransportErr folds the zoo of net/http transport failures (timeouts,
// refused connections, DNS errors, cancelled dials) into ErrUnavailable so
// callers classify them uniformly. Context cancellation passes through.
func mapTransportErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return err
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		if errors.Is(urlErr.Err, context.Canceled) {
			return context.Canceled
		}
		return fmt.Errorf("%w: %v", common.ErrUnavailable, urlErr.Err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return fmt.Errorf("%w: %v", common.ErrUnavailable, netErr)
	}

	return err
}
