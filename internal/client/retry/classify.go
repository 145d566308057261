package retry

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/antong314/dayly/internal/client/api"
	"github.com/antong314/dayly/internal/common"
)

// Class is the retry disposition of a failure.
type Class int

const (
	// Retryable failures are silently retried until the policy is spent.
	Retryable Class = iota

	// Terminal failures mark the item permanently failed and surface to
	// the caller.
	Terminal

	// Auth failures are terminal for the current attempt and require
	// external re-authentication before any retry.
	Auth
)

func (c Class) String() string {
	switch c {
	case Retryable:
		return "retryable"
	case Terminal:
		return "terminal"
	case Auth:
		return "auth"
	default:
		return "unknown"
	}
}

// Classify maps an error onto the retry taxonomy. Transport-level failures
// and server 408/429/5xx are retryable; quota and payload validation are
// terminal; anything unrecognized is terminal too (fail closed).
func Classify(err error) Class {
	switch {
	case errors.Is(err, common.ErrUnavailable):
		return Retryable
	case errors.Is(err, context.DeadlineExceeded):
		return Retryable
	case errors.Is(err, common.ErrUnauthorized):
		return Auth
	case errors.Is(err, common.ErrQuotaExceeded),
		errors.Is(err, common.ErrPayloadInvalid):
		return Terminal
	}

	var serverErr *api.ServerError
	if errors.As(err, &serverErr) {
		s := serverErr.Status
		if s == http.StatusRequestTimeout || s == http.StatusTooManyRequests || s >= 500 {
			return Retryable
		}
		return Terminal
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return Retryable
	}

	return Terminal
}
