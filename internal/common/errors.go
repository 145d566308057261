// Package common defines shared constants and sentinel errors used across
// the client engine and the server. Callers should use errors.Is to match
// these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")

	// Remote/API errors. ErrUnavailable covers every transport-level
	// failure (timeout, unreachable host, dropped connection, DNS).
	ErrUnavailable  = errors.New("server unavailable")
	ErrUnauthorized = errors.New("unauthorized")

	// Business errors.
	ErrQuotaExceeded  = errors.New("daily send quota exceeded")
	ErrPayloadInvalid = errors.New("payload rejected")
	ErrItemExpired    = errors.New("item expired")

	// Queue errors.
	ErrAlreadyQueued = errors.New("item already queued")
	ErrNotQueued     = errors.New("item not queued")
)
