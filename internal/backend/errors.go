package backend

import "errors"

var (
	// ErrInvalidProxyAddress is returned when the proxy address is not
	// "host:port".
	ErrInvalidProxyAddress = errors.New("invalid proxy address format: expected host:port")

	// ErrInvalidBaseURL is returned when a backend URL is not an absolute
	// http or https URL.
	ErrInvalidBaseURL = errors.New("invalid backend URL: expected http(s)://host[:port]")

	// ErrNoBackend is returned when a remote model is used but no backend URL
	// is configured for it.
	ErrNoBackend = errors.New("no inference backend configured")

	// ErrUnexpectedStatus is returned for non-2xx responses.
	ErrUnexpectedStatus = errors.New("unexpected status from inference backend")

	// ErrBadResponse is returned when a response body cannot be decoded or
	// holds an out of range value.
	ErrBadResponse = errors.New("malformed response from inference backend")
)
