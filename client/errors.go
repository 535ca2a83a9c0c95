package client

import (
	"errors"
	"io"
	"net"
	"net/url"

	"github.com/jonwraymond/motapi/auth"
)

// Sentinel errors.
var (
	// ErrUnsupportedMethod is returned by Execute for methods other than GET and PUT.
	ErrUnsupportedMethod = errors.New("client: unsupported method")

	// ErrMissingCredentials is returned by New when the client id, client
	// secret or API key is empty.
	ErrMissingCredentials = errors.New("client: client id, client secret and api key are required")
)

// Kind is the failure class of an error returned by the client.
type Kind int

const (
	// KindUnknown covers nil, caller mistakes and context cancellation.
	KindUnknown Kind = iota
	// KindAuth means the token exchange failed.
	KindAuth
	// KindAPI means the upstream answered with a non-success status.
	KindAPI
	// KindTransport means no response was obtained.
	KindTransport
)

// String returns the lower-case kind name.
func (k Kind) String() string {
	switch k {
	case KindAuth:
		return "auth"
	case KindAPI:
		return "api"
	case KindTransport:
		return "transport"
	default:
		return "unknown"
	}
}

// APIError is a classified non-success response.
type APIError struct {
	Kind    Kind
	Status  int
	Message string // "<status>: <description>"
}

func (e *APIError) Error() string {
	return e.Message
}

// IsAPIError reports whether err is or wraps an *APIError.
func IsAPIError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr)
}

// KindOf classifies an error returned by the client. Transport errors are
// returned unmodified, so they are recognised by the standard library
// types an *http.Client produces; errors from a custom Doer that use none
// of those types report KindUnknown.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	if errors.Is(err, auth.ErrTokenUnavailable) {
		return KindAuth
	}
	if IsAPIError(err) {
		return KindAPI
	}

	var urlErr *url.Error
	var netErr net.Error
	if errors.As(err, &urlErr) || errors.As(err, &netErr) || errors.Is(err, io.ErrUnexpectedEOF) {
		return KindTransport
	}
	return KindUnknown
}
