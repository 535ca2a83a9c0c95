package auth

import (
	"errors"
	"fmt"
)

// Sentinel errors for token acquisition.
var (
	// ErrTokenUnavailable is returned to callers whenever a token exchange
	// fails. Its message is part of the public contract.
	ErrTokenUnavailable = errors.New("Failed to obtain access token") //nolint:staticcheck // fixed user-facing message

	// ErrTokenExchange wraps the underlying cause reported through OnError.
	ErrTokenExchange = errors.New("auth: token exchange failed")

	// ErrTokenNotJWT is returned by InspectClaims for opaque tokens.
	ErrTokenNotJWT = errors.New("auth: token is not a JWT")
)

// ExchangeError reports a token endpoint response outside the 2xx range.
type ExchangeError struct {
	StatusCode int
}

func (e *ExchangeError) Error() string {
	return fmt.Sprintf("%s: status %d", ErrTokenExchange, e.StatusCode)
}

// Unwrap lets errors.Is match ErrTokenExchange.
func (e *ExchangeError) Unwrap() error {
	return ErrTokenExchange
}
