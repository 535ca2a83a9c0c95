package config

import "errors"

// Validation errors.
var (
	ErrMissingField    = errors.New("config: required field is empty")
	ErrInvalidURL      = errors.New("config: invalid URL")
	ErrInvalidLimit    = errors.New("config: invalid limit")
	ErrInvalidDuration = errors.New("config: duration must not be negative")
)
