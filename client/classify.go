package client

import (
	"net/http"
	"strconv"
)

const unknownStatusMessage = "An unknown error occurred"

var statusMessages = map[int]string{
	http.StatusBadRequest:           "Bad Request - The format of the request is incorrect",
	http.StatusUnauthorized:         "Unauthorized - Authentication credentials are missing or invalid",
	http.StatusForbidden:            "Forbidden - The request is not allowed",
	http.StatusNotFound:             "Not Found - The requested data is not found",
	http.StatusMethodNotAllowed:     "Method Not Allowed - The HTTP method is not supported for this endpoint",
	http.StatusNotAcceptable:        "Not Acceptable - The requested media type is not supported",
	http.StatusConflict:             "Conflict - The request could not be completed due to a conflict with the current state of the target resource",
	http.StatusPreconditionFailed:   "Precondition Failed - Could not complete request because a constraint was not met",
	http.StatusUnsupportedMediaType: "Unsupported Media Type - The media type of the request is not supported",
	http.StatusUnprocessableEntity:  "Unprocessable Entity - The request was well-formed but contains semantic errors",
	http.StatusTooManyRequests:      "Too Many Requests - The user has sent too many requests in a given amount of time",
	http.StatusInternalServerError:  "Internal Server Error - An unexpected error has occurred",
	http.StatusBadGateway:           "Bad Gateway - The server received an invalid response from an upstream server",
	http.StatusServiceUnavailable:   "Service Unavailable - The server is currently unable to handle the request",
	http.StatusGatewayTimeout:       "Gateway Timeout - The upstream server failed to send a request in the time allowed by the server",
}

// StatusMessage returns the description for status, or the generic
// unknown-error text for codes outside the table.
func StatusMessage(status int) string {
	if msg, ok := statusMessages[status]; ok {
		return msg
	}
	return unknownStatusMessage
}

// Classify turns a non-success status into an *APIError whose message is
// "<status>: <description>".
func Classify(status int) *APIError {
	return &APIError{
		Kind:    KindAPI,
		Status:  status,
		Message: strconv.Itoa(status) + ": " + StatusMessage(status),
	}
}
