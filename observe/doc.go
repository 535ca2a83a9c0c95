// Package observe provides tracing, metrics and structured logging for
// upstream API calls.
//
// It is a pure instrumentation library. NewObserver sets up OpenTelemetry
// tracer and meter providers and a JSON logger; Middleware wraps each call
// with a client span, request metrics and one log line. Log fields listed in
// RedactedFields are always masked, so tokens and client secrets never reach
// log output.
package observe
