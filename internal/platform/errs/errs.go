// Package errs defines the error-kind sentinels shared across the pipeline.
// Call sites wrap one of these with fmt.Errorf("...: %w", ErrX) so that
// errors.Is can classify a failure without string matching.
package errs

import "errors"

var (
	// ErrConfig marks a startup-fatal configuration problem.
	ErrConfig = errors.New("config error")
	// ErrSchema marks malformed input that must be dropped, not published.
	ErrSchema = errors.New("schema error")
	// ErrTransport marks a transient bus/network failure, safe to retry.
	ErrTransport = errors.New("transport error")
	// ErrProvider marks an external API failure, counted per-tick, not fatal.
	ErrProvider = errors.New("provider error")
	// ErrHandler marks a business-logic failure inside a consumer handler.
	ErrHandler = errors.New("handler error")
	// ErrDeliveryExhausted marks a message that exhausted its retry budget.
	ErrDeliveryExhausted = errors.New("delivery exhausted")
	// ErrBadEncoding marks a malformed log entry that cannot be decoded.
	ErrBadEncoding = errors.New("bad encoding")
)
