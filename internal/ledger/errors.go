package ledger

import "fmt"

// ValidationError rejects a malformed or negative source row. It carries the
// offending row's source id so callers can surface it; normalization is
// all-or-nothing, so one bad row fails the whole day.
type ValidationError struct {
	SourceID string
	Reason   string
}

func (e *ValidationError) Error() string {
	if e.SourceID == "" {
		return "validation: " + e.Reason
	}
	return fmt.Sprintf("validation: %s (source %s)", e.Reason, e.SourceID)
}

// InvariantViolation signals an internal check failure. It is always a bug,
// never user input, and is never silently recovered.
type InvariantViolation struct {
	Reason string
}

func (e *InvariantViolation) Error() string {
	return "invariant violation: " + e.Reason
}

// UpstreamFetchError wraps a failed or timed-out category fetch. The whole
// day's ledger build is aborted; partial ledgers are never returned, and the
// carry-forward chain propagates this error rather than substituting a zero
// balance.
type UpstreamFetchError struct {
	Category string
	Err      error
}

func (e *UpstreamFetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Category, e.Err)
}

func (e *UpstreamFetchError) Unwrap() error { return e.Err }
