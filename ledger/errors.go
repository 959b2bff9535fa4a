package ledger

import "errors"

var (
	// ErrNotFound is returned when Read is given an alias id the ledger has
	// never seen (callers should generally prefer the ok return value; this
	// is surfaced for adapters that can't distinguish "absent" from other
	// failures cheaply).
	ErrNotFound = errors.New("ledger: alias not found")
	// ErrUnavailable wraps a failure reaching the underlying ledger client.
	ErrUnavailable = errors.New("ledger: unavailable")
	// ErrTimeout is returned when a publish exceeds its operator-configured
	// inclusion timeout (spec.md §5).
	ErrTimeout = errors.New("ledger: publish timed out waiting for inclusion")
)
