package resolver

import "errors"

var (
	// ErrMalformedDID is returned when a DID is not of the form
	// "alias_id:tag".
	ErrMalformedDID = errors.New("resolver: malformed DID")
	// ErrLedgerFailure wraps a Ledger.Read failure.
	ErrLedgerFailure = errors.New("resolver: ledger failure")
	// ErrStorageFailure wraps an ObjectStore failure encountered while
	// resolving.
	ErrStorageFailure = errors.New("resolver: storage failure")
	// ErrInvalidProof is returned when the fetched VCoC's proof does not
	// verify against the published Merkle root (spec.md §4.7 step 7).
	ErrInvalidProof = errors.New("resolver: invalid proof")
)
