package anchor

import "errors"

var (
	// ErrStorageFailure wraps an ObjectStore failure encountered while
	// staging or committing.
	ErrStorageFailure = errors.New("anchor: storage failure")
	// ErrLedgerFailure wraps a Ledger.Publish failure during CommitChanges.
	ErrLedgerFailure = errors.New("anchor: ledger failure")
	// ErrLeafMissing is returned when CommitChanges cannot generate a proof
	// for a staged DID: either the Engine has no leaf for it, or the Engine's
	// leaf count is not a power of two (see merkle.Tree.GenerateProof).
	ErrLeafMissing = errors.New("anchor: no merkle leaf for staged DID")
)
