// Package validator defines the external contract the chain-of-custody
// engine uses to validate DID document revisions, without knowing anything
// about DID document cryptography or integration-chain rules (spec.md §6).
//
// The engine only ever calls through DocumentValidator and Chain; it never
// inspects a ResolvedDocument's fields itself.
package validator

import "context"

// ResolvedDocument is an opaque DID-document revision. The engine only needs
// a stable DID string from it; everything else is validator-private.
type ResolvedDocument interface {
	// DID returns the stable identifier this revision belongs to.
	DID() string
}

// Chain tracks one DID's accepted revisions and enforces the rules for
// appending to it.
type Chain interface {
	// TryPush appends doc to the chain if it is a valid successor to the
	// chain's current document, advancing CurrentDocument. It returns an
	// error without mutating the chain otherwise.
	TryPush(ctx context.Context, doc ResolvedDocument) error

	// CheckValidAddition reports whether doc would be accepted by TryPush,
	// without mutating the chain.
	CheckValidAddition(ctx context.Context, doc ResolvedDocument) error

	// CurrentDocument returns the chain's most recently accepted revision.
	CurrentDocument() ResolvedDocument
}

// DocumentValidator constructs Chains from a root document.
type DocumentValidator interface {
	// NewChain validates that root is an acceptable first revision and
	// returns a Chain seeded with it. It fails if root is not a valid root
	// document.
	NewChain(ctx context.Context, root ResolvedDocument) (Chain, error)
}
