// Package ledger defines the Ledger adapter contract (spec.md C8): the
// minimal publish/read interface over an on-chain Alias Output, abstracting
// unlock conditions and storage-deposit sizing away from the anchor and
// resolver, which only ever see AliasContent.
package ledger

import (
	"context"

	"github.com/iotaledger/didanchor-go/storage"
)

// AliasContent is the on-chain state metadata published in an Alias
// Output's state_metadata field (spec.md §3/§6).
type AliasContent struct {
	IndexCID         string             `json:"index_cid"`
	MerkleRoot       []byte             `json:"merkle_root"`
	StorageEndpoints []storage.Endpoint `json:"storage_endpoints"`
}

// Ledger is the external contract spec.md §6 defines for publishing and
// reading an Alias Output's state metadata.
type Ledger interface {
	// Publish creates a new Alias Output (aliasID == nil) or updates the
	// existing one (aliasID != nil), incrementing its state index, and
	// returns the (possibly newly created) alias id.
	Publish(ctx context.Context, aliasID *string, content AliasContent) (string, error)

	// Read returns the current AliasContent for aliasID, or ok == false if
	// no such alias exists.
	Read(ctx context.Context, aliasID string) (content AliasContent, ok bool, err error)
}
