// Package memledger is an in-memory reference ledger.Ledger: a single alias,
// state index incrementing on every publish, used by tests and local
// bootstrapping in place of a real Tangle client (out of scope per spec.md
// §1).
package memledger

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/iotaledger/didanchor-go/ledger"
)

type aliasState struct {
	stateIndex uint64
	content    ledger.AliasContent
}

// Ledger is a concurrency-safe, in-memory ledger.Ledger.
type Ledger struct {
	mu      sync.Mutex
	aliases map[string]aliasState
}

var _ ledger.Ledger = (*Ledger)(nil)

// New creates an empty Ledger.
func New() *Ledger {
	return &Ledger{aliases: make(map[string]aliasState)}
}

// Publish implements ledger.Ledger. A nil aliasID creates a new alias (its
// id generated with the same github.com/google/uuid dependency the teacher
// uses elsewhere for identifiers); a non-nil aliasID must already exist and
// has its state index incremented.
func (l *Ledger) Publish(_ context.Context, aliasID *string, content ledger.AliasContent) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if aliasID == nil {
		id := uuid.NewString()
		l.aliases[id] = aliasState{stateIndex: 0, content: content}
		return id, nil
	}

	existing, ok := l.aliases[*aliasID]
	if !ok {
		return "", fmt.Errorf("%w: %s", ledger.ErrNotFound, *aliasID)
	}

	l.aliases[*aliasID] = aliasState{stateIndex: existing.stateIndex + 1, content: content}
	return *aliasID, nil
}

// Read implements ledger.Ledger.
func (l *Ledger) Read(_ context.Context, aliasID string) (ledger.AliasContent, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	state, ok := l.aliases[aliasID]
	if !ok {
		return ledger.AliasContent{}, false, nil
	}
	return state.content, true, nil
}

// StateIndex returns the current state index for aliasID, for test
// assertions. ok is false if aliasID is unknown.
func (l *Ledger) StateIndex(aliasID string) (index uint64, ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	state, present := l.aliases[aliasID]
	return state.stateIndex, present
}
