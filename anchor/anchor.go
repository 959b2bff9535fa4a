// Package anchor implements the commit engine (spec.md C6): it stages
// per-DID document updates against a coc.Engine and batch-publishes them to
// storage and the ledger, maintaining the ordering guarantee that a reader
// never observes a torn view (spec.md §4.6/§5: objects, then index, then
// ledger, then unpins).
//
// Anchor is not internally synchronized: spec.md §5 places single-owner
// discipline on the caller, the same way the teacher's MassifCommitter
// relies on caller discipline plus storage-level optimistic concurrency
// rather than an in-process mutex.
package anchor

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/datatrails/go-datatrails-common/logger"

	"github.com/iotaledger/didanchor-go/checkpoint"
	"github.com/iotaledger/didanchor-go/coc"
	"github.com/iotaledger/didanchor-go/digest"
	"github.com/iotaledger/didanchor-go/internal/metrics"
	"github.com/iotaledger/didanchor-go/ledger"
	"github.com/iotaledger/didanchor-go/storage"
	"github.com/iotaledger/didanchor-go/validator"
)

// Config is the subset of internal/config.AnchorConfig the Anchor needs at
// construction time; kept separate so this package does not depend on
// internal/config.
type Config struct {
	AliasID          *string
	IndexCID         *string
	StorageEndpoints []storage.Endpoint
}

// Anchor holds the storage facade, CoC engine, DID index, staged updates,
// ledger handle, and the previous index CID, per spec.md §3's AnchorState.
type Anchor struct {
	storage   *storage.Facade
	engine    *coc.Engine
	ledger    ledger.Ledger
	log       logger.Logger
	metrics   *metrics.Metrics
	signer    checkpoint.Signer // optional; nil disables checkpoint signing
	encode    coc.Encoder
	decode    coc.Decoder

	index         storage.DIDIndex
	staged        map[string]coc.ChainOfCustody
	aliasID       *string
	indexCID      *string
	checkpointCID *string
	cfg           Config
}

// New constructs an Anchor. If cfg.IndexCID is set, the DID index is loaded
// from storage up front (spec.md §4.6 "Startup"); cfg.AliasID is only
// recorded as the alias to publish to.
func New(ctx context.Context, cfg Config, store *storage.Facade, v validator.DocumentValidator, encode coc.Encoder, decode coc.Decoder, l ledger.Ledger, d digest.Digest, log logger.Logger, m *metrics.Metrics, signer checkpoint.Signer) (*Anchor, error) {
	a := &Anchor{
		storage: store,
		engine:  coc.NewEngine(d, v, encode),
		ledger:  l,
		log:     log,
		metrics: m,
		signer:  signer,
		encode:  encode,
		decode:  decode,
		index:   storage.DIDIndex{},
		staged:  make(map[string]coc.ChainOfCustody),
		aliasID: cfg.AliasID,
		cfg:     cfg,
	}

	if cfg.IndexCID != nil {
		index, err := store.GetIndex(ctx, cfg.StorageEndpoints, *cfg.IndexCID)
		if err != nil {
			return nil, fmt.Errorf("startup: loading index %s: %w", *cfg.IndexCID, err)
		}
		a.index = index
		a.indexCID = cfg.IndexCID

		if err := a.loadEngineFromIndex(ctx); err != nil {
			return nil, err
		}
	}

	return a, nil
}

// loadEngineFromIndex fetches and decodes every DID's current chain from
// storage and pushes it into the Engine's tree, rebuilding this process's
// view of the committed state (spec.md §4.6 "Startup"). DIDs are visited, and
// so pushed as leaves, in sorted order. The Merkle root depends on leaf
// order, so the rebuilt root equals the last published one only when the
// DIDs were originally pushed in that same sorted order.
func (a *Anchor) loadEngineFromIndex(ctx context.Context) error {
	dids := make([]string, 0, len(a.index))
	for did := range a.index {
		dids = append(dids, did)
	}
	sort.Strings(dids)

	for _, did := range dids {
		_, cocBytes, err := a.storage.Get(ctx, a.index, a.cfg.StorageEndpoints, did)
		if err != nil {
			return fmt.Errorf("startup: fetching chain for %s: %w", did, err)
		}
		chain, err := coc.DecodeChain(cocBytes, a.decode)
		if err != nil {
			return fmt.Errorf("startup: decoding chain for %s: %w", did, err)
		}
		if err := a.engine.Load(chain); err != nil {
			return fmt.Errorf("startup: loading chain for %s: %w", did, err)
		}
	}
	return nil
}

// UpdateDocument stages doc as the next revision for its DID (spec.md
// §4.6's "update_document"). It looks up the DID's current chain first in
// the staged map, then in committed storage via the DID index, and finally
// falls back to treating doc as a root document.
func (a *Anchor) UpdateDocument(ctx context.Context, doc validator.ResolvedDocument) error {
	did := doc.DID()

	current, err := a.currentChain(ctx, did)
	if err != nil {
		return err
	}

	updated, err := a.engine.Update(ctx, current, doc)
	if err != nil {
		return err
	}

	a.staged[did] = updated
	if a.metrics != nil {
		a.metrics.StagedDIDs.Set(float64(len(a.staged)))
	}
	return nil
}

// currentChain returns the DID's current chain: the staged chain if the DID
// was updated since the last commit, otherwise the committed chain fetched
// from storage through the DID index, or nil if the DID has no index entry.
func (a *Anchor) currentChain(ctx context.Context, did string) (*coc.ChainOfCustody, error) {
	if chain, ok := a.staged[did]; ok {
		return &chain, nil
	}

	if _, ok := a.index[did]; !ok {
		return nil, nil
	}

	_, cocBytes, err := a.storage.Get(ctx, a.index, a.cfg.StorageEndpoints, did)
	if err != nil {
		return nil, fmt.Errorf("%w: fetching current chain for %s: %v", ErrStorageFailure, did, err)
	}

	chain, err := coc.DecodeChain(cocBytes, a.decode)
	if err != nil {
		return nil, fmt.Errorf("%w: decoding current chain for %s: %v", ErrStorageFailure, did, err)
	}
	return &chain, nil
}

// pendingUnpin records a superseded CID to release only after the ledger
// publish that supersedes it succeeds.
type pendingUnpin struct {
	did    string
	oldCID string
}

// CommitChanges batch-publishes every staged update (spec.md §4.6's
// "commit_changes"). The staged map is cleared up front, before any write.
// If the commit then fails, the updates of that batch are not put back into
// the staged map, so a later call does not store their VCoCs again.
//
// Ordering: (1) write every new VCoC object, (2) publish the new DID index,
// (3) publish the new AliasContent on the ledger — only past this point are
// the new objects and index externally reachable via the commit oracle —
// (4) unpin every superseded CID. A failure at (1)-(3) leaves prior ledger
// state authoritative and new objects orphaned-but-pinned for a retry; it
// does not roll back the in-memory Merkle tree (spec.md §9 OQ-5).
func (a *Anchor) CommitChanges(ctx context.Context) (string, error) {
	start := time.Now()
	aliasID, err := a.commitChanges(ctx)
	if a.metrics != nil {
		outcome := "success"
		if err != nil {
			outcome = commitOutcome(err)
		}
		a.metrics.ObserveCommit(outcome, time.Since(start).Seconds())
	}
	return aliasID, err
}

func commitOutcome(err error) string {
	switch {
	case errors.Is(err, ErrLedgerFailure):
		return "ledger_error"
	case errors.Is(err, ErrStorageFailure):
		return "storage_error"
	default:
		return "error"
	}
}

func (a *Anchor) commitChanges(ctx context.Context) (string, error) {
	batch := a.staged
	a.staged = make(map[string]coc.ChainOfCustody)
	if a.metrics != nil {
		a.metrics.StagedDIDs.Set(0)
	}

	var toUnpin []pendingUnpin

	for did, chain := range batch {
		proof := a.engine.GenerateProof(did)
		if proof == nil {
			return "", fmt.Errorf("%w: %s", ErrLeafMissing, did)
		}

		cocBytes, err := chain.Bytes(a.encode)
		if err != nil {
			return "", err
		}

		cid, err := a.storage.Add(ctx, proof, cocBytes)
		if err != nil {
			return "", fmt.Errorf("%w: storing VCoC for %s: %v", ErrStorageFailure, did, err)
		}

		if oldCID, ok := a.index[did]; ok {
			toUnpin = append(toUnpin, pendingUnpin{did: did, oldCID: oldCID})
		}
		a.index[did] = cid
	}

	newIndexCID, err := a.storage.PublishIndex(ctx, a.index)
	if err != nil {
		return "", fmt.Errorf("%w: publishing index: %v", ErrStorageFailure, err)
	}

	content := ledger.AliasContent{
		IndexCID:         newIndexCID,
		MerkleRoot:       a.engine.MerkleRoot(),
		StorageEndpoints: a.cfg.StorageEndpoints,
	}

	aliasID, err := a.ledger.Publish(ctx, a.aliasID, content)
	if err != nil {
		return "", fmt.Errorf("%w: publishing ledger content: %v", ErrLedgerFailure, err)
	}

	previousIndexCID := a.indexCID
	a.aliasID = &aliasID
	a.indexCID = &newIndexCID

	if a.signer != nil {
		cid, err := a.signCheckpoint(ctx, aliasID, content.MerkleRoot)
		if err != nil {
			// Non-fatal: the ledger publish this checkpoint would attest to
			// has already succeeded and is the durable source of truth.
			a.log.Infof("commit_changes: signing checkpoint failed, non-fatal: %v", err)
		} else {
			a.checkpointCID = &cid
		}
	}

	for _, u := range toUnpin {
		if err := a.storage.Unpin(ctx, u.oldCID); err != nil {
			a.log.Infof("commit_changes: unpin %s (superseding %s) failed, non-fatal: %v", u.oldCID, u.did, err)
		}
	}
	if previousIndexCID != nil {
		if err := a.storage.Unpin(ctx, *previousIndexCID); err != nil {
			a.log.Infof("commit_changes: unpin previous index %s failed, non-fatal: %v", *previousIndexCID, err)
		}
	}

	return aliasID, nil
}

func (a *Anchor) signCheckpoint(ctx context.Context, aliasID string, root []byte) (string, error) {
	state := checkpoint.State{
		AliasID:    aliasID,
		MerkleRoot: root,
		Timestamp:  time.Now().UnixMilli(),
	}

	signed, err := checkpoint.Sign(a.signer, state)
	if err != nil {
		return "", err
	}

	return a.storage.AddRaw(ctx, signed)
}

// AliasID returns the ledger alias this Anchor currently publishes to, or
// nil if it has never committed.
func (a *Anchor) AliasID() *string { return a.aliasID }

// IndexCID returns the most recently published DID-index CID, or nil.
func (a *Anchor) IndexCID() *string { return a.indexCID }

// CheckpointCID returns the CID of the most recently signed checkpoint, or
// nil if checkpoint signing is disabled or has not yet succeeded.
func (a *Anchor) CheckpointCID() *string { return a.checkpointCID }
