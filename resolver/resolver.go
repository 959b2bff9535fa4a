// Package resolver implements the read-only DID resolution path (spec.md
// C7): given a DID, reads the anchor's published Alias Output, fetches the
// DID index and VCoC it names, and verifies the returned document against
// the published Merkle root before handing it back.
//
// Resolver holds no mutable state beyond its Ledger and storage clients, so
// it is safe for concurrent use without locking, the same way the teacher's
// read paths (massifs.MassifReader) are safe once their backing blob client
// is.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/datatrails/go-datatrails-common/logger"

	"github.com/iotaledger/didanchor-go/coc"
	"github.com/iotaledger/didanchor-go/digest"
	"github.com/iotaledger/didanchor-go/internal/metrics"
	"github.com/iotaledger/didanchor-go/ledger"
	"github.com/iotaledger/didanchor-go/storage"
	"github.com/iotaledger/didanchor-go/validator"
)

// Resolver resolves a DID of the form "alias_id:tag" to its current
// document, per spec.md §4.7.
type Resolver struct {
	ledger  ledger.Ledger
	storage *storage.Facade
	digest  digest.Digest
	decode  coc.Decoder
	log     logger.Logger
	metrics *metrics.Metrics
}

// New constructs a Resolver. decode must be the inverse of the Encoder the
// anchor publishing this ledger's content used.
func New(l ledger.Ledger, store *storage.Facade, d digest.Digest, decode coc.Decoder, log logger.Logger, m *metrics.Metrics) *Resolver {
	return &Resolver{ledger: l, storage: store, digest: d, decode: decode, log: log, metrics: m}
}

// Resolve implements spec.md §4.7's eight-step algorithm. did must be of the
// form "alias_id:tag"; ok is false if the alias or the tag's DID entry does
// not exist.
func (r *Resolver) Resolve(ctx context.Context, did string) (doc validator.ResolvedDocument, ok bool, err error) {
	start := time.Now()
	doc, ok, err = r.resolve(ctx, did)
	if r.metrics != nil {
		r.metrics.ObserveResolve(resolveOutcome(ok, err), time.Since(start).Seconds())
	}
	return doc, ok, err
}

func resolveOutcome(ok bool, err error) string {
	switch {
	case errors.Is(err, ErrInvalidProof):
		return "invalid_proof"
	case err != nil:
		return "error"
	case !ok:
		return "not_found"
	default:
		return "found"
	}
}

func (r *Resolver) resolve(ctx context.Context, did string) (validator.ResolvedDocument, bool, error) {
	aliasID, tag, err := splitDID(did)
	if err != nil {
		return nil, false, err
	}

	content, found, err := r.ledger.Read(ctx, aliasID)
	if err != nil {
		return nil, false, fmt.Errorf("%w: reading alias %s: %v", ErrLedgerFailure, aliasID, err)
	}
	if !found {
		return nil, false, nil
	}

	index, err := r.storage.GetIndex(ctx, content.StorageEndpoints, content.IndexCID)
	if err != nil {
		return nil, false, fmt.Errorf("%w: fetching index %s: %v", ErrStorageFailure, content.IndexCID, err)
	}

	cid, ok := index[tag]
	if !ok {
		return nil, false, nil
	}

	proof, cocBytes, err := r.storage.GetByCID(ctx, content.StorageEndpoints, cid)
	if err != nil {
		return nil, false, fmt.Errorf("%w: fetching vcoc %s: %v", ErrStorageFailure, cid, err)
	}

	chain, err := coc.DecodeChain(cocBytes, r.decode)
	if err != nil {
		return nil, false, fmt.Errorf("%w: decoding vcoc %s: %v", ErrStorageFailure, cid, err)
	}

	if err := digest.CheckSize(r.digest, content.MerkleRoot); err != nil {
		return nil, false, fmt.Errorf("%w: ledger merkle root for %s: %v", ErrInvalidProof, did, err)
	}
	if !proof.Verify(r.digest, content.MerkleRoot, cocBytes) {
		return nil, false, fmt.Errorf("%w: %s", ErrInvalidProof, did)
	}

	return chain.Documents[len(chain.Documents)-1], true, nil
}

// splitDID splits "alias_id:tag" on the first colon.
func splitDID(did string) (aliasID, tag string, err error) {
	i := strings.IndexByte(did, ':')
	if i < 0 {
		return "", "", fmt.Errorf("%w: %q is not of the form alias_id:tag", ErrMalformedDID, did)
	}
	return did[:i], did[i+1:], nil
}
