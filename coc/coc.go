// Package coc implements the Chain-of-Custody engine (spec.md C4): it builds
// and validates per-DID chains of document revisions through a
// validator.DocumentValidator, maintains the DID→leaf-index mapping onto a
// single merkle.Tree, and keeps that tree's leaf for each DID equal to
// hash_leaf(CoC-bytes) of the DID's current chain at all times.
package coc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/iotaledger/didanchor-go/digest"
	"github.com/iotaledger/didanchor-go/merkle"
	"github.com/iotaledger/didanchor-go/validator"
)

// ChainOfCustody is the ordered, non-empty sequence of document revisions
// for one DID (spec.md §3).
type ChainOfCustody struct {
	Documents []validator.ResolvedDocument
}

// DID returns the DID the chain belongs to. The chain is never empty once
// constructed by Engine.Update.
func (c ChainOfCustody) DID() string {
	return c.Documents[0].DID()
}

// Bytes returns the CoC-bytes defined in spec.md §3: the canonical JSON
// encoding of each document, flat-concatenated in order with no delimiter
// (coc_json_concat := concat(canonical_json(doc_i) for i in 0..n)), matching
// the original's ChainOfCustody::serialize_to_vec (original_source/
// did_common/src/chain_of_custody.rs). This is the exact byte sequence
// hashed as a Merkle leaf and published as the VCoC's chain bytes, load-
// bearing for inter-node resolution per spec.md §1 — any other spec-
// compliant implementation must reproduce it byte-for-byte.
func (c ChainOfCustody) Bytes(encode func(validator.ResolvedDocument) ([]byte, error)) ([]byte, error) {
	var buf bytes.Buffer
	for _, doc := range c.Documents {
		b, err := encode(doc)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrEncodeFailure, err)
		}
		buf.Write(b)
	}
	return buf.Bytes(), nil
}

// Decoder turns one document's canonical encoding back into a
// validator.ResolvedDocument; the inverse of Encoder for a single document.
type Decoder func([]byte) (validator.ResolvedDocument, error)

// DecodeChain rebuilds a ChainOfCustody from the flat-concatenated CoC-bytes
// produced by Bytes. Each document's canonical JSON encoding is a
// self-delimiting JSON value, so a streaming json.Decoder recovers document
// boundaries without needing an explicit length prefix: it decodes values
// back to back from the same byte stream, stopping each one exactly where
// its JSON value ends.
func DecodeChain(data []byte, decode Decoder) (ChainOfCustody, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	var docs []validator.ResolvedDocument
	for dec.More() {
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return ChainOfCustody{}, fmt.Errorf("%w: %v", ErrDecodeFailure, err)
		}

		doc, err := decode(raw)
		if err != nil {
			return ChainOfCustody{}, fmt.Errorf("%w: %v", ErrDecodeFailure, err)
		}
		docs = append(docs, doc)
	}
	if len(docs) == 0 {
		return ChainOfCustody{}, fmt.Errorf("%w: empty chain", ErrDecodeFailure)
	}
	return ChainOfCustody{Documents: docs}, nil
}

// CanonicalJSON re-marshals v through encoding/json after an
// unmarshal-into-map round trip so object keys are sorted, pinning the
// canonicalization scheme spec.md §9 leaves open (see DESIGN.md OQ-1). v must
// already be JSON-marshalable.
func CanonicalJSON(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncodeFailure, err)
	}

	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncodeFailure, err)
	}

	return marshalSorted(generic)
}

// marshalSorted marshals v, sorting object keys recursively. encoding/json
// already sorts map[string]any keys on Marshal, but we recurse explicitly so
// the guarantee holds for any nested structure a DocumentValidator produces,
// not only map[string]any.
func marshalSorted(v any) ([]byte, error) {
	switch value := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(value))
		for k := range value {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		var buf bytes.Buffer
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			keyBytes, err := json.Marshal(k)
			if err != nil {
				return nil, err
			}
			buf.Write(keyBytes)
			buf.WriteByte(':')
			valBytes, err := marshalSorted(value[k])
			if err != nil {
				return nil, err
			}
			buf.Write(valBytes)
		}
		buf.WriteByte('}')
		return buf.Bytes(), nil
	case []any:
		var buf bytes.Buffer
		buf.WriteByte('[')
		for i, elem := range value {
			if i > 0 {
				buf.WriteByte(',')
			}
			elemBytes, err := marshalSorted(elem)
			if err != nil {
				return nil, err
			}
			buf.Write(elemBytes)
		}
		buf.WriteByte(']')
		return buf.Bytes(), nil
	default:
		return json.Marshal(value)
	}
}

// Encoder turns a validator.ResolvedDocument into its canonical JSON
// encoding. Engine takes one so that it never needs to know the concrete
// document type the validator in use produces.
type Encoder func(validator.ResolvedDocument) ([]byte, error)

// Engine maintains a merkle.Tree of CoC-bytes, one leaf per known DID, and
// drives DocumentValidator to enforce the chain-of-custody invariants.
//
// Engine is not safe for concurrent use; spec.md §5 places that
// responsibility on the single-owner Anchor that embeds it.
type Engine struct {
	tree      *merkle.Tree
	validator validator.DocumentValidator
	encode    Encoder
	indexByID map[string]int
}

// NewEngine creates an Engine hashing leaves with d, validating documents
// with v, and encoding them canonically with encode.
func NewEngine(d digest.Digest, v validator.DocumentValidator, encode Encoder) *Engine {
	return &Engine{
		tree:      merkle.New(d),
		validator: v,
		encode:    encode,
		indexByID: make(map[string]int),
	}
}

// Update implements spec.md §4.4's update operation. current is the DID's
// existing chain if one is already known (nil otherwise); doc is the new
// revision to apply.
//
// If current is nil, doc must be a valid root document (ErrInvalidRoot
// otherwise); a new single-element chain is created and pushed as a new
// leaf. If current is non-nil, doc must be a valid addition to it
// (ErrInvalidAddition otherwise); the chain grows by one element and its
// existing leaf is replaced.
//
// Postcondition: the tree's leaf at the DID's index equals
// hash_leaf(CoC-bytes of the returned chain).
func (e *Engine) Update(ctx context.Context, current *ChainOfCustody, doc validator.ResolvedDocument) (ChainOfCustody, error) {
	if current == nil {
		return e.updateRoot(ctx, doc)
	}
	return e.updateAddition(ctx, *current, doc)
}

func (e *Engine) updateRoot(ctx context.Context, doc validator.ResolvedDocument) (ChainOfCustody, error) {
	if _, err := e.validator.NewChain(ctx, doc); err != nil {
		return ChainOfCustody{}, fmt.Errorf("%w: %v", ErrInvalidRoot, err)
	}

	did := doc.DID()
	newChain := ChainOfCustody{Documents: []validator.ResolvedDocument{doc}}

	leafBytes, err := newChain.Bytes(e.encode)
	if err != nil {
		return ChainOfCustody{}, err
	}

	index := e.tree.Push(leafBytes)
	e.indexByID[did] = index

	return newChain, nil
}

func (e *Engine) updateAddition(ctx context.Context, current ChainOfCustody, doc validator.ResolvedDocument) (ChainOfCustody, error) {
	if len(current.Documents) == 0 {
		return ChainOfCustody{}, fmt.Errorf("%w: current chain of custody must not be empty", ErrInvalidAddition)
	}

	// Replaying the chain from its root revalidates internal consistency
	// defensively; it may be dropped once callers are trusted to only ever
	// hand back chains this engine itself produced (spec.md §4.4).
	chain, err := e.validator.NewChain(ctx, current.Documents[0])
	if err != nil {
		return ChainOfCustody{}, fmt.Errorf("%w: root revalidation failed: %v", ErrInvalidAddition, err)
	}
	for _, elem := range current.Documents[1:] {
		if err := chain.TryPush(ctx, elem); err != nil {
			return ChainOfCustody{}, fmt.Errorf("%w: prefix replay failed: %v", ErrInvalidAddition, err)
		}
	}

	if err := chain.CheckValidAddition(ctx, doc); err != nil {
		return ChainOfCustody{}, fmt.Errorf("%w: %v", ErrInvalidAddition, err)
	}

	did := current.DID()
	index, ok := e.indexByID[did]
	if !ok {
		return ChainOfCustody{}, fmt.Errorf("%w: %s", ErrUnknownDID, did)
	}

	updated := ChainOfCustody{Documents: append(append([]validator.ResolvedDocument{}, current.Documents...), doc)}

	leafBytes, err := updated.Bytes(e.encode)
	if err != nil {
		return ChainOfCustody{}, err
	}
	e.tree.Replace(index, leafBytes)

	return updated, nil
}

// Load pushes chain as a new leaf for a DID the Engine does not yet know
// about, without re-running DocumentValidator — for reconstructing a
// process's tree from chains already accepted and committed in a prior run
// (spec.md §4.6 "Startup"). It is the caller's responsibility to Load every
// DID in the current DIDIndex exactly once before accepting further
// UpdateDocument calls for those DIDs. Each Load appends a leaf, and the
// Merkle root depends on leaf order, so load order affects the root.
func (e *Engine) Load(chain ChainOfCustody) error {
	did := chain.DID()
	if _, exists := e.indexByID[did]; exists {
		return fmt.Errorf("%w: %s already loaded", ErrInvalidAddition, did)
	}

	leafBytes, err := chain.Bytes(e.encode)
	if err != nil {
		return err
	}

	index := e.tree.Push(leafBytes)
	e.indexByID[did] = index
	return nil
}

// MerkleRoot returns the current root over every DID's CoC-bytes.
func (e *Engine) MerkleRoot() []byte {
	return e.tree.Root()
}

// GenerateProof returns an inclusion proof for did's current leaf, or nil if
// did is unknown or the tree's current shape precludes a proof (non-power-of
// -two leaf count; see merkle.Tree.GenerateProof).
func (e *Engine) GenerateProof(did string) *merkle.Proof {
	index, ok := e.indexByID[did]
	if !ok {
		return nil
	}
	return e.tree.GenerateProof(index)
}
