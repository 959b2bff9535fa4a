// Package simplechain is a reference validator.DocumentValidator used by
// tests and the CLI's local mode. It implements the minimal integration-chain
// rule spec.md leaves to an external collaborator: a root document carries no
// previous-revision pointer, and every later revision must point at the hash
// of the document it follows.
package simplechain

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/iotaledger/didanchor-go/digest"
	"github.com/iotaledger/didanchor-go/validator"
)

// Document is the concrete ResolvedDocument this package validates.
type Document struct {
	// Id is the DID this revision belongs to.
	Id string
	// PreviousHash is the digest of the JSON-canonical encoding of the
	// document this one supersedes. Empty for a root document.
	PreviousHash []byte
	// Payload is opaque application data; only its canonical encoding
	// matters to the engine (see coc.CanonicalJSON).
	Payload map[string]any
}

var _ validator.ResolvedDocument = Document{}

// DID implements validator.ResolvedDocument.
func (d Document) DID() string { return d.Id }

// wireDocument is Document's JSON wire shape, used by both Encode and
// Decode so the two stay in sync.
type wireDocument struct {
	Id           string         `json:"id"`
	PreviousHash []byte         `json:"previous_hash,omitempty"`
	Payload      map[string]any `json:"payload"`
}

// Encode is a coc.Encoder for Document, canonicalized via canon (expected to
// be coc.CanonicalJSON; taken as a parameter rather than imported directly to
// avoid a simplechain -> coc import cycle, since coc already imports
// validator and simplechain sits alongside it).
func Encode(canon func(any) ([]byte, error)) func(validator.ResolvedDocument) ([]byte, error) {
	return func(doc validator.ResolvedDocument) ([]byte, error) {
		d, ok := doc.(Document)
		if !ok {
			return nil, fmt.Errorf("%w: simplechain only accepts simplechain.Document", ErrWrongType)
		}
		return canon(wireDocument{Id: d.Id, PreviousHash: d.PreviousHash, Payload: d.Payload})
	}
}

// Decode is a coc.Decoder for Document: the inverse of Encode.
func Decode(data []byte) (validator.ResolvedDocument, error) {
	var w wireDocument
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWrongType, err)
	}
	return Document{Id: w.Id, PreviousHash: w.PreviousHash, Payload: w.Payload}, nil
}

// Validator is a validator.DocumentValidator that enforces the
// previous-hash linkage rule using d for hashing canonical document bytes.
type Validator struct {
	digest digest.Digest
	encode func(Document) ([]byte, error)
}

var _ validator.DocumentValidator = (*Validator)(nil)

// New creates a Validator. encode must deterministically encode a Document
// the same way on every call (typically coc.CanonicalJSON bound to the
// document's Payload plus its own identity fields).
func New(d digest.Digest, encode func(Document) ([]byte, error)) *Validator {
	return &Validator{digest: d, encode: encode}
}

// NewChain implements validator.DocumentValidator. A root document must have
// an empty PreviousHash.
func (v *Validator) NewChain(_ context.Context, root validator.ResolvedDocument) (validator.Chain, error) {
	doc, ok := root.(Document)
	if !ok {
		return nil, fmt.Errorf("%w: simplechain only accepts simplechain.Document", ErrWrongType)
	}
	if len(doc.PreviousHash) != 0 {
		return nil, fmt.Errorf("%w: root document must not carry a previous-hash pointer", ErrInvalidRoot)
	}
	return &chain{validator: v, current: doc}, nil
}

type chain struct {
	validator *Validator
	current   Document
}

var _ validator.Chain = (*chain)(nil)

// CheckValidAddition implements validator.Chain.
func (c *chain) CheckValidAddition(_ context.Context, next validator.ResolvedDocument) error {
	doc, ok := next.(Document)
	if !ok {
		return fmt.Errorf("%w: simplechain only accepts simplechain.Document", ErrWrongType)
	}
	if doc.Id != c.current.Id {
		return fmt.Errorf("%w: got DID %q, chain is for %q", ErrInvalidAddition, doc.Id, c.current.Id)
	}

	currentBytes, err := c.validator.encode(c.current)
	if err != nil {
		return fmt.Errorf("%w: encoding current document: %v", ErrInvalidAddition, err)
	}
	wantPrevHash := c.validator.digest.HashLeaf(currentBytes)

	if !equalBytes(doc.PreviousHash, wantPrevHash) {
		return fmt.Errorf("%w: previous-hash pointer does not match the current revision", ErrInvalidAddition)
	}
	return nil
}

// TryPush implements validator.Chain.
func (c *chain) TryPush(ctx context.Context, next validator.ResolvedDocument) error {
	if err := c.CheckValidAddition(ctx, next); err != nil {
		return err
	}
	c.current = next.(Document)
	return nil
}

// CurrentDocument implements validator.Chain.
func (c *chain) CurrentDocument() validator.ResolvedDocument { return c.current }

func equalBytes(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
