// Package checkpoint adds an optional COSE-signed root checkpoint alongside
// the ledger's AliasContent (spec.md §9 Open Question OQ-2; there is no
// equivalent step in the distilled Rust source). It is grounded on the
// teacher's massifs.RootSigner: a CBOR payload wrapped in a COSE_Sign1
// message, signed with an IdentifiableCoseSigner-shaped key. Unlike the
// teacher, a checkpoint here commits to a single Merkle root rather than an
// MMR peak list, so there is no per-peak receipt machinery to carry over.
package checkpoint

import (
	"context"
	"crypto/ecdsa"
	"crypto/rand"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/veraison/go-cose"
)

// State is the payload a Checkpoint commits to.
type State struct {
	// AliasID is the ledger alias this checkpoint's root was published
	// under.
	AliasID string `cbor:"1,keyasint"`
	// MerkleRoot is the committed CoC-engine root.
	MerkleRoot []byte `cbor:"2,keyasint"`
	// Timestamp is the unix time (milliseconds) the checkpoint was signed.
	Timestamp int64 `cbor:"3,keyasint"`
}

// Signer identifies the key used to produce a checkpoint, mirroring the
// teacher's IdentifiableCoseSigner (massifs/identifiablecosesigner.go)
// without the key-rotation lookup methods the full MMR sealing path needs.
type Signer interface {
	cose.Signer
	KeyIdentifier() string
	PublicKey() (*ecdsa.PublicKey, error)
}

// Sign produces a COSE_Sign1-encoded checkpoint over state, keyed by
// signer's identifier in the protected header.
func Sign(signer Signer, state State) ([]byte, error) {
	payload, err := cbor.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("%w: encoding checkpoint payload: %v", ErrEncodeFailure, err)
	}

	msg := cose.NewSign1Message()
	msg.Headers.Protected.SetAlgorithm(signer.Algorithm())
	msg.Headers.Protected[cose.HeaderLabelKeyID] = []byte(signer.KeyIdentifier())
	msg.Payload = payload

	if err := msg.Sign(rand.Reader, nil, signer); err != nil {
		return nil, fmt.Errorf("%w: signing checkpoint: %v", ErrSignFailure, err)
	}

	encoded, err := msg.MarshalCBOR()
	if err != nil {
		return nil, fmt.Errorf("%w: encoding signed checkpoint: %v", ErrEncodeFailure, err)
	}
	return encoded, nil
}

// Verify checks a signed checkpoint against publicKey and returns its State.
func Verify(ctx context.Context, publicKey *ecdsa.PublicKey, signed []byte) (State, error) {
	var msg cose.Sign1Message
	if err := msg.UnmarshalCBOR(signed); err != nil {
		return State{}, fmt.Errorf("%w: decoding checkpoint: %v", ErrDecodeFailure, err)
	}

	alg, err := msg.Headers.Protected.Algorithm()
	if err != nil {
		return State{}, fmt.Errorf("%w: reading checkpoint algorithm: %v", ErrDecodeFailure, err)
	}

	verifier, err := cose.NewVerifier(alg, publicKey)
	if err != nil {
		return State{}, fmt.Errorf("%w: building verifier: %v", ErrDecodeFailure, err)
	}

	if err := msg.Verify(nil, verifier); err != nil {
		return State{}, fmt.Errorf("%w: %v", ErrVerifyFailed, err)
	}

	var state State
	if err := cbor.Unmarshal(msg.Payload, &state); err != nil {
		return State{}, fmt.Errorf("%w: decoding checkpoint payload: %v", ErrDecodeFailure, err)
	}
	return state, nil
}
