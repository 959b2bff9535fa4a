// Package digest provides the domain-separated hashing primitives the
// Merkle-anchored chain-of-custody engine is built on.
//
// Every hash computed anywhere in this module goes through one of the three
// functions here so that leaf hashes, interior-node hashes, and the empty-tree
// hash can never collide with one another (domain separation, see Digest).
package digest

import (
	"fmt"

	"golang.org/x/crypto/blake2b"
)

const (
	leafTag = 0x00
	nodeTag = 0x01
)

// Digest is a pluggable, fixed-output hash function. Any digest is
// acceptable provided every party anchoring to, and resolving from, the same
// ledger commitment agrees on it.
type Digest interface {
	// HashLeaf returns D(0x00 || data).
	HashLeaf(data []byte) []byte
	// HashNode returns D(0x01 || lhs || rhs).
	HashNode(lhs, rhs []byte) []byte
	// HashEmpty returns D(epsilon), the root of an empty tree.
	HashEmpty() []byte
	// Size is the fixed output size of the digest, in bytes.
	Size() int
}

// Blake2b256 is the default Digest, matching the reference implementation.
type Blake2b256 struct{}

var _ Digest = Blake2b256{}

// Size is the blake2b-256 output size.
func (Blake2b256) Size() int { return blake2b.Size256 }

// HashLeaf implements Digest.
func (Blake2b256) HashLeaf(data []byte) []byte {
	h, _ := blake2b.New256(nil)
	h.Write([]byte{leafTag})
	h.Write(data)
	return h.Sum(nil)
}

// HashNode implements Digest.
func (Blake2b256) HashNode(lhs, rhs []byte) []byte {
	h, _ := blake2b.New256(nil)
	h.Write([]byte{nodeTag})
	h.Write(lhs)
	h.Write(rhs)
	return h.Sum(nil)
}

// HashEmpty implements Digest.
func (Blake2b256) HashEmpty() []byte {
	h, _ := blake2b.New256(nil)
	return h.Sum(nil)
}

// CheckSize returns an error if hash does not have the digest's expected
// output size. packing.UnpackProof uses it to validate each unpacked sibling
// hash, and resolver.Resolve uses it to validate a ledger-sourced Merkle
// root before folding a proof against it, rejecting malformed input early
// rather than comparing against a root of the wrong length.
func CheckSize(d Digest, hash []byte) error {
	if len(hash) != d.Size() {
		return fmt.Errorf("%w: got %d bytes, want %d", ErrSizeMismatch, len(hash), d.Size())
	}
	return nil
}
