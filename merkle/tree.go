// Package merkle implements the flat, power-of-two-split Merkle tree the
// chain-of-custody engine uses to commit to every tenant's current history in
// a single root hash.
//
// The tree is a plain vector of leaf hashes, not a pointer tree: Push,
// Replace, Root, and GenerateProof all recompute the shape they need from
// that vector, trading O(N) root/proof time for a representation that is
// trivial to reason about and to keep byte-for-byte deterministic across
// implementations (see DESIGN.md OQ-3/OQ-4). A caller that needs faster
// commits for large tenant counts can cache subtree roots without changing
// any externally observable output.
package merkle

import (
	"sync"

	"github.com/iotaledger/didanchor-go/digest"
)

// Tree is an ordered sequence of leaf hashes.
type Tree struct {
	mu     sync.RWMutex
	digest digest.Digest
	leaves [][]byte
}

// New creates an empty tree using d for all hashing.
func New(d digest.Digest) *Tree {
	return &Tree{digest: d}
}

// Push hashes data as a leaf and appends it, returning its 0-based index.
func (t *Tree) Push(data []byte) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.leaves = append(t.leaves, t.digest.HashLeaf(data))
	return len(t.leaves) - 1
}

// Replace overwrites the leaf hash at index with hash_leaf(data). It is a
// no-op if index is out of range, per spec.
func (t *Tree) Replace(index int, data []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if index < 0 || index >= len(t.leaves) {
		return
	}
	t.leaves[index] = t.digest.HashLeaf(data)
}

// Len returns the current number of leaves.
func (t *Tree) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.leaves)
}

// Root computes the deterministic root over the current leaves.
//
// Empty tree -> hash_empty(). Single leaf -> that leaf hash, unchanged (no
// extra hashing round). Otherwise the leaves are split at the largest power
// of two strictly less than N, the left side always taking the power-of-two
// share, and the two subtree roots are combined with hash_node.
func (t *Tree) Root() []byte {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return computeRoot(t.digest, t.leaves)
}

func computeRoot(d digest.Digest, leaves [][]byte) []byte {
	switch len(leaves) {
	case 0:
		return d.HashEmpty()
	case 1:
		return leaves[0]
	default:
		left, right := splitPow2(leaves)
		return d.HashNode(computeRoot(d, left), computeRoot(d, right))
	}
}

// splitPow2 splits leaves so the left half holds exactly the largest power
// of two strictly less than len(leaves); the remainder goes right.
func splitPow2(leaves [][]byte) (left, right [][]byte) {
	k := pow2(uint(len(leaves) - 1))
	return leaves[:k], leaves[k:]
}

func pow2(n uint) int {
	return 1 << log2Floor(n)
}

// log2Floor returns floor(log2(n)) for n >= 1.
func log2Floor(n uint) uint {
	var height uint
	for n > 1 {
		n >>= 1
		height++
	}
	return height
}

func isPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}
