package merkle

import "github.com/iotaledger/didanchor-go/digest"

// Side tags which side of the accumulated hash a proof node's sibling sits
// on, the order proceeding from leaf toward root.
type Side uint8

const (
	// SideLeft means the sibling hash combines as hash_node(sibling, acc).
	SideLeft Side = iota
	// SideRight means the sibling hash combines as hash_node(acc, sibling).
	SideRight
)

// ProofNode is one tagged sibling hash in an inclusion proof.
type ProofNode struct {
	Side Side
	Hash []byte
}

// Proof is an ordered sequence of tagged sibling hashes proving a single
// leaf's inclusion under a Merkle root.
type Proof struct {
	Nodes []ProofNode
}

// GenerateProof returns an inclusion proof for the leaf at index, or nil if
// no such proof can be produced: the tree is empty, index is out of range,
// or the current leaf count is not a power of two (see DESIGN.md OQ-3).
func (t *Tree) GenerateProof(index int) *Proof {
	t.mu.RLock()
	defer t.mu.RUnlock()

	n := len(t.leaves)
	if n == 0 || index < 0 || index >= n {
		return nil
	}
	if n == 1 {
		return &Proof{Nodes: []ProofNode{}}
	}
	if !isPowerOfTwo(n) {
		return nil
	}

	var nodes []ProofNode
	generateProof(t.digest, &nodes, t.leaves, index)
	return &Proof{Nodes: nodes}
}

func generateProof(d digest.Digest, nodes *[]ProofNode, leaves [][]byte, index int) {
	if len(leaves) <= 1 {
		return
	}
	left, right := splitPow2(leaves)
	k := len(left)
	if index < k {
		generateProof(d, nodes, left, index)
		*nodes = append(*nodes, ProofNode{Side: SideRight, Hash: computeRoot(d, right)})
	} else {
		generateProof(d, nodes, right, index-k)
		*nodes = append(*nodes, ProofNode{Side: SideLeft, Hash: computeRoot(d, left)})
	}
}

// Verify checks that data, hashed as a leaf, is included under root.
func (p *Proof) Verify(d digest.Digest, root, data []byte) bool {
	return p.VerifyHash(d, root, d.HashLeaf(data))
}

// VerifyHash is Verify but takes a pre-computed leaf hash.
func (p *Proof) VerifyHash(d digest.Digest, root, leafHash []byte) bool {
	computed := p.Root(d, leafHash)
	if len(computed) != len(root) {
		return false
	}
	for i := range computed {
		if computed[i] != root[i] {
			return false
		}
	}
	return true
}

// Root folds target through the proof path and returns the resulting root.
func (p *Proof) Root(d digest.Digest, target []byte) []byte {
	acc := target
	for _, node := range p.Nodes {
		switch node.Side {
		case SideLeft:
			acc = d.HashNode(node.Hash, acc)
		default:
			acc = d.HashNode(acc, node.Hash)
		}
	}
	return acc
}
