// Package packing implements the deterministic binary wire format used to
// store a Verifiable Chain of Custody (proof + chain-of-custody bytes) as a
// single content-addressed object.
//
// The format is a direct, fixed-endianness translation of the reference
// implementation's `Packable` impls for `Proof<D>` and
// `VerifiableChainOfCustody` (see DESIGN.md C3): every length is an 8-byte
// little-endian u64, every proof node is a 1-byte side tag (0 = left, 1 =
// right) followed by the digest's fixed-size hash bytes, and the
// chain-of-custody bytes follow the proof verbatim, length-prefixed.
package packing

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/iotaledger/didanchor-go/digest"
	"github.com/iotaledger/didanchor-go/merkle"
)

// ErrInvalidSideTag is returned when a packed proof node's tag byte is
// neither 0 (left) nor 1 (right).
var ErrInvalidSideTag = fmt.Errorf("packing: side tag must be 0 or 1")

// ErrTruncated is returned when a buffer ends before the format expects it to.
var ErrTruncated = fmt.Errorf("packing: unexpected end of buffer")

// PackProof serializes a proof as: u64 node count, then for each node a tag
// byte followed by the sibling hash.
func PackProof(p *merkle.Proof) []byte {
	var buf bytes.Buffer
	writeU64(&buf, uint64(len(p.Nodes)))
	for _, node := range p.Nodes {
		buf.WriteByte(byte(node.Side))
		buf.Write(node.Hash)
	}
	return buf.Bytes()
}

// UnpackProof parses a proof from r, validating hash sizes against d.
func UnpackProof(d digest.Digest, r *bytes.Reader) (*merkle.Proof, error) {
	count, err := readU64(r)
	if err != nil {
		return nil, err
	}

	nodes := make([]merkle.ProofNode, 0, count)
	hashSize := d.Size()
	for i := uint64(0); i < count; i++ {
		tag, err := r.ReadByte()
		if err != nil {
			return nil, ErrTruncated
		}
		if tag > 1 {
			return nil, fmt.Errorf("%w: got %d", ErrInvalidSideTag, tag)
		}

		hash := make([]byte, hashSize)
		if _, err := io.ReadFull(r, hash); err != nil {
			return nil, ErrTruncated
		}
		if err := digest.CheckSize(d, hash); err != nil {
			return nil, err
		}

		nodes = append(nodes, merkle.ProofNode{Side: merkle.Side(tag), Hash: hash})
	}

	return &merkle.Proof{Nodes: nodes}, nil
}

// PackVCoC serializes a proof and the opaque, already-encoded
// chain-of-custody bytes into the VCoC wire format: packed proof, then u64
// length, then the chain-of-custody bytes verbatim.
func PackVCoC(p *merkle.Proof, cocBytes []byte) []byte {
	var buf bytes.Buffer
	buf.Write(PackProof(p))
	writeU64(&buf, uint64(len(cocBytes)))
	buf.Write(cocBytes)
	return buf.Bytes()
}

// UnpackVCoC is the inverse of PackVCoC. It returns the proof and the raw
// chain-of-custody bytes; the caller decodes the latter (see coc.DecodeChain).
func UnpackVCoC(d digest.Digest, data []byte) (*merkle.Proof, []byte, error) {
	r := bytes.NewReader(data)

	proof, err := UnpackProof(d, r)
	if err != nil {
		return nil, nil, err
	}

	length, err := readU64(r)
	if err != nil {
		return nil, nil, err
	}

	cocBytes := make([]byte, length)
	if _, err := io.ReadFull(r, cocBytes); err != nil {
		return nil, nil, ErrTruncated
	}

	return proof, cocBytes, nil
}

func writeU64(buf *bytes.Buffer, v uint64) {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v)
	buf.Write(tmp[:])
}

func readU64(r *bytes.Reader) (uint64, error) {
	var tmp [8]byte
	if _, err := io.ReadFull(r, tmp[:]); err != nil {
		return 0, ErrTruncated
	}
	return binary.LittleEndian.Uint64(tmp[:]), nil
}
