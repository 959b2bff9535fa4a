// Package cidcodec builds and parses the CIDs spec.md §6 requires: CID
// version 1, base32 textual encoding, blake2b-256 multihash, over the
// go-cid/go-multihash/go-multibase ecosystem (no such codec exists in the
// teacher's own dependency tree; named here per the out-of-pack-needs-naming
// rule rather than grounded on pack source).
package cidcodec

import (
	"fmt"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multibase"
	"github.com/multiformats/go-multihash"
)

// blake2b256Code is the multihash function code for 32-byte blake2b, derived
// from multihash.BLAKE2B_MIN (the 8-bit variant) plus 31 extra output bytes.
const blake2b256Code = multihash.BLAKE2B_MIN + 31

// rawCodec is the CID multicodec for raw, untyped binary (0x55) — the VCoC
// and DIDIndex objects this module stores are opaque byte blobs to the CID
// layer.
const rawCodec = cid.Raw

// Sum computes the CIDv1/base32/blake2b-256 identifier for data.
func Sum(data []byte) (string, error) {
	mh, err := multihash.Sum(data, blake2b256Code, -1)
	if err != nil {
		return "", fmt.Errorf("%w: hashing for cid: %v", ErrInvalidCID, err)
	}

	c := cid.NewCidV1(rawCodec, mh)

	encoded, err := c.StringOfBase(multibase.Base32)
	if err != nil {
		return "", fmt.Errorf("%w: encoding cid: %v", ErrInvalidCID, err)
	}
	return encoded, nil
}

// Parse validates that s is a well-formed CID in the scheme this module
// uses, returning it for reuse as a store key.
func Parse(s string) (cid.Cid, error) {
	c, err := cid.Decode(s)
	if err != nil {
		return cid.Undef, fmt.Errorf("%w: %v", ErrInvalidCID, err)
	}
	if c.Version() != 1 {
		return cid.Undef, fmt.Errorf("%w: expected CID version 1, got %d", ErrInvalidCID, c.Version())
	}
	return c, nil
}

// Verify reports whether data hashes to the CID encoded in s.
func Verify(s string, data []byte) (bool, error) {
	want, err := Sum(data)
	if err != nil {
		return false, err
	}
	return want == s, nil
}
