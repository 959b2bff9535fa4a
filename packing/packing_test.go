package packing

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iotaledger/didanchor-go/digest"
	"github.com/iotaledger/didanchor-go/merkle"
)

func buildFourLeafProof(t *testing.T) (*merkle.Tree, *merkle.Proof, digest.Digest) {
	t.Helper()
	d := digest.Blake2b256{}
	tr := merkle.New(d)
	for _, v := range []string{"A", "B", "C", "D"} {
		tr.Push([]byte(v))
	}
	proof := tr.GenerateProof(2)
	require.NotNil(t, proof)
	return tr, proof, d
}

func TestProofRoundTrip(t *testing.T) {
	tr, proof, d := buildFourLeafProof(t)

	packed := PackProof(proof)
	unpacked, err := UnpackProof(d, bytes.NewReader(packed))
	require.NoError(t, err)
	require.Equal(t, proof.Nodes, unpacked.Nodes)

	require.True(t, unpacked.Verify(d, tr.Root(), []byte("C")))
}

func TestUnpackProofRejectsBadTag(t *testing.T) {
	d := digest.Blake2b256{}
	var buf bytes.Buffer
	writeU64(&buf, 1)
	buf.WriteByte(2)
	buf.Write(make([]byte, d.Size()))

	_, err := UnpackProof(d, bytes.NewReader(buf.Bytes()))
	require.ErrorIs(t, err, ErrInvalidSideTag)
}

func TestUnpackProofRejectsTruncatedInput(t *testing.T) {
	d := digest.Blake2b256{}
	var buf bytes.Buffer
	writeU64(&buf, 1)
	buf.WriteByte(0)
	buf.Write(make([]byte, d.Size()-1))

	_, err := UnpackProof(d, bytes.NewReader(buf.Bytes()))
	require.ErrorIs(t, err, ErrTruncated)
}

func TestVCoCRoundTrip(t *testing.T) {
	_, proof, d := buildFourLeafProof(t)
	cocBytes := []byte(`[{"id":"did:example:1"}]`)

	packed := PackVCoC(proof, cocBytes)
	unpackedProof, unpackedCoC, err := UnpackVCoC(d, packed)
	require.NoError(t, err)
	require.Equal(t, proof.Nodes, unpackedProof.Nodes)
	require.Equal(t, cocBytes, unpackedCoC)
}

func TestUnpackVCoCRejectsTruncatedTail(t *testing.T) {
	_, proof, d := buildFourLeafProof(t)
	packed := PackVCoC(proof, []byte("hello"))

	_, _, err := UnpackVCoC(d, packed[:len(packed)-2])
	require.ErrorIs(t, err, ErrTruncated)
}
