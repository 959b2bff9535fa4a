package anchor_test

import (
	"context"
	"testing"

	"github.com/datatrails/go-datatrails-common/logger"
	"github.com/stretchr/testify/require"

	"github.com/iotaledger/didanchor-go/anchor"
	"github.com/iotaledger/didanchor-go/coc"
	"github.com/iotaledger/didanchor-go/digest"
	"github.com/iotaledger/didanchor-go/ledger/memledger"
	"github.com/iotaledger/didanchor-go/resolver"
	"github.com/iotaledger/didanchor-go/storage"
	"github.com/iotaledger/didanchor-go/storage/memobjectstore"
	"github.com/iotaledger/didanchor-go/validator"
	"github.com/iotaledger/didanchor-go/validator/simplechain"
)

func init() {
	logger.New("NOOP")
}

// canon is the canonicalization function every test system shares.
func canon(v any) ([]byte, error) { return coc.CanonicalJSON(v) }

// enc is a coc.Encoder bound to simplechain.Document via the canonicalizer.
var enc = simplechain.Encode(canon)

// docEncode adapts enc to the func(simplechain.Document) ([]byte, error)
// shape simplechain.New expects.
func docEncode(d simplechain.Document) ([]byte, error) { return enc(d) }

type testSystem struct {
	anchor *anchor.Anchor
	ledger *memledger.Ledger
	store  *memobjectstore.Store
	facade *storage.Facade
	digest digest.Digest
}

func newSystem(t *testing.T) *testSystem {
	t.Helper()
	d := digest.Blake2b256{}
	store := memobjectstore.New()
	facade := storage.NewFacade(store, d)
	ledg := memledger.New()
	v := simplechain.New(d, docEncode)

	a, err := anchor.New(context.Background(), anchor.Config{}, facade, v, enc, simplechain.Decode,
		ledg, d, logger.Sugar.WithServiceName("test"), nil, nil)
	require.NoError(t, err)

	return &testSystem{anchor: a, ledger: ledg, store: store, facade: facade, digest: d}
}

func TestCreateOnlyFlow(t *testing.T) {
	ctx := context.Background()
	s := newSystem(t)

	r1 := simplechain.Document{Id: "did:example:alpha", Payload: map[string]any{"v": 1.0}}
	require.NoError(t, s.anchor.UpdateDocument(ctx, r1))

	aliasID, err := s.anchor.CommitChanges(ctx)
	require.NoError(t, err)

	wantChainBytes, err := coc.ChainOfCustody{Documents: []validator.ResolvedDocument{r1}}.Bytes(enc)
	require.NoError(t, err)
	wantRoot := s.digest.HashLeaf(wantChainBytes)

	content, ok, err := s.ledger.Read(ctx, aliasID)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, wantRoot, content.MerkleRoot)

	index, err := s.facade.GetIndex(ctx, nil, content.IndexCID)
	require.NoError(t, err)
	require.Len(t, index, 1)

	res := resolver.New(s.ledger, s.facade, s.digest, simplechain.Decode, logger.Sugar.WithServiceName("test"), nil)
	doc, ok, err := res.Resolve(ctx, aliasID+":did:example:alpha")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, r1, doc)
}

func TestUpdateFlowOldStateVisibleBeforeCommit(t *testing.T) {
	ctx := context.Background()
	s := newSystem(t)

	r1 := simplechain.Document{Id: "did:example:alpha", Payload: map[string]any{"v": 1.0}}
	require.NoError(t, s.anchor.UpdateDocument(ctx, r1))
	_, err := s.anchor.CommitChanges(ctx)
	require.NoError(t, err)

	aliasID := *s.anchor.AliasID()
	res := resolver.New(s.ledger, s.facade, s.digest, simplechain.Decode, logger.Sugar.WithServiceName("test"), nil)

	doc, ok, err := res.Resolve(ctx, aliasID+":did:example:alpha")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, r1, doc)

	r1Bytes, err := enc(r1)
	require.NoError(t, err)
	r2 := simplechain.Document{Id: "did:example:alpha", PreviousHash: s.digest.HashLeaf(r1Bytes), Payload: map[string]any{"v": 2.0}}
	require.NoError(t, s.anchor.UpdateDocument(ctx, r2))

	// Before commit, the resolver (reading the old ledger state) still
	// returns R1.
	doc, ok, err = res.Resolve(ctx, aliasID+":did:example:alpha")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, r1, doc)

	_, err = s.anchor.CommitChanges(ctx)
	require.NoError(t, err)

	doc, ok, err = res.Resolve(ctx, aliasID+":did:example:alpha")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, r2, doc)
}

func TestFourDIDBatchProofSpecificity(t *testing.T) {
	ctx := context.Background()
	s := newSystem(t)

	for _, id := range []string{"did:example:a", "did:example:b", "did:example:c", "did:example:d"} {
		require.NoError(t, s.anchor.UpdateDocument(ctx, simplechain.Document{Id: id, Payload: map[string]any{"id": id}}))
	}
	aliasID, err := s.anchor.CommitChanges(ctx)
	require.NoError(t, err)

	res := resolver.New(s.ledger, s.facade, s.digest, simplechain.Decode, logger.Sugar.WithServiceName("test"), nil)
	doc, ok, err := res.Resolve(ctx, aliasID+":did:example:c")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "did:example:c", doc.DID())

	content, _, err := s.ledger.Read(ctx, aliasID)
	require.NoError(t, err)
	index, err := s.facade.GetIndex(ctx, nil, content.IndexCID)
	require.NoError(t, err)

	proofC, cocBytesC, err := s.facade.GetByCID(ctx, nil, index["did:example:c"])
	require.NoError(t, err)
	_, cocBytesD, err := s.facade.GetByCID(ctx, nil, index["did:example:d"])
	require.NoError(t, err)

	require.True(t, proofC.Verify(s.digest, content.MerkleRoot, cocBytesC))
	require.False(t, proofC.Verify(s.digest, content.MerkleRoot, cocBytesD))
}

func TestInvalidAdditionLeavesStagedUnchanged(t *testing.T) {
	ctx := context.Background()
	s := newSystem(t)

	r1 := simplechain.Document{Id: "did:example:alpha", Payload: map[string]any{"v": 1.0}}
	require.NoError(t, s.anchor.UpdateDocument(ctx, r1))
	_, err := s.anchor.CommitChanges(ctx)
	require.NoError(t, err)

	bad := simplechain.Document{Id: "did:example:alpha", PreviousHash: []byte("not-the-right-hash"), Payload: map[string]any{"v": 2.0}}
	err = s.anchor.UpdateDocument(ctx, bad)
	require.ErrorIs(t, err, coc.ErrInvalidAddition)

	// A subsequent commit with no further staged changes still succeeds.
	_, err = s.anchor.CommitChanges(ctx)
	require.NoError(t, err)
}

func TestUnpinnedPredecessorExactlyOnce(t *testing.T) {
	ctx := context.Background()
	s := newSystem(t)

	r1 := simplechain.Document{Id: "did:example:alpha", Payload: map[string]any{"v": 1.0}}
	require.NoError(t, s.anchor.UpdateDocument(ctx, r1))
	_, err := s.anchor.CommitChanges(ctx)
	require.NoError(t, err)

	content, _, err := s.ledger.Read(ctx, *s.anchor.AliasID())
	require.NoError(t, err)
	index, err := s.facade.GetIndex(ctx, nil, content.IndexCID)
	require.NoError(t, err)
	oldVCoCCID := index["did:example:alpha"]
	require.True(t, s.store.IsPinned(oldVCoCCID))

	r1Bytes, err := enc(r1)
	require.NoError(t, err)
	r2 := simplechain.Document{Id: "did:example:alpha", PreviousHash: s.digest.HashLeaf(r1Bytes), Payload: map[string]any{"v": 2.0}}
	require.NoError(t, s.anchor.UpdateDocument(ctx, r2))
	_, err = s.anchor.CommitChanges(ctx)
	require.NoError(t, err)

	require.False(t, s.store.IsPinned(oldVCoCCID))

	content, _, err = s.ledger.Read(ctx, *s.anchor.AliasID())
	require.NoError(t, err)
	index, err = s.facade.GetIndex(ctx, nil, content.IndexCID)
	require.NoError(t, err)
	require.True(t, s.store.IsPinned(index["did:example:alpha"]))
}

func TestResolverRejectsTampering(t *testing.T) {
	ctx := context.Background()
	s := newSystem(t)

	r1 := simplechain.Document{Id: "did:example:alpha", Payload: map[string]any{"v": 1.0}}
	require.NoError(t, s.anchor.UpdateDocument(ctx, r1))
	aliasID, err := s.anchor.CommitChanges(ctx)
	require.NoError(t, err)

	content, _, err := s.ledger.Read(ctx, aliasID)
	require.NoError(t, err)
	index, err := s.facade.GetIndex(ctx, nil, content.IndexCID)
	require.NoError(t, err)
	cid := index["did:example:alpha"]

	raw, err := s.store.Cat(ctx, cid)
	require.NoError(t, err)
	tampered := append([]byte(nil), raw...)
	tampered[len(tampered)-1] ^= 0xFF
	s.store.Tamper(cid, tampered)

	res := resolver.New(s.ledger, s.facade, s.digest, simplechain.Decode, logger.Sugar.WithServiceName("test"), nil)
	_, _, err = res.Resolve(ctx, aliasID+":did:example:alpha")
	require.Error(t, err)
}
