// Package storage implements the content-addressed storage facade (spec.md
// C5): wrapping an ObjectStore behind the operation set the
// Anchor and Resolver need (Add, Unpin, Get, GetIndex, PublishIndex),
// choosing a random endpoint per read for simple load balancing.
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"

	"github.com/iotaledger/didanchor-go/digest"
	"github.com/iotaledger/didanchor-go/merkle"
	"github.com/iotaledger/didanchor-go/packing"
)

// AddOptions configures how an object is added to the store. The hash
// function and CID version are fixed by the reference CID scheme (see
// storage/cidcodec); Replication is a hint an ObjectStore implementation may
// use or ignore.
type AddOptions struct {
	Replication string
}

// ObjectStore is the external contract spec.md §6 defines for a
// content-addressed, pin-capable store.
type ObjectStore interface {
	// AddPinned stores data, pins it, and returns its CID.
	AddPinned(ctx context.Context, data []byte, opts AddOptions) (string, error)
	// Unpin releases the pin on cid. Non-fatal if cid is already unpinned.
	Unpin(ctx context.Context, cid string) error
	// Cat fetches the bytes stored at cid.
	Cat(ctx context.Context, cid string) ([]byte, error)
}

// Endpoint describes one storage/indexing peer advertised in AliasContent.
type Endpoint struct {
	Host        string `json:"host"`
	SwarmPort   int    `json:"swarm_port"`
	GatewayPort int    `json:"gateway_port"`
	PeerID      string `json:"peer_id"`
}

// DIDIndex maps a DID to the CID of its current VCoC.
type DIDIndex map[string]string

// Facade is the storage facade spec.md §4.5 describes: one ObjectStore for
// writes, and reads that go through a randomly selected Endpoint's IPFS
// gateway (Endpoint.GatewayPort) when the caller has one or more Endpoints to
// choose from — matching the original's IpfsGateway.get, which dials a
// random gateway address per fetch (original_source/didanchor/src/
// ipfs_gateway.rs) — and otherwise fall back to the wrapped ObjectStore
// directly (the shape every reference ObjectStore and every test in this
// module exercises).
type Facade struct {
	store  ObjectStore
	digest digest.Digest
}

// NewFacade creates a Facade over store, using d to validate unpacked
// proof hash sizes.
func NewFacade(store ObjectStore, d digest.Digest) *Facade {
	return &Facade{store: store, digest: d}
}

// Add packs proof and cocBytes into a VCoC and stores it pinned, returning
// its CID.
func (f *Facade) Add(ctx context.Context, proof *merkle.Proof, cocBytes []byte) (string, error) {
	packed := packing.PackVCoC(proof, cocBytes)
	cid, err := f.store.AddPinned(ctx, packed, AddOptions{Replication: "all-peers"})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return cid, nil
}

// Unpin releases the pin on cid. Errors from an already-unpinned CID are the
// underlying ObjectStore's concern, not this facade's (spec.md §4.5: "non-
// fatal if already unpinned").
func (f *Facade) Unpin(ctx context.Context, cid string) error {
	if err := f.store.Unpin(ctx, cid); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return nil
}

// Get fetches and unpacks the VCoC stored at the CID index records for did,
// given the current DIDIndex. endpoints is the advertised AliasContent
// endpoint list to read through (see cat); it returns ErrNotFound if did has
// no entry.
func (f *Facade) Get(ctx context.Context, index DIDIndex, endpoints []Endpoint, did string) (*merkle.Proof, []byte, error) {
	cid, ok := index[did]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrNotFound, did)
	}
	return f.GetByCID(ctx, endpoints, cid)
}

// GetByCID fetches and unpacks the VCoC stored at cid directly.
func (f *Facade) GetByCID(ctx context.Context, endpoints []Endpoint, cid string) (*merkle.Proof, []byte, error) {
	raw, err := f.cat(ctx, endpoints, cid)
	if err != nil {
		return nil, nil, err
	}

	proof, cocBytes, err := packing.UnpackVCoC(f.digest, raw)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrDecodeFailure, err)
	}
	return proof, cocBytes, nil
}

// GetIndex fetches and decodes the DIDIndex object stored at cid.
func (f *Facade) GetIndex(ctx context.Context, endpoints []Endpoint, cid string) (DIDIndex, error) {
	raw, err := f.cat(ctx, endpoints, cid)
	if err != nil {
		return nil, err
	}

	var index DIDIndex
	if err := json.Unmarshal(raw, &index); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecodeFailure, err)
	}
	return index, nil
}

// cat fetches cid, reading through a randomly selected endpoint's IPFS
// gateway (spec.md §4.5) when endpoints is non-empty, and through the
// wrapped ObjectStore otherwise.
func (f *Facade) cat(ctx context.Context, endpoints []Endpoint, cid string) ([]byte, error) {
	if endpoint, ok := SelectEndpoint(endpoints); ok {
		return catFromGateway(ctx, endpoint, cid)
	}

	raw, err := f.store.Cat(ctx, cid)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return raw, nil
}

// catFromGateway fetches cid from endpoint's HTTP gateway, mirroring the
// original's IpfsGateway.get (GET http://host:gateway_port/ipfs/<cid>).
func catFromGateway(ctx context.Context, endpoint Endpoint, cid string) ([]byte, error) {
	url := fmt.Sprintf("http://%s:%d/ipfs/%s", endpoint.Host, endpoint.GatewayPort, cid)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: gateway %s returned %s", ErrStorageUnavailable, url, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return data, nil
}

// PublishIndex canonically encodes index and stores it pinned, returning its
// CID.
func (f *Facade) PublishIndex(ctx context.Context, index DIDIndex) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	if err := enc.Encode(index); err != nil {
		return "", fmt.Errorf("%w: %v", ErrEncodeFailure, err)
	}

	cid, err := f.store.AddPinned(ctx, buf.Bytes(), AddOptions{Replication: "all-peers"})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return cid, nil
}

// AddRaw stores data pinned as-is, with no VCoC or DIDIndex framing. Used
// for auxiliary artifacts such as signed checkpoints (checkpoint package)
// that are addressed directly by CID rather than through the DID index.
func (f *Facade) AddRaw(ctx context.Context, data []byte) (string, error) {
	cid, err := f.store.AddPinned(ctx, data, AddOptions{Replication: "all-peers"})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return cid, nil
}

// SelectEndpoint picks one endpoint at random from endpoints, matching
// spec.md §4.5's "random endpoint per read" load-balancing rule. It returns
// the zero Endpoint and false if endpoints is empty.
func SelectEndpoint(endpoints []Endpoint) (Endpoint, bool) {
	if len(endpoints) == 0 {
		return Endpoint{}, false
	}
	return endpoints[rand.Intn(len(endpoints))], true
}
