package storage_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iotaledger/didanchor-go/digest"
	"github.com/iotaledger/didanchor-go/storage"
	"github.com/iotaledger/didanchor-go/storage/memobjectstore"
)

func gatewayEndpoint(t *testing.T, srv *httptest.Server) storage.Endpoint {
	t.Helper()
	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)
	return storage.Endpoint{Host: u.Hostname(), GatewayPort: port}
}

func TestGetIndexReadsThroughConfiguredGateway(t *testing.T) {
	ctx := context.Background()
	index := storage.DIDIndex{"did:example:alpha": "some-cid"}

	var requestedPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestedPath = r.URL.Path
		w.Write([]byte(`{"did:example:alpha":"some-cid"}`))
	}))
	defer srv.Close()

	facade := storage.NewFacade(memobjectstore.New(), digest.Blake2b256{})
	endpoints := []storage.Endpoint{gatewayEndpoint(t, srv)}

	got, err := facade.GetIndex(ctx, endpoints, "index-cid")
	require.NoError(t, err)
	require.Equal(t, index, got)
	require.Equal(t, "/ipfs/index-cid", requestedPath)
}

func TestGetIndexFallsBackToObjectStoreWithoutEndpoints(t *testing.T) {
	ctx := context.Background()
	store := memobjectstore.New()
	facade := storage.NewFacade(store, digest.Blake2b256{})

	index := storage.DIDIndex{"did:example:alpha": "some-cid"}
	cid, err := facade.PublishIndex(ctx, index)
	require.NoError(t, err)

	got, err := facade.GetIndex(ctx, nil, cid)
	require.NoError(t, err)
	require.Equal(t, index, got)
}

func TestGetIndexPicksAmongMultipleGatewayEndpoints(t *testing.T) {
	ctx := context.Background()

	hits := map[string]int{}
	newServer := func(name string) *httptest.Server {
		return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits[name]++
			w.Write([]byte(`{}`))
		}))
	}
	srvA := newServer("a")
	srvB := newServer("b")
	defer srvA.Close()
	defer srvB.Close()

	facade := storage.NewFacade(memobjectstore.New(), digest.Blake2b256{})
	endpoints := []storage.Endpoint{gatewayEndpoint(t, srvA), gatewayEndpoint(t, srvB)}

	for i := 0; i < 20; i++ {
		_, err := facade.GetIndex(ctx, endpoints, "index-cid")
		require.NoError(t, err)
	}

	require.Greater(t, hits["a"]+hits["b"], 0)
	require.Equal(t, 20, hits["a"]+hits["b"])
}

func TestGetIndexGatewayErrorStatusIsStorageFailure(t *testing.T) {
	ctx := context.Background()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	facade := storage.NewFacade(memobjectstore.New(), digest.Blake2b256{})
	endpoints := []storage.Endpoint{gatewayEndpoint(t, srv)}

	_, err := facade.GetIndex(ctx, endpoints, "missing-cid")
	require.ErrorIs(t, err, storage.ErrStorageUnavailable)
}

func TestSelectEndpointEmptyIsFalse(t *testing.T) {
	_, ok := storage.SelectEndpoint(nil)
	require.False(t, ok)
}
