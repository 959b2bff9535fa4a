// Command didanchor is the reference CLI for the Merkle-anchored DID system
// (spec.md §6's "CLI (non-core, sketch)"): init, anchor, resolve.
//
// This binary wires the in-memory reference backends (memobjectstore,
// memledger, validator/simplechain) rather than azureobjectstore or a real
// Ledger adapter, so it is a single-process demonstration of the full
// update/commit/resolve pipeline, not a persistent service: a "resolve" run
// in a separate process from the "anchor" run that published the alias it
// names will always report not-found, since the in-memory ledger holds no
// state across process boundaries. Swapping in azureobjectstore and a real
// Ledger implementation (wired the same way New is already structured to
// accept any storage.ObjectStore/ledger.Ledger) removes that limitation
// without touching this file's command logic.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/datatrails/go-datatrails-common/logger"

	"github.com/iotaledger/didanchor-go/anchor"
	"github.com/iotaledger/didanchor-go/coc"
	"github.com/iotaledger/didanchor-go/digest"
	"github.com/iotaledger/didanchor-go/internal/config"
	"github.com/iotaledger/didanchor-go/internal/metrics"
	"github.com/iotaledger/didanchor-go/ledger/memledger"
	"github.com/iotaledger/didanchor-go/resolver"
	"github.com/iotaledger/didanchor-go/storage"
	"github.com/iotaledger/didanchor-go/storage/memobjectstore"
	"github.com/iotaledger/didanchor-go/validator/simplechain"
)

// Exit codes per spec.md §6.
const (
	exitSuccess         = 0
	exitValidationError = 2
	exitStorageError    = 3
	exitInvalidProof    = 4
)

// cliMetrics registers the metrics once per process; metrics.New registers
// with the default Prometheus registry, which rejects a second registration.
var cliMetrics = sync.OnceValue(metrics.New)

func main() {
	logger.New("NOOP")
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(stderr, "usage: didanchor <init|anchor|resolve> [args...]")
		return exitValidationError
	}

	ctx := context.Background()
	log := logger.Sugar.WithServiceName("didanchor")

	switch args[0] {
	case "init":
		return runInit(stdout, stderr)
	case "anchor":
		return runAnchor(ctx, args[1:], stdout, stderr, log)
	case "resolve":
		return runResolve(ctx, args[1:], stdout, stderr, log)
	default:
		fmt.Fprintf(stderr, "unknown subcommand %q\n", args[0])
		return exitValidationError
	}
}

// runInit writes a default AnchorConfig to config.DefaultPath, mirroring the
// original source's init.rs writing AnchorConfig::DEFAULT_PATH (without the
// testnet faucet bootstrapping, out of scope per spec.md §1's Non-goals).
func runInit(stdout, stderr io.Writer) int {
	cfg := config.AnchorConfig{
		StorageEndpoints: []storage.Endpoint{
			{Host: "127.0.0.1", SwarmPort: 5001, GatewayPort: 8080},
		},
	}
	if err := config.WriteDefaultLocation(cfg); err != nil {
		fmt.Fprintf(stderr, "init: %v\n", err)
		return exitStorageError
	}
	fmt.Fprintf(stdout, "successfully initialized %s\n", config.DefaultPath)
	return exitSuccess
}

// wireDocument is the CLI's on-disk shape for a simplechain.Document,
// matching simplechain's own wire format (validator/simplechain/simplechain.go).
type wireDocument struct {
	ID           string         `json:"id"`
	PreviousHash []byte         `json:"previous_hash,omitempty"`
	Payload      map[string]any `json:"payload"`
}

func readDocument(path string) (simplechain.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return simplechain.Document{}, err
	}
	var w wireDocument
	if err := json.Unmarshal(data, &w); err != nil {
		return simplechain.Document{}, err
	}
	return simplechain.Document{Id: w.ID, PreviousHash: w.PreviousHash, Payload: w.Payload}, nil
}

// runAnchor stages every document named in docPaths, in order, against a
// fresh local Anchor and commits once, printing the resulting alias id and
// DID-index CID.
func runAnchor(ctx context.Context, docPaths []string, stdout, stderr io.Writer, log logger.Logger) int {
	if len(docPaths) == 0 {
		fmt.Fprintln(stderr, "usage: didanchor anchor <document.json> [more.json...]")
		return exitValidationError
	}

	d := digest.Blake2b256{}
	store := memobjectstore.New()
	facade := storage.NewFacade(store, d)
	ledg := memledger.New()
	canon := func(v any) ([]byte, error) { return coc.CanonicalJSON(v) }
	enc := simplechain.Encode(canon)
	v := simplechain.New(d, func(doc simplechain.Document) ([]byte, error) { return enc(doc) })

	cfg, err := config.ReadDefaultLocation()
	if err != nil {
		cfg = config.AnchorConfig{}
	}

	m := cliMetrics()
	a, err := anchor.New(ctx, anchor.Config{AliasID: cfg.AliasID, IndexCID: cfg.IndexCID, StorageEndpoints: cfg.StorageEndpoints},
		facade, v, enc, simplechain.Decode, ledg, d, log, m, nil)
	if err != nil {
		fmt.Fprintf(stderr, "anchor: %v\n", err)
		return exitStorageError
	}

	for _, path := range docPaths {
		doc, err := readDocument(path)
		if err != nil {
			fmt.Fprintf(stderr, "anchor: reading %s: %v\n", path, err)
			return exitValidationError
		}
		if err := a.UpdateDocument(ctx, doc); err != nil {
			fmt.Fprintf(stderr, "anchor: staging %s: %v\n", path, err)
			return exitValidationError
		}
	}

	aliasID, err := a.CommitChanges(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "anchor: commit failed: %v\n", err)
		return exitStorageError
	}

	newCfg := config.AnchorConfig{
		AliasID:          a.AliasID(),
		IndexCID:         a.IndexCID(),
		StorageEndpoints: cfg.StorageEndpoints,
	}
	if err := config.WriteDefaultLocation(newCfg); err != nil {
		fmt.Fprintf(stderr, "anchor: persisting config: %v\n", err)
		return exitStorageError
	}

	fmt.Fprintf(stdout, "committed alias %s, index %s\n", aliasID, *a.IndexCID())
	return exitSuccess
}

// runResolve resolves a single DID against a fresh local Resolver. See the
// package doc comment for why this only succeeds within the same process
// that published the alias.
func runResolve(ctx context.Context, didArgs []string, stdout, stderr io.Writer, log logger.Logger) int {
	if len(didArgs) != 1 {
		fmt.Fprintln(stderr, "usage: didanchor resolve <alias_id:tag>")
		return exitValidationError
	}
	did := didArgs[0]

	d := digest.Blake2b256{}
	store := memobjectstore.New()
	facade := storage.NewFacade(store, d)
	ledg := memledger.New()

	m := cliMetrics()
	res := resolver.New(ledg, facade, d, simplechain.Decode, log, m)

	doc, ok, err := res.Resolve(ctx, did)
	if err != nil {
		if errors.Is(err, resolver.ErrInvalidProof) {
			fmt.Fprintf(stderr, "resolve: %v\n", err)
			return exitInvalidProof
		}
		fmt.Fprintf(stderr, "resolve: %v\n", err)
		return exitStorageError
	}
	if !ok {
		fmt.Fprintf(stdout, "unable to resolve %s\n", did)
		return exitSuccess
	}

	pretty, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		fmt.Fprintf(stderr, "resolve: encoding result: %v\n", err)
		return exitStorageError
	}
	fmt.Fprintln(stdout, string(pretty))
	return exitSuccess
}
