package storage

import "errors"

var (
	// ErrNotFound is returned when a DID, CID, or index lookup has no entry.
	ErrNotFound = errors.New("storage: not found")
	// ErrStorageUnavailable wraps a failure reaching the underlying
	// ObjectStore.
	ErrStorageUnavailable = errors.New("storage: object store unavailable")
	// ErrDecodeFailure is returned when bytes fetched from the store cannot
	// be decoded as the expected object (VCoC or DIDIndex).
	ErrDecodeFailure = errors.New("storage: decode failure")
	// ErrEncodeFailure is returned when an object cannot be encoded before
	// being written to the store.
	ErrEncodeFailure = errors.New("storage: encode failure")
)
