package coc

import "errors"

var (
	// ErrInvalidRoot is returned when a document offered as a new DID's
	// first revision fails DocumentValidator.NewChain.
	ErrInvalidRoot = errors.New("coc: not a valid root document")
	// ErrInvalidAddition is returned when a document fails
	// Chain.CheckValidAddition against an existing chain.
	ErrInvalidAddition = errors.New("coc: not a valid chain addition")
	// ErrUnknownDID is returned when an addition is attempted for a DID the
	// engine has no leaf index for.
	ErrUnknownDID = errors.New("coc: unknown DID")
	// ErrEncodeFailure is returned when a document cannot be canonically
	// encoded into CoC-bytes.
	ErrEncodeFailure = errors.New("coc: failed to encode document")
	// ErrDecodeFailure is returned when CoC-bytes cannot be decoded back into
	// a chain, e.g. after loading an existing chain from storage.
	ErrDecodeFailure = errors.New("coc: failed to decode chain")
)
