package checkpoint

import "errors"

var (
	// ErrEncodeFailure is returned when a checkpoint payload or signed
	// message cannot be CBOR-encoded.
	ErrEncodeFailure = errors.New("checkpoint: encode failure")
	// ErrDecodeFailure is returned when a signed checkpoint cannot be
	// CBOR-decoded.
	ErrDecodeFailure = errors.New("checkpoint: decode failure")
	// ErrSignFailure wraps a COSE signing failure.
	ErrSignFailure = errors.New("checkpoint: signing failed")
	// ErrVerifyFailed is returned when COSE signature verification fails.
	ErrVerifyFailed = errors.New("checkpoint: signature verification failed")
)
