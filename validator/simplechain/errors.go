package simplechain

import "errors"

var (
	// ErrInvalidRoot is returned when a proposed root document fails the
	// root-document rule.
	ErrInvalidRoot = errors.New("simplechain: not a valid root document")
	// ErrInvalidAddition is returned when a proposed revision is not a valid
	// successor to a chain's current document.
	ErrInvalidAddition = errors.New("simplechain: not a valid chain addition")
	// ErrWrongType is returned when a validator.ResolvedDocument is not a
	// simplechain.Document.
	ErrWrongType = errors.New("simplechain: resolved document is not a simplechain.Document")
)
