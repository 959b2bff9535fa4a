package cidcodec

import "errors"

// ErrInvalidCID is returned when a CID cannot be computed, parsed, or does
// not match the expected version.
var ErrInvalidCID = errors.New("cidcodec: invalid CID")
