package digest

import "errors"

// ErrSizeMismatch is returned when a hash does not match the digest's fixed
// output size.
var ErrSizeMismatch = errors.New("hash length does not match digest output size")
