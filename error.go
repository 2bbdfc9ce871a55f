package relay

import "errors"

// Sentinel errors shared across relay packages.
//
// Packages wrap these with additional context, e.g.,
// fmt.Errorf("%w: session cookie name required", ErrBadConfig),
// so callers can test categories with [errors.Is].
var (
	ErrBadConfig   = errors.New("bad config")
	ErrMissingData = errors.New("missing data")
	ErrNotExist    = errors.New("not exist")
	ErrNotValid    = errors.New("invalid")
)
