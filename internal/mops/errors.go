// Public domain.

package mops

import "errors"

// Error categories for the whole program.  Everything fatal wraps one of
// these so callers can map a failure to an exit code without string
// matching.
var (
	// ErrBadInput covers malformed file lines, duplicate detection ids,
	// negative error thresholds and a zero leaf size.
	ErrBadInput = errors.New("bad input")

	// ErrInvalidConfig covers contradictory or nonsensical search
	// parameters.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrInternalInvariant marks a programmer bug: a projection that
	// shrinks a range, a recursion that enters a leaf it shouldn't,
	// cached bounds that disagree with recomputed ones.
	ErrInternalInvariant = errors.New("internal invariant violated")

	// ErrTimeout marks an expired per-pair deadline.  Logged, not fatal.
	ErrTimeout = errors.New("timeout")
)
