package syncer

import (
	"errors"
)

// Failure classes for a channel sync attempt. Both are recoverable and
// channel-scoped: a failing channel simply gains no new items until its
// source or storage recovers, and sibling channels are unaffected.
var (
	ErrFetch   = errors.New("fetch failed")
	ErrStorage = errors.New("storage failed")
)
