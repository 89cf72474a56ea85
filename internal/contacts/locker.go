package contacts

import "context"

// Locker serializes record-level operations on a single contact. The
// in-process implementation covers one process; a distributed one would
// cover a cluster. Sync pulls do not take locks; callers serialize whole
// pulls per org externally.
type Locker interface {
	// Acquire blocks until the key's lock is held or ctx is done.
	// The returned release function must be called exactly once.
	Acquire(ctx context.Context, key string) (release func(), err error)
}
