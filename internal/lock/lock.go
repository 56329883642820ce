// Package lock serializes work per key.  The allocation processor takes
// one lock per facility code around its load-evaluate-commit span so
// that concurrent commands against the same facility cannot both pass
// the capacity check.  Different keys never contend.
package lock

import (
	"context"
	"errors"
)

// ErrNotAcquired is returned when a lock could not be obtained before
// the caller's context or the locker's wait budget ran out.
var ErrNotAcquired = errors.New("lock not acquired")

// Locker acquires an exclusive lock on key.  The returned release
// function must be called exactly once.
type Locker interface {
	Lock(ctx context.Context, key string) (release func(), err error)
}

// FacilityKey is the lock key used for a facility code.
func FacilityKey(code string) string { return "facility:" + code }
