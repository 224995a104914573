// Package lock provides per-key mutual exclusion, in process or across
// instances through Redis.
package lock

import (
	"context"
	"errors"
)

var ErrNotAcquired = errors.New("lock: not acquired")

// Locker grants exclusive access to a key until the returned release func is called.
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}
