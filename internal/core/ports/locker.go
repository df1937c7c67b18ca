package ports

import (
	"context"
	"time"
)

// CompanyLocker serialises mutations against a single company. It narrows
// the read-then-write race window between concurrent sagas; the updated_at
// precondition on company writes remains the correctness backstop.
type CompanyLocker interface {
	// TryLock attempts to take the lock without blocking. It returns an
	// opaque release token and whether the lock was acquired.
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, ok bool, err error)
	// Release frees the lock if it is still held with the given token.
	Release(ctx context.Context, key, token string) error
}
