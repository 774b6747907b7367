package interfaces

import (
	"context"
	"time"
)

// CacheProvider stores API responses under logical keys with a per-entry TTL.
// Get must report a miss (non-nil error) once an entry's TTL has elapsed.
type CacheProvider interface {
	Get(ctx context.Context, key string) (any, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}

// PrefixInvalidator is an optional CacheProvider extension used to drop every
// entry that belongs to one logical resource (for example all pages of a list).
type PrefixInvalidator interface {
	DeleteByPrefix(ctx context.Context, prefix string) error
}
