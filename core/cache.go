package core

import (
	"context"
	"time"
)

// Cache stores JSON encoded values under string keys.
type Cache interface {
	// Get decodes the value stored under key into dest and reports whether it was found.
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, val interface{}, ttl time.Duration) error
	// DeletePrefix removes all the keys starting with prefix.
	DeletePrefix(ctx context.Context, prefix string) error
}

// Invalidator drops cached results built from rows that were changed.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}
