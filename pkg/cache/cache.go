// Package cache provides storage backends for encoded identicons.
//
// The avatar server renders icons on demand; rendering is cheap but
// serving popular names from a cache avoids recompressing the same PNG
// for every request. Three backends implement the [Cache] interface:
//
//   - FileCache: directory-backed, for single-instance CLI/server use
//   - RedisCache: Redis-backed, for multi-instance deployments
//   - NullCache: no-op, for tests or when caching is disabled
//
// Keys are derived with [IconKey] from the avatar name and the full set
// of rendering options, so two requests differing in any option never
// collide.
package cache

import (
	"context"
	"time"
)

// Cache stores encoded icon bytes with optional expiration.
type Cache interface {
	// Get retrieves a value. The second return reports whether the key
	// was present (and unexpired).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value. A non-positive ttl means no expiration.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes a value. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}
