// Package cache holds the layer snapshot caches.
package cache

import (
	"context"
	"time"
)

// Store caches raw FeatureCollection bytes per layer key.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, val []byte) error
	Del(ctx context.Context, key string) error
	// Invalidate drops every snapshot matching the key pattern.
	Invalidate(ctx context.Context, pattern string) error
}

// Remote is the shared second tier, implemented by redisstore.Client.
type Remote interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	DelMatch(ctx context.Context, pattern string) (int, error)
}
