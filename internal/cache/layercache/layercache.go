// Package layercache keeps layer snapshots in a process-local expirable LRU
// backed by an optional Redis tier shared between replicas.
package layercache

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/mohammed-shakir/heatbox-map/internal/cache"
	"github.com/mohammed-shakir/heatbox-map/internal/core/observability"
)

type Options struct {
	Size      int
	TTL       time.Duration
	OpTimeout time.Duration
	Logger    *slog.Logger
}

type Store struct {
	l1        *expirable.LRU[string, []byte]
	l2        cache.Remote
	ttl       time.Duration
	opTimeout time.Duration
	logger    *slog.Logger
}

var _ cache.Store = (*Store)(nil)

// New returns a memory-only store when remote is nil.
func New(remote cache.Remote, opts Options) *Store {
	if opts.Size <= 0 {
		opts.Size = 32
	}
	if opts.TTL <= 0 {
		opts.TTL = 10 * time.Minute
	}
	if opts.OpTimeout <= 0 {
		opts.OpTimeout = 250 * time.Millisecond
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Store{
		l1:        expirable.NewLRU[string, []byte](opts.Size, nil, opts.TTL),
		l2:        remote,
		ttl:       opts.TTL,
		opTimeout: opts.OpTimeout,
		logger:    opts.Logger,
	}
}

// Get reads L1 first, then L2. Remote failures are logged and reported as a miss.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool) {
	if b, ok := s.l1.Get(key); ok {
		observability.IncCacheResult("l1_get", true)
		return b, true
	}
	observability.IncCacheResult("l1_get", false)
	if s.l2 == nil {
		return nil, false
	}

	cctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()
	b, ok, err := s.l2.Get(cctx, key)
	if err != nil {
		s.logger.WarnContext(ctx, "layer cache remote get failed", "key", key, "err", err)
		return nil, false
	}
	observability.IncCacheResult("l2_get", ok)
	if !ok {
		return nil, false
	}
	s.l1.Add(key, b)
	return b, true
}

func (s *Store) Set(ctx context.Context, key string, val []byte) error {
	s.l1.Add(key, val)
	if s.l2 == nil {
		return nil
	}
	cctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()
	if err := s.l2.Set(cctx, key, val, s.ttl); err != nil {
		return fmt.Errorf("layer cache set %q: %w", key, err)
	}
	return nil
}

func (s *Store) Del(ctx context.Context, key string) error {
	s.l1.Remove(key)
	if s.l2 == nil {
		return nil
	}
	cctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()
	if err := s.l2.Del(cctx, key); err != nil {
		return fmt.Errorf("layer cache del %q: %w", key, err)
	}
	return nil
}

// Invalidate uses glob syntax, the same as Redis SCAN MATCH.
func (s *Store) Invalidate(ctx context.Context, pattern string) error {
	for _, k := range s.l1.Keys() {
		if ok, _ := path.Match(pattern, k); ok {
			s.l1.Remove(k)
		}
	}
	if s.l2 == nil {
		return nil
	}
	cctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()
	n, err := s.l2.DelMatch(cctx, pattern)
	if err != nil {
		return fmt.Errorf("layer cache invalidate %q: %w", pattern, err)
	}
	s.logger.DebugContext(ctx, "layer cache invalidated", "pattern", pattern, "remote_deleted", n)
	return nil
}

func (s *Store) Len() int { return s.l1.Len() }
