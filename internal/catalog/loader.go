package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mohammed-shakir/heatbox-map/internal/cache"
	"github.com/mohammed-shakir/heatbox-map/internal/cache/keys"
	"github.com/mohammed-shakir/heatbox-map/internal/core/model"
	"github.com/mohammed-shakir/heatbox-map/internal/core/observability"
	"github.com/mohammed-shakir/heatbox-map/internal/logger"
	"github.com/mohammed-shakir/heatbox-map/internal/source"
)

type loadMode int

const (
	// cache first, upstream on miss
	loadCached loadMode = iota
	// drop this origin's snapshot and fetch
	loadFresh
	// drop the snapshots of every origin and fetch
	loadInvalidate
)

// Loader fills the catalog from a source through an optional layer cache.
// Loads of one category are serialized so an older fetch never replaces a
// newer one.
type Loader struct {
	cat    *Catalog
	src    source.Source
	store  cache.Store
	logger *slog.Logger
	now    func() time.Time
	locks  map[string]*sync.Mutex
}

func NewLoader(cat *Catalog, src source.Source, store cache.Store, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	locks := make(map[string]*sync.Mutex, len(cat.Categories()))
	for _, c := range cat.Categories() {
		locks[c.Name] = &sync.Mutex{}
	}
	return &Loader{cat: cat, src: src, store: store, logger: logger, now: time.Now, locks: locks}
}

// LoadAll loads every category. A failing category keeps its previous
// collection (or stays absent) and its error is joined into the result.
func (l *Loader) LoadAll(ctx context.Context) error {
	var errs []error
	for _, c := range l.cat.Categories() {
		if err := l.load(ctx, c, loadCached); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Reload drops the cached snapshots of one category, including those cached
// for other origins sharing the cache, and fetches it fresh.
func (l *Loader) Reload(ctx context.Context, name string) error {
	c, ok := l.cat.Categories().Lookup(name)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownCategory, name)
	}
	return l.load(ctx, c, loadInvalidate)
}

// Run refreshes all categories every interval until ctx is done.
func (l *Loader) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			for _, c := range l.cat.Categories() {
				if ctx.Err() != nil {
					return
				}
				_ = l.load(ctx, c, loadFresh)
			}
		}
	}
}

func (l *Loader) load(ctx context.Context, c model.Category, mode loadMode) error {
	if mu := l.locks[c.Name]; mu != nil {
		mu.Lock()
		defer mu.Unlock()
	}
	ctx = logger.WithCategory(ctx, c.Name)
	key := keys.LayerKey(c.Name, l.src.Origin())

	if l.store != nil {
		switch mode {
		case loadInvalidate:
			if err := l.store.Invalidate(ctx, keys.LayerPattern(c.Name)); err != nil {
				l.logger.WarnContext(ctx, "layer cache invalidate failed", "err", err)
			}
		case loadFresh:
			if err := l.store.Del(ctx, key); err != nil {
				l.logger.WarnContext(ctx, "layer cache delete failed", "err", err)
			}
		default:
			b, ok := l.store.Get(ctx, key)
			if !ok {
				break
			}
			if err := l.install(ctx, c, b, "cache"); err == nil {
				return nil
			}
			_ = l.store.Del(ctx, key)
		}
	}

	b, err := l.src.Fetch(ctx, c)
	if err != nil {
		observability.IncLayerLoad(c.Name, "upstream", err)
		l.cat.MarkAttempted(c.Name)
		l.logger.WarnContext(ctx, "layer load failed", "err", err)
		return fmt.Errorf("load %s: %w", c.Name, err)
	}
	if err := l.install(ctx, c, b, "upstream"); err != nil {
		l.cat.MarkAttempted(c.Name)
		return fmt.Errorf("load %s: %w", c.Name, err)
	}
	if l.store != nil {
		if err := l.store.Set(ctx, key, b); err != nil {
			l.logger.WarnContext(ctx, "layer cache write failed", "err", err)
		}
	}
	return nil
}

func (l *Loader) install(ctx context.Context, c model.Category, b []byte, from string) error {
	fc, bad, err := Decode(b)
	observability.IncLayerLoad(c.Name, from, err)
	if err != nil {
		l.logger.WarnContext(ctx, "layer decode failed", "from", from, "err", err)
		return err
	}
	for _, d := range bad {
		observability.IncFeatureSkipped(c.Name, "decode")
		l.logger.DebugContext(ctx, "skipping undecodable feature", "index", d.Index, "err", d.Err)
	}
	if err := l.cat.Replace(c.Name, fc, l.now()); err != nil {
		return err
	}
	observability.SetLayerFeatures(c.Name, len(fc.Features))
	l.logger.InfoContext(ctx, "layer loaded", "from", from, "features", len(fc.Features), "skipped", len(bad))
	return nil
}
