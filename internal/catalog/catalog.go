// Package catalog holds the currently loaded feature collection of every category.
package catalog

import (
	"errors"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/paulmach/orb/geojson"

	"github.com/mohammed-shakir/heatbox-map/internal/core/model"
	"github.com/mohammed-shakir/heatbox-map/internal/evaluate"
)

var (
	ErrUnknownCategory = errors.New("catalog: unknown category")
	ErrFeatureNotFound = errors.New("catalog: feature not found")
)

type snapshot struct {
	cols     evaluate.Collections
	loadedAt map[string]time.Time
}

// Catalog is copy-on-write: readers never see a collection being replaced.
// Collections handed out must not be mutated.
type Catalog struct {
	cats model.Categories
	snap atomic.Pointer[snapshot]

	mu        sync.Mutex
	attempted map[string]bool
}

func New(cats model.Categories) *Catalog {
	c := &Catalog{cats: cats, attempted: make(map[string]bool, len(cats))}
	c.snap.Store(&snapshot{cols: evaluate.Collections{}, loadedAt: map[string]time.Time{}})
	return c
}

func (c *Catalog) Categories() model.Categories { return c.cats }

// Collections returns the current snapshot for the evaluator.
func (c *Catalog) Collections() evaluate.Collections { return c.snap.Load().cols }

// Layer returns the loaded collection, or an empty one if the category was
// never loaded successfully.
func (c *Catalog) Layer(name string) (*geojson.FeatureCollection, error) {
	if _, ok := c.cats.Lookup(name); !ok {
		return nil, ErrUnknownCategory
	}
	if fc := c.snap.Load().cols[name]; fc != nil {
		return fc, nil
	}
	return geojson.NewFeatureCollection(), nil
}

func (c *Catalog) Feature(name string, index int) (*geojson.Feature, error) {
	fc, err := c.Layer(name)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(fc.Features) || fc.Features[index] == nil {
		return nil, ErrFeatureNotFound
	}
	return fc.Features[index], nil
}

// Replace swaps in a freshly loaded collection for one category.
func (c *Catalog) Replace(name string, fc *geojson.FeatureCollection, at time.Time) error {
	if _, ok := c.cats.Lookup(name); !ok {
		return ErrUnknownCategory
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	cur := c.snap.Load()
	next := &snapshot{
		cols:     make(evaluate.Collections, len(cur.cols)+1),
		loadedAt: make(map[string]time.Time, len(cur.loadedAt)+1),
	}
	for k, v := range cur.cols {
		next.cols[k] = v
	}
	for k, v := range cur.loadedAt {
		next.loadedAt[k] = v
	}
	next.cols[name] = fc
	next.loadedAt[name] = at
	c.snap.Store(next)
	c.attempted[name] = true
	return nil
}

// MarkAttempted records a load attempt that left the category unchanged.
func (c *Catalog) MarkAttempted(name string) {
	c.mu.Lock()
	c.attempted[name] = true
	c.mu.Unlock()
}

// Readiness is true once every category has been attempted at least once.
func (c *Catalog) Readiness() (bool, []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var pending []string
	for _, cat := range c.cats {
		if !c.attempted[cat.Name] {
			pending = append(pending, cat.Name)
		}
	}
	return len(pending) == 0, pending
}

type Summary struct {
	Name     string     `json:"name"`
	Label    string     `json:"label"`
	Features int        `json:"features"`
	Loaded   bool       `json:"loaded"`
	LoadedAt *time.Time `json:"loaded_at,omitempty"`
}

func (c *Catalog) Summaries() []Summary {
	s := c.snap.Load()
	out := make([]Summary, 0, len(c.cats))
	for _, cat := range c.cats {
		sum := Summary{Name: cat.Name, Label: cat.Label}
		if fc := s.cols[cat.Name]; fc != nil {
			sum.Features = len(fc.Features)
			sum.Loaded = true
			at := s.loadedAt[cat.Name]
			sum.LoadedAt = &at
		}
		out = append(out, sum)
	}
	return out
}

// Loaded lists the categories with a collection, in declaration order.
func (c *Catalog) Loaded() []string {
	s := c.snap.Load()
	var out []string
	for _, cat := range c.cats {
		if s.cols[cat.Name] != nil {
			out = append(out, cat.Name)
		}
	}
	return slices.Clip(out)
}
