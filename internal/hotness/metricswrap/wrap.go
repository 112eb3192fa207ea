// Package metricswrap wraps hotness calculations with Prometheus metrics.
package metricswrap

import (
	"fmt"
	"log/slog"

	xx "github.com/cespare/xxhash/v2"

	"github.com/mohammed-shakir/heatbox-map/internal/core/observability"
	"github.com/mohammed-shakir/heatbox-map/internal/hotness"
)

type Sizer interface{ Size() int }

type Options struct {
	// HotThreshold logs cells whose score reaches it; 0 disables.
	HotThreshold float64
	// LogSample is the fraction of hot cells logged.
	LogSample float64
	Logger    *slog.Logger
}

type WithMetrics struct {
	inner hotness.Interface
	opts  Options
}

var _ hotness.Interface = (*WithMetrics)(nil)

func New(inner hotness.Interface, opts Options) *WithMetrics {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &WithMetrics{inner: inner, opts: opts}
}

func (w *WithMetrics) Inc(cell string) {
	w.inner.Inc(cell)
	if w.opts.HotThreshold > 0 {
		score := w.inner.Score(cell)
		if score >= w.opts.HotThreshold && shouldLog(w.opts.LogSample, cell) {
			w.opts.Logger.Info("hot cell above threshold",
				"event", "hotness_threshold",
				"score", score,
				"cell", cell,
				"cell_hash", fmt.Sprintf("%08x", xx.Sum64String(cell)))
		}
	}
	w.updateGauge()
}

func (w *WithMetrics) Score(cell string) float64 {
	return w.inner.Score(cell)
}

func (w *WithMetrics) Reset(cells ...string) {
	w.inner.Reset(cells...)
	w.updateGauge()
}

func (w *WithMetrics) Top(n int) []hotness.Entry {
	return w.inner.Top(n)
}

func (w *WithMetrics) updateGauge() {
	if s, ok := w.inner.(Sizer); ok {
		observability.SetHotCells(s.Size())
	}
}

func shouldLog(sample float64, key string) bool {
	if sample <= 0 {
		return false
	}
	if sample >= 1 {
		return true
	}
	const denom = 10000 // 0.01 => 100/10000
	threshold := uint64(sample*denom + 0.5)
	if threshold == 0 {
		return false
	}
	h := xx.Sum64String(key)
	return (h % denom) < threshold
}
