// Package source defines where layer FeatureCollections are loaded from.
package source

import (
	"context"
	"errors"

	"github.com/mohammed-shakir/heatbox-map/internal/core/model"
)

var ErrNotFound = errors.New("source: not found")

// Source returns the raw GeoJSON FeatureCollection of one category.
type Source interface {
	Fetch(ctx context.Context, c model.Category) ([]byte, error)
	// Origin identifies the upstream in cache keys.
	Origin() string
}
