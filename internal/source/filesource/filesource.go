// Package filesource reads layers from <dir>/<category>.geojson.
package filesource

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/mohammed-shakir/heatbox-map/internal/core/model"
	"github.com/mohammed-shakir/heatbox-map/internal/source"
)

type Source struct {
	dir string
}

var _ source.Source = (*Source)(nil)

func New(dir string) *Source {
	if dir == "" {
		dir = "."
	}
	return &Source{dir: filepath.Clean(dir)}
}

func (s *Source) Origin() string { return "file:" + s.dir }

func (s *Source) Path(c model.Category) string {
	return filepath.Join(s.dir, c.Name+".geojson")
}

func (s *Source) Fetch(ctx context.Context, c model.Category) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b, err := os.ReadFile(s.Path(c))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("layer file %s: %w", s.Path(c), source.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read layer file: %w", err)
	}
	return b, nil
}
