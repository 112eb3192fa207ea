// Package postgis builds layer FeatureCollections directly in PostGIS.
package postgis

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/mohammed-shakir/heatbox-map/internal/core/model"
	"github.com/mohammed-shakir/heatbox-map/internal/core/observability"
	"github.com/mohammed-shakir/heatbox-map/internal/source"
)

const DefaultGeomColumn = "geom"

type Source struct {
	db       *sql.DB
	origin   string
	geomCol  string
	startNow func() time.Time
}

var _ source.Source = (*Source)(nil)

func Open(dsn string) (*Source, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("postgis: DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgis open: %w", err)
	}
	db.SetMaxOpenConns(8)
	db.SetMaxIdleConns(4)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return Attach(db, redact(dsn)), nil
}

// Attach wraps an existing pool; origin names the database in cache keys.
func Attach(db *sql.DB, origin string) *Source {
	return &Source{db: db, origin: "postgis:" + origin, geomCol: DefaultGeomColumn, startNow: time.Now}
}

func (s *Source) Origin() string { return s.origin }

func (s *Source) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("postgis ping: %w", err)
	}
	return nil
}

func (s *Source) Close() error { return s.db.Close() }

func (s *Source) Fetch(ctx context.Context, c model.Category) ([]byte, error) {
	q, err := BuildQuery(c, s.geomCol)
	if err != nil {
		return nil, err
	}

	start := s.startNow()
	var b []byte
	err = s.db.QueryRowContext(ctx, q).Scan(&b)
	observability.ObserveUpstreamLatency("postgis", time.Since(start).Seconds())
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "42P01" {
			return nil, fmt.Errorf("table %s: %w", c.Table, source.ErrNotFound)
		}
		return nil, fmt.Errorf("postgis fetch %s: %w", c.Name, err)
	}
	return b, nil
}

// BuildQuery aggregates every row of the category table into one
// FeatureCollection; all non-geometry columns become properties.
// Table names are case-sensitive ("Kommunen").
func BuildQuery(c model.Category, geomCol string) (string, error) {
	table := strings.TrimSpace(c.Table)
	if table == "" {
		return "", fmt.Errorf("postgis: category %q has no table", c.Name)
	}
	if geomCol == "" {
		geomCol = DefaultGeomColumn
	}
	g := pq.QuoteIdentifier(geomCol)
	return fmt.Sprintf(`SELECT json_build_object(
	'type', 'FeatureCollection',
	'features', COALESCE(json_agg(json_build_object(
		'type', 'Feature',
		'properties', to_jsonb(t) - %s,
		'geometry', ST_AsGeoJSON(t.%s)::json
	)), '[]'::json)
)::text FROM %s AS t`, pq.QuoteLiteral(geomCol), g, pq.QuoteIdentifier(table)), nil
}

func redact(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil || u.Host == "" {
		return "db"
	}
	return u.Host + u.Path
}
