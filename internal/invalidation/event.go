// Package invalidation defines the layer change events that trigger reloads.
package invalidation

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

const (
	OpInsert  = "insert"
	OpUpdate  = "update"
	OpDelete  = "delete"
	OpRefresh = "refresh"
)

// Event announces that a layer changed upstream. Seq orders events of one
// layer; Geometry optionally bounds the changed area.
type Event struct {
	Version  int             `json:"version"`
	Op       string          `json:"op"`
	Layer    string          `json:"layer"`
	TS       time.Time       `json:"ts"`
	Seq      *uint64         `json:"seq,omitempty"`
	Geometry json.RawMessage `json:"geometry,omitempty"`
}

func (e Event) Validate() error {
	if e.Version != 1 {
		return fmt.Errorf("version must be 1")
	}
	switch e.Op {
	case OpInsert, OpUpdate, OpDelete, OpRefresh:
	default:
		return fmt.Errorf("op must be insert|update|delete|refresh")
	}
	if strings.TrimSpace(e.Layer) == "" {
		return fmt.Errorf("layer is required")
	}
	if e.TS.IsZero() {
		return fmt.Errorf("ts is required")
	}
	if e.HasGeometry() {
		if _, err := e.Geom(); err != nil {
			return err
		}
	}
	return nil
}

func (e Event) HasGeometry() bool {
	s := strings.TrimSpace(string(e.Geometry))
	return s != "" && s != "null"
}

// Geom decodes the changed area; nil when the event carries none.
func (e Event) Geom() (orb.Geometry, error) {
	if !e.HasGeometry() {
		return nil, nil
	}
	g, err := geojson.UnmarshalGeometry(e.Geometry)
	if err != nil {
		return nil, fmt.Errorf("geometry parse: %w", err)
	}
	if g.Coordinates == nil {
		return nil, fmt.Errorf("geometry %s has no coordinates", g.Type)
	}
	if _, ok := g.Coordinates.(orb.Collection); ok {
		return nil, fmt.Errorf("geometry.type GeometryCollection is not supported")
	}
	return g.Coordinates, nil
}
