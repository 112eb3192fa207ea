package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/paulmach/orb/geojson"
)

// DecodeError describes one feature that could not be decoded.
type DecodeError struct {
	Index int
	Err   error
}

// Decode parses a FeatureCollection feature by feature. Undecodable features
// are dropped and reported; the rest keep their order. Only an unusable
// document is an error.
func Decode(b []byte) (*geojson.FeatureCollection, []DecodeError, error) {
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return nil, nil, errors.New("empty layer document")
	}
	var root struct {
		Type     string            `json:"type"`
		Features []json.RawMessage `json:"features"`
	}
	if err := json.Unmarshal(b, &root); err != nil {
		return nil, nil, fmt.Errorf("invalid layer JSON: %w", err)
	}
	if root.Type != "FeatureCollection" {
		return nil, nil, fmt.Errorf("layer type must be FeatureCollection, got %q", root.Type)
	}

	fc := geojson.NewFeatureCollection()
	fc.Features = make([]*geojson.Feature, 0, len(root.Features))
	var bad []DecodeError
	for i, raw := range root.Features {
		f, err := geojson.UnmarshalFeature(raw)
		if err != nil {
			bad = append(bad, DecodeError{Index: i, Err: err})
			continue
		}
		if f.Properties == nil {
			f.Properties = geojson.Properties{}
		}
		fc.Append(f)
	}
	return fc, bad, nil
}
