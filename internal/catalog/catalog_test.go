package catalog

import (
	"errors"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/mohammed-shakir/heatbox-map/internal/core/model"
)

func TestDecode_SkipsBrokenFeaturesKeepsOrder(t *testing.T) {
	doc := `{"type":"FeatureCollection","features":[
		{"type":"Feature","properties":{"gen":"A"},"geometry":{"type":"Point","coordinates":[8.5,50.1]}},
		{"type":"Feature","properties":{"gen":"B"},"geometry":{"type":"Polygon","coordinates":"oops"}},
		{"type":"Feature","properties":null,"geometry":null},
		{"type":"Feature","properties":{"gen":"D"},"geometry":{"type":"LineString","coordinates":[[8,50],[9,51]]}}
	]}`
	fc, bad, err := Decode([]byte(doc))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(bad) != 1 || bad[0].Index != 1 {
		t.Fatalf("bad=%+v", bad)
	}
	if len(fc.Features) != 3 {
		t.Fatalf("features=%d want 3", len(fc.Features))
	}
	if fc.Features[0].Properties["gen"] != "A" || fc.Features[2].Properties["gen"] != "D" {
		t.Fatalf("order not preserved")
	}
	if fc.Features[1].Geometry != nil || fc.Features[1].Properties == nil {
		t.Fatalf("null geometry feature: %+v", fc.Features[1])
	}
}

func TestDecode_RejectsNonCollections(t *testing.T) {
	for _, doc := range []string{"", "[]", `{"type":"Feature"}`, `{"error":"x"}`, "{"} {
		if _, _, err := Decode([]byte(doc)); err == nil {
			t.Fatalf("expected error for %q", doc)
		}
	}
}

func TestCatalog_ReplaceIsCopyOnWrite(t *testing.T) {
	c := New(model.DefaultCategories())
	before := c.Collections()

	fc := geojson.NewFeatureCollection()
	fc.Append(geojson.NewFeature(orb.Point{1, 2}))
	if err := c.Replace("kommunen", fc, time.Now()); err != nil {
		t.Fatalf("Replace: %v", err)
	}
	if before["kommunen"] != nil {
		t.Fatal("earlier snapshot observed a replacement")
	}
	if c.Collections()["kommunen"] != fc {
		t.Fatal("new snapshot missing collection")
	}
	if err := c.Replace("nope", fc, time.Now()); !errors.Is(err, ErrUnknownCategory) {
		t.Fatalf("err=%v", err)
	}
}

func TestCatalog_LayerAndFeature(t *testing.T) {
	c := New(model.DefaultCategories())

	fc, err := c.Layer("waermenetze")
	if err != nil || fc == nil || len(fc.Features) != 0 {
		t.Fatalf("unloaded layer must be empty: fc=%v err=%v", fc, err)
	}
	if _, err := c.Layer("unknown"); !errors.Is(err, ErrUnknownCategory) {
		t.Fatalf("err=%v", err)
	}

	loaded := geojson.NewFeatureCollection()
	loaded.Append(geojson.NewFeature(orb.Point{8, 50}))
	_ = c.Replace("waermenetze", loaded, time.Now())
	if f, err := c.Feature("waermenetze", 0); err != nil || f == nil {
		t.Fatalf("Feature: %v", err)
	}
	if _, err := c.Feature("waermenetze", 1); !errors.Is(err, ErrFeatureNotFound) {
		t.Fatalf("err=%v", err)
	}
	if _, err := c.Feature("waermenetze", -1); !errors.Is(err, ErrFeatureNotFound) {
		t.Fatalf("err=%v", err)
	}
}

func TestCatalog_ReadinessAndSummaries(t *testing.T) {
	cats := model.DefaultCategories().Subset([]string{"kommunen", "eignungsgebiete"})
	c := New(cats)
	if ready, pending := c.Readiness(); ready || len(pending) != 2 {
		t.Fatalf("ready=%v pending=%v", ready, pending)
	}
	_ = c.Replace("kommunen", geojson.NewFeatureCollection(), time.Now())
	c.MarkAttempted("eignungsgebiete")
	if ready, _ := c.Readiness(); !ready {
		t.Fatal("expected ready after every category was attempted")
	}

	sums := c.Summaries()
	if len(sums) != 2 || !sums[0].Loaded || sums[1].Loaded || sums[1].LoadedAt != nil {
		t.Fatalf("summaries=%+v", sums)
	}
	if got := c.Loaded(); len(got) != 1 || got[0] != "kommunen" {
		t.Fatalf("loaded=%v", got)
	}
}
