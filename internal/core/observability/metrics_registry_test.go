package observability

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestInit_RegistersOnCustomRegistryTwice(t *testing.T) {
	reg := prometheus.NewRegistry()
	if err := Init(reg); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if err := Init(reg); err != nil {
		t.Fatalf("second Init must tolerate duplicates: %v", err)
	}
	if err := Init(nil); err != nil {
		t.Fatalf("Init(nil): %v", err)
	}
}

func TestEvaluationAndLayerMetrics(t *testing.T) {
	before := testutil.ToFloat64(evaluationsTotal.WithLabelValues("match", "heatbox"))
	ObserveEvaluation(true, 0.0002)
	if got := testutil.ToFloat64(evaluationsTotal.WithLabelValues("match", "heatbox")); got != before+1 {
		t.Fatalf("evaluations_total{match}=%v want %v", got, before+1)
	}

	SetLayerFeatures("kommunen", 42)
	if got := testutil.ToFloat64(layerFeatures.WithLabelValues("kommunen")); got != 42 {
		t.Fatalf("layer_features=%v want 42", got)
	}

	IncLayerLoad("kommunen", "upstream", errors.New("boom"))
	if got := testutil.ToFloat64(layerLoadsTotal.WithLabelValues("kommunen", "upstream", "error")); got < 1 {
		t.Fatalf("layer_loads_total{error}=%v want >=1", got)
	}

	IncFeatureSkipped("kommunen", "malformed")
	if got := testutil.ToFloat64(featuresSkipped.WithLabelValues("kommunen", "malformed")); got < 1 {
		t.Fatalf("skipped=%v want >=1", got)
	}
}
