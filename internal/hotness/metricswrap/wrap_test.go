package metricswrap

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mohammed-shakir/heatbox-map/internal/core/observability"
	"github.com/mohammed-shakir/heatbox-map/internal/hotness/expdecay"
	"github.com/mohammed-shakir/heatbox-map/internal/metrics"
)

func Test_HotCellsGauge_Updates(t *testing.T) {
	p := metrics.Init(metrics.Config{})
	if err := observability.Init(p.Registerer()); err != nil {
		t.Fatalf("observability.Init: %v", err)
	}

	tr := expdecay.New(30 * time.Second)
	w := New(tr, Options{})

	w.Inc("cellA")
	w.Inc("cellB")
	w.Reset("cellA")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	p.Handler().ServeHTTP(rr, req)
	body := rr.Body.String()

	if !strings.Contains(body, "hot_cells 1") {
		t.Fatalf("expected hot_cells gauge == 1, got:\n%s", body)
	}
	if top := w.Top(5); len(top) != 1 || top[0].Cell != "cellB" {
		t.Fatalf("top=%+v", top)
	}
}

func Test_ThresholdLogging(t *testing.T) {
	var buf bytes.Buffer
	w := New(expdecay.New(time.Minute), Options{
		HotThreshold: 2,
		LogSample:    1,
		Logger:       slog.New(slog.NewJSONHandler(&buf, nil)),
	})
	w.Inc("871faa2b4ffffff")
	if buf.Len() != 0 {
		t.Fatalf("logged below threshold: %s", buf.String())
	}
	w.Inc("871faa2b4ffffff")
	if !strings.Contains(buf.String(), `"event":"hotness_threshold"`) {
		t.Fatalf("expected threshold log, got %q", buf.String())
	}
}

func TestShouldLog_Edges(t *testing.T) {
	if shouldLog(0, "x") || !shouldLog(1, "x") {
		t.Fatal("edge sampling wrong")
	}
}
