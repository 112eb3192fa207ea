package redisstore

import (
	"context"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/mohammed-shakir/heatbox-map/internal/core/observability"
)

// creates new client connected to miniredis for testing
func newMini(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	t.Cleanup(cancel)

	rc, err := New(ctx, mr.Addr(), WithPoolSize(4), WithReadTimeout(time.Second))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = rc.Close() })
	return rc, mr
}

func TestSetGetDel_HappyPath(t *testing.T) {
	rc, _ := newMini(t)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := rc.Set(ctx, "k1", []byte("v1"), 5*time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}

	got, ok, err := rc.Get(ctx, "k1")
	if err != nil || !ok || string(got) != "v1" {
		t.Fatalf("Get k1: got=%q ok=%v err=%v", got, ok, err)
	}

	_, ok, err = rc.Get(ctx, "missing")
	if err != nil || ok {
		t.Fatalf("Get missing: ok=%v err=%v", ok, err)
	}

	if err := rc.Del(ctx, "k1"); err != nil {
		t.Fatalf("Del: %v", err)
	}
	if _, ok, _ := rc.Get(ctx, "k1"); ok {
		t.Fatal("k1 still present after Del")
	}
}

func TestDelMatch_RemovesOnlyMatchingKeys(t *testing.T) {
	rc, mr := newMini(t)
	ctx := context.Background()

	for _, k := range []string{"heatbox:layer:kommunen:o=1", "heatbox:layer:kommunen:o=2", "heatbox:layer:waermenetze:o=1"} {
		if err := rc.Set(ctx, k, []byte("x"), time.Minute); err != nil {
			t.Fatalf("Set %s: %v", k, err)
		}
	}

	n, err := rc.DelMatch(ctx, "heatbox:layer:kommunen:o=*")
	if err != nil {
		t.Fatalf("DelMatch: %v", err)
	}
	if n != 2 {
		t.Fatalf("deleted=%d want 2", n)
	}
	keys := mr.Keys()
	if len(keys) != 1 || !strings.Contains(keys[0], "waermenetze") {
		t.Fatalf("remaining keys=%v", keys)
	}
}

func TestContextDeadline_IsRespected(t *testing.T) {
	rc, _ := newMini(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := rc.Set(ctx, "k", []byte("v"), time.Second); err == nil {
		t.Fatalf("expected error on Set with canceled context")
	}
	if _, _, err := rc.Get(ctx, "k"); err == nil {
		t.Fatalf("expected error on Get with canceled context")
	}
	if err := rc.Del(ctx, "k"); err == nil {
		t.Fatalf("expected error on Del with canceled context")
	}
}

func TestMetrics_Incremented(t *testing.T) {
	reg := prometheus.NewRegistry()
	if err := observability.Init(reg); err != nil {
		t.Fatalf("observability.Init: %v", err)
	}

	rc, _ := newMini(t)
	ctx := context.Background()
	_ = rc.Set(ctx, "m1", []byte("x"), time.Minute)
	_, _, _ = rc.Get(ctx, "m1")
	_ = rc.Del(ctx, "m1")

	if n, err := testutil.GatherAndCount(reg, "cache_op_total"); err != nil || n < 3 {
		t.Fatalf("cache_op_total series=%d err=%v want >=3", n, err)
	}
	if n, err := testutil.GatherAndCount(reg, "redis_operation_duration_seconds"); err != nil || n == 0 {
		t.Fatalf("missing redis_operation_duration_seconds (n=%d err=%v)", n, err)
	}
}
