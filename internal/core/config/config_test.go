package config

import (
	"testing"
	"time"
)

func TestFromEnv_Defaults(t *testing.T) {
	cfg := FromEnv()
	if cfg.Addr != ":8090" || cfg.Source != "http" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if len(cfg.Categories) != 6 || cfg.Categories[0].Name != "kommunen" {
		t.Fatalf("default categories missing: %+v", cfg.Categories)
	}
	if cfg.CacheTTL != 10*time.Minute {
		t.Fatalf("CacheTTL=%v", cfg.CacheTTL)
	}
	if cfg.RedisPoolSize != 16 || cfg.RedisReadTO != 3*time.Second || cfg.RedisWriteTO != 3*time.Second {
		t.Fatalf("redis defaults: pool=%d read=%v write=%v", cfg.RedisPoolSize, cfg.RedisReadTO, cfg.RedisWriteTO)
	}
}

func TestFromEnv_RedisTuning(t *testing.T) {
	t.Setenv("REDIS_POOL_SIZE", "4")
	t.Setenv("REDIS_READ_TIMEOUT", "500ms")
	t.Setenv("REDIS_WRITE_TIMEOUT", "1s")
	cfg := FromEnv()
	if cfg.RedisPoolSize != 4 || cfg.RedisReadTO != 500*time.Millisecond || cfg.RedisWriteTO != time.Second {
		t.Fatalf("pool=%d read=%v write=%v", cfg.RedisPoolSize, cfg.RedisReadTO, cfg.RedisWriteTO)
	}
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("SOURCE", "PostGIS")
	t.Setenv("H3_RES", "99")
	t.Setenv("INVALIDATION_ENABLED", "yes")
	t.Setenv("CACHE_TTL", "bogus")
	t.Setenv("CATEGORY_NAME_FIELDS", "kommunen=name, bad, =x")
	t.Setenv("CATEGORY_SUBTYPE_FIELDS", "kommunen=bez,energieanlagen=-")

	cfg := FromEnv()
	if cfg.Source != "postgis" {
		t.Fatalf("Source=%q", cfg.Source)
	}
	if cfg.H3Res != 7 {
		t.Fatalf("out-of-range H3_RES must fall back, got %d", cfg.H3Res)
	}
	if !cfg.Invalidation.Enabled {
		t.Fatal("invalidation must be enabled")
	}
	if cfg.CacheTTL != 10*time.Minute {
		t.Fatalf("unparsable duration must fall back, got %v", cfg.CacheTTL)
	}
	k, _ := cfg.Categories.Lookup("kommunen")
	if k.NameField != "name" || k.SubtypeField != "bez" {
		t.Fatalf("kommunen overrides not applied: %+v", k)
	}
	e, _ := cfg.Categories.Lookup("energieanlagen")
	if e.SubtypeField != "" {
		t.Fatalf("'-' must clear subtype, got %q", e.SubtypeField)
	}
}

func TestParseStringMap(t *testing.T) {
	m := parseStringMap(" a=b , c = d,,e=")
	if len(m) != 2 || m["a"] != "b" || m["c"] != "d" {
		t.Fatalf("got %v", m)
	}
}
