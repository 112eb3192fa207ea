package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mohammed-shakir/heatbox-map/internal/core/model"
)

type InvalidationCfg struct {
	Enabled bool
	Topic   string
	Brokers string
	GroupID string
}

type Config struct {
	Addr            string
	LogLevel        string
	LogConsole      bool
	LogSampleN      int
	Source          string
	APIBaseURL      string
	DatabaseURL     string
	LayersDir       string
	HTTPTimeout     time.Duration
	RedisAddr       string
	RedisPoolSize   int
	RedisReadTO     time.Duration
	RedisWriteTO    time.Duration
	CacheTTL        time.Duration
	CacheLRUSize    int
	CacheOpTimeout  time.Duration
	RefreshInterval time.Duration
	H3Res           int
	HotHalfLife     time.Duration
	MetricsEnabled  bool
	MetricsAddr     string
	Invalidation    InvalidationCfg
	Categories      model.Categories
}

func FromEnv() Config {
	res := getint("H3_RES", 7)
	if res < 0 || res > 15 {
		res = 7
	}

	return Config{
		Addr:            getenv("ADDR", ":8090"),
		LogLevel:        getenv("LOG_LEVEL", "info"),
		LogConsole:      getbool("LOG_CONSOLE", false),
		LogSampleN:      getint("LOG_SAMPLE_N", 0),
		Source:          strings.ToLower(getenv("SOURCE", "http")),
		APIBaseURL:      getenv("API_BASE_URL", "https://fastapi-heatbox.onrender.com"),
		DatabaseURL:     getenv("DATABASE_URL", ""),
		LayersDir:       getenv("LAYERS_DIR", "./data"),
		HTTPTimeout:     getduration("HTTP_TIMEOUT", 30*time.Second),
		RedisAddr:       getenv("REDIS_ADDR", ""),
		RedisPoolSize:   getint("REDIS_POOL_SIZE", 16),
		RedisReadTO:     getduration("REDIS_READ_TIMEOUT", 3*time.Second),
		RedisWriteTO:    getduration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		CacheTTL:        getduration("CACHE_TTL", 10*time.Minute),
		CacheLRUSize:    getint("CACHE_LRU_SIZE", 32),
		CacheOpTimeout:  getduration("CACHE_OP_TIMEOUT", 250*time.Millisecond),
		RefreshInterval: getduration("REFRESH_INTERVAL", 15*time.Minute),
		H3Res:           res,
		HotHalfLife:     getduration("HOT_HALF_LIFE", 10*time.Minute),
		MetricsEnabled:  getbool("METRICS_ENABLED", false),
		MetricsAddr:     getenv("METRICS_ADDR", ":9090"),
		Invalidation: InvalidationCfg{
			Enabled: getbool("INVALIDATION_ENABLED", false),
			Topic:   getenv("KAFKA_TOPIC", "layer-updates"),
			Brokers: getenv("KAFKA_BROKERS", "localhost:9092"),
			GroupID: getenv("KAFKA_GROUP_ID", "heatbox-layers"),
		},
		Categories: applyOverrides(
			model.DefaultCategories(),
			parseStringMap(getenv("CATEGORY_NAME_FIELDS", "")),
			parseStringMap(getenv("CATEGORY_SUBTYPE_FIELDS", "")),
		),
	}
}

// applyOverrides swaps field names per deployment, e.g. "kommunen=bez" where
// one data set calls the district "Landkreis" and another "Bezirk".
// A "-" subtype value disables the annotation.
func applyOverrides(cats model.Categories, nameFields, subtypeFields map[string]string) model.Categories {
	out := make(model.Categories, len(cats))
	for i, c := range cats {
		if f, ok := nameFields[c.Name]; ok {
			c.NameField = f
		}
		if f, ok := subtypeFields[c.Name]; ok {
			if f == "-" {
				f = ""
			}
			c.SubtypeField = f
		}
		out[i] = c
	}
	return out
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getint(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "t", "true", "y", "yes":
			return true
		case "0", "f", "false", "n", "no":
			return false
		}
	}
	return def
}

func getduration(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

// parse "kommunen=gen,waermenetze=art" into map
func parseStringMap(s string) map[string]string {
	out := map[string]string{}
	s = strings.TrimSpace(s)
	if s == "" {
		return out
	}
	for p := range strings.SplitSeq(s, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		kv := strings.SplitN(p, "=", 2)
		if len(kv) != 2 {
			continue
		}
		k := strings.TrimSpace(kv[0])
		v := strings.TrimSpace(kv[1])
		if k == "" || v == "" {
			continue
		}
		out[k] = v
	}
	return out
}
