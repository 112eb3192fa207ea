package observability

import (
	"errors"
	"strconv"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

var serviceLabel atomic.Value

func init() {
	serviceLabel.Store("heatbox")
	prometheus.MustRegister(collectors()...)
}

func SetService(s string) {
	if s == "" {
		s = "heatbox"
	}
	serviceLabel.Store(s)
}

func getService() string {
	if v := serviceLabel.Load(); v != nil {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return "heatbox"
}

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status", "service"},
	)

	httpRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~20s
		},
		[]string{"method", "route", "status", "service"},
	)

	upstreamLatencySeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "upstream_latency_seconds",
			Help:    "Latency of upstream calls in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		},
		[]string{"upstream", "service"},
	)

	buildInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "heatbox_build_info",
			Help: "Build information for the binary.",
		},
		[]string{"version"},
	)

	evaluationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "evaluations_total",
			Help: "Polygon evaluations by outcome.",
		},
		[]string{"outcome", "service"},
	)

	evaluationDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "evaluation_duration_seconds",
			Help:    "Time spent evaluating a drawn polygon against the loaded layers.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 14),
		},
	)

	featuresSkipped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "evaluation_features_skipped_total",
			Help: "Features left out of an evaluation because of unusable geometry.",
		},
		[]string{"category", "reason"},
	)

	layerFeatures = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "layer_features",
			Help: "Number of features currently loaded per category.",
		},
		[]string{"category"},
	)

	layerLoadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "layer_loads_total",
			Help: "Layer loads by category and source (cache or upstream) and result.",
		},
		[]string{"category", "from", "result"},
	)

	cacheOpTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_op_total",
			Help: "Layer cache operations by op and result.",
		},
		[]string{"op", "result"},
	)

	redisOpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "redis_operation_duration_seconds",
			Help:    "Duration of Redis operations in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
		},
		[]string{"op"},
	)

	invalidationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "invalidations_total",
			Help: "Processed layer invalidation events.",
		},
		[]string{"op", "layer", "result"},
	)

	kafkaConsumerErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kafka_consumer_errors_total",
			Help: "Kafka consumer errors by kind.",
		},
		[]string{"kind"},
	)

	hotCells = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "hot_cells",
			Help: "Number of H3 cells currently tracked for query hotness.",
		},
	)
)

func collectors() []prometheus.Collector {
	return []prometheus.Collector{
		httpRequestsTotal,
		httpRequestDurationSeconds,
		upstreamLatencySeconds,
		buildInfo,
		evaluationsTotal,
		evaluationDurationSeconds,
		featuresSkipped,
		layerFeatures,
		layerLoadsTotal,
		cacheOpTotal,
		redisOpDuration,
		invalidationsTotal,
		kafkaConsumerErrors,
		hotCells,
	}
}

// Init additionally registers the service metrics with reg, e.g. the
// provider registry served on the dedicated metrics listener.
func Init(reg prometheus.Registerer) error {
	if reg == nil {
		return nil
	}
	for _, c := range collectors() {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	return nil
}

func ObserveHTTP(method, route string, status int, durationSeconds float64) {
	s := getService()
	st := strconv.Itoa(status)
	httpRequestsTotal.WithLabelValues(method, route, st, s).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route, st, s).Observe(durationSeconds)
}

func ObserveUpstreamLatency(upstream string, durationSeconds float64) {
	upstreamLatencySeconds.WithLabelValues(upstream, getService()).Observe(durationSeconds)
}

func ObserveEvaluation(found bool, durationSeconds float64) {
	outcome := "empty"
	if found {
		outcome = "match"
	}
	evaluationsTotal.WithLabelValues(outcome, getService()).Inc()
	evaluationDurationSeconds.Observe(durationSeconds)
}

func IncFeatureSkipped(category, reason string) {
	featuresSkipped.WithLabelValues(category, reason).Inc()
}

func SetLayerFeatures(category string, n int) {
	layerFeatures.WithLabelValues(category).Set(float64(n))
}

func IncLayerLoad(category, from string, err error) {
	layerLoadsTotal.WithLabelValues(category, from, result(err)).Inc()
}

func ObserveCacheOp(op string, err error, durationSeconds float64) {
	cacheOpTotal.WithLabelValues(op, result(err)).Inc()
	redisOpDuration.WithLabelValues(op).Observe(durationSeconds)
}

func IncCacheResult(op string, hit bool) {
	r := "miss"
	if hit {
		r = "hit"
	}
	cacheOpTotal.WithLabelValues(op, r).Inc()
}

func ObserveInvalidation(op, layer string, err error) {
	invalidationsTotal.WithLabelValues(op, layer, result(err)).Inc()
}

func IncKafkaConsumerError(kind string) {
	kafkaConsumerErrors.WithLabelValues(kind).Inc()
}

func SetHotCells(n int) {
	hotCells.Set(float64(n))
}

func ExposeBuildInfo(version string) {
	if version == "" {
		version = "dev"
	}
	buildInfo.WithLabelValues(version).Set(1)
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
