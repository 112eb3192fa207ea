package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/mohammed-shakir/heatbox-map/internal/cache"
	"github.com/mohammed-shakir/heatbox-map/internal/cache/layercache"
	"github.com/mohammed-shakir/heatbox-map/internal/cache/redisstore"
	"github.com/mohammed-shakir/heatbox-map/internal/catalog"
	"github.com/mohammed-shakir/heatbox-map/internal/core/config"
	"github.com/mohammed-shakir/heatbox-map/internal/core/httpclient"
	"github.com/mohammed-shakir/heatbox-map/internal/core/observability"
	"github.com/mohammed-shakir/heatbox-map/internal/core/router"
	"github.com/mohammed-shakir/heatbox-map/internal/core/server"
	"github.com/mohammed-shakir/heatbox-map/internal/evaluate"
	"github.com/mohammed-shakir/heatbox-map/internal/hotness/expdecay"
	"github.com/mohammed-shakir/heatbox-map/internal/hotness/metricswrap"
	"github.com/mohammed-shakir/heatbox-map/internal/invalidation/kafkaconsumer"
	"github.com/mohammed-shakir/heatbox-map/internal/kommune"
	"github.com/mohammed-shakir/heatbox-map/internal/logger"
	h3mapper "github.com/mohammed-shakir/heatbox-map/internal/mapper/h3"
	"github.com/mohammed-shakir/heatbox-map/internal/metrics"
	"github.com/mohammed-shakir/heatbox-map/internal/popup"
	"github.com/mohammed-shakir/heatbox-map/internal/source"
	"github.com/mohammed-shakir/heatbox-map/internal/source/filesource"
	"github.com/mohammed-shakir/heatbox-map/internal/source/httpapi"
	"github.com/mohammed-shakir/heatbox-map/internal/source/postgis"
)

const (
	hotThreshold  = 50
	hotLogSample  = 0.1
	hotPruneEvery = time.Minute
	hotPruneBelow = 0.01
)

func addServeCmd(rootCmd *cobra.Command) {
	var addr string
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve layers, evaluations and info boxes over HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.FromEnv()
			if addr != "" {
				cfg.Addr = addr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
	serveCmd.Flags().StringVar(&addr, "addr", "", "HTTP listen address (overrides ADDR)")
	rootCmd.AddCommand(serveCmd)
}

func serve(ctx context.Context, cfg config.Config) error {
	zl := logger.Build(logger.Config{
		Level:     cfg.LogLevel,
		Console:   cfg.LogConsole,
		SampleN:   cfg.LogSampleN,
		Service:   "heatbox",
		Component: "server",
	}, os.Stdout)
	appLog := logger.NewSlog(&zl)

	observability.ExposeBuildInfo(Version)
	appLog.Info("starting heatbox",
		"addr", cfg.Addr,
		"version", Version,
		"source", cfg.Source,
		"categories", cfg.Categories.Names())

	if cfg.MetricsEnabled {
		if err := serveMetrics(ctx, cfg, appLog); err != nil {
			return err
		}
	}

	api, err := httpapi.New(appLog, httpclient.NewOutbound(cfg.HTTPTimeout), cfg.APIBaseURL)
	if err != nil {
		return fmt.Errorf("layer api client: %w", err)
	}
	src, closeSrc, err := openSource(ctx, cfg, api)
	if err != nil {
		return err
	}
	defer closeSrc()

	var remote cache.Remote
	if cfg.RedisAddr != "" {
		rc, err := redisstore.New(ctx, cfg.RedisAddr, redisOptions(cfg)...)
		if err != nil {
			appLog.Warn("redis unavailable, caching layers in memory only", "addr", cfg.RedisAddr, "err", err)
		} else {
			defer func() { _ = rc.Close() }()
			remote = rc
		}
	}
	store := layercache.New(remote, layercache.Options{
		Size:      cfg.CacheLRUSize,
		TTL:       cfg.CacheTTL,
		OpTimeout: cfg.CacheOpTimeout,
		Logger:    appLog,
	})

	cat := catalog.New(cfg.Categories)
	loader := catalog.NewLoader(cat, src, store, appLog)
	go func() {
		if err := loader.LoadAll(ctx); err != nil {
			appLog.Warn("initial layer load incomplete", "loaded", cat.Loaded(), "err", err)
		}
		loader.Run(ctx, cfg.RefreshInterval)
	}()

	tracker := expdecay.New(cfg.HotHalfLife)
	hot := metricswrap.New(tracker, metricswrap.Options{
		HotThreshold: hotThreshold,
		LogSample:    hotLogSample,
		Logger:       appLog,
	})
	go pruneHotness(ctx, tracker)

	mp := h3mapper.New()
	if cfg.Invalidation.Enabled {
		cons := kafkaconsumer.New(kafkaconsumer.FromConfig(cfg.Invalidation), loader, kafkaconsumer.Options{
			Logger:  appLog,
			ZLog:    consumerLog(zl),
			Mapper:  mp,
			Hotness: hot,
			H3Res:   cfg.H3Res,
		})
		go func() {
			if err := cons.Start(ctx); err != nil {
				appLog.Error("invalidation consumer stopped", "err", err)
			}
		}()
	}

	h := router.New(router.Deps{
		Logger:    appLog,
		Catalog:   cat,
		Evaluator: evaluate.New(appLog),
		Popups:    popup.Default(),
		Kommunen:  kommune.NewService(api, appLog),
		Hot:       hot,
		Mapper:    mp,
		H3Res:     cfg.H3Res,
	})

	if err := server.Run(ctx, cfg, appLog, server.Routes(appLog, h, cat)); err != nil {
		appLog.Error("server exited with error", "err", err)
		return err
	}
	appLog.Info("server stopped")
	return nil
}

func redisOptions(cfg config.Config) []redisstore.Option {
	var opts []redisstore.Option
	if cfg.RedisPoolSize > 0 {
		opts = append(opts, redisstore.WithPoolSize(cfg.RedisPoolSize))
	}
	if cfg.RedisReadTO > 0 {
		opts = append(opts, redisstore.WithReadTimeout(cfg.RedisReadTO))
	}
	if cfg.RedisWriteTO > 0 {
		opts = append(opts, redisstore.WithWriteTimeout(cfg.RedisWriteTO))
	}
	return opts
}

func consumerLog(zl zerolog.Logger) *zerolog.Logger {
	l := zl.With().Str("component", "invalidation").Logger()
	return &l
}

// openSource picks where layers are fetched from.
func openSource(ctx context.Context, cfg config.Config, api *httpapi.Client) (source.Source, func(), error) {
	switch cfg.Source {
	case "http", "":
		return api, func() {}, nil
	case "postgis":
		pg, err := postgis.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := pg.Ping(pingCtx); err != nil {
			_ = pg.Close()
			return nil, nil, err
		}
		return pg, func() { _ = pg.Close() }, nil
	case "file":
		return filesource.New(cfg.LayersDir), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown SOURCE %q (want http, postgis or file)", cfg.Source)
	}
}

func serveMetrics(ctx context.Context, cfg config.Config, appLog *slog.Logger) error {
	p := metrics.Init(metrics.Config{
		Enabled: true,
		Addr:    cfg.MetricsAddr,
		Path:    "/metrics",
		Build: metrics.BuildInfo{
			Version:   Version,
			Revision:  os.Getenv("BUILD_REVISION"),
			Branch:    os.Getenv("BUILD_BRANCH"),
			BuildDate: os.Getenv("BUILD_DATE"),
		},
	})
	if err := observability.Init(p.Registerer()); err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}
	go func() {
		if err := p.Serve(ctx, appLog); err != nil {
			appLog.Error("metrics server exited", "err", err)
		}
	}()
	return nil
}

func pruneHotness(ctx context.Context, t *expdecay.Tracker) {
	tick := time.NewTicker(hotPruneEvery)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			t.Prune(hotPruneBelow)
		}
	}
}
