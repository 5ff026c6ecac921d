// Command engine is the process-engine entry point (spec §4.9 "callers are
// expected to call cfg.Validate themselves... in cmd/engine's main"): it
// wires the World Store, the mechanics facade and the process engine
// together and drives engine.Tick from a time.Ticker, grounded on the
// teacher's cmd/gateway signal-handling shutdown shape and its
// services/automation ticker-driven worker loops.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"

	"github.com/techmad220/hackerexperience-go/engine"
	"github.com/techmad220/hackerexperience-go/events"
	"github.com/techmad220/hackerexperience-go/infrastructure/config"
	"github.com/techmad220/hackerexperience-go/infrastructure/logging"
	"github.com/techmad220/hackerexperience-go/infrastructure/metrics"
	"github.com/techmad220/hackerexperience-go/mechanics"
	"github.com/techmad220/hackerexperience-go/worldstore"
	"github.com/techmad220/hackerexperience-go/worldstore/memory"
	"github.com/techmad220/hackerexperience-go/worldstore/postgres"
	"github.com/techmad220/hackerexperience-go/worldstore/postgres/migrations"
)

func main() {
	cfg, err := config.LoadEngineConfig()
	if err != nil {
		log.Fatalf("engine: load config: %v", err)
	}

	logger := logging.NewFromEnv(cfg.ServiceName)

	mechCfg := mechanics.Config{
		BaseSuccessRate:      cfg.BaseSuccessRate,
		BaseExperience:       cfg.BaseExperience,
		ExperienceScaling:    cfg.ExperienceScaling,
		OptimizationFloor:    cfg.OptimizationFloor,
		DefaultInterestRate:  cfg.DefaultInterestRate,
		MarketElasticity:     cfg.MarketElasticity,
		MaxSkill:             cfg.MaxSkill,
		DiminishingFactor:    cfg.DiminishingFactor,
		SkillProgressionBase: cfg.SkillProgressionBase,
		TickInterval:         time.Duration(cfg.TickIntervalMS) * time.Millisecond,
		StarvationThreshold:  time.Duration(cfg.StarvationThresholdS) * time.Second,
		PerOwnerConcurrency:  cfg.PerOwnerConcurrency,
		PerServerConcurrency: cfg.PerServerConcurrency,
	}
	if err := mechCfg.Validate(); err != nil {
		log.Fatalf("engine: invalid mechanics config, refusing to start: %v", err)
	}

	var m *metrics.Metrics
	if metrics.Enabled() {
		m = metrics.Init(cfg.ServiceName)
		go serveMetrics(logger)
	}

	store, closeStore, err := buildStore(*cfg, m)
	if err != nil {
		log.Fatalf("engine: build store: %v", err)
	}
	defer closeStore()

	pub := events.NewMemoryPublisher()
	eng := engine.New(store, mechCfg, pub, logger, m)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(mechCfg.TickInterval)
	defer ticker.Stop()

	warSweep := cron.New()
	if _, err := warSweep.AddFunc("@every 1m", func() {
		if err := eng.SweepExpiredWars(ctx, time.Now()); err != nil {
			logger.WithContext(ctx).WithField("error", err).Error("engine: war sweep failed")
		}
	}); err != nil {
		log.Fatalf("engine: schedule war sweep: %v", err)
	}
	warSweep.Start()
	defer warSweep.Stop()

	logger.WithContext(ctx).
		WithField("tick_interval", mechCfg.TickInterval).
		WithField("store_backend", cfg.StoreBackend).
		Info("engine: started")

	lastTick := time.Now()
	for {
		select {
		case <-sigCh:
			logger.WithContext(ctx).Info("engine: shutdown signal received")
			return
		case now := <-ticker.C:
			elapsed := now.Sub(lastTick)
			lastTick = now
			if _, err := eng.Tick(ctx, elapsed, now); err != nil {
				logger.WithContext(ctx).WithField("error", err).Error("engine: tick failed")
			}
		}
	}
}

// buildStore selects the World Store backing named by cfg.StoreBackend,
// applying migrations and wrapping with a Redis read-through cache when
// requested. The returned func releases whatever connections were opened.
func buildStore(cfg config.EngineConfig, m *metrics.Metrics) (worldstore.Store, func(), error) {
	switch strings.ToLower(strings.TrimSpace(cfg.StoreBackend)) {
	case "", "memory":
		return memory.New(), func() {}, nil

	case "postgres":
		db, err := sqlx.Open("postgres", cfg.PostgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres: %w", err)
		}
		if err := db.Ping(); err != nil {
			return nil, nil, fmt.Errorf("ping postgres: %w", err)
		}
		if err := migrations.Apply(context.Background(), db.DB); err != nil {
			return nil, nil, fmt.Errorf("apply migrations: %w", err)
		}

		var store worldstore.Store = postgres.New(db)
		closers := []func(){func() { _ = db.Close() }}

		if cfg.CacheEnabled {
			rdb := redis.NewClient(&redis.Options{
				Addr:     cfg.RedisAddr,
				Password: cfg.RedisPassword,
				DB:       cfg.RedisDB,
			})
			store = postgres.NewCachedStore(store, rdb, time.Duration(cfg.CacheTTLSeconds)*time.Second, m)
			closers = append(closers, func() { _ = rdb.Close() })
		}

		return store, func() {
			for _, c := range closers {
				c()
			}
		}, nil

	default:
		return nil, nil, fmt.Errorf("unknown store backend %q (expected memory|postgres)", cfg.StoreBackend)
	}
}

// serveMetrics exposes the Prometheus registry on METRICS_PORT (default
// 9090) until the process exits.
func serveMetrics(logger *logging.Logger) {
	addr := ":" + config.GetEnv("METRICS_PORT", "9090")
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	logger.WithField("addr", addr).Info("engine: metrics server listening")
	if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
		logger.WithField("error", err).Error("engine: metrics server failed")
	}
}
