// Package app wires configuration, infrastructure and the promotion engine
// into a servable application.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	limiter "github.com/ulule/limiter/v3"

	"github.com/noah-isme/toko-promo/internal/cache"
	"github.com/noah-isme/toko-promo/internal/checkout"
	"github.com/noah-isme/toko-promo/internal/config"
	"github.com/noah-isme/toko-promo/internal/engine"
	"github.com/noah-isme/toko-promo/internal/health"
	"github.com/noah-isme/toko-promo/internal/obs"
	"github.com/noah-isme/toko-promo/internal/ratelimit"
	"github.com/noah-isme/toko-promo/internal/resilience"
	"github.com/noah-isme/toko-promo/internal/ruleset"
)

// Dependencies holds the process-wide services shared by the HTTP surface.
type Dependencies struct {
	Config      *config.Config
	Logger      zerolog.Logger
	Redis       redis.UniversalClient
	Ruleset     *ruleset.Ruleset
	Engine      *engine.Engine
	Checkout    *checkout.Service
	Limiter     *limiter.Limiter
	Registry    *prometheus.Registry
	HTTPMetrics *obs.HTTPMetrics
}

// Options overrides pieces of the wiring, mainly for tests.
type Options struct {
	// Redis replaces the client built from REDIS_URL.
	Redis redis.UniversalClient
}

// New loads the ruleset, connects Redis when configured and assembles the
// services. The ruleset is compiled once here and never reloaded.
func New(ctx context.Context, cfg *config.Config, logger zerolog.Logger, opts Options) (*Dependencies, error) {
	rs, err := ruleset.Load(cfg.RulesetPath)
	if err != nil {
		return nil, fmt.Errorf("load ruleset: %w", err)
	}
	logger.Info().
		Str("source", rs.Source).
		Strs("campaigns", rs.Names()).
		Msg("ruleset_loaded")

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	obs.MustRegisterDomainMetrics(cfg.Obs.MetricsNamespace, registry)

	deps := &Dependencies{
		Config:   cfg,
		Logger:   logger,
		Redis:    opts.Redis,
		Ruleset:  rs,
		Registry: registry,
	}
	if cfg.Obs.EnablePrometheus {
		deps.HTTPMetrics = obs.NewHTTPMetrics(cfg.Obs.MetricsNamespace, cfg.Obs.HTTPBuckets, registry)
	}

	if deps.Redis == nil && cfg.RedisURL != "" {
		client, err := newRedis(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		deps.Redis = client
	}

	store, err := ratelimit.NewStore(deps.Redis)
	if err != nil {
		deps.Close()
		return nil, err
	}
	deps.Limiter, err = ratelimit.New(cfg.RateLimit, store)
	if err != nil {
		deps.Close()
		return nil, err
	}

	deps.Engine = engine.New(rs.Campaigns, logger)
	breaker := resilience.NewBreaker("redis_cache", 10, 0.5, 30*time.Second).WithLogger(logger)
	deps.Checkout = &checkout.Service{
		Engine: deps.Engine,
		Cache:  cache.New(deps.Redis, cfg.EvalCacheTTL).WithBreaker(breaker),
		Digest: rs.Digest,
		Logger: logger,
	}
	return deps, nil
}

func newRedis(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*redis.Client, error) {
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(redisOpts)
	if cfg.Obs.EnableTracing {
		if err := redisotel.InstrumentTracing(client); err != nil {
			logger.Error().Err(err).Msg("instrument redis tracing")
		}
	}
	if err := redisotel.InstrumentMetrics(client); err != nil {
		logger.Error().Err(err).Msg("instrument redis metrics")
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// Close releases external connections.
func (d *Dependencies) Close() {
	if d.Redis == nil {
		return
	}
	if err := d.Redis.Close(); err != nil {
		d.Logger.Error().Err(err).Msg("close redis")
	}
}

// PingRedis implements health.Checker.
func (d *Dependencies) PingRedis(ctx context.Context, timeout time.Duration) error {
	if d.Redis == nil {
		return health.ErrDisabled
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return d.Redis.Ping(ctx).Err()
}

// CheckRuleset implements health.Checker.
func (d *Dependencies) CheckRuleset(context.Context) error {
	if d.Ruleset == nil || len(d.Ruleset.Campaigns) == 0 {
		return errors.New("no campaigns loaded")
	}
	return nil
}
