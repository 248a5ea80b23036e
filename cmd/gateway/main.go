package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/thejerf/suture/v4"
	"github.com/thejerf/sutureslog"

	"player-gateway/cache"
	"player-gateway/config"
	"player-gateway/gateway"
	"player-gateway/logging"
	"player-gateway/metrics"
	"player-gateway/middleware/identity"
	"player-gateway/middleware/ratelimit"
	"player-gateway/middleware/ratelimit/application"
	"player-gateway/middleware/ratelimit/infra"
	"player-gateway/tracking"
	"player-gateway/upstream"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "player-gateway: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}

	log, err := logging.New(logging.Config{
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
		Service: "player-gateway",
		Version: cfg.AppVersion,
	})
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	reg := metrics.NewRegistry()

	api := upstream.New(upstream.Config{
		BaseURL:   cfg.APIURL,
		APIKey:    cfg.APIKey,
		APISecret: cfg.APISecret,
		Timeout:   cfg.APITimeout,
		RPS:       cfg.APIRPS,
		Burst:     cfg.APIBurst,
	},
		upstream.WithLogger(log.With().Str("component", "upstream").Logger()),
		upstream.WithStateHook(metrics.NewBreaker(reg).OnStateChange),
	)

	pages := cache.New[[]byte](cache.Options{
		Metrics:     metrics.NewCacheAdapter(reg),
		LoadTimeout: cfg.CacheLoadTimeout,
		SweepEvery:  cfg.CacheSweepEvery,
	})

	store := infra.NewStore(infra.WithCleanupEvery(2 * cfg.RateWindow))
	memStats := infra.NewMemoryStatsStore()
	stats := infra.MultiStatsStore{memStats, metrics.NewRateLimitStats(reg)}

	if cfg.RateStats.Enabled {
		rdb, err := openRedis(ctx, cfg.RateStats)
		if err != nil {
			return err
		}
		defer func() { _ = rdb.Close() }()

		stats = append(stats, infra.NewRedisStatsStore(
			rdb,
			infra.WithStatsPrefix(cfg.RateStats.Prefix),
			infra.WithStatsTTL(cfg.RateStats.TTL),
			infra.WithStatsBucket(cfg.RateStats.Bucket),
			infra.WithStatsTrackKeys(cfg.RateStats.TrackKeys),
		))
	}

	wmLogger := logging.NewWatermillAdapter(log.With().Str("component", "tracking").Logger())
	bus, err := tracking.NewBus(tracking.BusConfig{NATSURL: cfg.NATSURL, Topic: cfg.TrackTopic}, wmLogger)
	if err != nil {
		return err
	}
	defer func() { _ = bus.Close() }()
	publisher := tracking.NewWatermillPublisher(bus.Publisher, cfg.TrackTopic)

	pool := infra.NewChanPool(cfg.ConcurrencyMax)
	if cfg.ConcurrencyMax > 0 {
		metrics.RegisterConcurrency(reg, pool.InUse)
	}

	srv := gateway.New(gateway.Options{
		Logger:   log,
		API:      api,
		Pages:    pages,
		CacheTTL: cfg.CacheTTL,
		Identity: identity.Resolver{
			CookieName:        cfg.CookieName,
			CookieTTL:         cfg.CookieTTL,
			Secure:            cfg.CookieSecure,
			TrustProxyHeaders: cfg.TrustProxyHeaders,
		},
		Publisher:   publisher,
		RateEnabled: cfg.RateEnabled,
		Rate: ratelimit.Options{
			Service: application.Service{
				Store:      store,
				WindowSize: cfg.RateWindow,
			},
			Stats:               stats,
			KeyHeader:           cfg.RateKeyHeader,
			TrustXForwardedFor:  cfg.TrustProxyHeaders,
			AddRateLimitHeaders: cfg.AddRateLimitHeaders,
		},
		PageMax:   cfg.RatePageMax,
		TrackMax:  cfg.RateTrackMax,
		RateStats: memStats,
		Concurrency: ratelimit.ConcurrencyOptions{
			Max:            cfg.ConcurrencyMax,
			RejectStatus:   http.StatusServiceUnavailable,
			AcquireTimeout: cfg.ConcurrencyTimeout,
			Pool:           pool,
		},
		PlayerBaseURL: cfg.PlayerBaseURL,
		Version:       cfg.AppVersion,
		Metrics:       metrics.Handler(reg),
	})

	httpSrv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	hook := &sutureslog.Handler{Logger: slog.New(logging.NewSlogHandler(log.With().Str("component", "supervisor").Logger()))}
	sup := suture.New("player-gateway", suture.Spec{
		EventHook: hook.MustHook(),
		Timeout:   15 * time.Second,
	})
	sup.Add(newHTTPService(httpSrv, 10*time.Second))
	sup.Add(pages)
	sup.Add(store)
	if bus.Subscriber != nil {
		sup.Add(tracking.NewLogSink(bus.Subscriber, publisher.Topic(), log.With().Str("component", "tracking").Logger()))
	}

	logStartup(log, cfg, len(stats))

	if err := sup.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("supervisor: %w", err)
	}
	log.Info().Msg("player-gateway stopped")
	return nil
}

func openRedis(ctx context.Context, cfg config.RateStats) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis stats ping error: %w", err)
	}
	return rdb, nil
}

func logStartup(log zerolog.Logger, cfg config.Config, statsSinks int) {
	log.Info().
		Str("addr", cfg.ListenAddr).
		Str("api_url", cfg.APIURL).
		Str("player_base_url", cfg.PlayerBaseURL).
		Dur("cache_ttl", cfg.CacheTTL).
		Msg("player-gateway listening")
	log.Info().
		Bool("enabled", cfg.RateEnabled).
		Dur("window", cfg.RateWindow).
		Int("page_max", cfg.RatePageMax).
		Int("track_max", cfg.RateTrackMax).
		Str("key_header", cfg.RateKeyHeader).
		Bool("trust_proxy_headers", cfg.TrustProxyHeaders).
		Int("stats_sinks", statsSinks).
		Msg("rate limit")
	log.Info().
		Int("max", cfg.ConcurrencyMax).
		Dur("acquire_timeout", cfg.ConcurrencyTimeout).
		Msg("concurrency")
}
