package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/hlog"

	"player-gateway/logging"
	"player-gateway/middleware/identity"
	"player-gateway/middleware/ratelimit"
	"player-gateway/middleware/ratelimit/application"
	"player-gateway/middleware/ratelimit/infra"
)

func main() {
	// Exemplo: identity + rate limit direto no seu webserver, sem o gateway
	log, err := logging.New(logging.Config{Format: "console", Service: "example-server"})
	if err != nil {
		panic(err)
	}

	store := infra.NewStore()
	stats := infra.NewMemoryStatsStore(infra.WithTrackKeys(true))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	go func() { _ = store.Serve(ctx) }()

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})

	resolver := identity.Resolver{TrustProxyHeaders: true}

	h := http.Handler(mux)
	h = ratelimit.Middleware(ratelimit.Options{
		Service:             application.Service{Store: store, WindowSize: 10 * time.Second},
		Scope:               "example",
		Max:                 5,
		Stats:               stats,
		KeyFn:               ratelimit.IdentityKeyFunc(ratelimit.DefaultKeyFunc("X-Api-Key", true)),
		AddRateLimitHeaders: true,
	})(h)
	h = resolver.Middleware(h)
	h = ratelimit.ConcurrencyMiddleware(ratelimit.ConcurrencyOptions{Max: 50})(h)
	h = hlog.NewHandler(log)(h)

	addr := ":8082"
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		addr = v
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		total := stats.Total()
		log.Info().Int64("allowed", total.Allowed).Int64("denied", total.Denied).Msg("rate limit totals")
	}()

	log.Info().Str("addr", addr).Msg("example server listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("server error")
	}
}
