// Package gateway monta o roteador HTTP do player: página de embed com cache
// coalescido, rotas de API (track, cache) e health.
//
// Por request: identidade → rate limit do escopo → cache (hit, espera ou carga)
// → render → resposta. Não há retry automático.
package gateway

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"player-gateway/cache"
	"player-gateway/middleware/identity"
	"player-gateway/middleware/ratelimit"
	"player-gateway/middleware/ratelimit/domain"
	"player-gateway/middleware/ratelimit/infra"
	"player-gateway/tracking"
	"player-gateway/upstream"
)

// Escopos de rate limit; cada um tem a sua janela por identidade.
const (
	ScopeEmbed     domain.Scope = "embed"
	ScopeAudiofile domain.Scope = "audiofile"
	ScopeCache     domain.Scope = "cache"
	ScopeTrack     domain.Scope = "track"
	ScopePing      domain.Scope = "ping"
	ScopeHealth    domain.Scope = "health"
	ScopeNotFound  domain.Scope = "notfound"

	DefaultPageMax  = 20
	DefaultTrackMax = 60
)

// ContentAPI é o que o gateway usa do upstream.Client.
type ContentAPI interface {
	Article(ctx context.Context, id, clientIP string) (*upstream.Article, error)
	Audiofile(ctx context.Context, id, clientIP string) (*upstream.Audiofile, error)
	Ping(ctx context.Context) error
}

type Options struct {
	Logger    zerolog.Logger
	API       ContentAPI
	Pages     *cache.Cache[[]byte]
	CacheTTL  time.Duration
	Identity  identity.Resolver
	Publisher tracking.Publisher

	// RateEnabled=false desliga todos os escopos.
	RateEnabled bool
	// Rate é a base compartilhada (Service, Stats, KeyFn...); Scope/Max são
	// preenchidos por rota.
	Rate     ratelimit.Options
	PageMax  int
	TrackMax int
	// RateStats (opcional) aparece no /health.
	RateStats *infra.MemoryStatsStore

	Concurrency ratelimit.ConcurrencyOptions

	PlayerBaseURL string
	Version       string
	// Metrics (opcional) é servido em /metrics, fora do rate limit.
	Metrics http.Handler
	// Now é o relógio do track (testes). Nil => time.Now.
	Now func() time.Time
}

type Server struct {
	opts   Options
	router chi.Router
}

func New(opts Options) *Server {
	if opts.PageMax <= 0 {
		opts.PageMax = DefaultPageMax
	}
	if opts.TrackMax <= 0 {
		opts.TrackMax = DefaultTrackMax
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Rate.KeyFn == nil {
		opts.Rate.KeyFn = ratelimit.IdentityKeyFunc(
			ratelimit.DefaultKeyFunc(opts.Rate.KeyHeader, opts.Rate.TrustXForwardedFor),
		)
	}

	if opts.Rate.RouteFn == nil {
		opts.Rate.RouteFn = routePattern
	}

	s := &Server{opts: opts}
	s.router = s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(hlog.NewHandler(s.opts.Logger))
	r.Use(requestIDLogField)
	r.Use(hlog.AccessHandler(func(r *http.Request, status, size int, d time.Duration) {
		hlog.FromRequest(r).Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("size", size).
			Dur("took", d).
			Msg("request")
	}))
	r.Use(chimw.Recoverer)

	if s.opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.opts.Metrics)
	}

	r.Group(func(r chi.Router) {
		r.Use(ratelimit.ConcurrencyMiddleware(s.opts.Concurrency))
		r.Use(s.opts.Identity.Middleware)

		page, track := s.opts.PageMax, s.opts.TrackMax

		r.With(s.limit(ScopeEmbed, page)).Get("/v1/articles/{articleId}/audiofiles/{audiofileId}", s.handleArticleEmbed)
		r.With(s.limit(ScopeAudiofile, page)).Get("/v1/audiofiles/{audiofileId}", s.handleAudiofileEmbed)
		r.With(s.limit(ScopeCache, page)).Delete("/v1/cache/articles/{articleId}/audiofiles/{audiofileId}", s.handleDeleteCache)
		r.With(s.limit(ScopeTrack, track)).Post("/v1/track", s.handleTrack)
		r.With(s.limit(ScopePing, page)).Get("/ping", s.handlePing)
		r.With(s.limit(ScopeHealth, page)).HandleFunc("/health", s.handleHealth)

		notFound := s.limit(ScopeNotFound, page)(http.HandlerFunc(s.handleNotFound))
		r.NotFound(notFound.ServeHTTP)
		r.MethodNotAllowed(notFound.ServeHTTP)
	})

	return r
}

func (s *Server) limit(scope domain.Scope, max int) func(http.Handler) http.Handler {
	if !s.opts.RateEnabled {
		return func(next http.Handler) http.Handler { return next }
	}
	o := s.opts.Rate
	o.Scope = scope
	o.Max = max
	return ratelimit.Middleware(o)
}

// routePattern devolve o padrão chi da rota (sem ids); fora do roteamento, "unmatched".
func routePattern(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}

func requestIDLogField(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := chimw.GetReqID(r.Context()); id != "" {
			hlog.FromRequest(r).UpdateContext(func(c zerolog.Context) zerolog.Context {
				return c.Str("request_id", id)
			})
		}
		next.ServeHTTP(w, r)
	})
}
