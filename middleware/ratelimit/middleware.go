package ratelimit

import (
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/hlog"

	"player-gateway/middleware/identity"
	"player-gateway/middleware/ratelimit/application"
	"player-gateway/middleware/ratelimit/domain"
)

type KeyFunc func(r *http.Request) string

// Options configura o middleware de um escopo. Service é compartilhado entre
// escopos (mesmo store); Scope e Max mudam por rota.
type Options struct {
	Service             application.Service
	Scope               domain.Scope
	Max                 int
	Stats               domain.StatsStore
	KeyFn               KeyFunc
	KeyHeader           string
	TrustXForwardedFor  bool
	AddRateLimitHeaders bool
	// RouteFn nomeia a rota nas estatísticas. Nil => r.URL.Path.
	RouteFn func(r *http.Request) string
}

// RejectMessage é o corpo do 429.
func RejectMessage(retryAt time.Time) string {
	return "Ho, ho. Slow down! It seems like you are doing too many requests. Please cooldown and try again after: " +
		retryAt.UTC().Format(http.TimeFormat)
}

func DefaultKeyFunc(keyHeader string, trustXFF bool) KeyFunc {
	return func(r *http.Request) string {
		if keyHeader != "" {
			if v := strings.TrimSpace(r.Header.Get(keyHeader)); v != "" {
				return v
			}
		}

		if trustXFF {
			// pega o primeiro IP do X-Forwarded-For (cliente original)
			if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
				parts := strings.Split(xff, ",")
				if len(parts) > 0 {
					ip := strings.TrimSpace(parts[0])
					if ip != "" {
						return ip
					}
				}
			}
		}

		// fallback: RemoteAddr
		host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
		if err == nil && host != "" {
			return host
		}
		if r.RemoteAddr != "" {
			return r.RemoteAddr
		}
		return "unknown"
	}
}

// IdentityKeyFunc usa a identidade resolvida pelo middleware de identity;
// sem ela, cai para fallback.
func IdentityKeyFunc(fallback KeyFunc) KeyFunc {
	return func(r *http.Request) string {
		if id, ok := identity.FromContext(r.Context()); ok && !id.IsZero() {
			return id.Key()
		}
		return fallback(r)
	}
}

func Middleware(opts Options) func(next http.Handler) http.Handler {
	ipFn := DefaultKeyFunc("", opts.TrustXForwardedFor)
	if opts.KeyFn == nil {
		opts.KeyFn = DefaultKeyFunc(opts.KeyHeader, opts.TrustXForwardedFor)
	}
	if opts.RouteFn == nil {
		opts.RouteFn = func(r *http.Request) string { return r.URL.Path }
	}
	svc := opts.Service

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := opts.KeyFn(r)

			dec := svc.Allow(domain.Key(key), opts.Scope, opts.Max)
			if opts.Stats != nil {
				err := opts.Stats.Record(r.Context(), domain.StatsEvent{
					Key:     domain.Key(key),
					Scope:   opts.Scope,
					Allowed: dec.Allowed,
					Method:  r.Method,
					Path:    opts.RouteFn(r),
					At:      time.Now(),
				})
				if err != nil {
					hlog.FromRequest(r).Warn().Err(err).Str("scope", string(opts.Scope)).Msg("rate limit stats record failed")
				}
			}

			if opts.AddRateLimitHeaders && opts.Max > 0 {
				w.Header().Set("X-RateLimit-Key", key)
				w.Header().Set("X-RateLimit-Limit", formatInt(dec.Limit))
				w.Header().Set("X-RateLimit-Remaining", formatInt(dec.Remaining))
				w.Header().Set("X-RateLimit-Reset", formatUnix(dec.RetryAt))
			}

			if !dec.Allowed {
				hlog.FromRequest(r).Warn().
					Str("scope", string(opts.Scope)).
					Str("identity", key).
					Str("remote_addr", ipFn(r)).
					Time("retry_at", dec.RetryAt).
					Msg("rate limited")

				w.Header().Set("Retry-After", formatSeconds(dec.RetryAfter))
				http.Error(w, RejectMessage(dec.RetryAt), http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
