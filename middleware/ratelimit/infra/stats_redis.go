package infra

import (
	"context"
	"fmt"
	"strings"
	"time"

	"player-gateway/middleware/ratelimit/domain"

	"github.com/redis/go-redis/v9"
)

// RedisStatsStore agrega as decisões em hashes no Redis:
//
//	<prefix>:total                 allowed|denied
//	<prefix>:scope:<scope>         allowed|denied
//	<prefix>:minute:<yyyymmddHHMM> <scope>:allowed|denied (expira em ttl)
//	<prefix>:route                 <METHOD route>:allowed|denied
//	<prefix>:key:<key>             <scope>:allowed|denied (opcional, expira em ttl)
//
// Route deve ser o padrão da rota, não o path cru (ids explodem a cardinalidade).
type RedisStatsStore struct {
	rdb redis.UniversalClient

	prefix string
	// ttl aplica apenas em chaves de série temporal / por key.
	// total e scope são cumulativos e não expiram.
	ttl time.Duration

	bucket string // "minute" (padrão) ou "none"

	trackKeys bool
}

type RedisStatsOption func(*RedisStatsStore)

func WithStatsPrefix(prefix string) RedisStatsOption {
	return func(s *RedisStatsStore) {
		s.prefix = strings.Trim(prefix, ":")
	}
}

func WithStatsTTL(d time.Duration) RedisStatsOption {
	return func(s *RedisStatsStore) { s.ttl = d }
}

func WithStatsBucket(bucket string) RedisStatsOption {
	return func(s *RedisStatsStore) { s.bucket = strings.ToLower(strings.TrimSpace(bucket)) }
}

func WithStatsTrackKeys(track bool) RedisStatsOption {
	return func(s *RedisStatsStore) { s.trackKeys = track }
}

func NewRedisStatsStore(rdb redis.UniversalClient, opts ...RedisStatsOption) *RedisStatsStore {
	s := &RedisStatsStore{
		rdb:    rdb,
		prefix: "ratelimit:stats",
		ttl:    24 * time.Hour,
		bucket: "minute",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStatsStore) Record(ctx context.Context, ev domain.StatsEvent) error {
	if s == nil || s.rdb == nil {
		return nil
	}

	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}

	outcome := "denied"
	if ev.Allowed {
		outcome = "allowed"
	}
	scope := string(ev.Scope)
	if scope == "" {
		scope = "default"
	}
	scoped := scope + ":" + outcome

	_, err := s.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HIncrBy(ctx, s.prefix+":total", outcome, 1)
		pipe.HIncrBy(ctx, s.prefix+":scope:"+scope, outcome, 1)

		if s.bucket == "minute" {
			s.incrExpiring(ctx, pipe, s.prefix+":minute:"+at.UTC().Format("200601021504"), scoped)
		}

		if route := strings.TrimSpace(strings.TrimSpace(ev.Method) + " " + strings.TrimSpace(ev.Path)); route != "" {
			pipe.HIncrBy(ctx, s.prefix+":route", route+":"+outcome, 1)
		}

		if s.trackKeys {
			if k := strings.TrimSpace(string(ev.Key)); k != "" {
				s.incrExpiring(ctx, pipe, s.prefix+":key:"+k, scoped)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis stats: %w", err)
	}
	return nil
}

func (s *RedisStatsStore) incrExpiring(ctx context.Context, pipe redis.Pipeliner, key, field string) {
	pipe.HIncrBy(ctx, key, field, 1)
	if s.ttl > 0 {
		pipe.Expire(ctx, key, s.ttl)
	}
}
