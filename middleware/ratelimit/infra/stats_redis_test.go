package infra

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"player-gateway/middleware/ratelimit/domain"
)

// captureHook grava os comandos do pipeline sem falar com um Redis de verdade.
type captureHook struct {
	mu   sync.Mutex
	cmds []string
	err  error
}

func (h *captureHook) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		return nil, errors.New("no dial in tests")
	}
}

func (h *captureHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error { return h.err }
}

func (h *captureHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		h.mu.Lock()
		defer h.mu.Unlock()
		for _, c := range cmds {
			parts := make([]string, 0, len(c.Args()))
			for _, a := range c.Args() {
				parts = append(parts, fmt.Sprint(a))
			}
			h.cmds = append(h.cmds, strings.Join(parts, " "))
		}
		return h.err
	}
}

func newCapturedStore(t *testing.T, opts ...RedisStatsOption) (*RedisStatsStore, *captureHook) {
	t.Helper()
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	t.Cleanup(func() { _ = rdb.Close() })
	hook := &captureHook{}
	rdb.AddHook(hook)
	return NewRedisStatsStore(rdb, opts...), hook
}

func TestRedisStatsStore_RecordLayout(t *testing.T) {
	s, hook := newCapturedStore(t, WithStatsPrefix("gw:stats:"), WithStatsTTL(time.Hour), WithStatsTrackKeys(true))

	err := s.Record(context.Background(), domain.StatsEvent{
		Key:     "c:abc",
		Scope:   "embed",
		Allowed: false,
		Method:  "GET",
		Path:    "/v1/articles/{articleId}/audiofiles/{audiofileId}",
		At:      time.Date(2024, 1, 1, 12, 3, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{
		"hincrby gw:stats:total denied 1",
		"hincrby gw:stats:scope:embed denied 1",
		"hincrby gw:stats:minute:202401011203 embed:denied 1",
		"expire gw:stats:minute:202401011203 3600",
		"hincrby gw:stats:route GET /v1/articles/{articleId}/audiofiles/{audiofileId}:denied 1",
		"hincrby gw:stats:key:c:abc embed:denied 1",
		"expire gw:stats:key:c:abc 3600",
	}
	if len(hook.cmds) != len(want) {
		t.Fatalf("expected %d commands, got %d: %v", len(want), len(hook.cmds), hook.cmds)
	}
	for i := range want {
		if hook.cmds[i] != want[i] {
			t.Fatalf("command %d: expected %q, got %q", i, want[i], hook.cmds[i])
		}
	}
}

func TestRedisStatsStore_NoBucketNoKeys(t *testing.T) {
	s, hook := newCapturedStore(t, WithStatsBucket("none"))

	if err := s.Record(context.Background(), domain.StatsEvent{Scope: "track", Allowed: true}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{
		"hincrby ratelimit:stats:total allowed 1",
		"hincrby ratelimit:stats:scope:track allowed 1",
	}
	if strings.Join(hook.cmds, "|") != strings.Join(want, "|") {
		t.Fatalf("unexpected commands: %v", hook.cmds)
	}
}

func TestRedisStatsStore_WrapsError(t *testing.T) {
	s, hook := newCapturedStore(t)
	hook.err = errors.New("connection refused")

	err := s.Record(context.Background(), domain.StatsEvent{Scope: "embed"})
	if err == nil || !strings.HasPrefix(err.Error(), "redis stats: ") {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}

func TestRedisStatsStore_NilIsNoop(t *testing.T) {
	var s *RedisStatsStore
	if err := s.Record(context.Background(), domain.StatsEvent{}); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}
