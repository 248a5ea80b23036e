package ratelimit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"player-gateway/middleware/ratelimit/infra"
)

// holdHandler segura a vaga até release fechar.
func holdHandler(started chan<- struct{}, release <-chan struct{}) http.Handler {
	var once sync.Once
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		once.Do(func() { close(started) })
		<-release
		w.WriteHeader(http.StatusOK)
	})
}

func TestConcurrencyMiddleware_RejectsWhenPoolIsFull(t *testing.T) {
	pool := infra.NewChanPool(1)
	started := make(chan struct{})
	release := make(chan struct{})

	h := ConcurrencyMiddleware(ConcurrencyOptions{
		Max:            1,
		AcquireTimeout: 25 * time.Millisecond,
		Pool:           pool,
	})(holdHandler(started, release))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "http://example/", nil))
		if w.Code != http.StatusOK {
			t.Errorf("expected first request 200, got %d", w.Code)
		}
	}()

	select {
	case <-started:
	case <-time.After(time.Second):
		close(release)
		wg.Wait()
		t.Fatalf("timeout waiting first request to start")
	}

	if got := pool.InUse(); got != 1 {
		t.Fatalf("expected 1 slot in use, got %d", got)
	}

	// RejectStatus zero vale 503
	w2 := httptest.NewRecorder()
	h.ServeHTTP(w2, httptest.NewRequest(http.MethodGet, "http://example/", nil))
	if w2.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected second request 503, got %d", w2.Code)
	}

	close(release)
	wg.Wait()

	if got := pool.InUse(); got != 0 {
		t.Fatalf("expected slot released, got %d in use", got)
	}
}

func TestConcurrencyMiddleware_ClientGoneWritesNothing(t *testing.T) {
	pool := infra.NewChanPool(1)
	release, _ := pool.Acquire(context.Background())
	defer release()

	called := false
	h := ConcurrencyMiddleware(ConcurrencyOptions{Max: 1, Pool: pool})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := httptest.NewRequest(http.MethodGet, "http://example/", nil).WithContext(ctx)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	if called {
		t.Fatal("handler must not run without a slot")
	}
	if w.Body.Len() != 0 {
		t.Fatalf("expected empty body, got %q", w.Body.String())
	}
}

func TestConcurrencyMiddleware_DisabledWithZeroMax(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusTeapot) })
	h := ConcurrencyMiddleware(ConcurrencyOptions{})(next)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "http://example/", nil))
	if w.Code != http.StatusTeapot {
		t.Fatalf("expected passthrough, got %d", w.Code)
	}
}
