package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

type httpServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

// httpService adapta o http.Server ao ciclo de vida do supervisor.
type httpService struct {
	server          httpServer
	shutdownTimeout time.Duration
}

func newHTTPService(server httpServer, shutdownTimeout time.Duration) *httpService {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	return &httpService{server: server, shutdownTimeout: shutdownTimeout}
}

func (h *httpService) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := h.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), h.shutdownTimeout)
		defer cancel()
		if err := h.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		<-errCh
		return ctx.Err()
	case err, ok := <-errCh:
		if ok && err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return errors.New("http server stopped unexpectedly")
	}
}

func (h *httpService) String() string { return "http-server" }
