// Package upstream é o cliente da Content API (artigos e audiofiles).
//
// Toda chamada passa por um limitador de saída (x/time/rate), para não estourar
// a quota da API, e por um circuit breaker que só conta indisponibilidade como
// falha: respostas 4xx/5xx com corpo são resultados válidos da API.
package upstream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"
)

const (
	DefaultTimeout = 10 * time.Second
	maxBodyBytes   = 8 << 20
	breakerName    = "content-api"
)

type Config struct {
	BaseURL   string
	APIKey    string
	APISecret string
	Timeout   time.Duration
	// RPS <= 0 desliga o limitador de saída.
	RPS   float64
	Burst int
}

// StateHook é chamado a cada transição do circuit breaker.
type StateHook func(name string, from, to gobreaker.State)

type Option func(*Client)

func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.log = l }
}

func WithStateHook(h StateHook) Option {
	return func(c *Client) { c.onState = h }
}

type Client struct {
	base      string
	apiKey    string
	apiSecret string

	http    *http.Client
	limiter *rate.Limiter
	cb      *gobreaker.CircuitBreaker[[]byte]
	log     zerolog.Logger
	onState StateHook
}

func New(cfg Config, opts ...Option) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	c := &Client{
		base:      strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:    cfg.APIKey,
		apiSecret: cfg.APISecret,
		http:      &http.Client{Timeout: timeout},
		log:       zerolog.Nop(),
	}
	if cfg.RPS > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RPS), burst)
	}
	for _, opt := range opts {
		opt(c)
	}

	c.cb = gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !errors.Is(err, ErrUnavailable)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state change")
			if c.onState != nil {
				c.onState(name, from, to)
			}
		},
	})
	return c
}

// Article busca um artigo. clientIP vai em X-Forwarded-For, para a API aplicar
// o rate limit dela ao usuário final e não ao gateway.
func (c *Client) Article(ctx context.Context, id, clientIP string) (*Article, error) {
	var a Article
	if err := c.getJSON(ctx, "/v1/articles/"+url.PathEscape(id), clientIP, &a); err != nil {
		return nil, fmt.Errorf("article %s: %w", id, err)
	}
	return &a, nil
}

func (c *Client) Audiofile(ctx context.Context, id, clientIP string) (*Audiofile, error) {
	var af Audiofile
	if err := c.getJSON(ctx, "/v1/audiofiles/"+url.PathEscape(id), clientIP, &af); err != nil {
		return nil, fmt.Errorf("audiofile %s: %w", id, err)
	}
	return &af, nil
}

// Ping faz HEAD /health; nil quando a API respondeu 2xx.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.base+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &RejectedError{Status: resp.StatusCode, Message: "Response not OK"}
	}
	return nil
}

// State expõe o estado atual do circuit breaker (health/metrics).
func (c *Client) State() gobreaker.State { return c.cb.State() }

func (c *Client) getJSON(ctx context.Context, path, clientIP string, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("%w: outbound rate limit: %w", ErrUnavailable, err)
		}
	}

	body, err := c.cb.Execute(func() ([]byte, error) {
		return c.do(ctx, path, clientIP)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return fmt.Errorf("%w: %w", ErrUnavailable, err)
		}
		return err
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, path, clientIP string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Api-Key", c.apiKey)
	req.Header.Set("X-Api-Secret", c.apiSecret)
	if clientIP != "" {
		req.Header.Set("X-Forwarded-For", clientIP)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Error().Err(err).Str("path", path).Msg("content api request failed")
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", ErrUnavailable, err)
	}

	c.log.Debug().
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("took", time.Since(start)).
		Msg("content api response")

	if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
		return body, nil
	}

	msg := errorMessage(body)
	if resp.StatusCode == http.StatusNotFound {
		if msg == "" {
			msg = "Not found."
		}
		return nil, &NotFoundError{Message: msg}
	}
	if msg == "" {
		msg = "Did not get ok from the API"
	}
	return nil, &RejectedError{Status: resp.StatusCode, Message: msg}
}

func errorMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	return payload.Message
}
