package gateway

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog/hlog"

	"player-gateway/cache"
	"player-gateway/middleware/identity"
	"player-gateway/middleware/ratelimit/infra"
	"player-gateway/tracking"
)

const (
	maxTrackBody  = 64 << 10
	healthTimeout = 5 * time.Second
)

func (s *Server) handleDeleteCache(w http.ResponseWriter, r *http.Request) {
	articleID := chi.URLParam(r, "articleId")
	audiofileID := audiofileParam(r)

	if !tracking.IsUUIDv4(articleID) {
		jsonError(w, r, &InvalidInputError{Message: fmt.Sprintf("%s is not a valid article ID.", articleID)})
		return
	}
	if !tracking.IsUUIDv4(audiofileID) {
		jsonError(w, r, &InvalidInputError{Message: fmt.Sprintf("%s is not a valid audiofile ID.", audiofileID)})
		return
	}

	key := cache.Key(cache.KindArticle, articleID, audiofileID)
	if !s.opts.Pages.Delete(key) {
		writeJSON(w, r, http.StatusConflict, messageBody{Message: "Nothing to delete."})
		return
	}

	hlog.FromRequest(r).Info().Str("cache_key", key).Msg("cache deleted")
	writeJSON(w, r, http.StatusOK, messageBody{Message: "Cache deleted."})
}

func (s *Server) handleTrack(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxTrackBody))
	if err != nil {
		jsonError(w, r, &InvalidInputError{Message: "Could not read the request body."})
		return
	}

	var ev tracking.Event
	if err := json.Unmarshal(body, &ev); err != nil {
		jsonError(w, r, &InvalidInputError{Message: "Request body is not valid JSON."})
		return
	}
	if err := tracking.Validate(ev); err != nil {
		jsonError(w, r, &InvalidInputError{Message: err.Error()})
		return
	}

	id, ok := identity.FromContext(r.Context())
	if !ok {
		id = s.opts.Identity.Resolve(r)
	}
	pe := tracking.Enrich(ev, id.Value, r.Header.Get("CF-IPCountry"), s.opts.Now())

	if s.opts.Publisher != nil {
		if err := s.opts.Publisher.Publish(r.Context(), pe); err != nil {
			hlog.FromRequest(r).Error().Err(err).Str("event", pe.Event).Msg("track publish failed")
			writeJSON(w, r, http.StatusInternalServerError, messageBody{Message: "Could not track the event."})
			return
		}
	}

	writeJSON(w, r, http.StatusOK, messageBody{Message: "OK"})
}

func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, "pong")
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusNotFound)
	_, _ = io.WriteString(w, "Not found.")
}

type healthBody struct {
	Status    string                    `json:"status"`
	Version   string                    `json:"version"`
	Services  map[string]string         `json:"services"`
	Messages  map[string]string         `json:"messages"`
	Cache     healthCache               `json:"cache"`
	RateLimit map[string]infra.Counters `json:"rateLimit,omitempty"`
}

type healthCache struct {
	Entries int `json:"entries"`
	Pending int `json:"pending"`
}

// handleHealth responde 200 mesmo com a API fora: o gateway em si está de pé.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	apiStatus, apiMessage := "ok", ""

	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()
	if err := s.opts.API.Ping(ctx); err != nil {
		apiStatus, apiMessage = "fail", err.Error()
	}

	body := healthBody{
		Status:   "ok",
		Version:  s.opts.Version,
		Services: map[string]string{"api": apiStatus},
		Messages: map[string]string{"api": apiMessage},
		Cache: healthCache{
			Entries: s.opts.Pages.Len(),
			Pending: s.opts.Pages.Pending(),
		},
	}
	if s.opts.RateStats != nil {
		body.RateLimit = make(map[string]infra.Counters)
		for scope, c := range s.opts.RateStats.ByScope() {
			body.RateLimit[string(scope)] = c
		}
	}

	writeJSON(w, r, http.StatusOK, body)
}
