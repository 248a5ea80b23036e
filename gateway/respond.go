package gateway

import (
	"context"
	"errors"
	"net/http"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/hlog"

	"player-gateway/render"
)

type messageBody struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("write json response")
	}
}

func writeHTML(w http.ResponseWriter, r *http.Request, status int, page []byte) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := w.Write(page); err != nil {
		hlog.FromRequest(r).Debug().Err(err).Msg("write html response")
	}
}

// clientGone: o próprio cliente desistiu; não há a quem responder.
func clientGone(r *http.Request, err error) bool {
	return r.Context().Err() != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded))
}

func logProblem(r *http.Request, err error, p problem) {
	log := hlog.FromRequest(r)
	ev := log.Warn()
	if p.Internal {
		ev = log.Error()
	}
	ev.Err(err).Int("status", p.Status).Str("path", r.URL.Path).Msg("request failed")
}

// htmlError responde a página de erro das rotas de embed.
func htmlError(w http.ResponseWriter, r *http.Request, err error) {
	if clientGone(r, err) {
		hlog.FromRequest(r).Debug().Err(err).Msg("client went away")
		return
	}
	p := classify(err)
	logProblem(r, err, p)
	writeHTML(w, r, p.Status, render.ErrorPage(p.Title, p.Description))
}

// jsonError responde {message} das rotas de API.
func jsonError(w http.ResponseWriter, r *http.Request, err error) {
	if clientGone(r, err) {
		hlog.FromRequest(r).Debug().Err(err).Msg("client went away")
		return
	}
	p := classify(err)
	logProblem(r, err, p)
	writeJSON(w, r, p.Status, messageBody{Message: p.Description})
}
