package gateway

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/hlog"

	"player-gateway/cache"
	"player-gateway/render"
	"player-gateway/tracking"
	"player-gateway/upstream"
)

const noStore = "no-store, no-cache, must-revalidate, private"

// audiofileParam remove o sufixo "&..." que consumidores de oEmbed anexam ao id.
func audiofileParam(r *http.Request) string {
	id, _, _ := strings.Cut(chi.URLParam(r, "audiofileId"), "&")
	return id
}

func wantsDeleteCache(r *http.Request) bool {
	_, ok := r.URL.Query()["deleteCache"]
	return ok
}

func (s *Server) handleArticleEmbed(w http.ResponseWriter, r *http.Request) {
	articleID := chi.URLParam(r, "articleId")
	audiofileID := audiofileParam(r)
	w.Header().Set("Cache-Control", noStore)

	if !tracking.IsUUIDv4(articleID) {
		htmlError(w, r, &InvalidInputError{Message: fmt.Sprintf("Please given a valid article ID. %s is not a valid article ID.", articleID)})
		return
	}
	if !tracking.IsUUIDv4(audiofileID) {
		htmlError(w, r, &InvalidInputError{Message: fmt.Sprintf("Please given a valid audiofile ID for the article. %s is not a valid audiofile ID.", audiofileID)})
		return
	}

	key := cache.Key(cache.KindArticle, articleID, audiofileID)
	s.bustIfRequested(r, key)

	clientIP := s.opts.Identity.ClientIP(r)
	embedURL := s.opts.PlayerBaseURL + "/v1/articles/" + articleID + "/audiofiles/" + audiofileID

	page, err := s.opts.Pages.Get(r.Context(), key, s.opts.CacheTTL, func(ctx context.Context) ([]byte, error) {
		article, err := s.opts.API.Article(ctx, articleID, clientIP)
		if err != nil {
			return nil, err
		}
		audiofile, err := upstream.FindAudiofile(article, audiofileID)
		if err != nil {
			return nil, err
		}
		return render.EmbedPage(render.EmbedData{
			Title:       article.Title,
			Description: deref(article.Description),
			ImageURL:    deref(article.ImageURL),
			EmbedURL:    embedURL,
			Article:     article,
			Audiofile:   audiofile,
		})
	})
	if err != nil {
		htmlError(w, r, err)
		return
	}

	writeHTML(w, r, http.StatusOK, page)
}

func (s *Server) handleAudiofileEmbed(w http.ResponseWriter, r *http.Request) {
	audiofileID := audiofileParam(r)
	w.Header().Set("Cache-Control", noStore)

	if !tracking.IsUUIDv4(audiofileID) {
		htmlError(w, r, &InvalidInputError{Message: fmt.Sprintf("Please given a valid audiofile ID. %s is not a valid audiofile ID.", audiofileID)})
		return
	}

	key := cache.Key(cache.KindAudiofile, audiofileID)
	s.bustIfRequested(r, key)

	clientIP := s.opts.Identity.ClientIP(r)
	embedURL := s.opts.PlayerBaseURL + "/v1/audiofiles/" + audiofileID

	page, err := s.opts.Pages.Get(r.Context(), key, s.opts.CacheTTL, func(ctx context.Context) ([]byte, error) {
		audiofile, err := s.opts.API.Audiofile(ctx, audiofileID, clientIP)
		if err != nil {
			return nil, err
		}
		data := render.EmbedData{EmbedURL: embedURL, Audiofile: audiofile}
		if a := audiofile.Article; a != nil {
			data.Title = a.Title
			data.Description = deref(a.Description)
			data.ImageURL = deref(a.ImageURL)
			data.Article = a
		}
		return render.EmbedPage(data)
	})
	if err != nil {
		htmlError(w, r, err)
		return
	}

	writeHTML(w, r, http.StatusOK, page)
}

func (s *Server) bustIfRequested(r *http.Request, key string) {
	if !wantsDeleteCache(r) {
		return
	}
	removed := s.opts.Pages.Delete(key)
	hlog.FromRequest(r).Info().Str("cache_key", key).Bool("removed", removed).Msg("cache busted by request")
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
