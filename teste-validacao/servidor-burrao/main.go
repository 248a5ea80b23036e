// servidor-burrao imita a Content API para validar o gateway localmente:
// responde devagar (LATENCIA) e loga cada hit, para dar para ver o cache
// coalescendo requests concorrentes.
//
//	go run ./teste-validacao/servidor-burrao
//	API_URL=http://localhost:8081 go run ./cmd/gateway
package main

import (
	"net/http"
	"os"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"player-gateway/upstream"
)

const (
	articleID   = "3f2b8f8e-4c1d-4a55-9b7e-0c2d1e6f7a81"
	audiofileID = "9a1c2b3d-4e5f-4a6b-8c7d-1e2f3a4b5c6d"
)

func main() {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()

	latency := 2 * time.Second
	if v := os.Getenv("LATENCIA"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			log.Fatal().Err(err).Msg("invalid LATENCIA")
		}
		latency = d
	}

	desc := "Artigo de teste servido pelo servidor burrão."
	article := &upstream.Article{
		ID:          articleID,
		Title:       "Tela do Sistema",
		URL:         "https://example.com/artigo",
		Description: &desc,
		SourceName:  "burrao",
		Audiofiles: []upstream.Audiofile{{
			ID:     audiofileID,
			URL:    "https://example.com/audio.mp3",
			Length: 123.4,
			Voice:  &upstream.Voice{ID: "v1", Label: "Ana", LanguageCode: "pt-BR"},
		}},
	}

	var hits atomic.Int64
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			n := hits.Add(1)
			log.Info().Int64("hit", n).Str("method", r.Method).Str("path", r.URL.Path).
				Str("x_forwarded_for", r.Header.Get("X-Forwarded-For")).Msg("request received")
			next.ServeHTTP(w, r)
		})
	})

	r.Head("/health", func(w http.ResponseWriter, r *http.Request) {})
	r.Get("/v1/articles/{id}", func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(latency)
		if chi.URLParam(r, "id") != articleID {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		writeJSON(w, article)
	})
	r.Get("/v1/audiofiles/{id}", func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(latency)
		if chi.URLParam(r, "id") != audiofileID {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		af := article.Audiofiles[0]
		af.Article = article
		writeJSON(w, af)
	})

	addr := ":8081"
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		addr = v
	}
	log.Info().Str("addr", addr).Dur("latency", latency).
		Str("embed", "/v1/articles/"+articleID+"/audiofiles/"+audiofileID).
		Msg("servidor burrao listening")
	if err := http.ListenAndServe(addr, r); err != nil {
		log.Fatal().Err(err).Msg("server error")
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
