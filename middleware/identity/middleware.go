package identity

import (
	"net/http"

	"github.com/rs/zerolog/hlog"
)

// Middleware emite o cookie quando ausente ou malformado e guarda a identidade
// resolvida no contexto do request.
//
// O request em que o cookie é emitido continua identificado pelo fingerprint:
// o navegador só devolve o cookie a partir do próximo request.
func (r Resolver) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		id := r.Resolve(req)

		if id.Kind != Persisted {
			token, err := NewToken()
			if err != nil {
				hlog.FromRequest(req).Error().Err(err).Msg("anonymous id token generation failed")
			} else {
				http.SetCookie(w, &http.Cookie{
					Name:     r.cookieName(),
					Value:    token,
					Path:     "/",
					MaxAge:   int(r.cookieTTL().Seconds()),
					HttpOnly: true,
					Secure:   r.Secure,
				})
			}
		}

		next.ServeHTTP(w, req.WithContext(WithIdentity(req.Context(), id)))
	})
}
