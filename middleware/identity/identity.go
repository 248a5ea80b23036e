// Package identity resolve uma identidade estável por cliente para rate limit
// e analytics: cookie persistido quando existe, fingerprint derivado dos
// headers quando não.
package identity

import (
	"context"
	"crypto/md5"
	"crypto/rand"
	"crypto/sha1"
	"encoding/base64"
	"encoding/hex"
	"net"
	"net/http"
	"strings"
	"time"
)

type Kind uint8

const (
	Persisted Kind = iota + 1
	Fingerprint
)

func (k Kind) String() string {
	switch k {
	case Persisted:
		return "persisted"
	case Fingerprint:
		return "fingerprint"
	default:
		return "unknown"
	}
}

const (
	DefaultCookieName = "anonymousId"
	DefaultCookieTTL  = 30 * 24 * time.Hour
)

// Identity é uma variante marcada: Kind diz de onde Value veio.
type Identity struct {
	Kind  Kind
	Value string
}

// Key devolve a chave de rate limit; o prefixo impede colisão entre variantes.
func (id Identity) Key() string {
	switch id.Kind {
	case Persisted:
		return "c:" + id.Value
	case Fingerprint:
		return "f:" + id.Value
	default:
		return ""
	}
}

func (id Identity) IsZero() bool { return id.Value == "" }

type Resolver struct {
	CookieName string
	CookieTTL  time.Duration
	Secure     bool
	// TrustProxyHeaders habilita CF-Connecting-IP e X-Forwarded-For em ClientIP.
	TrustProxyHeaders bool
}

func (r Resolver) cookieName() string {
	if r.CookieName == "" {
		return DefaultCookieName
	}
	return r.CookieName
}

func (r Resolver) cookieTTL() time.Duration {
	if r.CookieTTL <= 0 {
		return DefaultCookieTTL
	}
	return r.CookieTTL
}

// Resolve nunca falha: sem cookie válido cai para o fingerprint.
func (r Resolver) Resolve(req *http.Request) Identity {
	if c, err := req.Cookie(r.cookieName()); err == nil && ValidToken(c.Value) {
		return Identity{Kind: Persisted, Value: c.Value}
	}
	return Identity{Kind: Fingerprint, Value: r.Fingerprint(req)}
}

// Fingerprint = md5(base64(sha1(ip + userAgent + acceptLanguage + accept + dnt))).
// Clientes atrás do mesmo IP com os mesmos headers colidem.
func (r Resolver) Fingerprint(req *http.Request) string {
	raw := r.ClientIP(req) +
		req.UserAgent() +
		req.Header.Get("Accept-Language") +
		req.Header.Get("Accept") +
		req.Header.Get("DNT")

	sh := sha1.Sum([]byte(raw))
	b64 := base64.StdEncoding.EncodeToString(sh[:])
	sum := md5.Sum([]byte(b64))
	return hex.EncodeToString(sum[:])
}

// ClientIP: CF-Connecting-IP, depois o primeiro X-Forwarded-For, depois o host do RemoteAddr.
func (r Resolver) ClientIP(req *http.Request) string {
	if r.TrustProxyHeaders {
		if v := strings.TrimSpace(req.Header.Get("CF-Connecting-IP")); v != "" {
			return v
		}
		if xff := req.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			if ip := strings.TrimSpace(first); ip != "" {
				return ip
			}
		}
	}

	host, _, err := net.SplitHostPort(strings.TrimSpace(req.RemoteAddr))
	if err == nil && host != "" {
		return host
	}
	return req.RemoteAddr
}

// NewToken gera um token opaco com o formato de um md5 (32 hex minúsculos).
func NewToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	sum := md5.Sum(buf)
	return hex.EncodeToString(sum[:]), nil
}

func ValidToken(v string) bool {
	if len(v) != 32 {
		return false
	}
	for i := 0; i < len(v); i++ {
		c := v[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

type ctxKey struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	return id, ok
}
