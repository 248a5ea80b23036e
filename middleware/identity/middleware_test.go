package identity

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddleware_IssuesCookieWhenAbsent(t *testing.T) {
	var got Identity
	h := Resolver{Secure: true}.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var ok bool
		got, ok = FromContext(r.Context())
		require.True(t, ok)
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, newRequest())

	assert.Equal(t, Fingerprint, got.Kind)

	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)
	c := cookies[0]
	assert.Equal(t, DefaultCookieName, c.Name)
	assert.True(t, ValidToken(c.Value))
	assert.True(t, c.HttpOnly)
	assert.True(t, c.Secure)
	assert.Equal(t, int((30 * 24 * time.Hour).Seconds()), c.MaxAge)
}

func TestMiddleware_KeepsExistingCookie(t *testing.T) {
	var got Identity
	h := Resolver{}.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = FromContext(r.Context())
	}))

	r := newRequest()
	r.AddCookie(&http.Cookie{Name: DefaultCookieName, Value: validToken})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, r)

	assert.Empty(t, rr.Result().Cookies())
	assert.Equal(t, Identity{Kind: Persisted, Value: validToken}, got)
}

func TestMiddleware_StableAcrossRequests(t *testing.T) {
	res := Resolver{}
	var ids []Identity
	h := res.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, _ := FromContext(r.Context())
		ids = append(ids, id)
	}))

	first := httptest.NewRecorder()
	h.ServeHTTP(first, newRequest())
	issued := first.Result().Cookies()[0]

	for i := 0; i < 3; i++ {
		r := newRequest()
		r.AddCookie(issued)
		h.ServeHTTP(httptest.NewRecorder(), r)
	}

	require.Len(t, ids, 4)
	for _, id := range ids[1:] {
		assert.Equal(t, Identity{Kind: Persisted, Value: issued.Value}, id)
	}
}

func TestFromContext_Missing(t *testing.T) {
	_, ok := FromContext(httptest.NewRequest(http.MethodGet, "/", nil).Context())
	assert.False(t, ok)
}
