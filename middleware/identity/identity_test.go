package identity

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validToken = "0123456789abcdef0123456789abcdef"

func newRequest() *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/v1/audiofiles/x", nil)
	r.RemoteAddr = "198.51.100.7:5555"
	r.Header.Set("User-Agent", "Mozilla/5.0")
	r.Header.Set("Accept-Language", "nl-NL")
	r.Header.Set("Accept", "text/html")
	return r
}

func TestResolve_PrefersCookie(t *testing.T) {
	r := newRequest()
	r.AddCookie(&http.Cookie{Name: DefaultCookieName, Value: validToken})

	id := Resolver{}.Resolve(r)
	assert.Equal(t, Persisted, id.Kind)
	assert.Equal(t, validToken, id.Value)
	assert.Equal(t, "c:"+validToken, id.Key())
}

func TestResolve_MalformedCookieFallsBackToFingerprint(t *testing.T) {
	r := newRequest()
	r.AddCookie(&http.Cookie{Name: DefaultCookieName, Value: "not-a-token"})

	id := Resolver{}.Resolve(r)
	assert.Equal(t, Fingerprint, id.Kind)
	assert.Len(t, id.Value, 32)
	assert.Equal(t, "f:"+id.Value, id.Key())
}

func TestFingerprint_StableForSameHeaders(t *testing.T) {
	res := Resolver{}
	a := res.Fingerprint(newRequest())
	b := res.Fingerprint(newRequest())
	require.Equal(t, a, b)
	assert.True(t, ValidToken(a))

	other := newRequest()
	other.Header.Set("User-Agent", "curl/8.0")
	assert.NotEqual(t, a, res.Fingerprint(other))
}

func TestFingerprint_KnownValue(t *testing.T) {
	// md5(base64(sha1("198.51.100.7" + "Mozilla/5.0" + "nl-NL" + "text/html" + "")))
	assert.Equal(t, "12ff62e97a43c6b4ef27226c97af7d82", Resolver{}.Fingerprint(newRequest()))
}

func TestClientIP_Precedence(t *testing.T) {
	trusted := Resolver{TrustProxyHeaders: true}

	r := newRequest()
	assert.Equal(t, "198.51.100.7", trusted.ClientIP(r))

	r.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	assert.Equal(t, "203.0.113.9", trusted.ClientIP(r))

	r.Header.Set("CF-Connecting-IP", "203.0.113.1")
	assert.Equal(t, "203.0.113.1", trusted.ClientIP(r))

	assert.Equal(t, "198.51.100.7", Resolver{}.ClientIP(r), "proxy headers ignored when not trusted")
}

func TestNewToken_Shape(t *testing.T) {
	a, err := NewToken()
	require.NoError(t, err)
	b, err := NewToken()
	require.NoError(t, err)

	assert.True(t, ValidToken(a))
	assert.NotEqual(t, a, b)
}

func TestValidToken(t *testing.T) {
	assert.True(t, ValidToken(validToken))
	assert.False(t, ValidToken(""))
	assert.False(t, ValidToken("0123456789ABCDEF0123456789ABCDEF"))
	assert.False(t, ValidToken(validToken+"0"))
}

func TestKey_VariantsDoNotCollide(t *testing.T) {
	p := Identity{Kind: Persisted, Value: validToken}
	f := Identity{Kind: Fingerprint, Value: validToken}
	assert.NotEqual(t, p.Key(), f.Key())
	assert.Empty(t, Identity{}.Key())
}
