package render

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbedPage(t *testing.T) {
	page, err := EmbedPage(EmbedData{
		Title:       "Hello <world>",
		Description: "A story",
		ImageURL:    "https://example.com/a.png",
		EmbedURL:    "https://player.example.com/v1/articles/a/audiofiles/b",
		Article:     map[string]string{"title": "</script><script>alert(1)</script>"},
		Audiofile:   map[string]string{"id": "b"},
	})
	require.NoError(t, err)

	html := string(page)
	assert.Contains(t, html, "<title>Hello &lt;world&gt;</title>")
	assert.Contains(t, html, `content="https://example.com/a.png"`)
	assert.Contains(t, html, `{"id":"b"}`)
	assert.NotContains(t, html, "</script><script>alert(1)")
	assert.Equal(t, 2, strings.Count(html, "</script>"), "only the template's own script tags close")
}

func TestEmbedPage_Deterministic(t *testing.T) {
	d := EmbedData{Title: "t", Article: map[string]int{"a": 1}, Audiofile: nil}
	a, err := EmbedPage(d)
	require.NoError(t, err)
	b, err := EmbedPage(d)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestEmbedPage_NoImage(t *testing.T) {
	page, err := EmbedPage(EmbedData{Title: "t"})
	require.NoError(t, err)
	assert.NotContains(t, string(page), "og:image")
}

func TestEmbedPage_UnmarshalableData(t *testing.T) {
	_, err := EmbedPage(EmbedData{Article: make(chan int)})
	require.Error(t, err)
}

func TestErrorPage(t *testing.T) {
	page := string(ErrorPage("Oops!", "Please given a valid article ID. <x> is not a valid article ID."))
	assert.Contains(t, page, "<h1>Oops!</h1>")
	assert.Contains(t, page, "&lt;x&gt;")
}
