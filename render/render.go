// Package render gera o HTML da página de embed do player e da página de erro.
// As funções são puras: mesma entrada, mesmo HTML.
package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"

	"github.com/goccy/go-json"
)

//go:embed templates/*.html
var templatesFS embed.FS

var templates = template.Must(template.ParseFS(templatesFS, "templates/*.html"))

// EmbedData é o que a página de embed precisa. Article e Audiofile vão
// serializados para o player no navegador.
type EmbedData struct {
	Title       string
	Description string
	ImageURL    string
	EmbedURL    string
	Article     any
	Audiofile   any
}

type embedView struct {
	Title         string
	Description   string
	ImageURL      string
	EmbedURL      string
	ArticleJSON   template.JS
	AudiofileJSON template.JS
}

func EmbedPage(d EmbedData) ([]byte, error) {
	article, err := marshalJS(d.Article)
	if err != nil {
		return nil, fmt.Errorf("render article: %w", err)
	}
	audiofile, err := marshalJS(d.Audiofile)
	if err != nil {
		return nil, fmt.Errorf("render audiofile: %w", err)
	}

	var buf bytes.Buffer
	err = templates.ExecuteTemplate(&buf, "embed.html", embedView{
		Title:         d.Title,
		Description:   d.Description,
		ImageURL:      d.ImageURL,
		EmbedURL:      d.EmbedURL,
		ArticleJSON:   article,
		AudiofileJSON: audiofile,
	})
	if err != nil {
		return nil, fmt.Errorf("render embed page: %w", err)
	}
	return buf.Bytes(), nil
}

type errorView struct {
	Title       string
	Description string
}

// ErrorPage nunca falha: se o template der erro, devolve o texto puro escapado.
func ErrorPage(title, description string) []byte {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, "error.html", errorView{Title: title, Description: description}); err != nil {
		return []byte(template.HTMLEscapeString(title + " " + description))
	}
	return buf.Bytes()
}

// marshalJS serializa com escape de <, > e &; seguro dentro de <script>.
func marshalJS(v any) (template.JS, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return template.JS(b), nil
}
