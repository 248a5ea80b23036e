package upstream

// Article é o payload de GET /v1/articles/{id} da Content API.
type Article struct {
	ID           string      `json:"id"`
	Title        string      `json:"title"`
	URL          string      `json:"url"`
	Description  *string     `json:"description"`
	CanonicalURL *string     `json:"canonicalUrl"`
	ImageURL     *string     `json:"imageUrl"`
	Audiofiles   []Audiofile `json:"audiofiles"`
	SourceName   string      `json:"sourceName"`
}

type Audiofile struct {
	ID     string  `json:"id"`
	URL    string  `json:"url"`
	Voice  *Voice  `json:"voice,omitempty"`
	Length float64 `json:"length"`
	// Article só vem preenchido em GET /v1/audiofiles/{id}.
	Article *Article `json:"article,omitempty"`
}

type Voice struct {
	ID           string  `json:"id"`
	Label        string  `json:"label"`
	Length       float64 `json:"length"`
	LanguageCode string  `json:"languageCode"`
}

// FindAudiofile procura o audiofile dentro do artigo.
func FindAudiofile(a *Article, audiofileID string) (*Audiofile, error) {
	if a != nil {
		for i := range a.Audiofiles {
			if a.Audiofiles[i].ID == audiofileID {
				return &a.Audiofiles[i], nil
			}
		}
	}
	return nil, &NotFoundError{Message: "Could not find the audiofile in the article data."}
}
