package cache

import "strings"

// Kinds de recurso usados pelo gateway.
const (
	KindArticle   = "article"
	KindAudiofile = "audiofile"
)

// Key monta a chave de recurso: kind:id1:id2...
func Key(kind string, ids ...string) string {
	return kind + ":" + strings.Join(ids, ":")
}
