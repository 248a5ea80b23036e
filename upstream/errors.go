package upstream

import (
	"errors"
	"strconv"
)

var (
	// ErrUnavailable: a Content API não respondeu (conexão, timeout, circuito aberto).
	ErrUnavailable = errors.New("content api unavailable")
	// ErrNotFound: o recurso não existe (404 da API ou audiofile ausente no artigo).
	ErrNotFound = errors.New("not found")
)

// RejectedError é uma resposta não-2xx da Content API.
type RejectedError struct {
	Status  int
	Message string
}

func (e *RejectedError) Error() string {
	if e.Message == "" {
		return "content api rejected request: status " + strconv.Itoa(e.Status)
	}
	return e.Message
}

// NotFoundError carrega a mensagem a mostrar ao usuário; errors.Is(err, ErrNotFound) vale.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string {
	if e.Message == "" {
		return ErrNotFound.Error()
	}
	return e.Message
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }
