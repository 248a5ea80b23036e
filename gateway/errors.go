package gateway

import (
	"context"
	"errors"
	"net/http"

	"player-gateway/upstream"
)

// InvalidInputError: o request é inválido; nunca chega ao cache nem ao upstream.
type InvalidInputError struct {
	Message string
}

func (e *InvalidInputError) Error() string { return e.Message }

const (
	defaultErrorTitle    = "Oops!"
	unavailableTitle     = "Content API not available."
	unavailableMessage   = "Could not connect to the Content API to get the article data."
	internalFaultMessage = "An unknown error happened. Please reload the page."
)

// problem é a tradução de um erro para a resposta HTTP.
type problem struct {
	Status      int
	Title       string
	Description string
	// Internal: falha nossa, logada com nível error.
	Internal bool
}

func classify(err error) problem {
	var (
		invalid  *InvalidInputError
		notFound *upstream.NotFoundError
		rejected *upstream.RejectedError
	)

	switch {
	case errors.As(err, &invalid):
		return problem{Status: http.StatusBadRequest, Title: defaultErrorTitle, Description: invalid.Message}
	case errors.Is(err, upstream.ErrUnavailable), errors.Is(err, context.DeadlineExceeded):
		return problem{Status: http.StatusServiceUnavailable, Title: unavailableTitle, Description: unavailableMessage}
	case errors.As(err, &notFound):
		return problem{Status: http.StatusNotFound, Title: defaultErrorTitle, Description: notFound.Error()}
	case errors.Is(err, upstream.ErrNotFound):
		return problem{Status: http.StatusNotFound, Title: defaultErrorTitle, Description: "Not found."}
	case errors.As(err, &rejected):
		return problem{Status: http.StatusInternalServerError, Title: defaultErrorTitle, Description: rejected.Error()}
	default:
		return problem{Status: http.StatusInternalServerError, Title: defaultErrorTitle, Description: internalFaultMessage, Internal: true}
	}
}
