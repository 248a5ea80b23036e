// Package tracking valida e publica os eventos anônimos do player.
package tracking

import (
	"errors"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var (
	AllowedEvents  = []string{"view", "play:begin", "play:end", "play:1", "play:5", "play:25", "play:50", "play:75", "play:95", "play:99", "play:100", "playlist:add", "pause"}
	AllowedDevices = []string{"mobile", "desktop", "tablet", "wearable", "smarttv", "console"}
)

// Event é o corpo de POST /v1/track.
type Event struct {
	ArticleID   string `json:"articleId" validate:"uuidv4"`
	AudiofileID string `json:"audiofileId" validate:"uuidv4"`
	Event       string `json:"event" validate:"oneof=view play:begin play:end play:1 play:5 play:25 play:50 play:75 play:95 play:99 play:100 playlist:add pause"`
	Device      string `json:"device" validate:"oneof=mobile desktop tablet wearable smarttv console"`
	SessionID   string `json:"sessionId" validate:"md5"`
}

// PlayerEvent é o evento enriquecido no servidor; é o que vai para o publisher.
// Value e Timestamp são definidos aqui, nunca pelo cliente.
type PlayerEvent struct {
	ArticleID       string  `json:"articleId"`
	AudiofileID     string  `json:"audiofileId"`
	AnonymousUserID string  `json:"anonymousUserId"`
	SessionID       string  `json:"sessionId"`
	Event           string  `json:"event"`
	Device          string  `json:"device"`
	Timestamp       int64   `json:"timestamp"`
	Value           int     `json:"value"`
	CountryCode     *string `json:"countryCode"`
	RegionCode      *string `json:"regionCode"`
	City            *string `json:"city"`
}

// Enrich monta o PlayerEvent. countryCode vazio vira null; região e cidade
// ficam null (não há base de geolocalização).
func Enrich(ev Event, anonymousUserID, countryCode string, now time.Time) PlayerEvent {
	pe := PlayerEvent{
		ArticleID:       ev.ArticleID,
		AudiofileID:     ev.AudiofileID,
		AnonymousUserID: anonymousUserID,
		SessionID:       ev.SessionID,
		Event:           ev.Event,
		Device:          ev.Device,
		Timestamp:       now.UnixMilli(),
		Value:           1,
	}
	if cc := strings.TrimSpace(countryCode); cc != "" && cc != "XX" {
		pe.CountryCode = &cc
	}
	return pe
}

// ValidationError carrega a mensagem devolvida ao cliente no 400.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
		_ = validate.RegisterValidation("uuidv4", func(fl validator.FieldLevel) bool {
			return IsUUIDv4(fl.Field().String())
		})
	})
	return validate
}

// IsUUIDv4 aceita só a forma canônica de 36 caracteres (qualquer caixa).
func IsUUIDv4(s string) bool {
	if len(s) != 36 {
		return false
	}
	id, err := uuid.Parse(s)
	return err == nil && id.Version() == 4 && id.Variant() == uuid.RFC4122
}

// Validate devolve o primeiro campo inválido, na ordem do payload.
func Validate(ev Event) error {
	err := getValidator().Struct(ev)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &ValidationError{Message: err.Error()}
	}

	fe := verrs[0]
	return &ValidationError{Field: fe.Field(), Message: fieldMessage(fe.StructField())}
}

func fieldMessage(field string) string {
	switch field {
	case "ArticleID":
		return "articleId is not a valid UUID."
	case "AudiofileID":
		return "audiofileId is not a valid UUID."
	case "Event":
		return "event is not valid. Please one of: " + strings.Join(AllowedEvents, ", ")
	case "Device":
		return "device is not valid. Please one of: " + strings.Join(AllowedDevices, ", ")
	case "SessionID":
		return "sessionId is invalid"
	default:
		return field + " is invalid"
	}
}
