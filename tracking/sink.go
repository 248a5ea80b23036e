package tracking

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

// LogSink consome o tópico e registra cada evento no log.
// Roda como serviço supervisionado (Serve).
type LogSink struct {
	sub   message.Subscriber
	topic string
	log   zerolog.Logger
}

func NewLogSink(sub message.Subscriber, topic string, log zerolog.Logger) *LogSink {
	if topic == "" {
		topic = DefaultTopic
	}
	return &LogSink{sub: sub, topic: topic, log: log}
}

func (s *LogSink) Serve(ctx context.Context) error {
	msgs, err := s.sub.Subscribe(ctx, s.topic)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", s.topic, err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				return ctx.Err()
			}
			s.handle(msg)
		}
	}
}

func (s *LogSink) handle(msg *message.Message) {
	defer msg.Ack()

	var ev PlayerEvent
	if err := json.Unmarshal(msg.Payload, &ev); err != nil {
		s.log.Error().Err(err).Str("message_uuid", msg.UUID).Msg("malformed player event")
		return
	}

	s.log.Info().
		Str("message_uuid", msg.UUID).
		Str("article_id", ev.ArticleID).
		Str("audiofile_id", ev.AudiofileID).
		Str("anonymous_user_id", ev.AnonymousUserID).
		Str("session_id", ev.SessionID).
		Str("event", ev.Event).
		Str("device", ev.Device).
		Int64("timestamp", ev.Timestamp).
		Msg("track")
}

func (s *LogSink) String() string { return "tracking-log-sink" }
