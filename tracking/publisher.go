package tracking

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"
	natsgo "github.com/nats-io/nats.go"
)

const DefaultTopic = "player-events"

// Publisher entrega eventos do player; pode falhar (não é fila durável).
type Publisher interface {
	Publish(ctx context.Context, ev PlayerEvent) error
}

// WatermillPublisher publica cada evento como uma mensagem JSON num tópico.
type WatermillPublisher struct {
	pub   message.Publisher
	topic string
}

func NewWatermillPublisher(pub message.Publisher, topic string) *WatermillPublisher {
	if topic == "" {
		topic = DefaultTopic
	}
	return &WatermillPublisher{pub: pub, topic: topic}
}

func (p *WatermillPublisher) Publish(ctx context.Context, ev PlayerEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal player event: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)
	msg.Metadata.Set("event", ev.Event)
	msg.Metadata.Set("device", ev.Device)

	if err := p.pub.Publish(p.topic, msg); err != nil {
		return fmt.Errorf("publish player event: %w", err)
	}
	return nil
}

func (p *WatermillPublisher) Topic() string { return p.topic }

func (p *WatermillPublisher) Close() error { return p.pub.Close() }

// BusConfig escolhe o transporte: NATS (JetStream) quando NATSURL está setado,
// senão um canal em memória no próprio processo.
type BusConfig struct {
	NATSURL string
	Topic   string
}

// Bus agrupa o publisher e, no modo em memória, o subscriber do LogSink.
type Bus struct {
	Publisher  message.Publisher
	Subscriber message.Subscriber // nil com NATS: os consumidores são externos
}

func NewBus(cfg BusConfig, logger watermill.LoggerAdapter) (*Bus, error) {
	if logger == nil {
		logger = watermill.NopLogger{}
	}

	if cfg.NATSURL == "" {
		ch := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 256}, logger)
		return &Bus{Publisher: ch, Subscriber: ch}, nil
	}

	pub, err := wmNats.NewPublisher(wmNats.PublisherConfig{
		URL: cfg.NATSURL,
		NatsOptions: []natsgo.Option{
			natsgo.RetryOnFailedConnect(true),
			natsgo.MaxReconnects(-1),
			natsgo.ReconnectWait(2 * time.Second),
			natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
				if err != nil {
					logger.Error("NATS disconnected", err, nil)
				}
			}),
			natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
				logger.Info("NATS reconnected", watermill.LogFields{"url": nc.ConnectedUrl()})
			}),
		},
		Marshaler: &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			AutoProvision: true,
			TrackMsgId:    true,
		},
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create nats publisher: %w", err)
	}
	return &Bus{Publisher: pub}, nil
}

func (b *Bus) Close() error {
	return b.Publisher.Close()
}
