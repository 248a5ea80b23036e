package tracking

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatermillPublisher_PublishesJSON(t *testing.T) {
	ch := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 8}, watermill.NopLogger{})
	t.Cleanup(func() { _ = ch.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	msgs, err := ch.Subscribe(ctx, DefaultTopic)
	require.NoError(t, err)

	pub := NewWatermillPublisher(ch, "")
	pe := Enrich(validEvent(), "c0ffee", "NL", time.UnixMilli(1700000000000))
	require.NoError(t, pub.Publish(context.Background(), pe))

	select {
	case msg := <-msgs:
		msg.Ack()
		var got PlayerEvent
		require.NoError(t, json.Unmarshal(msg.Payload, &got))
		assert.Equal(t, pe.SessionID, got.SessionID)
		assert.Equal(t, int64(1700000000000), got.Timestamp)
		assert.Equal(t, "play:begin", msg.Metadata.Get("event"))
	case <-time.After(time.Second):
		t.Fatal("no message published")
	}
}

func TestNewBus_InMemory(t *testing.T) {
	bus, err := NewBus(BusConfig{}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = bus.Close() })

	assert.NotNil(t, bus.Publisher)
	assert.NotNil(t, bus.Subscriber)
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestLogSink_LogsPublishedEvents(t *testing.T) {
	bus, err := NewBus(BusConfig{}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = bus.Close() })

	out := &syncBuffer{}
	sink := NewLogSink(bus.Subscriber, "", zerolog.New(out))

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- sink.Serve(ctx) }()

	pub := NewWatermillPublisher(bus.Publisher, "")
	pe := Enrich(validEvent(), "c0ffee", "", time.Now())

	// o Subscribe do sink é assíncrono; publica até ele aparecer no log
	require.Eventually(t, func() bool {
		_ = pub.Publish(context.Background(), pe)
		return strings.Contains(out.String(), `"anonymous_user_id":"c0ffee"`)
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-errc, context.Canceled)
}
