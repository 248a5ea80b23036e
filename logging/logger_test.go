package logging

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &m))
	return m
}

func TestNew_JSONWithStaticFields(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Config{Level: "debug", Output: &buf, Service: "player-gateway", Version: "1.2.3"})
	require.NoError(t, err)

	l.Debug().Str("k", "v").Msg("hello")

	m := decodeLine(t, &buf)
	assert.Equal(t, "hello", m["message"])
	assert.Equal(t, "debug", m["level"])
	assert.Equal(t, "player-gateway", m["service"])
	assert.Equal(t, "1.2.3", m["version"])
	assert.Equal(t, "v", m["k"])
}

func TestNew_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Config{Level: "WARN", Output: &buf})
	require.NoError(t, err)

	l.Info().Msg("dropped")
	assert.Zero(t, buf.Len())
}

func TestNew_InvalidConfig(t *testing.T) {
	_, err := New(Config{Level: "loud"})
	assert.Error(t, err)

	_, err = New(Config{Format: "xml"})
	assert.Error(t, err)
}

func TestSlogHandler(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Config{Output: &buf})
	require.NoError(t, err)

	log := slog.New(NewSlogHandler(l)).With("supervisor", "gateway").WithGroup("svc")
	log.Warn("service restarted", "name", "http", "failures", 2, "err", errors.New("boom"))

	m := decodeLine(t, &buf)
	assert.Equal(t, "warn", m["level"])
	assert.Equal(t, "service restarted", m["message"])
	assert.Equal(t, "gateway", m["supervisor"])
	assert.Equal(t, "http", m["svc.name"])
	assert.EqualValues(t, 2, m["svc.failures"])
	assert.Equal(t, "boom", m["svc.err"])

	buf.Reset()
	log.Debug("not enabled")
	assert.Zero(t, buf.Len())
}

func TestWatermillAdapter(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Config{Output: &buf})
	require.NoError(t, err)

	a := NewWatermillAdapter(l).With(watermill.LogFields{"topic": "player-events"})
	a.Error("publish failed", errors.New("nats down"), watermill.LogFields{"uuid": "x"})

	m := decodeLine(t, &buf)
	assert.Equal(t, "error", m["level"])
	assert.Equal(t, "watermill", m["component"])
	assert.Equal(t, "player-events", m["topic"])
	assert.Equal(t, "x", m["uuid"])
	assert.Equal(t, "nats down", m["error"])
}
