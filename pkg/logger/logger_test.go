package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	return entry
}

func TestLoggerErrorIncludesContextFields(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Level: "debug", Output: buf, Format: FormatJSON})

	ctx := log.WithRequestID(context.Background(), "req-123")
	ctx = log.WithOrderID(ctx, "order-1")

	log.Error(ctx, "boom", errors.New("boom"))

	entry := decodeLine(t, buf)
	assert.Equal(t, "req-123", entry["request_id"])
	assert.Equal(t, "order-1", entry["order_id"])
	assert.Equal(t, "boom", entry["error"])
	assert.Equal(t, "test", entry["service"])
	assert.Contains(t, entry, "stack")
}

func TestLoggerWarnStackToggle(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Output: buf, WarnStack: true})
	log.Warn(context.Background(), "warny")
	assert.Contains(t, decodeLine(t, buf), "stack")

	buf.Reset()
	quiet := New(Options{ServiceName: "test", Output: buf})
	quiet.Warn(context.Background(), "warny")
	assert.NotContains(t, decodeLine(t, buf), "stack")
}

func TestWithFieldsDoesNotLeakIntoParentContext(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Output: buf})

	parent := log.WithUserID(context.Background(), "user-1")
	_ = log.WithFields(parent, map[string]any{"delivery_id": "d-1"})

	log.Info(parent, "parent")
	entry := decodeLine(t, buf)
	assert.Equal(t, "user-1", entry["user_id"])
	assert.NotContains(t, entry, "delivery_id")
}

func TestParseLevelDefaults(t *testing.T) {
	assert.Equal(t, zerolog.InfoLevel, ParseLevel(""))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("invalid"))
	assert.Equal(t, zerolog.WarnLevel, ParseLevel(" WARN "))
}

func TestSensitiveFieldsAreRedacted(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Output: buf, Format: FormatJSON})

	ctx := log.WithField(context.Background(), "Authorization", "Bearer abc")
	ctx = log.WithFields(ctx, map[string]any{"handover_code": "4821", "order_id": "o-1"})
	log.Info(ctx, "handover")

	entry := decodeLine(t, buf)
	assert.Equal(t, redacted, entry["Authorization"])
	assert.Equal(t, redacted, entry["handover_code"])
	assert.Equal(t, "o-1", entry["order_id"])
}

func TestWithFieldsWritesKeysInOrder(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Output: buf, Format: FormatJSON})

	log.Info(log.WithFields(context.Background(), map[string]any{"zone": 1, "attempt": 2, "mode": 3}), "ordered")

	line := buf.String()
	attempt := bytes.Index([]byte(line), []byte(`"attempt"`))
	mode := bytes.Index([]byte(line), []byte(`"mode"`))
	zone := bytes.Index([]byte(line), []byte(`"zone"`))
	require.True(t, attempt > 0 && mode > 0 && zone > 0)
	assert.Less(t, attempt, mode)
	assert.Less(t, mode, zone)
}

func TestConsoleFormatIsNotJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Output: buf, Format: "Console"})
	log.Info(context.Background(), "hello")

	var entry map[string]any
	assert.Error(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Contains(t, buf.String(), "hello")
}

func TestNopDiscards(t *testing.T) {
	log := Nop()
	ctx := log.WithOrderID(context.Background(), "o-1")
	log.Error(ctx, "ignored", errors.New("x"))
}

func TestDefaultLevelIsInfo(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Output: buf, Format: FormatJSON})

	log.Debug(context.Background(), "chatty")
	assert.Empty(t, buf.String())

	log.Info(context.Background(), "kept")
	assert.Equal(t, "info", decodeLine(t, buf)["level"])
}
