package clog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newJSONLogger(t *testing.T, level string, opts ...Option) (Logger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	l, err := New(&Config{Level: level, Format: "json"}, append(opts, WithWriter(&buf))...)
	require.NoError(t, err)
	return l, &buf
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var entries []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry), "line: %s", line)
		entries = append(entries, entry)
	}
	return entries
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		config  *Config
		wantErr bool
	}{
		{name: "nil config", config: nil},
		{name: "valid json", config: &Config{Level: "debug", Format: "json", Output: "stdout"}},
		{name: "defaults", config: &Config{}},
		{name: "invalid level", config: &Config{Level: "verbose"}, wantErr: true},
		{name: "invalid format", config: &Config{Format: "xml"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := New(tt.config)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, l)
		})
	}
}

func TestLoggerLevels(t *testing.T) {
	l, buf := newJSONLogger(t, "info")

	l.Debug("debug message")
	l.Info("info message")
	l.Warn("warn message")
	l.Error("error message")

	entries := decodeLines(t, buf)
	require.Len(t, entries, 3, "debug 应被过滤")
	assert.Equal(t, "INFO", entries[0]["level"])
	assert.Equal(t, "WARN", entries[1]["level"])
	assert.Equal(t, "ERROR", entries[2]["level"])

	l.SetLevel(DebugLevel)
	buf.Reset()
	l.Debug("debug message")
	entries = decodeLines(t, buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "DEBUG", entries[0]["level"])
}

func TestNamespaceAndFields(t *testing.T) {
	root, buf := newJSONLogger(t, "debug", WithNamespace("shardkit"))

	child := root.WithNamespace("idgen").With(String("shard", "shard_a"))
	child.Info("next id", Int64("id", 42), Error(errors.New("boom")))

	entries := decodeLines(t, buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "shardkit.idgen", entries[0][NamespaceKey])
	assert.Equal(t, "shard_a", entries[0]["shard"])
	assert.Equal(t, float64(42), entries[0]["id"])
	assert.Equal(t, "boom", entries[0]["err_msg"])

	// 父 Logger 不受子 Logger 影响
	buf.Reset()
	root.Info("root")
	entries = decodeLines(t, buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "shardkit", entries[0][NamespaceKey])
	assert.NotContains(t, entries[0], "shard")
}

func TestContextFields(t *testing.T) {
	type ctxKey string
	l, buf := newJSONLogger(t, "info", WithContextField(ctxKey("request_id"), "request_id"))

	ctx := context.WithValue(context.Background(), ctxKey("request_id"), "req-1")
	l.InfoContext(ctx, "with ctx")
	l.InfoContext(context.Background(), "without ctx")

	entries := decodeLines(t, buf)
	require.Len(t, entries, 2)
	assert.Equal(t, "req-1", entries[0]["request_id"])
	assert.NotContains(t, entries[1], "request_id")
}

func TestErrorWithCode(t *testing.T) {
	l, buf := newJSONLogger(t, "info")
	l.Error("record failed", ErrorWithCode(errors.New("dup"), "mapping_exists"))

	entries := decodeLines(t, buf)
	require.Len(t, entries, 1)
	group, ok := entries[0]["error"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "dup", group["msg"])
	assert.Equal(t, "mapping_exists", group["code"])
}

func TestParseLevel(t *testing.T) {
	for _, s := range []string{"debug", "INFO", "Warn", "error"} {
		_, err := ParseLevel(s)
		assert.NoError(t, err, s)
	}
	lvl, err := ParseLevel("nope")
	assert.Error(t, err)
	assert.Equal(t, InfoLevel, lvl)
	assert.Equal(t, "warn", WarnLevel.String())
}

func TestDiscard(t *testing.T) {
	l := Discard()
	l.Info("nothing")
	assert.Equal(t, l, l.With(String("k", "v")))
	assert.Equal(t, l, l.WithNamespace("x"))
	assert.NotNil(t, Default())
}
