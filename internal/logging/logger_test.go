package logging

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

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()

	var records []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var rec map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &rec))
		records = append(records, rec)
	}
	return records
}

func TestLoggerJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&LoggerConfig{Level: LevelDebug, Format: "json", Output: &buf})

	ctx := context.Background()
	logger.WithComponent("hydrator").Info(ctx, "hydrated", "view", "Toggle", "id", "Toggle_1")
	logger.Error(ctx, errors.New("boom"), "failed")

	records := decodeLines(t, &buf)
	require.Len(t, records, 2)

	assert.Equal(t, "hydrated", records[0]["msg"])
	assert.Equal(t, "hydrator", records[0]["component"])
	assert.Equal(t, "Toggle", records[0]["view"])
	assert.Equal(t, "Toggle_1", records[0]["id"])

	assert.Equal(t, "ERROR", records[1]["level"])
	assert.Equal(t, "boom", records[1]["error"])
}

func TestLoggerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&LoggerConfig{Level: LevelWarn, Format: "json", Output: &buf})

	ctx := context.Background()
	logger.Debug(ctx, "debug")
	logger.Info(ctx, "info")
	logger.Warn(ctx, nil, "warn")

	records := decodeLines(t, &buf)
	require.Len(t, records, 1)
	assert.Equal(t, "warn", records[0]["msg"])
}

func TestLoggerWithFields(t *testing.T) {
	var buf bytes.Buffer
	base := NewLogger(&LoggerConfig{Level: LevelInfo, Format: "json", Output: &buf})

	child := base.With("request", "abc", "dangling")
	child.Info(context.Background(), "child")
	base.Info(context.Background(), "parent")

	records := decodeLines(t, &buf)
	require.Len(t, records, 2)
	assert.Equal(t, "abc", records[0]["request"])
	assert.NotContains(t, records[1], "request")
}

func TestPrettyFormatWrites(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&LoggerConfig{Level: LevelInfo, Format: "pretty", Output: &buf})

	logger.WithComponent("devserver").Info(context.Background(), "Server running", "port", 3000)

	out := buf.String()
	assert.Contains(t, out, "Server running")
	assert.Contains(t, out, "3000")
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    LogLevel
		wantErr bool
	}{
		{"debug", LevelDebug, false},
		{"INFO", LevelInfo, false},
		{"", LevelInfo, false},
		{"warning", LevelWarn, false},
		{"error", LevelError, false},
		{"loud", LevelInfo, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWithComponentReplaces(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&LoggerConfig{Level: LevelInfo, Format: FormatJSON, Output: &buf})

	logger.WithComponent("server").With("route", "/").WithComponent("renderer").Info(context.Background(), "rendered")

	records := decodeLines(t, &buf)
	require.Len(t, records, 1)
	assert.Equal(t, "renderer", records[0]["component"])
	assert.Equal(t, "/", records[0]["route"])
}

func TestTextFormatAndDiscard(t *testing.T) {
	var buf bytes.Buffer
	NewLogger(&LoggerConfig{Level: LevelInfo, Format: FormatText, Output: &buf}).
		Warn(context.Background(), errors.New("slow"), "watch", "dir", "src")

	assert.Contains(t, buf.String(), "level=WARN")
	assert.Contains(t, buf.String(), "error=slow")
	assert.Contains(t, buf.String(), "dir=src")

	// nothing to observe beyond not panicking
	Discard().Error(context.Background(), errors.New("x"), "dropped")
}
