package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{in: "debug", want: slog.LevelDebug},
		{in: "INFO", want: slog.LevelInfo},
		{in: " warn ", want: slog.LevelWarn},
		{in: "error", want: slog.LevelError},
		{in: "verbose", wantErr: true},
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

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, "warn", "json")
	require.NoError(t, err)

	logger.Info("dropped")
	logger.Warn("kept", slog.String("path", "/public"))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "kept", entry["msg"])
	assert.Equal(t, "/public", entry["path"])
}

func TestNew_Text(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, "info", "text")
	require.NoError(t, err)

	logger.Info("listening", slog.String("addr", ":8080"))
	assert.Contains(t, buf.String(), "msg=listening")
	assert.Contains(t, buf.String(), "addr=:8080")
}

func TestNew_Invalid(t *testing.T) {
	_, err := New(&bytes.Buffer{}, "info", "xml")
	assert.Error(t, err)
	_, err = New(&bytes.Buffer{}, "loud", "text")
	assert.Error(t, err)
}

func TestContext(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, "info", "text")
	require.NoError(t, err)

	FromContext(WithLogger(context.Background(), logger)).Info("hello")
	assert.Contains(t, buf.String(), "msg=hello")

	assert.NotPanics(t, func() {
		FromContext(context.Background()).Info("nowhere")
	})
}
