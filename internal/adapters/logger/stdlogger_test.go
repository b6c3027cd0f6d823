package logger

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]LogLevel{
		"debug":   LevelDebug,
		"INFO":    LevelInfo,
		"warning": LevelWarn,
		"Warn":    LevelWarn,
		"error":   LevelError,
		"bogus":   LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), in)
	}
	assert.Equal(t, "UNKNOWN", LogLevel(42).String())
}

func TestStdLogger_FiltersAndFormats(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriterLogger(LevelInfo, &buf)
	ctx := context.Background()

	l.Debug(ctx, "hidden")
	l.Info(ctx, "render finished", map[string]interface{}{"cells": 12, "bins": 120})
	l.Error(ctx, errors.New("boom"), "refresh failed")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "[INFO] render finished | bins=120 cells=12")
	assert.Contains(t, out, "[ERROR] refresh failed | error: boom")
}

func TestNewRotatingLogger_WritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "app.log")
	l, err := NewRotatingLogger(LevelDebug, FileOptions{Path: path})
	require.NoError(t, err)

	l.Warn(context.Background(), "stream reconnecting", map[string]interface{}{"attempt": 2})
	require.NoError(t, l.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "[WARN] stream reconnecting | attempt=2")
}

func TestNewRotatingLogger_NoPath(t *testing.T) {
	l, err := NewRotatingLogger(LevelInfo, FileOptions{})
	require.NoError(t, err)
	assert.NoError(t, l.Close())
}
