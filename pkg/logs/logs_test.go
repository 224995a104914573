package logs

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alijeyrad/simorq_queue/config"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, parseLevel("warn"))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLevel("anything"))
}

func TestMultiHandlerFansOut(t *testing.T) {
	var a, b bytes.Buffer
	h := &multiHandler{handlers: []slog.Handler{
		slog.NewJSONHandler(&a, &slog.HandlerOptions{Level: slog.LevelDebug}),
		slog.NewJSONHandler(&b, &slog.HandlerOptions{Level: slog.LevelWarn}),
	}}
	log := slog.New(h).With("clinic", "c1")

	log.Debug("only first")
	log.Warn("both")

	assert.Equal(t, 2, bytes.Count(a.Bytes(), []byte("\n")))
	assert.Equal(t, 1, bytes.Count(b.Bytes(), []byte("\n")))

	var rec map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(b.Bytes()), &rec))
	assert.Equal(t, "both", rec["msg"])
	assert.Equal(t, "c1", rec["clinic"])

	assert.True(t, h.Enabled(context.Background(), slog.LevelDebug))
}

func TestNewWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	cfg := &config.Config{}
	cfg.Server.Environment = "production"
	cfg.Logging.Level = "info"
	cfg.Logging.Output.File = config.FileLogConfig{Enabled: true, Path: path, MaxSizeMB: 1}

	log, stop := New(cfg)
	defer stop()
	log.Info("queue opened", "clinic", "c1")

	assert.FileExists(t, path)
}
