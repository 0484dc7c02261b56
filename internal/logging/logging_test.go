package logging

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, ParseLevel(" WARN "))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
	assert.Equal(t, slog.LevelInfo, ParseLevel("chatty"))
}

func TestSetupWritesFileAndTee(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	dir := t.TempDir()
	var tee bytes.Buffer
	closeLog, err := Setup(Options{File: "logs/erpdesk.log", Dir: dir, Level: "debug", Tee: &tee})
	require.NoError(t, err)

	slog.Debug("fetch page", "feature", "/dashboard/sales/faktur", "page", 2)
	require.NoError(t, closeLog())

	data, err := os.ReadFile(filepath.Join(dir, "logs", "erpdesk.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "fetch page")
	assert.Contains(t, string(data), "page=2")
	assert.Contains(t, tee.String(), "feature=/dashboard/sales/faktur")
}

func TestSetupRespectsLevel(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	dir := t.TempDir()
	closeLog, err := Setup(Options{File: filepath.Join(dir, "x.log"), Level: "warn"})
	require.NoError(t, err)
	slog.Info("quiet")
	slog.Warn("loud")
	require.NoError(t, closeLog())

	data, err := os.ReadFile(filepath.Join(dir, "x.log"))
	require.NoError(t, err)
	assert.NotContains(t, string(data), "quiet")
	assert.Contains(t, string(data), "loud")
}
