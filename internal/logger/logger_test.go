package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigvault/sigvault/cmd/sigvault/config"
)

func TestSetup(t *testing.T) {
	l := log.New()
	require.NoError(t, setup(l, "debug", config.LogFormatJSON))
	assert.Equal(t, log.DebugLevel, l.GetLevel())
	assert.IsType(t, &log.JSONFormatter{}, l.Formatter)

	require.NoError(t, setup(l, "WARN", config.LogFormatText))
	assert.Equal(t, log.WarnLevel, l.GetLevel())
	assert.IsType(t, &log.TextFormatter{}, l.Formatter)

	assert.Error(t, setup(l, "chatty", config.LogFormatText))
}

func TestWriter(t *testing.T) {
	var fallback bytes.Buffer
	w, err := writer(config.LoggerConf{}, "x.log", &fallback)
	require.NoError(t, err)
	assert.Same(t, &fallback, w)

	dir := t.TempDir()
	w, err = writer(config.LoggerConf{Dir: dir}, "x.log", &fallback)
	require.NoError(t, err)
	_, err = w.Write([]byte("hello\n"))
	require.NoError(t, err)
	data, err := os.ReadFile(filepath.Join(dir, "x.log"))
	require.NoError(t, err)
	assert.Equal(t, "hello\n", string(data))

	_, err = writer(config.LoggerConf{Dir: filepath.Join(dir, "missing")}, "x.log", &fallback)
	assert.Error(t, err)
}

func TestSmartHook(t *testing.T) {
	path := filepath.Join(t.TempDir(), smartLogFileName)
	hook, err := newSmartHook(path, &log.JSONFormatter{})
	require.NoError(t, err)

	var out bytes.Buffer
	l := log.New()
	l.SetOutput(&out)
	l.AddHook(hook)
	l.Info("all good")
	l.WithField("page", "p1").Error("something broke")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "something broke")
	assert.Contains(t, out.String(), "all good")
}
