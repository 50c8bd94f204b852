package logger

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AazimAnish/HarMonad/pkg/config"
)

func TestNewRejectsBadLevel(t *testing.T) {
	_, err := New(&config.LoggingConfig{Level: "loud", Format: "json", Output: "stdout"})
	assert.Error(t, err)
}

func TestNewParsesLevel(t *testing.T) {
	log, err := New(&config.LoggingConfig{Level: "debug", Format: "json", Output: "stdout"})
	require.NoError(t, err)
	assert.Equal(t, logrus.DebugLevel, log.GetLevel())
}

func TestTextFormatterRendersFields(t *testing.T) {
	f := &textFormatter{
		TextFormatter: logrus.TextFormatter{TimestampFormat: "2006-01-02 15:04:05"},
	}

	entry := &logrus.Entry{
		Logger:  logrus.New(),
		Time:    time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
		Level:   logrus.InfoLevel,
		Message: "swap queued",
		Data:    logrus.Fields{"token": "USDC"},
	}

	out, err := f.Format(entry)
	require.NoError(t, err)

	line := string(out)
	assert.Contains(t, line, "INFO")
	assert.Contains(t, line, "swap queued")
	assert.Contains(t, line, "token=USDC")
	// Every argument must be consumed by the format string.
	assert.NotContains(t, line, "%!")
}

func TestTextFormatterNoFields(t *testing.T) {
	f := &textFormatter{
		TextFormatter: logrus.TextFormatter{TimestampFormat: "2006-01-02 15:04:05"},
	}

	entry := &logrus.Entry{
		Logger:  logrus.New(),
		Time:    time.Now(),
		Level:   logrus.WarnLevel,
		Message: "sensor disconnected",
	}

	out, err := f.Format(entry)
	require.NoError(t, err)
	assert.NotContains(t, string(out), "%!")
}

func TestWithComponent(t *testing.T) {
	entry := WithComponent(logrus.New(), "server")
	assert.Equal(t, "server", entry.Data["component"])
}
