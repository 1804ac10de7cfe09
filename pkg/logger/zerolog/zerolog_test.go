package zerolog

import (
	"bytes"
	"testing"

	"github.com/raykavin/fibscan/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithWriter_JSON(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewWithWriter(&buf, "info", "2006-01-02", false, true)
	require.NoError(t, err)

	var l logger.Logger = log
	l.WithFields(map[string]any{"kind": "alert"}).Info("rate limited")
	assert.Contains(t, buf.String(), `"kind":"alert"`)
	assert.Contains(t, buf.String(), `"message":"rate limited"`)
	assert.Equal(t, logger.InfoLevel, l.GetLevel())
}

func TestNewWithWriter_InvalidLevel(t *testing.T) {
	_, err := NewWithWriter(&bytes.Buffer{}, "loud", "", false, false)
	assert.Error(t, err)
}

func TestFormatMessage(t *testing.T) {
	assert.Equal(t, ">", formatMessage(""))
	assert.Contains(t, formatMessage("scan finished"), "scan finished")
}

func TestNop(t *testing.T) {
	assert.NotPanics(t, func() {
		Nop().WithField("a", 1).Info("discarded")
	})
}

func TestAdapter_Levels(t *testing.T) {
	log, err := NewWithWriter(&bytes.Buffer{}, "info", "", false, true)
	require.NoError(t, err)

	log.SetLevel(logger.ErrorLevel)
	assert.Equal(t, logger.ErrorLevel, log.GetLevel())

	log.SetLevel(logger.DebugLevel)
	assert.Equal(t, logger.InfoLevel, log.GetLevel(), "logger level still bounds the global one")
}

func TestFormatCaller(t *testing.T) {
	assert.Equal(t, "", formatCaller(""))
	assert.Equal(t, "main.go", formatCaller("/src/main.go"))
	assert.Contains(t, formatCaller("/src/a_really_long_file_name.go:12345"), "a_really_long_file:2345")
}
