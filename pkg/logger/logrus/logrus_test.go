package logrus

import (
	"bytes"
	"errors"
	"testing"

	"github.com/raykavin/fibscan/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogrusAdapter(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(&buf, "info", "2006-01-02", false, true)
	require.NoError(t, err)

	var l logger.Logger = log
	l.WithField("symbol", "BTCUSDT").WithError(errors.New("boom")).Warnf("retry %d", 2)
	l.Debug("hidden")

	out := buf.String()
	assert.Contains(t, out, `"symbol":"BTCUSDT"`)
	assert.Contains(t, out, `"error":"boom"`)
	assert.Contains(t, out, `"msg":"retry 2"`)
	assert.NotContains(t, out, "hidden")

	l.SetLevel(logger.DebugLevel)
	assert.Equal(t, logger.DebugLevel, l.GetLevel())
	l.Debug("visible")
	assert.Contains(t, buf.String(), "visible")
}

func TestNew_InvalidLevel(t *testing.T) {
	_, err := New(&bytes.Buffer{}, "loud", "", false, false)
	assert.Error(t, err)
}
