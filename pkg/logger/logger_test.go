package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	for name, want := range map[string]Level{
		"trace":    TraceLevel,
		"DEBUG":    DebugLevel,
		" info ":   InfoLevel,
		"warning":  WarnLevel,
		"warn":     WarnLevel,
		"error":    ErrorLevel,
		"disabled": Disabled,
	} {
		level, err := ParseLevel(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, level, name)
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)
	_, err = ParseLevel("")
	assert.Error(t, err)
}

func TestLevelString(t *testing.T) {
	assert.Equal(t, "warn", WarnLevel.String())
	assert.Equal(t, "level(42)", Level(42).String())
}
