package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"trace":   zerolog.TraceLevel,
		"DEBUG":   zerolog.DebugLevel,
		" warn ":  zerolog.WarnLevel,
		"warning": zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"":        zerolog.InfoLevel,
		"verbose": zerolog.InfoLevel,
	}
	for in, want := range tests {
		assert.Equal(t, want, parseLevel(in), in)
	}
}

func TestInit_SingletonWithComponent(t *testing.T) {
	prev := zerolog.GlobalLevel()
	t.Cleanup(func() {
		Reset()
		zerolog.SetGlobalLevel(prev)
	})
	Reset()

	var buf bytes.Buffer
	Init(Options{Level: "info", Output: &buf})
	Init(Options{Level: "error", Output: &bytes.Buffer{}})

	ledger := Component("ledger")
	ledger.Info().Msg("hello")
	global := Get()
	global.Debug().Msg("suppressed")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "coursereg", entry["service"])
	assert.Equal(t, "ledger", entry["component"])
	assert.Equal(t, "hello", entry["message"])
}

func TestGet_PanicsBeforeInit(t *testing.T) {
	Reset()
	assert.Panics(t, func() { Get() })
}
