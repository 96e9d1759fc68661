package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	levels   []Level
	messages []string
}

func (r *recordingSink) Emit(level Level, msg string) {
	r.levels = append(r.levels, level)
	r.messages = append(r.messages, msg)
}

func TestLogSink_WritesLevelAndMessage(t *testing.T) {
	var buf bytes.Buffer
	sink := &LogSink{Logger: zerolog.New(&buf)}

	sink.Emit(LevelError, "out of PWM channels")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "error", entry["level"])
	assert.Equal(t, "out of PWM channels", entry["message"])
}

func TestMultiSink_FansOut(t *testing.T) {
	a, b := &recordingSink{}, &recordingSink{}
	Emitf(MultiSink{a, nil, b}, LevelInfo, "Reset via control pin %d", 1)

	assert.Equal(t, []string{"Reset via control pin 1"}, a.messages)
	assert.Equal(t, []string{"Reset via control pin 1"}, b.messages)
	assert.Equal(t, []Level{LevelInfo}, b.levels)
}

func TestEmitf_NilSink(t *testing.T) {
	assert.NotPanics(t, func() { Emitf(nil, LevelError, "dropped") })
	assert.NotPanics(t, func() { Discard.Emit(LevelError, "dropped") })
}
