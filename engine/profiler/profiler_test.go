package profiler

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTickReportsEveryInterval(t *testing.T) {
	now := time.Unix(0, 0)
	var out bytes.Buffer
	p := NewProfiler(WithNow(func() time.Time { return now }), WithLogger(zerolog.New(&out)))

	for range 29 {
		now = now.Add(16 * time.Millisecond)
		assert.False(t, p.Tick())
	}
	assert.Zero(t, out.Len())

	now = now.Add(36 * time.Millisecond)
	require.True(t, p.Tick())
	assert.Equal(t, 30, p.Last().Frames)
	assert.InDelta(t, 60, p.Last().FPS, 1e-9)

	var line map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &line))
	assert.Equal(t, "profiler", line["message"])
	assert.InDelta(t, 60, line["fps"], 1e-9)

	now = now.Add(100 * time.Millisecond)
	assert.False(t, p.Tick(), "the window restarts after a report")
}

func TestWithInterval(t *testing.T) {
	now := time.Unix(0, 0)
	p := NewProfiler(WithInterval(2*time.Second), WithInterval(0), WithNow(func() time.Time { return now }), WithLogger(zerolog.Nop()))
	now = now.Add(time.Second)
	assert.False(t, p.Tick())
	now = now.Add(time.Second)
	assert.True(t, p.Tick())
	assert.InDelta(t, 1, p.Last().FPS, 1e-9)
}
