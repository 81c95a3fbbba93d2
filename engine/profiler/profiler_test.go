package profiler

import (
	"bytes"
	"log/slog"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-frame/engine/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func TestProfilerSummarizesInterval(t *testing.T) {
	clock := &fakeClock{t: time.Unix(100, 0)}
	var buf bytes.Buffer
	p := NewProfiler(
		WithInterval(time.Second),
		WithClock(clock.now),
		WithLogger(log.NewWriter(&buf, slog.LevelInfo)),
	)

	clock.t = clock.t.Add(400 * time.Millisecond)
	assert.False(t, p.Record(FrameSample{Duration: 2 * time.Millisecond, DrawCalls: 3, Quads: 10}))
	assert.Equal(t, Summary{}, p.Last())

	clock.t = clock.t.Add(600 * time.Millisecond)
	require.True(t, p.Record(FrameSample{Duration: 4 * time.Millisecond, DrawCalls: 1, Quads: 2, Rects: 5}))

	s := p.Last()
	assert.Equal(t, 2, s.Frames)
	assert.InDelta(t, 2.0, s.FPS, 1e-9)
	assert.Equal(t, 3*time.Millisecond, s.AvgFrame)
	assert.Equal(t, 4*time.Millisecond, s.MaxFrame)
	assert.Equal(t, 4, s.DrawCalls)
	assert.Equal(t, 12, s.Quads)
	assert.Equal(t, 5, s.Rects)
	assert.Contains(t, buf.String(), "frame stats")

	// counters restart after a summary
	clock.t = clock.t.Add(time.Second)
	require.True(t, p.Record(FrameSample{Duration: time.Millisecond}))
	assert.Equal(t, 1, p.Last().Frames)
	assert.Zero(t, p.Last().DrawCalls)
}

func TestNilProfilerIgnoresSamples(t *testing.T) {
	var p *Profiler
	assert.False(t, p.Record(FrameSample{Duration: time.Second}))
	assert.Equal(t, Summary{}, p.Last())
}
