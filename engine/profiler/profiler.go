package profiler

import (
	"log/slog"
	"runtime"
	"time"

	"github.com/Carmen-Shannon/oxy-frame/engine/log"
)

// FrameSample is what the render thread measured for one frame.
type FrameSample struct {
	// Duration is the time from the start of the frame to the publish of its output texture.
	Duration time.Duration

	DrawCalls int
	Quads     int
	Rects     int
}

// Summary aggregates the samples of one reporting interval.
type Summary struct {
	Frames      int
	FPS         float64
	AvgFrame    time.Duration
	MaxFrame    time.Duration
	DrawCalls   int
	Quads       int
	Rects       int
	HeapMB      float64
	AllocRateMB float64
	GCCount     uint32
	MaxPauseUs  uint64
}

// Profiler tracks render thread frame timings, draw call counts and memory statistics.
// Outputs a Summary to the log at a configurable interval.
//
// A Profiler is owned by the render thread and is not safe for concurrent use.
type Profiler struct {
	logger         *log.Logger
	now            func() time.Time
	updateInterval time.Duration

	lastTime   time.Time
	frameCount int
	frameTotal time.Duration
	frameMax   time.Duration
	drawCalls  int
	quads      int
	rects      int

	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64

	last Summary
}

// NewProfiler creates a new Profiler. Update interval defaults to 1 second.
//
// Parameters:
//   - options: functional options to configure the profiler
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler(options ...ProfilerBuilderOption) *Profiler {
	p := &Profiler{
		now:            time.Now,
		updateInterval: time.Second,
	}
	for _, opt := range options {
		opt(p)
	}
	p.lastTime = p.now()
	return p
}

// Record adds one frame sample and logs a Summary when the update interval has elapsed.
// A nil Profiler ignores the sample.
//
// Parameters:
//   - s: the frame sample
//
// Returns:
//   - bool: true if a summary was produced by this call
func (p *Profiler) Record(s FrameSample) bool {
	if p == nil {
		return false
	}
	p.frameCount++
	p.frameTotal += s.Duration
	p.frameMax = max(p.frameMax, s.Duration)
	p.drawCalls += s.DrawCalls
	p.quads += s.Quads
	p.rects += s.Rects

	currentTime := p.now()
	elapsed := currentTime.Sub(p.lastTime)
	if elapsed < p.updateInterval || elapsed <= 0 {
		return false
	}

	runtime.ReadMemStats(&p.memStats)
	allocDelta := p.memStats.TotalAlloc - p.lastTotalAlloc

	// PauseNs is a circular buffer of the last 256 GC pauses
	gcCount := p.memStats.NumGC
	var maxPauseUs uint64
	startIdx := p.lastGCCount
	if gcCount-startIdx > 256 {
		startIdx = gcCount - 256
	}
	for i := startIdx; i < gcCount; i++ {
		maxPauseUs = max(maxPauseUs, p.memStats.PauseNs[i%256]/1000)
	}

	p.last = Summary{
		Frames:      p.frameCount,
		FPS:         float64(p.frameCount) / elapsed.Seconds(),
		AvgFrame:    p.frameTotal / time.Duration(p.frameCount),
		MaxFrame:    p.frameMax,
		DrawCalls:   p.drawCalls,
		Quads:       p.quads,
		Rects:       p.rects,
		HeapMB:      float64(p.memStats.Alloc) / 1024 / 1024,
		AllocRateMB: float64(allocDelta) / 1024 / 1024 / elapsed.Seconds(),
		GCCount:     gcCount,
		MaxPauseUs:  maxPauseUs,
	}
	p.logger.Info("frame stats",
		slog.Float64("fps", p.last.FPS),
		slog.Duration("avg_frame", p.last.AvgFrame),
		slog.Duration("max_frame", p.last.MaxFrame),
		slog.Int("draw_calls", p.last.DrawCalls),
		slog.Int("quads", p.last.Quads),
		slog.Int("rects", p.last.Rects),
		slog.Float64("heap_mb", p.last.HeapMB),
		slog.Float64("alloc_rate_mb", p.last.AllocRateMB),
		slog.Any("gc", p.last.GCCount),
		slog.Any("max_pause_us", p.last.MaxPauseUs),
	)

	p.frameCount, p.frameTotal, p.frameMax = 0, 0, 0
	p.drawCalls, p.quads, p.rects = 0, 0, 0
	p.lastTime = currentTime
	p.lastGCCount = gcCount
	p.lastTotalAlloc = p.memStats.TotalAlloc
	return true
}

// Last returns the most recent Summary, or the zero Summary before the first interval elapsed.
//
// Returns:
//   - Summary: the last summary
func (p *Profiler) Last() Summary {
	if p == nil {
		return Summary{}
	}
	return p.last
}
