package renderer

import (
	"github.com/Carmen-Shannon/oxy-frame/engine/log"
	"github.com/Carmen-Shannon/oxy-frame/engine/profiler"
	"github.com/go-gl/mathgl/mgl32"
)

// RendererBuilderOption is a functional option applied to a renderer during construction via NewRenderer.
type RendererBuilderOption func(*renderer)

// WithMaxTexturedQuads sets how many quads one frame can hold. Submitting more panics.
//
// Parameters:
//   - n: the capacity in quads
//
// Returns:
//   - RendererBuilderOption: a function that applies the capacity to a renderer
func WithMaxTexturedQuads(n int) RendererBuilderOption {
	return func(r *renderer) {
		r.maxQuads = n
	}
}

// WithMaxDebugRects sets how many debug rectangles one frame can hold. Submitting more panics.
//
// Parameters:
//   - n: the capacity in rectangles
//
// Returns:
//   - RendererBuilderOption: a function that applies the capacity to a renderer
func WithMaxDebugRects(n int) RendererBuilderOption {
	return func(r *renderer) {
		r.maxRects = n
	}
}

// WithClearColor sets the clear color used until the first SetClearColor.
//
// Parameters:
//   - c: RGBA in [0, 1]
//
// Returns:
//   - RendererBuilderOption: a function that applies the clear color to a renderer
func WithClearColor(c mgl32.Vec4) RendererBuilderOption {
	return func(r *renderer) {
		r.clearColor = [4]float32{c[0], c[1], c[2], c[3]}
	}
}

// WithLogger sets the logger of the renderer and its batches.
//
// Parameters:
//   - logger: the logger, may be nil
//
// Returns:
//   - RendererBuilderOption: a function that applies the logger to a renderer
func WithLogger(logger *log.Logger) RendererBuilderOption {
	return func(r *renderer) {
		r.logger = logger
	}
}

// WithProfiler makes the render thread record a sample per frame into p.
//
// Parameters:
//   - p: the profiler, owned by the render thread from now on
//
// Returns:
//   - RendererBuilderOption: a function that applies the profiler to a renderer
func WithProfiler(p *profiler.Profiler) RendererBuilderOption {
	return func(r *renderer) {
		r.profiler = p
	}
}
