package renderer

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
	"runtime"
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-frame/engine/log"
	"github.com/Carmen-Shannon/oxy-frame/engine/profiler"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/batch"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/device"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/draw_order"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/vertex"
	"github.com/go-gl/mathgl/mgl32"
)

var (
	// ErrNotRunning is returned by calls that need the render thread before Initiate or after it stopped.
	ErrNotRunning = errors.New("renderer: render thread is not running")

	// ErrNoFrame is returned by CaptureFrame before the first frame completed.
	ErrNoFrame = errors.New("renderer: no frame has been rendered")
)

// PickResult is the entity identity stored in one pixel of the picking target.
type PickResult struct {
	EntityId      int32
	EntityVersion int32
	SceneId       int32
	SceneVersion  int32
}

// Hit reports whether an object covers the picked pixel.
//
// Returns:
//   - bool: false when the pixel holds the cleared value
func (p PickResult) Hit() bool {
	return p.EntityId != vertex.NoEntity
}

// renderer is the implementation of the Renderer interface.
type renderer struct {
	dev      device.Device
	logger   *log.Logger
	profiler *profiler.Profiler

	maxQuads int
	maxRects int

	quads batch.TexturedQuadBatch
	rects batch.BatchRenderer[vertex.DebugRectVertex]

	renderingDone    atomic.Bool
	submissionsReady atomic.Bool
	terminate        atomic.Bool
	clickRequested   atomic.Bool
	failed           atomic.Bool
	running          bool

	// failure is written by the render thread before failed is set.
	failure error

	// viewport and clearColor are written by the producer before Render and read by the render thread.
	viewport   [2]int
	clearColor [4]float32

	// sequence and drawOrders are producer state between Begin and Render, render thread state after.
	// drawOrders maps a draw order to its position in sequence until the render thread sorts it.
	sequence   []RenderStateIndicator
	drawOrders draw_order.SparseSet[uint32]

	outputTexture atomic.Uint32
	frames        atomic.Uint64

	clickPos    [2]int
	clickResult [4]int32

	requests chan request
	done     chan struct{}

	// render thread state
	framebuffers [2]device.FramebufferHandle
	active       int
}

// Renderer is the frame renderer. It owns a render goroutine locked to its OS thread, which owns the
// device, two offscreen targets that are rendered into alternately, and the batches that turn
// submissions into draws.
//
// A single producer goroutine drives each frame with Begin, Submit*, Render and then polls
// IsRenderingDone before starting the next one. Between Render and the frame completing the producer
// must not touch per-frame state. Violations of this protocol panic.
type Renderer interface {
	// Initiate starts the render thread and waits for it to create its device objects.
	// Panics if the renderer is already running.
	//
	// Returns:
	//   - error: error if the device or its objects could not be created
	Initiate() error

	// Terminate stops the render thread, waits for it to exit and releases the device.
	// Calling Terminate on a renderer that is not running is a no-op.
	Terminate()

	// Begin starts a frame of the given framebuffer size. It drops the submissions of the previous
	// frame. Panics if the previous frame has not completed.
	//
	// Parameters:
	//   - width: viewport width in pixels
	//   - height: viewport height in pixels
	Begin(width, height int)

	// SubmitTexturedQuad adds a quad to the frame. The draw order is read from the first vertex.
	// Textured vertices carry the device texture handle in DiffuseTexId, which must stay valid until
	// the frame completes.
	//
	// Parameters:
	//   - q: the four vertices, counter clockwise from the bottom-left corner
	SubmitTexturedQuad(q vertex.Quad)

	// SubmitDebugRect adds a rectangle outline to the frame. Debug rects are drawn after every quad
	// with blending disabled and never show up in picking.
	//
	// Parameters:
	//   - r: the rectangle
	SubmitDebugRect(r vertex.DebugRectVertex)

	// Render hands the frame to the render thread.
	Render()

	// IsRenderingDone reports whether the last frame handed to Render has completed, which makes
	// Begin legal again and its output texture visible.
	//
	// Returns:
	//   - bool: true when no frame is in flight
	IsRenderingDone() bool

	// GetOutputTextureId returns the color texture of the most recently completed frame.
	//
	// Returns:
	//   - device.TextureHandle: the texture, zero before the first frame
	GetOutputTextureId() device.TextureHandle

	// TryReadPixelFromClickingTexture reads the picking target of the displayed frame at (x, y),
	// in framebuffer pixels from the bottom-left corner. It blocks the caller until the render
	// thread serves the request, which takes at most one frame.
	//
	// Parameters:
	//   - x: column
	//   - y: row from the bottom
	//
	// Returns:
	//   - PickResult: the entity under the pixel
	//   - bool: false if the viewport is empty, the position lies outside it or the render thread is not running
	TryReadPixelFromClickingTexture(x, y int) (PickResult, bool)

	// SetClearColor sets the color the next target is cleared to. Only legal between Begin and Render.
	//
	// Parameters:
	//   - c: RGBA in [0, 1]
	SetClearColor(c mgl32.Vec4)

	// LoadTexture uploads img on the render thread.
	//
	// Parameters:
	//   - img: the pixels, top row first
	//   - filter: the sampling filter
	//
	// Returns:
	//   - device.TextureHandle: the handle to put in DiffuseTexId
	//   - error: error if the upload failed or the render thread is not running
	LoadTexture(img image.Image, filter device.TextureFilter) (device.TextureHandle, error)

	// ReleaseTexture destroys a texture created by LoadTexture. The handle must no longer be
	// referenced by a submitted quad.
	//
	// Parameters:
	//   - tex: the texture
	ReleaseTexture(tex device.TextureHandle)

	// CaptureFrame reads back the color target of the most recently completed frame.
	//
	// Returns:
	//   - *image.RGBA: the pixels, top row first
	//   - error: ErrNoFrame before the first frame, or a readback error
	CaptureFrame() (*image.RGBA, error)

	// Err returns the error that stopped the render thread, if any.
	//
	// Returns:
	//   - error: the failure or nil
	Err() error
}

var _ Renderer = &renderer{}

// NewRenderer creates a renderer that draws through dev. No device call is made until Initiate.
//
// Parameters:
//   - dev: the device; owned by the renderer from now on
//   - options: functional options to configure the renderer
//
// Returns:
//   - Renderer: the renderer
func NewRenderer(dev device.Device, options ...RendererBuilderOption) Renderer {
	if dev == nil {
		panic("renderer: NewRenderer requires a non-nil device")
	}
	r := &renderer{
		dev:        dev,
		maxQuads:   batch.DefaultMaxQuads,
		maxRects:   batch.DefaultMaxDebugRects,
		clearColor: [4]float32{1, 1, 1, 1},
		drawOrders: draw_order.NewSparseSet[uint32](64),
		requests:   make(chan request),
	}
	for _, opt := range options {
		opt(r)
	}
	r.quads = batch.NewTexturedQuadBatch(dev, batch.WithMaxQuads(r.maxQuads), batch.WithQuadLogger(r.logger))
	r.rects = batch.NewDebugRectBatch(dev, batch.WithMaxRects(r.maxRects), batch.WithRectLogger(r.logger))
	r.renderingDone.Store(true)
	return r
}

func (r *renderer) Initiate() error {
	if r.running {
		panic("renderer: Initiate called on a running renderer")
	}
	r.terminate.Store(false)
	r.renderingDone.Store(true)
	r.submissionsReady.Store(false)
	r.clickRequested.Store(false)
	r.failed.Store(false)
	r.failure = nil
	r.outputTexture.Store(0)
	r.frames.Store(0)
	r.flush()

	r.done = make(chan struct{})
	ready := make(chan error, 1)
	go r.run(ready)
	if err := <-ready; err != nil {
		<-r.done
		return err
	}
	r.running = true
	r.logger.Info("renderer started", "device", r.dev.Name(), "max_quads", r.maxQuads, "max_rects", r.maxRects)
	return nil
}

func (r *renderer) Terminate() {
	if !r.running {
		return
	}
	r.terminate.Store(true)
	<-r.done
	r.running = false
	r.logger.Info("renderer stopped", "frames", r.frames.Load())
}

func (r *renderer) Begin(width, height int) {
	if !r.renderingDone.Load() {
		panic("renderer: Begin called before the previous frame completed")
	}
	r.flush()
	r.viewport = [2]int{width, height}
	r.renderingDone.Store(false)
}

func (r *renderer) flush() {
	r.quads.Flush()
	r.rects.Flush()
	r.sequence = r.sequence[:0]
	r.drawOrders.Clear()
}

func (r *renderer) assertSubmitting(op string) {
	if r.renderingDone.Load() || r.submissionsReady.Load() {
		panic(fmt.Sprintf("renderer: %s called outside of Begin and Render", op))
	}
}

func (r *renderer) SubmitTexturedQuad(q vertex.Quad) {
	r.assertSubmitting("SubmitTexturedQuad")
	r.quads.Submit(q)
	r.markPresent(q[0].DrawOrder, PrimitiveTexturedQuad)
}

// markPresent records that kind has objects at drawOrder, creating the indicator on first use.
func (r *renderer) markPresent(drawOrder uint32, kind PrimitiveKind) {
	if i, ok := r.drawOrders.TryGetIndexTo(drawOrder); ok {
		r.sequence[i].Kinds.Add(uint8(kind))
		return
	}
	r.drawOrders.Add(drawOrder)
	n := len(r.sequence)
	if n < cap(r.sequence) {
		r.sequence = r.sequence[:n+1]
	} else {
		r.sequence = append(r.sequence, RenderStateIndicator{})
	}
	ind := &r.sequence[n]
	ind.reset(drawOrder)
	ind.Kinds.Add(uint8(kind))
}

func (r *renderer) SubmitDebugRect(rect vertex.DebugRectVertex) {
	r.assertSubmitting("SubmitDebugRect")
	r.rects.Submit(rect)
}

func (r *renderer) Render() {
	r.assertSubmitting("Render")
	r.submissionsReady.Store(true)
}

func (r *renderer) IsRenderingDone() bool {
	return r.renderingDone.Load()
}

func (r *renderer) GetOutputTextureId() device.TextureHandle {
	return device.TextureHandle(r.outputTexture.Load())
}

func (r *renderer) TryReadPixelFromClickingTexture(x, y int) (PickResult, bool) {
	w, h := r.viewport[0], r.viewport[1]
	if w <= 0 || h <= 0 || x < 0 || y < 0 || x >= w || y >= h {
		return PickResult{}, false
	}
	if !r.running || r.exited() {
		return PickResult{}, false
	}
	r.clickPos = [2]int{x, y}
	r.clickRequested.Store(true)
	for r.clickRequested.Load() {
		if r.exited() {
			r.clickRequested.Store(false)
			return PickResult{}, false
		}
		runtime.Gosched()
	}
	v := r.clickResult
	return PickResult{EntityId: v[0], EntityVersion: v[1], SceneId: v[2], SceneVersion: v[3]}, true
}

func (r *renderer) SetClearColor(c mgl32.Vec4) {
	r.assertSubmitting("SetClearColor")
	r.clearColor = [4]float32{c[0], c[1], c[2], c[3]}
}

func (r *renderer) LoadTexture(img image.Image, filter device.TextureFilter) (device.TextureHandle, error) {
	if img == nil {
		return 0, fmt.Errorf("load texture: %w", device.ErrInvalidValue)
	}
	rgba, ok := img.(*image.RGBA)
	if !ok {
		b := img.Bounds()
		rgba = image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	}
	resp, err := r.call(request{kind: requestLoadTexture, img: rgba, filter: filter})
	if err != nil {
		return 0, fmt.Errorf("load texture: %w", err)
	}
	return resp.tex, resp.err
}

func (r *renderer) ReleaseTexture(tex device.TextureHandle) {
	if tex == 0 {
		return
	}
	if _, err := r.call(request{kind: requestReleaseTexture, tex: tex}); err != nil {
		r.logger.Warn("texture not released", "texture", tex, "error", err)
	}
}

func (r *renderer) CaptureFrame() (*image.RGBA, error) {
	resp, err := r.call(request{kind: requestCaptureFrame})
	if err != nil {
		return nil, fmt.Errorf("capture frame: %w", err)
	}
	return resp.img, resp.err
}

func (r *renderer) Err() error {
	if r.failed.Load() {
		return r.failure
	}
	return nil
}

// exited reports whether the render goroutine has returned.
func (r *renderer) exited() bool {
	if r.done == nil {
		return true
	}
	select {
	case <-r.done:
		return true
	default:
		return false
	}
}
