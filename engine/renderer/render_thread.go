package renderer

import (
	"cmp"
	"fmt"
	"image"
	"runtime"
	"slices"
	"time"

	"github.com/Carmen-Shannon/oxy-frame/engine/profiler"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/device"
)

type requestKind int

const (
	requestLoadTexture requestKind = iota
	requestReleaseTexture
	requestCaptureFrame
)

// request is work the producer hands to the render thread outside the frame protocol.
type request struct {
	kind   requestKind
	img    *image.RGBA
	filter device.TextureFilter
	tex    device.TextureHandle
	reply  chan response
}

type response struct {
	tex device.TextureHandle
	img *image.RGBA
	err error
}

// call hands req to the render thread and waits for its response.
func (r *renderer) call(req request) (response, error) {
	if !r.running || r.exited() {
		return response{}, ErrNotRunning
	}
	req.reply = make(chan response, 1)
	select {
	case r.requests <- req:
	case <-r.done:
		return response{}, ErrNotRunning
	}
	select {
	case resp := <-req.reply:
		return resp, nil
	case <-r.done:
		return response{}, ErrNotRunning
	}
}

// run is the body of the render goroutine.
func (r *renderer) run(ready chan<- error) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(r.done)

	if err := r.setup(); err != nil {
		r.dev.Release()
		ready <- err
		return
	}
	ready <- nil

	defer r.dev.Release()
	defer r.recoverFailure()
	r.loop()
}

func (r *renderer) setup() (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("renderer setup: %v", p)
		}
	}()

	if err := r.dev.Setup(); err != nil {
		return fmt.Errorf("renderer setup: %s device: %w", r.dev.Name(), err)
	}
	if err := r.quads.Setup(); err != nil {
		return fmt.Errorf("renderer setup: %w", err)
	}
	if err := r.rects.Setup(); err != nil {
		return fmt.Errorf("renderer setup: %w", err)
	}
	for i := range r.framebuffers {
		fb, err := r.dev.CreateFramebuffer(fmt.Sprintf("output %d", i+1))
		if err != nil {
			return fmt.Errorf("renderer setup: framebuffer %d: %w", i+1, err)
		}
		r.framebuffers[i] = fb
	}
	r.active = 0
	return nil
}

func (r *renderer) recoverFailure() {
	p := recover()
	if p == nil {
		return
	}
	err, ok := p.(error)
	if !ok {
		err = fmt.Errorf("%v", p)
	}
	r.failure = fmt.Errorf("renderer: render thread failed: %w", err)
	r.failed.Store(true)
	r.logger.Error("render thread failed", "error", err)
}

func (r *renderer) loop() {
	for !r.terminate.Load() {
		select {
		case req := <-r.requests:
			req.reply <- r.serve(req)
		default:
		}

		if r.clickRequested.Load() {
			fb := r.framebuffers[1-r.active]
			r.clickResult = r.dev.ReadPickingPixel(fb, r.clickPos[0], r.clickPos[1])
			r.clickRequested.Store(false)
		}

		if !r.submissionsReady.Load() {
			runtime.Gosched()
			continue
		}
		r.renderFrame()
	}
}

func (r *renderer) serve(req request) response {
	switch req.kind {
	case requestLoadTexture:
		tex, err := r.dev.CreateTexture(req.img, req.filter)
		return response{tex: tex, err: err}
	case requestReleaseTexture:
		r.dev.DestroyTexture(req.tex)
		return response{}
	case requestCaptureFrame:
		if r.frames.Load() == 0 {
			return response{err: ErrNoFrame}
		}
		img, err := r.dev.ReadColor(r.framebuffers[1-r.active])
		return response{img: img, err: err}
	default:
		return response{err: fmt.Errorf("renderer: unknown request %d", req.kind)}
	}
}

func (r *renderer) renderFrame() {
	start := time.Now()
	fb := r.framebuffers[r.active]

	if err := r.dev.ResizeFramebuffer(fb, r.viewport[0], r.viewport[1]); err != nil {
		panic(fmt.Errorf("resize output target to %dx%d: %w", r.viewport[0], r.viewport[1], err))
	}
	r.dev.BindFramebuffer(fb)
	r.dev.ClearFramebuffer(fb, r.clearColor)
	r.dev.SetBlending(true)

	slices.SortStableFunc(r.sequence, func(a, b RenderStateIndicator) int {
		return cmp.Compare(a.DrawOrder, b.DrawOrder)
	})
	r.quads.Prepare()
	for i := range r.sequence {
		ind := &r.sequence[i]
		for kind := PrimitiveKind(0); kind < primitiveKindCount; kind++ {
			if !ind.Has(kind) {
				continue
			}
			switch kind {
			case PrimitiveTexturedQuad:
				r.quads.Render()
			default:
				panic(fmt.Sprintf("renderer: no batch draws %s", kind))
			}
		}
	}

	r.dev.SetBlending(false)
	r.rects.Prepare()
	r.rects.Render()
	r.dev.Finish()

	r.outputTexture.Store(uint32(r.dev.FramebufferTexture(fb)))
	r.frames.Add(1)

	quads, rects := r.quads.Stats(), r.rects.Stats()
	r.profiler.Record(profiler.FrameSample{
		Duration:  time.Since(start),
		DrawCalls: quads.DrawCalls + rects.DrawCalls,
		Quads:     quads.Objects,
		Rects:     rects.Objects,
	})

	r.submissionsReady.Store(false)
	r.renderingDone.Store(true)
	r.active = 1 - r.active
}
