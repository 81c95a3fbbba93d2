package device

import (
	"fmt"
	"image"
	"image/draw"
	"runtime"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-frame/engine/log"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/vertex"
)

// DrawnObject is one object covered by a recorded draw call.
type DrawnObject struct {
	// DrawOrder is read from the first vertex of the object. Always zero for debug rects.
	DrawOrder uint32

	EntityId uint32

	// Slot is the texture slot the object samples, meaningful only when Texture is non-zero.
	Slot uint32

	// Texture is the texture bound at Slot, or zero when the object is untextured.
	Texture TextureHandle
}

// DrawCall is a record of one draw issued to the software device.
type DrawCall struct {
	Kind        PipelineKind
	Framebuffer FramebufferHandle
	Blending    bool
	Textures    []TextureHandle
	First       int
	Count       int
	Objects     []DrawnObject
}

// SoftDevice is a Device that rasterizes on the CPU. Besides rendering it records every draw call,
// which makes it the device used to verify batching and picking without a GPU.
type SoftDevice interface {
	Device

	// DrawCalls returns a copy of the draw calls recorded since the last reset.
	//
	// Returns:
	//   - []DrawCall: recorded draws in issue order
	DrawCalls() []DrawCall

	// ResetDrawCalls discards the recorded draw calls.
	ResetDrawCalls()
}

type softFramebuffer struct {
	label   string
	width   int
	height  int
	texture TextureHandle

	// color and picking store rows top first.
	color   *image.RGBA
	picking [][4]int32
}

type softBuffer struct {
	label   string
	layout  vertex.Layout
	data    []byte
	indices []uint32
}

type softTexture struct {
	img    *image.RGBA
	filter TextureFilter
}

// softDevice is the implementation of the SoftDevice interface.
type softDevice struct {
	mu     sync.Mutex
	logger *log.Logger

	// workers is the number of row bands a draw is split into.
	workers int

	// minParallelRows is the framebuffer height below which draws run inline.
	minParallelRows int

	pool worker.DynamicWorkerPool

	next         uint32
	framebuffers map[FramebufferHandle]*softFramebuffer
	buffers      map[BufferHandle]*softBuffer
	pipelines    map[PipelineHandle]PipelineDescriptor
	textures     map[TextureHandle]*softTexture

	bound    *softFramebuffer
	boundFB  FramebufferHandle
	blending bool

	recordDraws bool
	draws       []DrawCall
}

var _ SoftDevice = &softDevice{}

// NewSoftDevice creates a software device. The worker pool is started by Setup.
//
// Parameters:
//   - options: functional options to configure the device
//
// Returns:
//   - SoftDevice: the device
func NewSoftDevice(options ...SoftDeviceBuilderOption) SoftDevice {
	d := &softDevice{
		workers:         runtime.NumCPU(),
		minParallelRows: 64,
		recordDraws:     true,
		framebuffers:    make(map[FramebufferHandle]*softFramebuffer),
		buffers:         make(map[BufferHandle]*softBuffer),
		pipelines:       make(map[PipelineHandle]PipelineDescriptor),
		textures:        make(map[TextureHandle]*softTexture),
	}
	for _, opt := range options {
		opt(d)
	}
	if d.workers < 1 {
		d.workers = 1
	}
	return d
}

func (d *softDevice) Name() string {
	return "soft"
}

func (d *softDevice) Setup() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.pool == nil && d.workers > 1 {
		d.pool = worker.NewDynamicWorkerPool(d.workers, 256, time.Second)
	}
	d.logger.Info("software device ready", "workers", d.workers)
	return nil
}

func (d *softDevice) Release() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.pool != nil {
		d.pool.Stop()
		d.pool = nil
	}
	clear(d.framebuffers)
	clear(d.buffers)
	clear(d.pipelines)
	clear(d.textures)
	d.bound = nil
	d.boundFB = 0
}

func (d *softDevice) handle() uint32 {
	d.next++
	return d.next
}

func (d *softDevice) CreateFramebuffer(label string) (FramebufferHandle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	fb := &softFramebuffer{
		label: label,
		color: image.NewRGBA(image.Rect(0, 0, 0, 0)),
	}
	fb.texture = TextureHandle(d.handle())
	d.textures[fb.texture] = &softTexture{img: fb.color, filter: FilterNearest}

	h := FramebufferHandle(d.handle())
	d.framebuffers[h] = fb
	return h, nil
}

func (d *softDevice) framebuffer(op string, h FramebufferHandle) *softFramebuffer {
	fb, ok := d.framebuffers[h]
	if !ok {
		Fail(d.Name(), op, CategoryInvalidValue, fmt.Sprintf("unknown framebuffer %d", h))
	}
	return fb
}

func (d *softDevice) ResizeFramebuffer(h FramebufferHandle, width, height int) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if width < 0 || height < 0 {
		return fmt.Errorf("resize framebuffer to %dx%d: %w", width, height, ErrInvalidValue)
	}
	fb := d.framebuffer("ResizeFramebuffer", h)
	if fb.width == width && fb.height == height {
		return nil
	}
	fb.width, fb.height = width, height
	fb.color = image.NewRGBA(image.Rect(0, 0, width, height))
	fb.picking = make([][4]int32, width*height)
	if tex, ok := d.textures[fb.texture]; ok {
		tex.img = fb.color
	}
	return nil
}

func (d *softDevice) BindFramebuffer(h FramebufferHandle) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.bound = d.framebuffer("BindFramebuffer", h)
	d.boundFB = h
}

func (d *softDevice) ClearFramebuffer(h FramebufferHandle, color [4]float32) {
	d.mu.Lock()
	defer d.mu.Unlock()

	fb := d.framebuffer("ClearFramebuffer", h)
	px := [4]uint8{toUnorm8(color[0]), toUnorm8(color[1]), toUnorm8(color[2]), toUnorm8(color[3])}
	for i := 0; i < len(fb.color.Pix); i += 4 {
		copy(fb.color.Pix[i:i+4], px[:])
	}
	for i := range fb.picking {
		fb.picking[i] = PickingClearValue
	}
}

func (d *softDevice) FramebufferTexture(h FramebufferHandle) TextureHandle {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.framebuffer("FramebufferTexture", h).texture
}

func (d *softDevice) ReadPickingPixel(h FramebufferHandle, x, y int) [4]int32 {
	d.mu.Lock()
	defer d.mu.Unlock()

	fb := d.framebuffer("ReadPickingPixel", h)
	if x < 0 || y < 0 || x >= fb.width || y >= fb.height {
		return PickingClearValue
	}
	return fb.picking[(fb.height-1-y)*fb.width+x]
}

func (d *softDevice) ReadColor(h FramebufferHandle) (*image.RGBA, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	fb := d.framebuffer("ReadColor", h)
	out := image.NewRGBA(fb.color.Rect)
	copy(out.Pix, fb.color.Pix)
	return out, nil
}

func (d *softDevice) CreateVertexBuffer(label string, layout vertex.Layout, maxVertices int) (BufferHandle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if maxVertices < 0 || layout.Stride == 0 {
		return 0, fmt.Errorf("create vertex buffer %q: %w", label, ErrInvalidValue)
	}
	h := BufferHandle(d.handle())
	d.buffers[h] = &softBuffer{
		label:  label,
		layout: layout,
		data:   make([]byte, maxVertices*int(layout.Stride)),
	}
	return h, nil
}

func (d *softDevice) CreateIndexBuffer(label string, maxIndices int) (BufferHandle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if maxIndices < 0 {
		return 0, fmt.Errorf("create index buffer %q: %w", label, ErrInvalidValue)
	}
	h := BufferHandle(d.handle())
	d.buffers[h] = &softBuffer{
		label:   label,
		indices: make([]uint32, maxIndices),
	}
	return h, nil
}

func (d *softDevice) buffer(op string, h BufferHandle) *softBuffer {
	b, ok := d.buffers[h]
	if !ok {
		Fail(d.Name(), op, CategoryInvalidValue, fmt.Sprintf("unknown buffer %d", h))
	}
	return b
}

func (d *softDevice) WriteVertices(h BufferHandle, offset int, data []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()

	b := d.buffer("WriteVertices", h)
	if offset < 0 || offset+len(data) > len(b.data) {
		Fail(d.Name(), "WriteVertices", CategoryInvalidValue,
			fmt.Sprintf("write of %d bytes at %d overflows %q (%d bytes)", len(data), offset, b.label, len(b.data)))
	}
	copy(b.data[offset:], data)
}

func (d *softDevice) WriteIndices(h BufferHandle, offset int, indices []uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()

	b := d.buffer("WriteIndices", h)
	if offset < 0 || offset+len(indices) > len(b.indices) {
		Fail(d.Name(), "WriteIndices", CategoryInvalidValue,
			fmt.Sprintf("write of %d indices at %d overflows %q (%d indices)", len(indices), offset, b.label, len(b.indices)))
	}
	copy(b.indices[offset:], indices)
}

func (d *softDevice) CreatePipeline(desc PipelineDescriptor) (PipelineHandle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var want vertex.Layout
	switch desc.Kind {
	case PipelineTexturedQuad:
		want = vertex.TexturedLayout
	case PipelineDebugRect:
		want = vertex.DebugRectLayout
	default:
		return 0, fmt.Errorf("create pipeline %q: kind %d: %w", desc.Label, desc.Kind, ErrInvalidEnum)
	}
	if desc.Layout.Stride != want.Stride {
		return 0, fmt.Errorf("create pipeline %q: stride %d, want %d: %w", desc.Label, desc.Layout.Stride, want.Stride, ErrInvalidValue)
	}
	h := PipelineHandle(d.handle())
	d.pipelines[h] = desc
	return h, nil
}

func (d *softDevice) SetBlending(enabled bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.blending = enabled
}

func (d *softDevice) DrawIndexed(cmd DrawCommand) {
	d.mu.Lock()
	defer d.mu.Unlock()

	desc, target := d.drawState("DrawIndexed", cmd)
	if desc.Kind != PipelineTexturedQuad {
		Fail(d.Name(), "DrawIndexed", CategoryInvalidOperation, fmt.Sprintf("%s pipeline is not indexed", desc.Kind))
	}
	vb := d.buffer("DrawIndexed", cmd.VertexBuffer)
	ib := d.buffer("DrawIndexed", cmd.IndexBuffer)
	if cmd.First < 0 || cmd.Count < 0 || cmd.First+cmd.Count > len(ib.indices) {
		Fail(d.Name(), "DrawIndexed", CategoryInvalidValue, fmt.Sprintf("index range [%d,%d) outside %q", cmd.First, cmd.First+cmd.Count, ib.label))
	}

	tris := d.assembleTriangles(vb, ib.indices[cmd.First:cmd.First+cmd.Count], target)
	samplers := d.samplers(cmd.Textures)
	d.runBands(target.height, func(y0, y1 int) {
		for i := range tris {
			rasterTriangle(target, &tris[i], samplers, d.blending, y0, y1)
		}
	})

	if d.recordDraws {
		objects := make([]DrawnObject, 0, cmd.Count/6)
		for i := 0; i+6 <= cmd.Count; i += 6 {
			v := d.vertexAt(vb, int(ib.indices[cmd.First+i]))
			obj := DrawnObject{DrawOrder: v.DrawOrder, EntityId: v.EntityId}
			if v.ToUseDiffuseTex == 1 {
				obj.Slot = v.DiffuseTexId
				if int(v.DiffuseTexId) < len(cmd.Textures) {
					obj.Texture = cmd.Textures[v.DiffuseTexId]
				}
			}
			objects = append(objects, obj)
		}
		d.record(desc.Kind, cmd, objects)
	}
}

func (d *softDevice) Draw(cmd DrawCommand) {
	d.mu.Lock()
	defer d.mu.Unlock()

	desc, target := d.drawState("Draw", cmd)
	if desc.Kind != PipelineDebugRect {
		Fail(d.Name(), "Draw", CategoryInvalidOperation, fmt.Sprintf("%s pipeline must be drawn indexed", desc.Kind))
	}
	vb := d.buffer("Draw", cmd.VertexBuffer)
	stride := int(vb.layout.Stride)
	if cmd.First < 0 || cmd.Count < 0 || (cmd.First+cmd.Count)*stride > len(vb.data) {
		Fail(d.Name(), "Draw", CategoryInvalidValue, fmt.Sprintf("vertex range [%d,%d) outside %q", cmd.First, cmd.First+cmd.Count, vb.label))
	}

	lines := make([]lineLoop, 0, cmd.Count)
	for i := cmd.First; i < cmd.First+cmd.Count; i++ {
		r := vertex.UnmarshalDebugRectVertex(vb.data[i*stride:])
		lines = append(lines, newLineLoop(&r, target))
	}
	d.runBands(target.height, func(y0, y1 int) {
		for i := range lines {
			rasterLineLoop(target, &lines[i], d.blending, y0, y1)
		}
	})

	if d.recordDraws {
		objects := make([]DrawnObject, cmd.Count)
		d.record(desc.Kind, cmd, objects)
	}
}

func (d *softDevice) drawState(op string, cmd DrawCommand) (PipelineDescriptor, *softFramebuffer) {
	desc, ok := d.pipelines[cmd.Pipeline]
	if !ok {
		Fail(d.Name(), op, CategoryInvalidValue, fmt.Sprintf("unknown pipeline %d", cmd.Pipeline))
	}
	if d.bound == nil {
		Fail(d.Name(), op, CategoryInvalidFramebufferOperation, "no framebuffer bound")
	}
	if len(cmd.Textures) > TextureSlots {
		Fail(d.Name(), op, CategoryInvalidValue, fmt.Sprintf("%d textures exceed %d slots", len(cmd.Textures), TextureSlots))
	}
	return desc, d.bound
}

func (d *softDevice) vertexAt(vb *softBuffer, index int) vertex.TexturedVertex {
	stride := int(vb.layout.Stride)
	if index < 0 || (index+1)*stride > len(vb.data) {
		Fail(d.Name(), "DrawIndexed", CategoryInvalidValue, fmt.Sprintf("index %d outside %q", index, vb.label))
	}
	return vertex.UnmarshalTexturedVertex(vb.data[index*stride:])
}

func (d *softDevice) assembleTriangles(vb *softBuffer, indices []uint32, target *softFramebuffer) []triangle {
	tris := make([]triangle, 0, len(indices)/3)
	for i := 0; i+3 <= len(indices); i += 3 {
		var corners [3]vertex.TexturedVertex
		for k := range corners {
			corners[k] = d.vertexAt(vb, int(indices[i+k]))
		}
		if t, ok := newTriangle(corners, target); ok {
			tris = append(tris, t)
		}
	}
	return tris
}

func (d *softDevice) samplers(handles []TextureHandle) []*softTexture {
	out := make([]*softTexture, len(handles))
	for i, h := range handles {
		out[i] = d.textures[h]
	}
	return out
}

func (d *softDevice) record(kind PipelineKind, cmd DrawCommand, objects []DrawnObject) {
	d.draws = append(d.draws, DrawCall{
		Kind:        kind,
		Framebuffer: d.boundFB,
		Blending:    d.blending,
		Textures:    append([]TextureHandle(nil), cmd.Textures...),
		First:       cmd.First,
		Count:       cmd.Count,
		Objects:     objects,
	})
}

// runBands splits [0, height) into one row band per worker and waits for all of them.
func (d *softDevice) runBands(height int, fn func(y0, y1 int)) {
	if d.pool == nil || height < d.minParallelRows {
		fn(0, height)
		return
	}
	step := (height + d.workers - 1) / d.workers
	var wg sync.WaitGroup
	for id, y0 := 0, 0; y0 < height; id, y0 = id+1, y0+step {
		y1 := min(y0+step, height)
		wg.Add(1)
		d.pool.SubmitTask(worker.Task{
			ID: id,
			Do: func() (any, error) {
				defer wg.Done()
				fn(y0, y1)
				return nil, nil
			},
		})
	}
	wg.Wait()
}

func (d *softDevice) Finish() {}

func (d *softDevice) CreateTexture(img *image.RGBA, filter TextureFilter) (TextureHandle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if img == nil || img.Bounds().Empty() {
		return 0, fmt.Errorf("create texture: empty image: %w", ErrInvalidValue)
	}
	b := img.Bounds()
	cp := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(cp, cp.Bounds(), img, b.Min, draw.Src)

	h := TextureHandle(d.handle())
	d.textures[h] = &softTexture{img: cp, filter: filter}
	return h, nil
}

func (d *softDevice) DestroyTexture(h TextureHandle) {
	d.mu.Lock()
	defer d.mu.Unlock()

	delete(d.textures, h)
}

func (d *softDevice) DrawCalls() []DrawCall {
	d.mu.Lock()
	defer d.mu.Unlock()

	return append([]DrawCall(nil), d.draws...)
}

func (d *softDevice) ResetDrawCalls() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.draws = d.draws[:0]
}
