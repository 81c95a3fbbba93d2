// Package gl_backend implements device.Device on OpenGL 4.1 core.
package gl_backend

import (
	"fmt"
	"image"
	"image/draw"

	"github.com/Carmen-Shannon/oxy-frame/engine/log"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/device"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/vertex"
	"github.com/go-gl/gl/v4.1-core/gl"
)

// Context is a GL context the render thread binds before issuing any call. The window package
// provides one sharing objects with the visible window.
type Context interface {
	// MakeCurrent binds the context to the calling thread.
	MakeCurrent()

	// Detach unbinds the current context from the calling thread.
	Detach()
}

type glFramebuffer struct {
	label   string
	fbo     uint32
	color   uint32
	picking uint32
	width   int
	height  int
}

type glBuffer struct {
	label string
	name  uint32

	// vao is zero for index buffers.
	vao    uint32
	layout vertex.Layout
	size   int
}

type glPipeline struct {
	desc    device.PipelineDescriptor
	program uint32
}

// glDevice is the OpenGL implementation of device.Device.
type glDevice struct {
	ctx    Context
	logger *log.Logger

	framebuffers map[device.FramebufferHandle]*glFramebuffer
	buffers      map[device.BufferHandle]*glBuffer
	pipelines    map[device.PipelineHandle]*glPipeline
	textures     map[device.TextureHandle]struct{}

	// white is bound to texture slots a draw leaves unused.
	white uint32

	bound    *glFramebuffer
	blending bool
}

var _ device.Device = &glDevice{}

// NewDevice creates an OpenGL device. No GL call is made until Setup runs on the render thread.
//
// Parameters:
//   - ctx: the context the render thread makes current
//   - options: functional options to configure the device
//
// Returns:
//   - device.Device: the device
func NewDevice(ctx Context, options ...GLDeviceBuilderOption) device.Device {
	if ctx == nil {
		panic("gl_backend: nil context")
	}
	d := &glDevice{
		ctx:          ctx,
		framebuffers: make(map[device.FramebufferHandle]*glFramebuffer),
		buffers:      make(map[device.BufferHandle]*glBuffer),
		pipelines:    make(map[device.PipelineHandle]*glPipeline),
		textures:     make(map[device.TextureHandle]struct{}),
	}
	for _, opt := range options {
		opt(d)
	}
	return d
}

func (d *glDevice) Name() string {
	return "gl"
}

func (d *glDevice) Setup() error {
	d.ctx.MakeCurrent()
	if err := gl.Init(); err != nil {
		d.ctx.Detach()
		return fmt.Errorf("failed to initialize OpenGL: %w", err)
	}
	d.logger.Info("opengl device ready",
		"version", gl.GoStr(gl.GetString(gl.VERSION)),
		"renderer", gl.GoStr(gl.GetString(gl.RENDERER)))

	gl.Disable(gl.DEPTH_TEST)
	gl.ProvokingVertex(gl.FIRST_VERTEX_CONVENTION)
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)
	gl.PixelStorei(gl.PACK_ALIGNMENT, 1)

	white := image.NewRGBA(image.Rect(0, 0, 1, 1))
	copy(white.Pix, []uint8{255, 255, 255, 255})
	tex, err := d.CreateTexture(white, device.FilterNearest)
	if err != nil {
		return fmt.Errorf("failed to create default texture: %w", err)
	}
	d.white = uint32(tex)
	d.check("Setup")
	return nil
}

func (d *glDevice) Release() {
	for h, p := range d.pipelines {
		gl.DeleteProgram(p.program)
		delete(d.pipelines, h)
	}
	for h, b := range d.buffers {
		if b.vao != 0 {
			gl.DeleteVertexArrays(1, &b.vao)
		}
		gl.DeleteBuffers(1, &b.name)
		delete(d.buffers, h)
	}
	for h, fb := range d.framebuffers {
		gl.DeleteFramebuffers(1, &fb.fbo)
		names := [2]uint32{fb.color, fb.picking}
		gl.DeleteTextures(2, &names[0])
		delete(d.framebuffers, h)
	}
	for h := range d.textures {
		name := uint32(h)
		gl.DeleteTextures(1, &name)
		delete(d.textures, h)
	}
	d.white = 0
	d.bound = nil
	gl.Finish()
	d.ctx.Detach()
	d.logger.Info("opengl device released")
}

// check maps the pending GL error to a device error category. Compiled out in release builds.
func (d *glDevice) check(op string) {
	if !device.ChecksEnabled {
		return
	}
	device.Check(d.Name(), op, category(gl.GetError()))
}

func category(code uint32) device.ErrorCategory {
	switch code {
	case gl.NO_ERROR:
		return device.CategoryNone
	case gl.INVALID_OPERATION:
		return device.CategoryInvalidOperation
	case gl.INVALID_ENUM:
		return device.CategoryInvalidEnum
	case gl.INVALID_VALUE:
		return device.CategoryInvalidValue
	case gl.OUT_OF_MEMORY:
		return device.CategoryOutOfMemory
	case gl.INVALID_FRAMEBUFFER_OPERATION:
		return device.CategoryInvalidFramebufferOperation
	default:
		return device.CategoryUnknown
	}
}

func (d *glDevice) CreateFramebuffer(label string) (device.FramebufferHandle, error) {
	fb := &glFramebuffer{label: label}
	gl.GenFramebuffers(1, &fb.fbo)
	gl.GenTextures(1, &fb.color)
	gl.GenTextures(1, &fb.picking)

	for _, tex := range []uint32{fb.color, fb.picking} {
		gl.BindTexture(gl.TEXTURE_2D, tex)
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.NEAREST)
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.NEAREST)
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	}
	gl.BindTexture(gl.TEXTURE_2D, 0)

	gl.BindFramebuffer(gl.FRAMEBUFFER, fb.fbo)
	gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.TEXTURE_2D, fb.color, 0)
	gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT1, gl.TEXTURE_2D, fb.picking, 0)
	drawBuffers := [2]uint32{gl.COLOR_ATTACHMENT0, gl.COLOR_ATTACHMENT1}
	gl.DrawBuffers(2, &drawBuffers[0])
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	d.check("CreateFramebuffer")

	h := device.FramebufferHandle(fb.fbo)
	d.framebuffers[h] = fb
	return h, nil
}

func (d *glDevice) framebuffer(op string, h device.FramebufferHandle) *glFramebuffer {
	fb, ok := d.framebuffers[h]
	if !ok {
		device.Fail(d.Name(), op, device.CategoryInvalidValue, fmt.Sprintf("unknown framebuffer %d", h))
	}
	return fb
}

func (d *glDevice) ResizeFramebuffer(h device.FramebufferHandle, width, height int) error {
	if width < 0 || height < 0 {
		return fmt.Errorf("resize framebuffer to %dx%d: %w", width, height, device.ErrInvalidValue)
	}
	fb := d.framebuffer("ResizeFramebuffer", h)
	if fb.width == width && fb.height == height {
		return nil
	}
	fb.width, fb.height = width, height

	gl.BindTexture(gl.TEXTURE_2D, fb.color)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA8, int32(width), int32(height), 0, gl.RGBA, gl.UNSIGNED_BYTE, nil)
	gl.BindTexture(gl.TEXTURE_2D, fb.picking)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA32I, int32(width), int32(height), 0, gl.RGBA_INTEGER, gl.INT, nil)
	gl.BindTexture(gl.TEXTURE_2D, 0)
	if code := gl.GetError(); code == gl.OUT_OF_MEMORY {
		return fmt.Errorf("resize framebuffer %q to %dx%d: %w", fb.label, width, height, device.ErrOutOfMemory)
	}

	if width == 0 || height == 0 {
		return nil
	}
	gl.BindFramebuffer(gl.FRAMEBUFFER, fb.fbo)
	status := gl.CheckFramebufferStatus(gl.FRAMEBUFFER)
	if d.bound != nil {
		gl.BindFramebuffer(gl.FRAMEBUFFER, d.bound.fbo)
	}
	if status != gl.FRAMEBUFFER_COMPLETE {
		return fmt.Errorf("framebuffer %q incomplete (status 0x%x): %w", fb.label, status, device.ErrInvalidFramebufferOperation)
	}
	return nil
}

func (d *glDevice) BindFramebuffer(h device.FramebufferHandle) {
	fb := d.framebuffer("BindFramebuffer", h)
	gl.BindFramebuffer(gl.FRAMEBUFFER, fb.fbo)
	gl.Viewport(0, 0, int32(fb.width), int32(fb.height))
	d.bound = fb
	d.check("BindFramebuffer")
}

func (d *glDevice) ClearFramebuffer(h device.FramebufferHandle, color [4]float32) {
	fb := d.framebuffer("ClearFramebuffer", h)
	if fb.width == 0 || fb.height == 0 {
		return
	}
	gl.BindFramebuffer(gl.FRAMEBUFFER, fb.fbo)
	// clears honor the color mask
	gl.ColorMaski(0, true, true, true, true)
	gl.ColorMaski(1, true, true, true, true)
	gl.ClearBufferfv(gl.COLOR, 0, &color[0])
	pick := device.PickingClearValue
	gl.ClearBufferiv(gl.COLOR, 1, &pick[0])
	if d.bound != nil && d.bound != fb {
		gl.BindFramebuffer(gl.FRAMEBUFFER, d.bound.fbo)
	}
	d.check("ClearFramebuffer")
}

func (d *glDevice) FramebufferTexture(h device.FramebufferHandle) device.TextureHandle {
	return device.TextureHandle(d.framebuffer("FramebufferTexture", h).color)
}

func (d *glDevice) ReadPickingPixel(h device.FramebufferHandle, x, y int) [4]int32 {
	fb := d.framebuffer("ReadPickingPixel", h)
	if x < 0 || y < 0 || x >= fb.width || y >= fb.height {
		return device.PickingClearValue
	}
	var px [4]int32
	gl.BindFramebuffer(gl.READ_FRAMEBUFFER, fb.fbo)
	gl.ReadBuffer(gl.COLOR_ATTACHMENT1)
	gl.ReadPixels(int32(x), int32(y), 1, 1, gl.RGBA_INTEGER, gl.INT, gl.Ptr(&px[0]))
	gl.BindFramebuffer(gl.READ_FRAMEBUFFER, 0)
	if d.bound != nil {
		gl.BindFramebuffer(gl.FRAMEBUFFER, d.bound.fbo)
	}
	d.check("ReadPickingPixel")
	return px
}

func (d *glDevice) ReadColor(h device.FramebufferHandle) (*image.RGBA, error) {
	fb := d.framebuffer("ReadColor", h)
	out := image.NewRGBA(image.Rect(0, 0, fb.width, fb.height))
	if fb.width == 0 || fb.height == 0 {
		return out, nil
	}
	rows := make([]uint8, len(out.Pix))
	gl.BindFramebuffer(gl.READ_FRAMEBUFFER, fb.fbo)
	gl.ReadBuffer(gl.COLOR_ATTACHMENT0)
	gl.ReadPixels(0, 0, int32(fb.width), int32(fb.height), gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(&rows[0]))
	gl.BindFramebuffer(gl.READ_FRAMEBUFFER, 0)
	if d.bound != nil {
		gl.BindFramebuffer(gl.FRAMEBUFFER, d.bound.fbo)
	}
	if code := gl.GetError(); code != gl.NO_ERROR {
		return nil, fmt.Errorf("read color of %q: %w", fb.label, category(code).Err())
	}
	flipRows(out.Pix, rows, out.Stride, fb.height)
	return out, nil
}

// flipRows copies src into dst reversing the row order. GL stores the bottom row first.
func flipRows(dst, src []uint8, stride, height int) {
	for y := 0; y < height; y++ {
		copy(dst[y*stride:(y+1)*stride], src[(height-1-y)*stride:(height-y)*stride])
	}
}

func (d *glDevice) CreateVertexBuffer(label string, layout vertex.Layout, maxVertices int) (device.BufferHandle, error) {
	if maxVertices < 0 || layout.Stride == 0 {
		return 0, fmt.Errorf("create vertex buffer %q: %w", label, device.ErrInvalidValue)
	}
	b := &glBuffer{label: label, layout: layout, size: maxVertices * int(layout.Stride)}
	gl.GenVertexArrays(1, &b.vao)
	gl.GenBuffers(1, &b.name)

	gl.BindVertexArray(b.vao)
	gl.BindBuffer(gl.ARRAY_BUFFER, b.name)
	gl.BufferData(gl.ARRAY_BUFFER, max(b.size, 1), nil, gl.DYNAMIC_DRAW)
	stride := int32(layout.Stride)
	for _, a := range layout.Attributes {
		switch a.Format {
		case vertex.FormatUint32:
			gl.EnableVertexAttribArray(a.Location)
			gl.VertexAttribIPointer(a.Location, 1, gl.UNSIGNED_INT, stride, gl.PtrOffset(int(a.Offset)))
		case vertex.FormatFloat32x2, vertex.FormatFloat32x3, vertex.FormatFloat32x4:
			gl.EnableVertexAttribArray(a.Location)
			gl.VertexAttribPointer(a.Location, int32(a.Format.Size()/4), gl.FLOAT, false, stride, gl.PtrOffset(int(a.Offset)))
		case vertex.FormatMat4:
			for col := uint32(0); col < 4; col++ {
				gl.EnableVertexAttribArray(a.Location + col)
				gl.VertexAttribPointer(a.Location+col, 4, gl.FLOAT, false, stride, gl.PtrOffset(int(a.Offset+col*16)))
			}
		}
	}
	gl.BindVertexArray(0)
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
	if code := gl.GetError(); code != gl.NO_ERROR {
		return 0, fmt.Errorf("create vertex buffer %q: %w", label, category(code).Err())
	}

	h := device.BufferHandle(b.name)
	d.buffers[h] = b
	return h, nil
}

func (d *glDevice) CreateIndexBuffer(label string, maxIndices int) (device.BufferHandle, error) {
	if maxIndices < 0 {
		return 0, fmt.Errorf("create index buffer %q: %w", label, device.ErrInvalidValue)
	}
	b := &glBuffer{label: label, size: maxIndices * 4}
	gl.GenBuffers(1, &b.name)
	// element array bindings belong to a VAO, so allocate through a generic target
	gl.BindBuffer(gl.COPY_WRITE_BUFFER, b.name)
	gl.BufferData(gl.COPY_WRITE_BUFFER, max(b.size, 1), nil, gl.DYNAMIC_DRAW)
	gl.BindBuffer(gl.COPY_WRITE_BUFFER, 0)
	if code := gl.GetError(); code != gl.NO_ERROR {
		return 0, fmt.Errorf("create index buffer %q: %w", label, category(code).Err())
	}

	h := device.BufferHandle(b.name)
	d.buffers[h] = b
	return h, nil
}

func (d *glDevice) buffer(op string, h device.BufferHandle) *glBuffer {
	b, ok := d.buffers[h]
	if !ok {
		device.Fail(d.Name(), op, device.CategoryInvalidValue, fmt.Sprintf("unknown buffer %d", h))
	}
	return b
}

func (d *glDevice) WriteVertices(h device.BufferHandle, offset int, data []byte) {
	b := d.buffer("WriteVertices", h)
	if offset < 0 || offset+len(data) > b.size {
		device.Fail(d.Name(), "WriteVertices", device.CategoryInvalidValue,
			fmt.Sprintf("write of %d bytes at %d overflows %q (%d bytes)", len(data), offset, b.label, b.size))
	}
	if len(data) == 0 {
		return
	}
	gl.BindBuffer(gl.COPY_WRITE_BUFFER, b.name)
	gl.BufferSubData(gl.COPY_WRITE_BUFFER, offset, len(data), gl.Ptr(&data[0]))
	gl.BindBuffer(gl.COPY_WRITE_BUFFER, 0)
	d.check("WriteVertices")
}

func (d *glDevice) WriteIndices(h device.BufferHandle, offset int, indices []uint32) {
	b := d.buffer("WriteIndices", h)
	if offset < 0 || (offset+len(indices))*4 > b.size {
		device.Fail(d.Name(), "WriteIndices", device.CategoryInvalidValue,
			fmt.Sprintf("write of %d indices at %d overflows %q (%d indices)", len(indices), offset, b.label, b.size/4))
	}
	if len(indices) == 0 {
		return
	}
	gl.BindBuffer(gl.COPY_WRITE_BUFFER, b.name)
	gl.BufferSubData(gl.COPY_WRITE_BUFFER, offset*4, len(indices)*4, gl.Ptr(&indices[0]))
	gl.BindBuffer(gl.COPY_WRITE_BUFFER, 0)
	d.check("WriteIndices")
}

func (d *glDevice) CreatePipeline(desc device.PipelineDescriptor) (device.PipelineHandle, error) {
	var stages []shaderStage
	var want vertex.Layout
	switch desc.Kind {
	case device.PipelineTexturedQuad:
		want = vertex.TexturedLayout
		stages = []shaderStage{
			{gl.VERTEX_SHADER, TexturedQuadVertexSource},
			{gl.FRAGMENT_SHADER, TexturedQuadFragmentSource},
		}
	case device.PipelineDebugRect:
		want = vertex.DebugRectLayout
		stages = []shaderStage{
			{gl.VERTEX_SHADER, DebugRectVertexSource},
			{gl.GEOMETRY_SHADER, DebugRectGeometrySource},
			{gl.FRAGMENT_SHADER, DebugRectFragmentSource},
		}
	default:
		return 0, fmt.Errorf("create pipeline %q: kind %d: %w", desc.Label, desc.Kind, device.ErrInvalidEnum)
	}
	if desc.Layout.Stride != want.Stride {
		return 0, fmt.Errorf("create pipeline %q: stride %d, want %d: %w", desc.Label, desc.Layout.Stride, want.Stride, device.ErrInvalidValue)
	}

	program, err := linkProgram(stages...)
	if err != nil {
		return 0, fmt.Errorf("create pipeline %q: %w", desc.Label, err)
	}
	if desc.Kind == device.PipelineTexturedQuad {
		units := make([]int32, device.TextureSlots)
		for i := range units {
			units[i] = int32(i)
		}
		gl.UseProgram(program)
		gl.Uniform1iv(gl.GetUniformLocation(program, gl.Str("u_textures\x00")), int32(len(units)), &units[0])
		gl.UseProgram(0)
	}
	d.check("CreatePipeline")

	h := device.PipelineHandle(program)
	d.pipelines[h] = &glPipeline{desc: desc, program: program}
	d.logger.Debug("pipeline created", "label", desc.Label, "kind", desc.Kind.String())
	return h, nil
}

func (d *glDevice) SetBlending(enabled bool) {
	if enabled {
		gl.Enable(gl.BLEND)
		gl.BlendFuncSeparate(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA, gl.ONE, gl.ONE)
	} else {
		gl.Disable(gl.BLEND)
	}
	d.blending = enabled
	d.check("SetBlending")
}

func (d *glDevice) drawState(op string, cmd device.DrawCommand, kind device.PipelineKind) (*glPipeline, *glBuffer) {
	p, ok := d.pipelines[cmd.Pipeline]
	if !ok {
		device.Fail(d.Name(), op, device.CategoryInvalidValue, fmt.Sprintf("unknown pipeline %d", cmd.Pipeline))
	}
	if p.desc.Kind != kind {
		device.Fail(d.Name(), op, device.CategoryInvalidOperation, fmt.Sprintf("%s pipeline cannot be used with %s", p.desc.Kind, op))
	}
	if d.bound == nil {
		device.Fail(d.Name(), op, device.CategoryInvalidFramebufferOperation, "no framebuffer bound")
	}
	if len(cmd.Textures) > device.TextureSlots {
		device.Fail(d.Name(), op, device.CategoryInvalidValue, fmt.Sprintf("%d textures exceed %d slots", len(cmd.Textures), device.TextureSlots))
	}
	vb := d.buffer(op, cmd.VertexBuffer)
	if vb.vao == 0 {
		device.Fail(d.Name(), op, device.CategoryInvalidOperation, fmt.Sprintf("%q is not a vertex buffer", vb.label))
	}
	return p, vb
}

func (d *glDevice) bindTextures(textures []device.TextureHandle) {
	for i := 0; i < device.TextureSlots; i++ {
		tex := d.white
		if i < len(textures) && textures[i] != 0 {
			tex = uint32(textures[i])
		}
		gl.ActiveTexture(gl.TEXTURE0 + uint32(i))
		gl.BindTexture(gl.TEXTURE_2D, tex)
	}
	gl.ActiveTexture(gl.TEXTURE0)
}

func (d *glDevice) DrawIndexed(cmd device.DrawCommand) {
	p, vb := d.drawState("DrawIndexed", cmd, device.PipelineTexturedQuad)
	ib := d.buffer("DrawIndexed", cmd.IndexBuffer)
	if cmd.First < 0 || cmd.Count < 0 || (cmd.First+cmd.Count)*4 > ib.size {
		device.Fail(d.Name(), "DrawIndexed", device.CategoryInvalidValue,
			fmt.Sprintf("index range [%d,%d) outside %q", cmd.First, cmd.First+cmd.Count, ib.label))
	}
	if cmd.Count == 0 {
		return
	}

	gl.UseProgram(p.program)
	d.bindTextures(cmd.Textures)
	gl.BindVertexArray(vb.vao)
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, ib.name)
	gl.DrawElements(gl.TRIANGLES, int32(cmd.Count), gl.UNSIGNED_INT, gl.PtrOffset(cmd.First*4))
	gl.BindVertexArray(0)
	d.check("DrawIndexed")
}

func (d *glDevice) Draw(cmd device.DrawCommand) {
	p, vb := d.drawState("Draw", cmd, device.PipelineDebugRect)
	if cmd.First < 0 || cmd.Count < 0 || (cmd.First+cmd.Count)*int(vb.layout.Stride) > vb.size {
		device.Fail(d.Name(), "Draw", device.CategoryInvalidValue,
			fmt.Sprintf("vertex range [%d,%d) outside %q", cmd.First, cmd.First+cmd.Count, vb.label))
	}
	if cmd.Count == 0 {
		return
	}

	gl.UseProgram(p.program)
	gl.BindVertexArray(vb.vao)
	// debug geometry never reaches the picking attachment
	gl.ColorMaski(1, false, false, false, false)
	gl.DrawArrays(gl.POINTS, int32(cmd.First), int32(cmd.Count))
	gl.ColorMaski(1, true, true, true, true)
	gl.BindVertexArray(0)
	d.check("Draw")
}

func (d *glDevice) Finish() {
	gl.Finish()
	d.check("Finish")
}

func (d *glDevice) CreateTexture(img *image.RGBA, filter device.TextureFilter) (device.TextureHandle, error) {
	if img == nil || img.Bounds().Empty() {
		return 0, fmt.Errorf("create texture: empty image: %w", device.ErrInvalidValue)
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	src := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(src, src.Bounds(), img, b.Min, draw.Src)
	// texture coordinate (0, 0) is the first uploaded row
	pix := make([]uint8, len(src.Pix))
	flipRows(pix, src.Pix, src.Stride, h)

	glFilter := int32(gl.NEAREST)
	if filter == device.FilterLinear {
		glFilter = gl.LINEAR
	}
	var tex uint32
	gl.GenTextures(1, &tex)
	gl.BindTexture(gl.TEXTURE_2D, tex)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, glFilter)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, glFilter)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA8, int32(w), int32(h), 0, gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(&pix[0]))
	gl.BindTexture(gl.TEXTURE_2D, 0)
	if code := gl.GetError(); code != gl.NO_ERROR {
		gl.DeleteTextures(1, &tex)
		return 0, fmt.Errorf("create texture %dx%d: %w", w, h, category(code).Err())
	}

	handle := device.TextureHandle(tex)
	d.textures[handle] = struct{}{}
	return handle, nil
}

func (d *glDevice) DestroyTexture(h device.TextureHandle) {
	if _, ok := d.textures[h]; !ok {
		return
	}
	name := uint32(h)
	gl.DeleteTextures(1, &name)
	delete(d.textures, h)
	d.check("DestroyTexture")
}
