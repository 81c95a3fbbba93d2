// Package wgpu_backend implements device.Device on WebGPU. It runs headless unless a surface
// descriptor is given, in which case the adapter is chosen to be compatible with the window surface
// and a presenter can display the output textures.
package wgpu_backend

import (
	"encoding/binary"
	"fmt"
	"image"
	"image/draw"
	"slices"
	"sync"

	"github.com/Carmen-Shannon/oxy-frame/engine/log"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/device"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/vertex"
	"github.com/cogentcore/webgpu/wgpu"
)

const (
	backendName = "wgpu"

	colorFormat   = wgpu.TextureFormatRGBA8Unorm
	pickingFormat = wgpu.TextureFormatRGBA32Sint

	// texture bindings come first in the textured quad bind group, samplers follow
	samplerBindingBase = device.TextureSlots
)

type wgpuTexture struct {
	texture *wgpu.Texture
	view    *wgpu.TextureView
	filter  device.TextureFilter
	width   int
	height  int

	// attachment marks a framebuffer color attachment, released by its framebuffer
	attachment bool
}

type wgpuFramebuffer struct {
	label       string
	color       device.TextureHandle
	picking     *wgpu.Texture
	pickingView *wgpu.TextureView
	width       int
	height      int
}

type wgpuBuffer struct {
	label  string
	buffer *wgpu.Buffer
	index  bool
	layout vertex.Layout
	size   int
}

type wgpuPipeline struct {
	desc       device.PipelineDescriptor
	layout     *wgpu.PipelineLayout
	bindLayout *wgpu.BindGroupLayout

	// variants holds the opaque pipeline at 0 and the alpha blended one at 1
	variants [2]*wgpu.RenderPipeline
}

// wgpuDevice is the WebGPU implementation of device.Device.
type wgpuDevice struct {
	// mu guards textures and framebuffers, which the presenter reads from the window thread
	mu     *sync.Mutex
	logger *log.Logger

	forceFallbackAdapter bool
	surfaceDescriptor    *wgpu.SurfaceDescriptor

	instance *wgpu.Instance
	surface  *wgpu.Surface
	adapter  *wgpu.Adapter
	dev      *wgpu.Device
	queue    *wgpu.Queue

	samplers [2]*wgpu.Sampler

	next         uint32
	framebuffers map[device.FramebufferHandle]*wgpuFramebuffer
	buffers      map[device.BufferHandle]*wgpuBuffer
	pipelines    map[device.PipelineHandle]*wgpuPipeline
	textures     map[device.TextureHandle]*wgpuTexture

	// white is bound to texture slots a draw leaves unused
	white device.TextureHandle

	bound    *wgpuFramebuffer
	blending bool

	// commands are recorded into one encoder until the next upload, readback or Finish
	encoder    *wgpu.CommandEncoder
	pass       *wgpu.RenderPassEncoder
	passTarget *wgpuFramebuffer
	transient  []*wgpu.BindGroup
}

var _ device.Device = &wgpuDevice{}

// NewDevice creates a WebGPU device. The instance, and the window surface when one is configured,
// are created on the calling thread. Adapter and device are requested in Setup.
//
// Parameters:
//   - options: functional options to configure the device
//
// Returns:
//   - device.Device: the device
func NewDevice(options ...WGPUDeviceBuilderOption) device.Device {
	d := &wgpuDevice{
		mu:           &sync.Mutex{},
		framebuffers: make(map[device.FramebufferHandle]*wgpuFramebuffer),
		buffers:      make(map[device.BufferHandle]*wgpuBuffer),
		pipelines:    make(map[device.PipelineHandle]*wgpuPipeline),
		textures:     make(map[device.TextureHandle]*wgpuTexture),
	}
	for _, opt := range options {
		opt(d)
	}
	d.instance = wgpu.CreateInstance(nil)
	if d.surfaceDescriptor != nil {
		d.surface = d.instance.CreateSurface(d.surfaceDescriptor)
	}
	return d
}

func (d *wgpuDevice) Name() string {
	return backendName
}

func (d *wgpuDevice) Setup() error {
	adapter, err := d.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: d.forceFallbackAdapter,
		CompatibleSurface:    d.surface,
	})
	if err != nil {
		return fmt.Errorf("failed to request adapter: %w", err)
	}
	d.adapter = adapter

	dev, err := adapter.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "oxy-frame device",
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: wgpu.DefaultLimits(),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to request device: %w", err)
	}
	d.dev = dev
	d.queue = dev.GetQueue()

	for i, filter := range []wgpu.FilterMode{wgpu.FilterModeNearest, wgpu.FilterModeLinear} {
		s, err := dev.CreateSampler(&wgpu.SamplerDescriptor{
			Label:         fmt.Sprintf("sampler %d", i),
			AddressModeU:  wgpu.AddressModeClampToEdge,
			AddressModeV:  wgpu.AddressModeClampToEdge,
			AddressModeW:  wgpu.AddressModeClampToEdge,
			MagFilter:     filter,
			MinFilter:     filter,
			MipmapFilter:  wgpu.MipmapFilterModeNearest,
			LodMaxClamp:   32,
			MaxAnisotropy: 1,
		})
		if err != nil {
			return fmt.Errorf("failed to create sampler: %w", err)
		}
		d.samplers[i] = s
	}

	white := image.NewRGBA(image.Rect(0, 0, 1, 1))
	copy(white.Pix, []uint8{255, 255, 255, 255})
	tex, err := d.CreateTexture(white, device.FilterNearest)
	if err != nil {
		return fmt.Errorf("failed to create default texture: %w", err)
	}
	d.white = tex

	d.logger.Info("webgpu device ready", "fallback_adapter", d.forceFallbackAdapter, "surface", d.surface != nil)
	return nil
}

func (d *wgpuDevice) Release() {
	if d.dev != nil {
		d.flush()
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	for h, p := range d.pipelines {
		for _, v := range p.variants {
			if v != nil {
				v.Release()
			}
		}
		p.layout.Release()
		if p.bindLayout != nil {
			p.bindLayout.Release()
		}
		delete(d.pipelines, h)
	}
	for h, b := range d.buffers {
		b.buffer.Release()
		delete(d.buffers, h)
	}
	for h, fb := range d.framebuffers {
		releaseAttachment(fb.picking, fb.pickingView)
		delete(d.framebuffers, h)
	}
	for h, t := range d.textures {
		releaseAttachment(t.texture, t.view)
		delete(d.textures, h)
	}
	for i, s := range d.samplers {
		if s != nil {
			s.Release()
			d.samplers[i] = nil
		}
	}
	d.white = 0
	d.bound = nil

	if d.queue != nil {
		d.queue.Release()
		d.queue = nil
	}
	if d.dev != nil {
		d.dev.Release()
		d.dev = nil
	}
	if d.adapter != nil {
		d.adapter.Release()
		d.adapter = nil
	}
	if d.surface != nil {
		d.surface.Release()
		d.surface = nil
	}
	if d.instance != nil {
		d.instance.Release()
		d.instance = nil
	}
	d.logger.Info("webgpu device released")
}

func releaseAttachment(tex *wgpu.Texture, view *wgpu.TextureView) {
	if view != nil {
		view.Release()
	}
	if tex != nil {
		tex.Release()
	}
}

func (d *wgpuDevice) handle() uint32 {
	d.next++
	return d.next
}

// fail reports a WebGPU call error as a device error.
func fail(op string, err error) {
	device.Fail(backendName, op, device.CategoryUnknown, err.Error())
}

func (d *wgpuDevice) CreateFramebuffer(label string) (device.FramebufferHandle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	color := device.TextureHandle(d.handle())
	d.textures[color] = &wgpuTexture{filter: device.FilterNearest, attachment: true}
	h := device.FramebufferHandle(d.handle())
	d.framebuffers[h] = &wgpuFramebuffer{label: label, color: color}
	return h, nil
}

func (d *wgpuDevice) framebuffer(op string, h device.FramebufferHandle) *wgpuFramebuffer {
	fb, ok := d.framebuffers[h]
	if !ok {
		device.Fail(backendName, op, device.CategoryInvalidValue, fmt.Sprintf("unknown framebuffer %d", h))
	}
	return fb
}

func (d *wgpuDevice) attachment(label string, format wgpu.TextureFormat, width, height int) (*wgpu.Texture, *wgpu.TextureView, error) {
	tex, err := d.dev.CreateTexture(&wgpu.TextureDescriptor{
		Label:     label,
		Usage:     wgpu.TextureUsageRenderAttachment | wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopySrc,
		Dimension: wgpu.TextureDimension2D,
		Size: wgpu.Extent3D{
			Width:              uint32(width),
			Height:             uint32(height),
			DepthOrArrayLayers: 1,
		},
		Format:        format,
		MipLevelCount: 1,
		SampleCount:   1,
	})
	if err != nil {
		return nil, nil, err
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, nil, err
	}
	return tex, view, nil
}

func (d *wgpuDevice) ResizeFramebuffer(h device.FramebufferHandle, width, height int) error {
	if width < 0 || height < 0 {
		return fmt.Errorf("resize framebuffer to %dx%d: %w", width, height, device.ErrInvalidValue)
	}
	d.mu.Lock()
	fb := d.framebuffer("ResizeFramebuffer", h)
	same := fb.width == width && fb.height == height
	d.mu.Unlock()
	if same {
		return nil
	}
	// recorded passes still reference the old attachments
	d.flush()

	d.mu.Lock()
	defer d.mu.Unlock()
	color := d.textures[fb.color]
	releaseAttachment(color.texture, color.view)
	releaseAttachment(fb.picking, fb.pickingView)
	color.texture, color.view, fb.picking, fb.pickingView = nil, nil, nil, nil
	fb.width, fb.height = width, height
	color.width, color.height = width, height
	if width == 0 || height == 0 {
		return nil
	}

	var err error
	color.texture, color.view, err = d.attachment(fb.label+" color", colorFormat, width, height)
	if err != nil {
		return fmt.Errorf("resize framebuffer %q to %dx%d: %w: %w", fb.label, width, height, device.ErrOutOfMemory, err)
	}
	fb.picking, fb.pickingView, err = d.attachment(fb.label+" picking", pickingFormat, width, height)
	if err != nil {
		return fmt.Errorf("resize framebuffer %q to %dx%d: %w: %w", fb.label, width, height, device.ErrOutOfMemory, err)
	}
	return nil
}

func (d *wgpuDevice) BindFramebuffer(h device.FramebufferHandle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.bound = d.framebuffer("BindFramebuffer", h)
}

func (d *wgpuDevice) ClearFramebuffer(h device.FramebufferHandle, color [4]float32) {
	d.mu.Lock()
	fb := d.framebuffer("ClearFramebuffer", h)
	d.mu.Unlock()
	if fb.width == 0 || fb.height == 0 {
		return
	}
	d.endPass()
	d.beginPass(fb, &color)
}

// beginPass opens a render pass on fb, clearing both attachments when clear is set.
func (d *wgpuDevice) beginPass(fb *wgpuFramebuffer, clear *[4]float32) {
	if d.encoder == nil {
		encoder, err := d.dev.CreateCommandEncoder(nil)
		if err != nil {
			fail("CreateCommandEncoder", err)
		}
		d.encoder = encoder
	}

	colorLoad, pickingLoad := wgpu.LoadOpLoad, wgpu.LoadOpLoad
	var clearColor, clearPicking wgpu.Color
	if clear != nil {
		colorLoad, pickingLoad = wgpu.LoadOpClear, wgpu.LoadOpClear
		clearColor = wgpu.Color{R: float64(clear[0]), G: float64(clear[1]), B: float64(clear[2]), A: float64(clear[3])}
		p := device.PickingClearValue
		clearPicking = wgpu.Color{R: float64(p[0]), G: float64(p[1]), B: float64(p[2]), A: float64(p[3])}
	}

	d.mu.Lock()
	colorView := d.textures[fb.color].view
	d.mu.Unlock()
	d.pass = d.encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{
				View:       colorView,
				LoadOp:     colorLoad,
				StoreOp:    wgpu.StoreOpStore,
				ClearValue: clearColor,
			},
			{
				View:       fb.pickingView,
				LoadOp:     pickingLoad,
				StoreOp:    wgpu.StoreOpStore,
				ClearValue: clearPicking,
			},
		},
	})
	d.passTarget = fb
}

func (d *wgpuDevice) endPass() {
	if d.pass == nil {
		return
	}
	d.pass.End()
	d.pass.Release()
	d.pass = nil
	d.passTarget = nil
}

// flush submits everything recorded so far.
func (d *wgpuDevice) flush() {
	d.endPass()
	if d.encoder != nil {
		cmd, err := d.encoder.Finish(nil)
		d.encoder.Release()
		d.encoder = nil
		if err != nil {
			fail("Finish", err)
		}
		d.queue.Submit(cmd)
		cmd.Release()
	}
	for _, bg := range d.transient {
		bg.Release()
	}
	d.transient = d.transient[:0]
}

func (d *wgpuDevice) FramebufferTexture(h device.FramebufferHandle) device.TextureHandle {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.framebuffer("FramebufferTexture", h).color
}

// readback copies a region of tex into a mappable buffer and returns its bytes, rows padded to
// wgpu.CopyBytesPerRowAlignment.
func (d *wgpuDevice) readback(op string, tex *wgpu.Texture, x, y, width, height, bytesPerPixel int) ([]byte, int, error) {
	d.flush()

	align := int(wgpu.CopyBytesPerRowAlignment)
	rowSize := width * bytesPerPixel
	padded := (rowSize + align - 1) / align * align
	size := uint64(padded * height)

	buf, err := d.dev.CreateBuffer(&wgpu.BufferDescriptor{
		Label: op + " readback",
		Size:  size,
		Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, 0, err
	}
	defer buf.Release()

	encoder, err := d.dev.CreateCommandEncoder(nil)
	if err != nil {
		return nil, 0, err
	}
	encoder.CopyTextureToBuffer(
		&wgpu.ImageCopyTexture{
			Texture:  tex,
			MipLevel: 0,
			Origin:   wgpu.Origin3D{X: uint32(x), Y: uint32(y)},
			Aspect:   wgpu.TextureAspectAll,
		},
		&wgpu.ImageCopyBuffer{
			Buffer: buf,
			Layout: wgpu.TextureDataLayout{
				Offset:       0,
				BytesPerRow:  uint32(padded),
				RowsPerImage: uint32(height),
			},
		},
		&wgpu.Extent3D{
			Width:              uint32(width),
			Height:             uint32(height),
			DepthOrArrayLayers: 1,
		},
	)
	cmd, err := encoder.Finish(nil)
	encoder.Release()
	if err != nil {
		return nil, 0, err
	}
	d.queue.Submit(cmd)
	cmd.Release()

	var status wgpu.BufferMapAsyncStatus
	if err := buf.MapAsync(wgpu.MapModeRead, 0, size, func(s wgpu.BufferMapAsyncStatus) {
		status = s
	}); err != nil {
		return nil, 0, err
	}
	d.dev.Poll(true, nil)
	if status != wgpu.BufferMapAsyncStatusSuccess {
		return nil, 0, fmt.Errorf("%s: buffer map status %d: %w", op, status, device.ErrUnknown)
	}
	data := slices.Clone(buf.GetMappedRange(0, uint(size)))
	buf.Unmap()
	return data, padded, nil
}

func (d *wgpuDevice) ReadPickingPixel(h device.FramebufferHandle, x, y int) [4]int32 {
	d.mu.Lock()
	fb := d.framebuffer("ReadPickingPixel", h)
	d.mu.Unlock()
	if x < 0 || y < 0 || x >= fb.width || y >= fb.height {
		return device.PickingClearValue
	}
	// texture rows run top down
	data, _, err := d.readback("ReadPickingPixel", fb.picking, x, fb.height-1-y, 1, 1, 16)
	if err != nil {
		fail("ReadPickingPixel", err)
	}
	var px [4]int32
	for i := range px {
		px[i] = int32(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return px
}

func (d *wgpuDevice) ReadColor(h device.FramebufferHandle) (*image.RGBA, error) {
	d.mu.Lock()
	fb := d.framebuffer("ReadColor", h)
	color := d.textures[fb.color]
	d.mu.Unlock()

	out := image.NewRGBA(image.Rect(0, 0, fb.width, fb.height))
	if fb.width == 0 || fb.height == 0 {
		return out, nil
	}
	data, padded, err := d.readback("ReadColor", color.texture, 0, 0, fb.width, fb.height, 4)
	if err != nil {
		return nil, fmt.Errorf("read color of %q: %w", fb.label, err)
	}
	for y := 0; y < fb.height; y++ {
		copy(out.Pix[y*out.Stride:(y+1)*out.Stride], data[y*padded:])
	}
	return out, nil
}

func (d *wgpuDevice) createBuffer(label string, size int, usage wgpu.BufferUsage) (*wgpu.Buffer, error) {
	// buffer sizes must be a multiple of four and non zero
	return d.dev.CreateBuffer(&wgpu.BufferDescriptor{
		Label: label,
		Size:  uint64(max((size+3)&^3, 4)),
		Usage: usage | wgpu.BufferUsageCopyDst,
	})
}

func (d *wgpuDevice) CreateVertexBuffer(label string, layout vertex.Layout, maxVertices int) (device.BufferHandle, error) {
	if maxVertices < 0 || layout.Stride == 0 {
		return 0, fmt.Errorf("create vertex buffer %q: %w", label, device.ErrInvalidValue)
	}
	size := maxVertices * int(layout.Stride)
	buf, err := d.createBuffer(label, size, wgpu.BufferUsageVertex)
	if err != nil {
		return 0, fmt.Errorf("create vertex buffer %q: %w: %w", label, device.ErrOutOfMemory, err)
	}
	h := device.BufferHandle(d.handle())
	d.buffers[h] = &wgpuBuffer{label: label, buffer: buf, layout: layout, size: size}
	return h, nil
}

func (d *wgpuDevice) CreateIndexBuffer(label string, maxIndices int) (device.BufferHandle, error) {
	if maxIndices < 0 {
		return 0, fmt.Errorf("create index buffer %q: %w", label, device.ErrInvalidValue)
	}
	buf, err := d.createBuffer(label, maxIndices*4, wgpu.BufferUsageIndex)
	if err != nil {
		return 0, fmt.Errorf("create index buffer %q: %w: %w", label, device.ErrOutOfMemory, err)
	}
	h := device.BufferHandle(d.handle())
	d.buffers[h] = &wgpuBuffer{label: label, buffer: buf, index: true, size: maxIndices * 4}
	return h, nil
}

func (d *wgpuDevice) buffer(op string, h device.BufferHandle) *wgpuBuffer {
	b, ok := d.buffers[h]
	if !ok {
		device.Fail(backendName, op, device.CategoryInvalidValue, fmt.Sprintf("unknown buffer %d", h))
	}
	return b
}

func (d *wgpuDevice) WriteVertices(h device.BufferHandle, offset int, data []byte) {
	b := d.buffer("WriteVertices", h)
	if b.index || offset < 0 || offset+len(data) > b.size {
		device.Fail(backendName, "WriteVertices", device.CategoryInvalidValue,
			fmt.Sprintf("write of %d bytes at %d overflows %q (%d bytes)", len(data), offset, b.label, b.size))
	}
	if len(data) == 0 {
		return
	}
	// queue writes land before the next submit, so draws recorded against the old contents go first
	d.flush()
	d.queue.WriteBuffer(b.buffer, uint64(offset), data)
}

func (d *wgpuDevice) WriteIndices(h device.BufferHandle, offset int, indices []uint32) {
	b := d.buffer("WriteIndices", h)
	if !b.index || offset < 0 || (offset+len(indices))*4 > b.size {
		device.Fail(backendName, "WriteIndices", device.CategoryInvalidValue,
			fmt.Sprintf("write of %d indices at %d overflows %q (%d indices)", len(indices), offset, b.label, b.size/4))
	}
	if len(indices) == 0 {
		return
	}
	d.flush()
	data := make([]byte, len(indices)*4)
	for i, idx := range indices {
		binary.LittleEndian.PutUint32(data[i*4:], idx)
	}
	d.queue.WriteBuffer(b.buffer, uint64(offset*4), data)
}

// vertexAttributes spreads matrix attributes over four Float32x4 locations.
func vertexAttributes(layout vertex.Layout) []wgpu.VertexAttribute {
	attrs := make([]wgpu.VertexAttribute, 0, len(layout.Attributes)+3)
	for _, a := range layout.Attributes {
		switch a.Format {
		case vertex.FormatUint32:
			attrs = append(attrs, wgpu.VertexAttribute{Format: wgpu.VertexFormatUint32, Offset: uint64(a.Offset), ShaderLocation: a.Location})
		case vertex.FormatFloat32x2:
			attrs = append(attrs, wgpu.VertexAttribute{Format: wgpu.VertexFormatFloat32x2, Offset: uint64(a.Offset), ShaderLocation: a.Location})
		case vertex.FormatFloat32x3:
			attrs = append(attrs, wgpu.VertexAttribute{Format: wgpu.VertexFormatFloat32x3, Offset: uint64(a.Offset), ShaderLocation: a.Location})
		case vertex.FormatFloat32x4:
			attrs = append(attrs, wgpu.VertexAttribute{Format: wgpu.VertexFormatFloat32x4, Offset: uint64(a.Offset), ShaderLocation: a.Location})
		case vertex.FormatMat4:
			for col := uint32(0); col < 4; col++ {
				attrs = append(attrs, wgpu.VertexAttribute{
					Format:         wgpu.VertexFormatFloat32x4,
					Offset:         uint64(a.Offset + col*16),
					ShaderLocation: a.Location + col,
				})
			}
		}
	}
	return attrs
}

// texturedBindings lists one texture and one sampler binding per texture slot.
func texturedBindings() []wgpu.BindGroupLayoutEntry {
	entries := make([]wgpu.BindGroupLayoutEntry, 0, 2*device.TextureSlots)
	for i := 0; i < device.TextureSlots; i++ {
		entries = append(entries, wgpu.BindGroupLayoutEntry{
			Binding:    uint32(i),
			Visibility: wgpu.ShaderStageFragment,
			Texture: wgpu.TextureBindingLayout{
				SampleType:    wgpu.TextureSampleTypeFloat,
				ViewDimension: wgpu.TextureViewDimension2D,
			},
		})
	}
	for i := 0; i < device.TextureSlots; i++ {
		entries = append(entries, wgpu.BindGroupLayoutEntry{
			Binding:    uint32(samplerBindingBase + i),
			Visibility: wgpu.ShaderStageFragment,
			Sampler: wgpu.SamplerBindingLayout{
				Type: wgpu.SamplerBindingTypeFiltering,
			},
		})
	}
	return entries
}

func (d *wgpuDevice) CreatePipeline(desc device.PipelineDescriptor) (device.PipelineHandle, error) {
	var (
		source   string
		want     vertex.Layout
		stepMode wgpu.VertexStepMode
		topology wgpu.PrimitiveTopology
		picking  wgpu.ColorWriteMask
	)
	switch desc.Kind {
	case device.PipelineTexturedQuad:
		source, want = TexturedQuadSource, vertex.TexturedLayout
		stepMode, topology, picking = wgpu.VertexStepModeVertex, wgpu.PrimitiveTopologyTriangleList, wgpu.ColorWriteMaskAll
	case device.PipelineDebugRect:
		source, want = DebugRectSource, vertex.DebugRectLayout
		// debug geometry never reaches the picking attachment
		stepMode, topology, picking = wgpu.VertexStepModeInstance, wgpu.PrimitiveTopologyLineStrip, wgpu.ColorWriteMaskNone
	default:
		return 0, fmt.Errorf("create pipeline %q: kind %d: %w", desc.Label, desc.Kind, device.ErrInvalidEnum)
	}
	if desc.Layout.Stride != want.Stride {
		return 0, fmt.Errorf("create pipeline %q: stride %d, want %d: %w", desc.Label, desc.Layout.Stride, want.Stride, device.ErrInvalidValue)
	}

	module, err := createShaderModule(d.dev, desc.Label, source)
	if err != nil {
		return 0, fmt.Errorf("create pipeline %q: %w", desc.Label, err)
	}
	defer module.Release()

	p := &wgpuPipeline{desc: desc}
	var groups []*wgpu.BindGroupLayout
	if desc.Kind == device.PipelineTexturedQuad {
		p.bindLayout, err = d.dev.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
			Label:   desc.Label + " textures",
			Entries: texturedBindings(),
		})
		if err != nil {
			return 0, fmt.Errorf("create pipeline %q: bind group layout: %w", desc.Label, err)
		}
		groups = append(groups, p.bindLayout)
	}
	p.layout, err = d.dev.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            desc.Label,
		BindGroupLayouts: groups,
	})
	if err != nil {
		return 0, fmt.Errorf("create pipeline %q: layout: %w", desc.Label, err)
	}

	buffers := []wgpu.VertexBufferLayout{{
		ArrayStride: uint64(desc.Layout.Stride),
		StepMode:    stepMode,
		Attributes:  vertexAttributes(desc.Layout),
	}}
	for i, blend := range []*wgpu.BlendState{nil, alphaBlend} {
		rp, err := d.dev.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
			Label:  fmt.Sprintf("%s Render Pipeline %d", desc.Label, i),
			Layout: p.layout,
			Vertex: wgpu.VertexState{
				Module:     module,
				EntryPoint: vertexEntryPoint,
				Buffers:    buffers,
			},
			Fragment: &wgpu.FragmentState{
				Module:     module,
				EntryPoint: fragmentEntryPoint,
				Targets: []wgpu.ColorTargetState{
					{Format: colorFormat, WriteMask: wgpu.ColorWriteMaskAll, Blend: blend},
					{Format: pickingFormat, WriteMask: picking},
				},
			},
			Primitive: wgpu.PrimitiveState{
				Topology:  topology,
				FrontFace: wgpu.FrontFaceCCW,
				CullMode:  wgpu.CullModeNone,
			},
			Multisample: wgpu.MultisampleState{
				Count: 1,
				Mask:  0xFFFFFFFF,
			},
		})
		if err != nil {
			return 0, fmt.Errorf("create pipeline %q: %w", desc.Label, err)
		}
		p.variants[i] = rp
	}

	h := device.PipelineHandle(d.handle())
	d.pipelines[h] = p
	d.logger.Debug("pipeline created", "label", desc.Label, "kind", desc.Kind.String())
	return h, nil
}

func (d *wgpuDevice) SetBlending(enabled bool) {
	d.blending = enabled
}

func (d *wgpuDevice) drawState(op string, cmd device.DrawCommand, kind device.PipelineKind) (*wgpuPipeline, *wgpuBuffer) {
	p, ok := d.pipelines[cmd.Pipeline]
	if !ok {
		device.Fail(backendName, op, device.CategoryInvalidValue, fmt.Sprintf("unknown pipeline %d", cmd.Pipeline))
	}
	if p.desc.Kind != kind {
		device.Fail(backendName, op, device.CategoryInvalidOperation, fmt.Sprintf("%s pipeline cannot be used with %s", p.desc.Kind, op))
	}
	if d.bound == nil {
		device.Fail(backendName, op, device.CategoryInvalidFramebufferOperation, "no framebuffer bound")
	}
	if len(cmd.Textures) > device.TextureSlots {
		device.Fail(backendName, op, device.CategoryInvalidValue, fmt.Sprintf("%d textures exceed %d slots", len(cmd.Textures), device.TextureSlots))
	}
	vb := d.buffer(op, cmd.VertexBuffer)
	if vb.index {
		device.Fail(backendName, op, device.CategoryInvalidOperation, fmt.Sprintf("%q is not a vertex buffer", vb.label))
	}
	return p, vb
}

// target returns the open pass on the bound framebuffer, opening one that keeps its contents if needed.
func (d *wgpuDevice) target() *wgpu.RenderPassEncoder {
	if d.pass == nil || d.passTarget != d.bound {
		d.endPass()
		d.beginPass(d.bound, nil)
	}
	return d.pass
}

func (d *wgpuDevice) variant(p *wgpuPipeline) *wgpu.RenderPipeline {
	if d.blending {
		return p.variants[1]
	}
	return p.variants[0]
}

func (d *wgpuDevice) textureBindGroup(p *wgpuPipeline, textures []device.TextureHandle) *wgpu.BindGroup {
	d.mu.Lock()
	defer d.mu.Unlock()

	entries := make([]wgpu.BindGroupEntry, 0, 2*device.TextureSlots)
	samplers := make([]wgpu.BindGroupEntry, 0, device.TextureSlots)
	for i := 0; i < device.TextureSlots; i++ {
		t := d.textures[d.white]
		if i < len(textures) && textures[i] != 0 {
			if bound, ok := d.textures[textures[i]]; ok && bound.view != nil {
				t = bound
			}
		}
		entries = append(entries, wgpu.BindGroupEntry{Binding: uint32(i), TextureView: t.view})
		samplers = append(samplers, wgpu.BindGroupEntry{Binding: uint32(samplerBindingBase + i), Sampler: d.samplers[t.filter]})
	}
	bg, err := d.dev.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   p.desc.Label + " textures",
		Layout:  p.bindLayout,
		Entries: append(entries, samplers...),
	})
	if err != nil {
		fail("CreateBindGroup", err)
	}
	d.transient = append(d.transient, bg)
	return bg
}

func (d *wgpuDevice) DrawIndexed(cmd device.DrawCommand) {
	p, vb := d.drawState("DrawIndexed", cmd, device.PipelineTexturedQuad)
	ib := d.buffer("DrawIndexed", cmd.IndexBuffer)
	if !ib.index || cmd.First < 0 || cmd.Count < 0 || (cmd.First+cmd.Count)*4 > ib.size {
		device.Fail(backendName, "DrawIndexed", device.CategoryInvalidValue,
			fmt.Sprintf("index range [%d,%d) outside %q", cmd.First, cmd.First+cmd.Count, ib.label))
	}
	if cmd.Count == 0 || d.bound.width == 0 || d.bound.height == 0 {
		return
	}

	bg := d.textureBindGroup(p, cmd.Textures)
	pass := d.target()
	pass.SetPipeline(d.variant(p))
	pass.SetBindGroup(0, bg, nil)
	pass.SetVertexBuffer(0, vb.buffer, 0, wgpu.WholeSize)
	pass.SetIndexBuffer(ib.buffer, wgpu.IndexFormatUint32, 0, wgpu.WholeSize)
	pass.DrawIndexed(uint32(cmd.Count), 1, uint32(cmd.First), 0, 0)
}

func (d *wgpuDevice) Draw(cmd device.DrawCommand) {
	p, vb := d.drawState("Draw", cmd, device.PipelineDebugRect)
	if cmd.First < 0 || cmd.Count < 0 || (cmd.First+cmd.Count)*int(vb.layout.Stride) > vb.size {
		device.Fail(backendName, "Draw", device.CategoryInvalidValue,
			fmt.Sprintf("vertex range [%d,%d) outside %q", cmd.First, cmd.First+cmd.Count, vb.label))
	}
	if cmd.Count == 0 || d.bound.width == 0 || d.bound.height == 0 {
		return
	}

	pass := d.target()
	pass.SetPipeline(d.variant(p))
	pass.SetVertexBuffer(0, vb.buffer, 0, wgpu.WholeSize)
	// one instance per rectangle, five strip vertices each
	pass.Draw(5, uint32(cmd.Count), 0, uint32(cmd.First))
}

func (d *wgpuDevice) Finish() {
	d.flush()
	d.dev.Poll(true, nil)
}

func (d *wgpuDevice) CreateTexture(img *image.RGBA, filter device.TextureFilter) (device.TextureHandle, error) {
	if img == nil || img.Bounds().Empty() {
		return 0, fmt.Errorf("create texture: empty image: %w", device.ErrInvalidValue)
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	src := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(src, src.Bounds(), img, b.Min, draw.Src)
	// texture coordinate (0, 0) is the first uploaded row, which must be the bottom one
	pix := make([]uint8, len(src.Pix))
	for y := 0; y < h; y++ {
		copy(pix[y*src.Stride:(y+1)*src.Stride], src.Pix[(h-1-y)*src.Stride:(h-y)*src.Stride])
	}

	tex, err := d.dev.CreateTexture(&wgpu.TextureDescriptor{
		Label:     fmt.Sprintf("texture %dx%d", w, h),
		Usage:     wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
		Dimension: wgpu.TextureDimension2D,
		Size: wgpu.Extent3D{
			Width:              uint32(w),
			Height:             uint32(h),
			DepthOrArrayLayers: 1,
		},
		Format:        colorFormat,
		MipLevelCount: 1,
		SampleCount:   1,
	})
	if err != nil {
		return 0, fmt.Errorf("create texture %dx%d: %w: %w", w, h, device.ErrOutOfMemory, err)
	}
	d.queue.WriteTexture(
		&wgpu.ImageCopyTexture{
			Texture:  tex,
			MipLevel: 0,
			Origin:   wgpu.Origin3D{},
			Aspect:   wgpu.TextureAspectAll,
		},
		pix,
		&wgpu.TextureDataLayout{
			Offset:       0,
			BytesPerRow:  uint32(src.Stride),
			RowsPerImage: uint32(h),
		},
		&wgpu.Extent3D{
			Width:              uint32(w),
			Height:             uint32(h),
			DepthOrArrayLayers: 1,
		},
	)
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return 0, fmt.Errorf("create texture view: %w", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	handle := device.TextureHandle(d.handle())
	d.textures[handle] = &wgpuTexture{texture: tex, view: view, filter: filter, width: w, height: h}
	return handle, nil
}

func (d *wgpuDevice) DestroyTexture(h device.TextureHandle) {
	d.mu.Lock()
	t, ok := d.textures[h]
	d.mu.Unlock()
	if !ok || t.attachment || h == d.white {
		return
	}
	// bind groups recorded so far may still sample it
	d.flush()

	d.mu.Lock()
	defer d.mu.Unlock()
	releaseAttachment(t.texture, t.view)
	delete(d.textures, h)
}

// presentBindGroup binds texture h and a sampler matching its filter to layout. The bind group keeps
// the view alive if the render thread resizes the framebuffer that owns it.
func (d *wgpuDevice) presentBindGroup(layout *wgpu.BindGroupLayout, h device.TextureHandle) (*wgpu.BindGroup, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	t, ok := d.textures[h]
	if !ok || t.view == nil {
		return nil, nil
	}
	return d.dev.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "present",
		Layout: layout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, TextureView: t.view},
			{Binding: 1, Sampler: d.samplers[t.filter]},
		},
	})
}
