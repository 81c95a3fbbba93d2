package wgpu_backend

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-frame/engine/log"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/device"
	"github.com/cogentcore/webgpu/wgpu"
)

// ErrNoSurface is returned when presenting through a device created without a surface.
var ErrNoSurface = errors.New("device has no window surface")

// wgpuPresenter draws published output textures onto the window surface with a fullscreen triangle.
type wgpuPresenter struct {
	dev    *wgpuDevice
	logger *log.Logger

	presentMode wgpu.PresentMode
	format      wgpu.TextureFormat
	width       int
	height      int

	bindLayout *wgpu.BindGroupLayout
	layout     *wgpu.PipelineLayout
	pipeline   *wgpu.RenderPipeline
}

var _ device.Presenter = &wgpuPresenter{}

// NewPresenter creates a presenter for a device made by NewDevice with WithSurface. The surface is
// configured on the first Present, which must come after the device's Setup has finished.
//
// Parameters:
//   - dev: the WebGPU device
//   - options: functional options to configure the presenter
//
// Returns:
//   - device.Presenter: the presenter
//   - error: error if dev is not a WebGPU device with a surface
func NewPresenter(dev device.Device, options ...WGPUPresenterBuilderOption) (device.Presenter, error) {
	d, ok := dev.(*wgpuDevice)
	if !ok {
		return nil, fmt.Errorf("wgpu presenter needs a wgpu device, got %q", dev.Name())
	}
	if d.surface == nil {
		return nil, ErrNoSurface
	}
	p := &wgpuPresenter{dev: d, presentMode: wgpu.PresentModeFifo}
	for _, opt := range options {
		opt(p)
	}
	return p, nil
}

// setup builds the blit pipeline for the surface format.
func (p *wgpuPresenter) setup() error {
	d := p.dev
	caps := d.surface.GetCapabilities(d.adapter)
	if len(caps.Formats) == 0 {
		return fmt.Errorf("surface reports no formats: %w", device.ErrInvalidOperation)
	}
	p.format = caps.Formats[0]

	module, err := createShaderModule(d.dev, "present", PresentSource)
	if err != nil {
		return err
	}
	defer module.Release()

	p.bindLayout, err = d.dev.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "present",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: wgpu.ShaderStageFragment,
				Texture: wgpu.TextureBindingLayout{
					SampleType:    wgpu.TextureSampleTypeFloat,
					ViewDimension: wgpu.TextureViewDimension2D,
				},
			},
			{
				Binding:    1,
				Visibility: wgpu.ShaderStageFragment,
				Sampler: wgpu.SamplerBindingLayout{
					Type: wgpu.SamplerBindingTypeFiltering,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("present bind group layout: %w", err)
	}
	p.layout, err = d.dev.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            "present",
		BindGroupLayouts: []*wgpu.BindGroupLayout{p.bindLayout},
	})
	if err != nil {
		return fmt.Errorf("present pipeline layout: %w", err)
	}
	p.pipeline, err = d.dev.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  "present Render Pipeline",
		Layout: p.layout,
		Vertex: wgpu.VertexState{
			Module:     module,
			EntryPoint: vertexEntryPoint,
		},
		Fragment: &wgpu.FragmentState{
			Module:     module,
			EntryPoint: fragmentEntryPoint,
			Targets: []wgpu.ColorTargetState{
				{Format: p.format, WriteMask: wgpu.ColorWriteMaskAll},
			},
		},
		Primitive: wgpu.PrimitiveState{
			Topology: wgpu.PrimitiveTopologyTriangleList,
			CullMode: wgpu.CullModeNone,
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return fmt.Errorf("present pipeline: %w", err)
	}
	p.logger.Info("webgpu presenter ready", "format", p.format)
	return nil
}

func (p *wgpuPresenter) configure(width, height int) {
	d := p.dev
	caps := d.surface.GetCapabilities(d.adapter)
	d.surface.Configure(d.adapter, d.dev, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      p.format,
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: p.presentMode,
		AlphaMode:   caps.AlphaModes[0],
	})
	p.width, p.height = width, height
}

func (p *wgpuPresenter) Present(tex device.TextureHandle, width, height int) error {
	// minimized windows have nothing to present to
	if width <= 0 || height <= 0 {
		return nil
	}
	if p.pipeline == nil {
		if err := p.setup(); err != nil {
			return err
		}
	}
	if width != p.width || height != p.height {
		p.configure(width, height)
	}

	d := p.dev
	surfaceTexture, err := d.surface.GetCurrentTexture()
	if err != nil {
		// the surface is reconfigured on the next call
		p.width, p.height = 0, 0
		return fmt.Errorf("acquire surface texture: %w", err)
	}
	defer surfaceTexture.Release()
	view, err := surfaceTexture.CreateView(nil)
	if err != nil {
		return fmt.Errorf("surface view: %w", err)
	}
	defer view.Release()

	var bg *wgpu.BindGroup
	if tex != 0 {
		bg, err = d.presentBindGroup(p.bindLayout, tex)
		if err != nil {
			return fmt.Errorf("present bind group: %w", err)
		}
		if bg != nil {
			defer bg.Release()
		}
	}

	encoder, err := d.dev.CreateCommandEncoder(nil)
	if err != nil {
		return err
	}
	defer encoder.Release()
	pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:       view,
			LoadOp:     wgpu.LoadOpClear,
			StoreOp:    wgpu.StoreOpStore,
			ClearValue: wgpu.Color{R: 0, G: 0, B: 0, A: 1},
		}},
	})
	if bg != nil {
		pass.SetPipeline(p.pipeline)
		pass.SetBindGroup(0, bg, nil)
		pass.Draw(3, 1, 0, 0)
	}
	pass.End()
	pass.Release()

	cmd, err := encoder.Finish(nil)
	if err != nil {
		return err
	}
	d.queue.Submit(cmd)
	cmd.Release()
	d.surface.Present()
	return nil
}

func (p *wgpuPresenter) Release() {
	if p.pipeline != nil {
		p.pipeline.Release()
		p.pipeline = nil
	}
	if p.layout != nil {
		p.layout.Release()
		p.layout = nil
	}
	if p.bindLayout != nil {
		p.bindLayout.Release()
		p.bindLayout = nil
	}
	p.logger.Info("webgpu presenter released")
}

// WGPUPresenterBuilderOption is a functional option for configuring a wgpuPresenter.
type WGPUPresenterBuilderOption func(p *wgpuPresenter)

// WithPresenterLogger sets the logger used by the presenter.
//
// Parameters:
//   - logger: the logger, may be nil
//
// Returns:
//   - WGPUPresenterBuilderOption: option function to apply
func WithPresenterLogger(logger *log.Logger) WGPUPresenterBuilderOption {
	return func(p *wgpuPresenter) {
		p.logger = logger
	}
}

// WithVSync selects between FIFO presentation, which waits for vertical blank, and immediate presentation.
//
// Parameters:
//   - enabled: whether to wait for vertical blank
//
// Returns:
//   - WGPUPresenterBuilderOption: option function to apply
func WithVSync(enabled bool) WGPUPresenterBuilderOption {
	return func(p *wgpuPresenter) {
		if enabled {
			p.presentMode = wgpu.PresentModeFifo
		} else {
			p.presentMode = wgpu.PresentModeImmediate
		}
	}
}
