// Package device defines the graphics device the render thread drives and ships the software
// implementation. GPU implementations live in the gl_backend and wgpu_backend sub packages.
package device

import (
	"image"

	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/vertex"
)

// TextureHandle is an opaque device texture name. Zero is never a valid texture.
type TextureHandle uint32

// BufferHandle is an opaque device buffer name. Zero is never a valid buffer.
type BufferHandle uint32

// FramebufferHandle is an opaque offscreen target holding a color and a picking attachment.
type FramebufferHandle uint32

// PipelineHandle is an opaque compiled pipeline.
type PipelineHandle uint32

// TextureSlots is the number of textures one draw call can bind.
const TextureSlots = 16

// PickingClearValue is written to every picking pixel when a framebuffer is cleared.
var PickingClearValue = [4]int32{vertex.NoEntity, vertex.NoEntity, vertex.NoEntity, 1}

// PipelineKind selects one of the fixed pipelines the renderer uses.
type PipelineKind int

const (
	// PipelineTexturedQuad draws indexed triangles of vertex.TexturedVertex into both the color and
	// picking attachments. Fragments with alpha below 0.1 are discarded from both.
	PipelineTexturedQuad PipelineKind = iota

	// PipelineDebugRect draws one vertex.DebugRectVertex per rectangle as a closed line loop into the
	// color attachment only.
	PipelineDebugRect
)

func (k PipelineKind) String() string {
	switch k {
	case PipelineTexturedQuad:
		return "textured-quad"
	case PipelineDebugRect:
		return "debug-rect"
	default:
		return "unknown"
	}
}

// TextureFilter is the sampling filter of a texture.
type TextureFilter int

const (
	// FilterNearest samples the closest texel.
	FilterNearest TextureFilter = iota

	// FilterLinear interpolates between neighboring texels.
	FilterLinear
)

// PipelineDescriptor describes a pipeline to compile.
type PipelineDescriptor struct {
	Label  string
	Kind   PipelineKind
	Layout vertex.Layout
}

// DrawCommand is one draw call against the bound framebuffer.
type DrawCommand struct {
	Pipeline     PipelineHandle
	VertexBuffer BufferHandle

	// IndexBuffer is only used by DrawIndexed.
	IndexBuffer BufferHandle

	// Textures maps texture slot i to a texture. Slots past the end are unbound.
	Textures []TextureHandle

	// First is the first index for DrawIndexed or the first vertex for Draw.
	First int

	// Count is the number of indices for DrawIndexed or vertices for Draw.
	Count int
}

// Device is the graphics device owned by the render thread. Apart from construction every method
// must be called from the goroutine that called Setup, which for GPU devices is locked to its OS thread.
//
// Contract violations and device errors detected by the debug checks panic with a *Error.
type Device interface {
	// Name returns a short identifier of the backend, used in logs.
	//
	// Returns:
	//   - string: the backend name
	Name() string

	// Setup binds the device to the calling thread and creates the fixed device state.
	//
	// Returns:
	//   - error: error if the device could not be initialized
	Setup() error

	// Release destroys every object the device created.
	Release()

	// CreateFramebuffer creates an offscreen target with an RGBA8 color attachment and an RGBA32I
	// picking attachment. The attachments are empty until ResizeFramebuffer is called.
	//
	// Parameters:
	//   - label: debug label
	//
	// Returns:
	//   - FramebufferHandle: the new framebuffer
	//   - error: error if creation failed
	CreateFramebuffer(label string) (FramebufferHandle, error)

	// ResizeFramebuffer reallocates both attachments of fb when their size differs from width x height.
	// The color texture handle returned by FramebufferTexture stays the same.
	//
	// Parameters:
	//   - fb: the framebuffer
	//   - width: width in pixels
	//   - height: height in pixels
	//
	// Returns:
	//   - error: error if the attachments could not be allocated
	ResizeFramebuffer(fb FramebufferHandle, width, height int) error

	// BindFramebuffer makes fb the target of subsequent clears and draws and sets the viewport to its size.
	//
	// Parameters:
	//   - fb: the framebuffer
	BindFramebuffer(fb FramebufferHandle)

	// ClearFramebuffer clears the color attachment of fb to color and the picking attachment to
	// PickingClearValue.
	//
	// Parameters:
	//   - fb: the framebuffer
	//   - color: RGBA clear color in [0, 1]
	ClearFramebuffer(fb FramebufferHandle, color [4]float32)

	// FramebufferTexture returns the color attachment of fb as a sampleable texture.
	//
	// Parameters:
	//   - fb: the framebuffer
	//
	// Returns:
	//   - TextureHandle: the color texture
	FramebufferTexture(fb FramebufferHandle) TextureHandle

	// ReadPickingPixel reads one pixel of the picking attachment of fb.
	// Positions outside the attachment return PickingClearValue.
	//
	// Parameters:
	//   - fb: the framebuffer
	//   - x: column from the left
	//   - y: row from the bottom
	//
	// Returns:
	//   - [4]int32: entity id, entity version, scene id, scene version
	ReadPickingPixel(fb FramebufferHandle, x, y int) [4]int32

	// ReadColor copies the color attachment of fb into a new image, top row first.
	//
	// Parameters:
	//   - fb: the framebuffer
	//
	// Returns:
	//   - *image.RGBA: the pixels
	//   - error: error if the readback failed
	ReadColor(fb FramebufferHandle) (*image.RGBA, error)

	// CreateVertexBuffer allocates a vertex buffer holding maxVertices vertices of layout.
	//
	// Parameters:
	//   - label: debug label
	//   - layout: the vertex layout
	//   - maxVertices: capacity in vertices
	//
	// Returns:
	//   - BufferHandle: the buffer
	//   - error: error if allocation failed
	CreateVertexBuffer(label string, layout vertex.Layout, maxVertices int) (BufferHandle, error)

	// CreateIndexBuffer allocates a uint32 index buffer holding maxIndices indices.
	//
	// Parameters:
	//   - label: debug label
	//   - maxIndices: capacity in indices
	//
	// Returns:
	//   - BufferHandle: the buffer
	//   - error: error if allocation failed
	CreateIndexBuffer(label string, maxIndices int) (BufferHandle, error)

	// WriteVertices uploads data at byte offset of buf.
	//
	// Parameters:
	//   - buf: a vertex buffer
	//   - offset: destination offset in bytes
	//   - data: marshaled vertices
	WriteVertices(buf BufferHandle, offset int, data []byte)

	// WriteIndices uploads indices starting at index offset of buf.
	//
	// Parameters:
	//   - buf: an index buffer
	//   - offset: destination offset in indices
	//   - indices: the indices
	WriteIndices(buf BufferHandle, offset int, indices []uint32)

	// CreatePipeline compiles one of the fixed pipelines.
	//
	// Parameters:
	//   - desc: the pipeline description
	//
	// Returns:
	//   - PipelineHandle: the pipeline
	//   - error: error if shader compilation or linking failed
	CreatePipeline(desc PipelineDescriptor) (PipelineHandle, error)

	// SetBlending toggles alpha blending for subsequent draws. When enabled color is blended with
	// SRC_ALPHA / ONE_MINUS_SRC_ALPHA and alpha with ONE / ONE.
	//
	// Parameters:
	//   - enabled: whether blending is on
	SetBlending(enabled bool)

	// DrawIndexed issues one indexed draw into the bound framebuffer.
	//
	// Parameters:
	//   - cmd: the draw
	DrawIndexed(cmd DrawCommand)

	// Draw issues one non-indexed draw into the bound framebuffer.
	//
	// Parameters:
	//   - cmd: the draw
	Draw(cmd DrawCommand)

	// Finish blocks until every issued command has completed.
	Finish()

	// CreateTexture uploads img as a new texture. Texture coordinate (0, 0) addresses the bottom-left
	// pixel of img.
	//
	// Parameters:
	//   - img: the pixels, top row first
	//   - filter: the sampling filter
	//
	// Returns:
	//   - TextureHandle: the texture
	//   - error: error if the upload failed
	CreateTexture(img *image.RGBA, filter TextureFilter) (TextureHandle, error)

	// DestroyTexture releases a texture created by CreateTexture.
	//
	// Parameters:
	//   - tex: the texture
	DestroyTexture(tex TextureHandle)
}

// Presenter displays a published output texture on a window. It is driven from the thread that
// owns the window, not the render thread.
type Presenter interface {
	// Present draws tex to the window and swaps buffers.
	//
	// Parameters:
	//   - tex: an output texture published by the renderer
	//   - width: the window framebuffer width
	//   - height: the window framebuffer height
	//
	// Returns:
	//   - error: error if presentation failed
	Present(tex TextureHandle, width, height int) error

	// Release frees presentation resources.
	Release()
}
