package batch

import (
	"fmt"
	"slices"

	"github.com/Carmen-Shannon/oxy-frame/engine/log"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/device"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/draw_order"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/vertex"
)

const (
	verticesPerQuad = 4
	indicesPerQuad  = 6
)

// DefaultMaxQuads is the capacity used when no WithMaxQuads option is given.
const DefaultMaxQuads = 1000

// texturedQuadBatch is the implementation of the TexturedQuadBatch interface.
type texturedQuadBatch struct {
	dev    device.Device
	logger *log.Logger

	maxObjects int

	quads   []vertex.Quad
	indices []uint32

	// staging is the marshal buffer reused for uploads.
	staging []byte

	// slots maps a texture handle to the slot it is bound to in the current run.
	slots    draw_order.SparseSet[uint32]
	textures []device.TextureHandle

	// begin and end bound the current run as object positions, end excluded.
	begin int
	end   int

	drawCalls int

	pipeline     device.PipelineHandle
	vertexBuffer device.BufferHandle
	indexBuffer  device.BufferHandle
}

// TexturedQuadBatch batches textured quads by draw order.
//
// Render consumes one draw order group per call: it issues one indexed draw per run of quads
// sharing the draw order of the first pending quad, where a run ends when the draw order changes,
// the quads run out, or the next quad needs a texture and all device.TextureSlots slots are taken.
// Each draw only binds the textures of its run, and the DiffuseTexId of every drawn vertex is
// rewritten from the texture handle to the slot index the shader samples.
type TexturedQuadBatch interface {
	BatchRenderer[vertex.Quad]

	// Pending reports whether Render still has quads to draw this frame.
	//
	// Returns:
	//   - bool: true if quads remain
	Pending() bool
}

var _ TexturedQuadBatch = &texturedQuadBatch{}

// NewTexturedQuadBatch creates a textured quad batch drawing through dev.
// Setup must be called on the render thread before the first Render.
//
// Parameters:
//   - dev: the device that will execute the draws
//   - options: functional options to configure the batch
//
// Returns:
//   - TexturedQuadBatch: the batch
func NewTexturedQuadBatch(dev device.Device, options ...TexturedQuadBatchBuilderOption) TexturedQuadBatch {
	b := &texturedQuadBatch{
		dev:        dev,
		maxObjects: DefaultMaxQuads,
		slots:      draw_order.NewSparseSet[uint32](device.TextureSlots),
		textures:   make([]device.TextureHandle, 0, device.TextureSlots),
	}
	for _, opt := range options {
		opt(b)
	}
	if b.maxObjects < 0 {
		b.maxObjects = 0
	}
	b.quads = make([]vertex.Quad, 0, b.maxObjects)
	b.indices = make([]uint32, 0, b.maxObjects*indicesPerQuad)
	return b
}

func (b *texturedQuadBatch) Setup() error {
	var err error
	b.pipeline, err = b.dev.CreatePipeline(device.PipelineDescriptor{
		Label:  "textured quads",
		Kind:   device.PipelineTexturedQuad,
		Layout: vertex.TexturedLayout,
	})
	if err != nil {
		return fmt.Errorf("textured quad pipeline: %w", err)
	}
	b.vertexBuffer, err = b.dev.CreateVertexBuffer("textured quad vertices", vertex.TexturedLayout, b.maxObjects*verticesPerQuad)
	if err != nil {
		return fmt.Errorf("textured quad vertex buffer: %w", err)
	}
	b.indexBuffer, err = b.dev.CreateIndexBuffer("textured quad indices", b.maxObjects*indicesPerQuad)
	if err != nil {
		return fmt.Errorf("textured quad index buffer: %w", err)
	}
	b.logger.Debug("textured quad batch ready", "max_quads", b.maxObjects, "device", b.dev.Name())
	return nil
}

func (b *texturedQuadBatch) Submit(q vertex.Quad) {
	if len(b.quads) >= b.maxObjects {
		panic(fmt.Sprintf("batch: textured quad capacity of %d exceeded", b.maxObjects))
	}
	base := uint32(len(b.quads) * verticesPerQuad)
	b.quads = append(b.quads, q)
	for _, i := range vertex.QuadIndices {
		b.indices = append(b.indices, base+i)
	}
}

func (b *texturedQuadBatch) Prepare() {
	slices.SortStableFunc(b.quads, func(l, r vertex.Quad) int {
		switch {
		case l[0].DrawOrder < r[0].DrawOrder:
			return -1
		case l[0].DrawOrder > r[0].DrawOrder:
			return 1
		default:
			return 0
		}
	})
}

func (b *texturedQuadBatch) Render() {
	if b.begin >= len(b.quads) {
		return
	}
	key := b.quads[b.begin][0].DrawOrder
	for {
		groupDone := false
		for ; ; b.end++ {
			if b.end >= len(b.quads) {
				groupDone = true
				break
			}
			q := &b.quads[b.end]
			if q[0].DrawOrder != key {
				groupDone = true
				break
			}
			if q[0].ToUseDiffuseTex != 1 {
				continue
			}
			tex := q[0].DiffuseTexId
			if !b.slots.Exists(tex) {
				if b.slots.Size() >= device.TextureSlots {
					break
				}
				b.slots.Add(tex)
			}
			slot := uint32(b.slots.GetIndexTo(tex))
			for i := range q {
				q[i].DiffuseTexId = slot
			}
		}

		b.draw()
		b.begin = b.end
		b.slots.Clear()
		if groupDone {
			return
		}
	}
}

// draw uploads the quads in [begin, end) to their own range of the device buffers and draws them.
func (b *texturedQuadBatch) draw() {
	if b.end <= b.begin {
		return
	}
	n := b.end - b.begin
	size := n * verticesPerQuad * vertex.TexturedVertexSize
	if cap(b.staging) < size {
		b.staging = make([]byte, size)
	}
	b.staging = b.staging[:size]
	off := 0
	for _, q := range b.quads[b.begin:b.end] {
		for i := range q {
			q[i].MarshalTo(b.staging[off:])
			off += vertex.TexturedVertexSize
		}
	}

	b.textures = b.textures[:0]
	for _, h := range b.slots.Dense() {
		b.textures = append(b.textures, device.TextureHandle(h))
	}

	first := b.begin * indicesPerQuad
	b.dev.WriteVertices(b.vertexBuffer, b.begin*verticesPerQuad*vertex.TexturedVertexSize, b.staging)
	b.dev.WriteIndices(b.indexBuffer, first, b.indices[first:b.end*indicesPerQuad])
	b.dev.DrawIndexed(device.DrawCommand{
		Pipeline:     b.pipeline,
		VertexBuffer: b.vertexBuffer,
		IndexBuffer:  b.indexBuffer,
		Textures:     b.textures,
		First:        first,
		Count:        n * indicesPerQuad,
	})
	b.drawCalls++
}

func (b *texturedQuadBatch) Flush() {
	b.quads = b.quads[:0]
	b.indices = b.indices[:0]
	b.slots.Clear()
	b.begin, b.end = 0, 0
	b.drawCalls = 0
}

func (b *texturedQuadBatch) Pending() bool {
	return b.begin < len(b.quads)
}

func (b *texturedQuadBatch) Len() int {
	return len(b.quads)
}

func (b *texturedQuadBatch) MaxObjects() int {
	return b.maxObjects
}

func (b *texturedQuadBatch) Stats() Stats {
	return Stats{Objects: len(b.quads), DrawCalls: b.drawCalls}
}
