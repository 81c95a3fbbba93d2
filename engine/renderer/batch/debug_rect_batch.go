package batch

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-frame/engine/log"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/device"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/vertex"
)

// DefaultMaxDebugRects is the capacity used when no WithMaxRects option is given.
const DefaultMaxDebugRects = 1000

// debugRectBatch is the implementation of the BatchRenderer interface for debug rectangles.
type debugRectBatch struct {
	dev    device.Device
	logger *log.Logger

	maxObjects int
	rects      []vertex.DebugRectVertex
	staging    []byte
	drawCalls  int

	pipeline     device.PipelineHandle
	vertexBuffer device.BufferHandle
}

var _ BatchRenderer[vertex.DebugRectVertex] = &debugRectBatch{}

// NewDebugRectBatch creates a batch of debug rectangle outlines. Every rectangle is one vertex that
// the device expands into a closed line loop. Render draws the whole frame in one call.
//
// Parameters:
//   - dev: the device that will execute the draws
//   - options: functional options to configure the batch
//
// Returns:
//   - BatchRenderer[vertex.DebugRectVertex]: the batch
func NewDebugRectBatch(dev device.Device, options ...DebugRectBatchBuilderOption) BatchRenderer[vertex.DebugRectVertex] {
	b := &debugRectBatch{
		dev:        dev,
		maxObjects: DefaultMaxDebugRects,
	}
	for _, opt := range options {
		opt(b)
	}
	if b.maxObjects < 0 {
		b.maxObjects = 0
	}
	b.rects = make([]vertex.DebugRectVertex, 0, b.maxObjects)
	return b
}

func (b *debugRectBatch) Setup() error {
	var err error
	b.pipeline, err = b.dev.CreatePipeline(device.PipelineDescriptor{
		Label:  "debug rects",
		Kind:   device.PipelineDebugRect,
		Layout: vertex.DebugRectLayout,
	})
	if err != nil {
		return fmt.Errorf("debug rect pipeline: %w", err)
	}
	b.vertexBuffer, err = b.dev.CreateVertexBuffer("debug rect vertices", vertex.DebugRectLayout, b.maxObjects)
	if err != nil {
		return fmt.Errorf("debug rect vertex buffer: %w", err)
	}
	b.logger.Debug("debug rect batch ready", "max_rects", b.maxObjects, "device", b.dev.Name())
	return nil
}

func (b *debugRectBatch) Submit(r vertex.DebugRectVertex) {
	if len(b.rects) >= b.maxObjects {
		panic(fmt.Sprintf("batch: debug rect capacity of %d exceeded", b.maxObjects))
	}
	b.rects = append(b.rects, r)
}

// Prepare is a no-op, debug rects are drawn in submission order.
func (b *debugRectBatch) Prepare() {}

func (b *debugRectBatch) Render() {
	if len(b.rects) == 0 {
		return
	}
	// the device reads rects at the layout stride
	stride := int(vertex.DebugRectLayout.Stride)
	size := len(b.rects) * stride
	if cap(b.staging) < size {
		b.staging = make([]byte, size)
	}
	b.staging = b.staging[:size]
	for i := range b.rects {
		b.rects[i].MarshalTo(b.staging[i*stride:])
	}
	b.dev.WriteVertices(b.vertexBuffer, 0, b.staging)
	b.dev.Draw(device.DrawCommand{
		Pipeline:     b.pipeline,
		VertexBuffer: b.vertexBuffer,
		Count:        len(b.rects),
	})
	b.drawCalls++
}

func (b *debugRectBatch) Flush() {
	b.rects = b.rects[:0]
	b.drawCalls = 0
}

func (b *debugRectBatch) Len() int {
	return len(b.rects)
}

func (b *debugRectBatch) MaxObjects() int {
	return b.maxObjects
}

func (b *debugRectBatch) Stats() Stats {
	return Stats{Objects: len(b.rects), DrawCalls: b.drawCalls}
}
