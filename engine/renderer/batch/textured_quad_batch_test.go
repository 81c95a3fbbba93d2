package batch

import (
	"math/rand/v2"
	"testing"

	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/device"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/vertex"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDevice(t *testing.T) device.SoftDevice {
	t.Helper()
	dev, _ := newTargetDevice(t, 8, 8)
	return dev
}

// newTargetDevice returns a soft device with a bound, black width x height target.
func newTargetDevice(t *testing.T, width, height int) (device.SoftDevice, device.FramebufferHandle) {
	t.Helper()
	dev := device.NewSoftDevice(device.WithWorkers(1))
	require.NoError(t, dev.Setup())
	t.Cleanup(dev.Release)

	fb, err := dev.CreateFramebuffer("target")
	require.NoError(t, err)
	require.NoError(t, dev.ResizeFramebuffer(fb, width, height))
	dev.BindFramebuffer(fb)
	dev.ClearFramebuffer(fb, [4]float32{0, 0, 0, 1})
	return dev, fb
}

func newTestBatch(t *testing.T, dev device.Device, maxQuads int) TexturedQuadBatch {
	t.Helper()
	b := NewTexturedQuadBatch(dev, WithMaxQuads(maxQuads))
	require.NoError(t, b.Setup())
	return b
}

// testQuad builds a small quad. A non-zero tex makes the quad sample that texture handle.
func testQuad(drawOrder, entity, tex uint32) vertex.Quad {
	corners := [4]mgl32.Vec3{{-0.5, -0.5, 0}, {0.5, -0.5, 0}, {0.5, 0.5, 0}, {-0.5, 0.5, 0}}
	var q vertex.Quad
	for i := range q {
		q[i] = vertex.TexturedVertex{
			DrawOrder:    drawOrder,
			MVP:          mgl32.Ident4(),
			VertexPos:    corners[i],
			DiffuseColor: mgl32.Vec4{1, 1, 1, 1},
			TintColor:    mgl32.Vec4{1, 1, 1, 1},
			EntityId:     entity,
		}
		if tex != 0 {
			q[i].ToUseDiffuseTex = 1
			q[i].DiffuseTexId = tex
		}
	}
	return q
}

func renderAll(b TexturedQuadBatch) {
	b.Prepare()
	for b.Pending() {
		b.Render()
	}
}

func drawnObjects(dev device.SoftDevice) []device.DrawnObject {
	var out []device.DrawnObject
	for _, call := range dev.DrawCalls() {
		out = append(out, call.Objects...)
	}
	return out
}

func TestTexturedQuadBatchPreservesDrawOrder(t *testing.T) {
	dev := newTestDevice(t)
	b := newTestBatch(t, dev, 64)

	rng := rand.New(rand.NewPCG(1, 2))
	keys := rng.Perm(64)
	for i, k := range keys {
		b.Submit(testQuad(uint32(k), uint32(i), 0))
	}
	renderAll(b)

	objects := drawnObjects(dev)
	require.Len(t, objects, 64)
	for i := 1; i < len(objects); i++ {
		assert.LessOrEqual(t, objects[i-1].DrawOrder, objects[i].DrawOrder)
	}
	// distinct keys never share a draw
	assert.Len(t, dev.DrawCalls(), 64)
	assert.Equal(t, 64, b.Stats().DrawCalls)
}

func TestTexturedQuadBatchRenderConsumesOneGroupPerCall(t *testing.T) {
	dev := newTestDevice(t)
	b := newTestBatch(t, dev, 8)
	b.Submit(testQuad(5, 1, 0))
	b.Submit(testQuad(2, 2, 0))
	b.Submit(testQuad(2, 3, 0))
	b.Prepare()

	b.Render()
	calls := dev.DrawCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, []device.DrawnObject{{DrawOrder: 2, EntityId: 2}, {DrawOrder: 2, EntityId: 3}}, calls[0].Objects)
	assert.True(t, b.Pending())

	b.Render()
	calls = dev.DrawCalls()
	require.Len(t, calls, 2)
	assert.Equal(t, []device.DrawnObject{{DrawOrder: 5, EntityId: 1}}, calls[1].Objects)
	assert.False(t, b.Pending())

	// nothing left, further calls draw nothing
	b.Render()
	assert.Len(t, dev.DrawCalls(), 2)
}

func TestTexturedQuadBatchSplitsOnTextureExhaustion(t *testing.T) {
	dev := newTestDevice(t)
	b := newTestBatch(t, dev, 64)

	// twenty distinctly textured quads at key 2 surrounded by keys 1 and 3
	b.Submit(testQuad(3, 100, 0))
	for i := range 10 {
		b.Submit(testQuad(2, uint32(i), uint32(i+1)))
	}
	b.Submit(testQuad(1, 200, 0))
	for i := 10; i < 20; i++ {
		b.Submit(testQuad(2, uint32(i), uint32(i+1)))
	}
	renderAll(b)

	calls := dev.DrawCalls()
	require.Len(t, calls, 4)

	assert.Equal(t, []device.DrawnObject{{DrawOrder: 1, EntityId: 200}}, calls[0].Objects)
	assert.Equal(t, []device.DrawnObject{{DrawOrder: 3, EntityId: 100}}, calls[3].Objects)

	require.Len(t, calls[1].Objects, device.TextureSlots)
	require.Len(t, calls[1].Textures, device.TextureSlots)
	require.Len(t, calls[2].Objects, 20-device.TextureSlots)
	require.Len(t, calls[2].Textures, 20-device.TextureSlots)

	entity := uint32(0)
	for _, call := range calls[1:3] {
		for slot, obj := range call.Objects {
			assert.Equal(t, uint32(2), obj.DrawOrder)
			// same key quads keep their submission order
			assert.Equal(t, entity, obj.EntityId)
			assert.Equal(t, uint32(slot), obj.Slot)
			assert.Equal(t, device.TextureHandle(entity+1), obj.Texture)
			entity++
		}
	}
}

func TestTexturedQuadBatchReusesSlotsOfSharedTextures(t *testing.T) {
	dev := newTestDevice(t)
	b := newTestBatch(t, dev, 64)

	for i := range device.TextureSlots {
		b.Submit(testQuad(0, uint32(i), uint32(i+1)))
	}
	// every slot is taken but these textures are already bound
	b.Submit(testQuad(0, 16, 1))
	b.Submit(testQuad(0, 17, 16))
	// untextured quads never need a slot
	b.Submit(testQuad(0, 18, 0))
	renderAll(b)

	calls := dev.DrawCalls()
	require.Len(t, calls, 1)
	objects := calls[0].Objects
	require.Len(t, objects, 19)
	assert.Equal(t, device.DrawnObject{EntityId: 16, Slot: 0, Texture: 1}, objects[16])
	assert.Equal(t, device.DrawnObject{EntityId: 17, Slot: 15, Texture: 16}, objects[17])
	assert.Equal(t, device.DrawnObject{EntityId: 18}, objects[18])
}

func TestTexturedQuadBatchMakesProgressUnderSlotExhaustion(t *testing.T) {
	dev := newTestDevice(t)
	b := newTestBatch(t, dev, 64)

	for i := range 33 {
		b.Submit(testQuad(7, uint32(i), uint32(i+1)))
	}
	b.Prepare()
	b.Render()

	calls := dev.DrawCalls()
	require.Len(t, calls, 3)
	assert.Len(t, calls[0].Objects, 16)
	assert.Len(t, calls[1].Objects, 16)
	assert.Len(t, calls[2].Objects, 1)
	assert.False(t, b.Pending())
}

func TestTexturedQuadBatchStableForEqualKeys(t *testing.T) {
	dev := newTestDevice(t)
	b := newTestBatch(t, dev, 16)

	order := []uint32{4, 1, 4, 1, 4, 1}
	for i, k := range order {
		b.Submit(testQuad(k, uint32(i), 0))
	}
	renderAll(b)

	var got []uint32
	for _, obj := range drawnObjects(dev) {
		got = append(got, obj.EntityId)
	}
	assert.Equal(t, []uint32{1, 3, 5, 0, 2, 4}, got)
}

func TestTexturedQuadBatchCapacity(t *testing.T) {
	tests := []struct {
		name       string
		maxQuads   int
		submit     int
		wantsPanic bool
	}{
		{"zero capacity accepts nothing", 0, 1, true},
		{"empty frame", 4, 0, false},
		{"one quad", 4, 1, false},
		{"exactly max", 4, 4, false},
		{"one past max", 4, 5, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev := newTestDevice(t)
			b := newTestBatch(t, dev, tt.maxQuads)
			submit := func() {
				for i := range tt.submit {
					b.Submit(testQuad(uint32(i), uint32(i), 0))
				}
			}
			if tt.wantsPanic {
				assert.Panics(t, submit)
				assert.Equal(t, tt.maxQuads, b.Len())
				return
			}
			assert.NotPanics(t, submit)
			assert.Equal(t, tt.submit, b.Len())

			renderAll(b)
			assert.Len(t, drawnObjects(dev), tt.submit)
		})
	}
}

func TestTexturedQuadBatchFlushIsIdempotent(t *testing.T) {
	dev := newTestDevice(t)
	b := newTestBatch(t, dev, 8)
	b.Submit(testQuad(1, 1, 0))
	b.Submit(testQuad(2, 2, 0))
	b.Prepare()
	b.Render()

	b.Flush()
	once := b.Stats()
	b.Flush()
	assert.Equal(t, once, b.Stats())
	assert.Equal(t, Stats{}, b.Stats())
	assert.Zero(t, b.Len())
	assert.False(t, b.Pending())

	// the batch is reusable after a flush and writes to the start of the buffers again
	dev.ResetDrawCalls()
	b.Submit(testQuad(9, 3, 0))
	renderAll(b)
	calls := dev.DrawCalls()
	require.Len(t, calls, 1)
	assert.Zero(t, calls[0].First)
	assert.Equal(t, []device.DrawnObject{{DrawOrder: 9, EntityId: 3}}, calls[0].Objects)
}

func TestTexturedQuadBatchDrawsUseOwnIndexRange(t *testing.T) {
	dev := newTestDevice(t)
	b := newTestBatch(t, dev, 8)
	b.Submit(testQuad(1, 1, 0))
	b.Submit(testQuad(2, 2, 0))
	b.Submit(testQuad(2, 3, 0))
	renderAll(b)

	calls := dev.DrawCalls()
	require.Len(t, calls, 2)
	assert.Equal(t, 0, calls[0].First)
	assert.Equal(t, 6, calls[0].Count)
	assert.Equal(t, 6, calls[1].First)
	assert.Equal(t, 12, calls[1].Count)
}
