package batch

import (
	"image/color"
	"testing"

	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/device"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/vertex"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRect(x, y float32) vertex.DebugRectVertex {
	return vertex.DebugRectVertex{
		MVP:       mgl32.Ident4(),
		Offset:    mgl32.Vec2{x, y},
		RectSizes: mgl32.Vec2{0.5, 0.5},
		Color:     mgl32.Vec4{1, 0, 0, 1},
	}
}

func TestDebugRectBatchDrawsFrameInOneCall(t *testing.T) {
	dev := newTestDevice(t)
	b := NewDebugRectBatch(dev, WithMaxRects(4))
	require.NoError(t, b.Setup())

	b.Submit(testRect(0, 0))
	b.Submit(testRect(0.25, 0.25))
	b.Submit(testRect(-0.25, 0))
	b.Prepare()
	b.Render()

	calls := dev.DrawCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, device.PipelineDebugRect, calls[0].Kind)
	assert.Equal(t, 3, calls[0].Count)
	assert.Equal(t, Stats{Objects: 3, DrawCalls: 1}, b.Stats())
}

func TestDebugRectBatchEmptyFrameDrawsNothing(t *testing.T) {
	dev := newTestDevice(t)
	b := NewDebugRectBatch(dev)
	require.NoError(t, b.Setup())
	assert.Equal(t, DefaultMaxDebugRects, b.MaxObjects())

	b.Render()
	assert.Empty(t, dev.DrawCalls())
}

func TestDebugRectBatchCapacity(t *testing.T) {
	dev := newTestDevice(t)
	b := NewDebugRectBatch(dev, WithMaxRects(2))
	require.NoError(t, b.Setup())

	assert.NotPanics(t, func() {
		b.Submit(testRect(0, 0))
		b.Submit(testRect(0, 0))
	})
	assert.Panics(t, func() { b.Submit(testRect(0, 0)) })

	b.Flush()
	b.Flush()
	assert.Zero(t, b.Len())
	assert.NotPanics(t, func() { b.Submit(testRect(0, 0)) })
}

func TestDebugRectBatchRendersAtFullCapacity(t *testing.T) {
	dev := newTestDevice(t)
	b := NewDebugRectBatch(dev, WithMaxRects(2))
	require.NoError(t, b.Setup())

	b.Submit(testRect(0, 0))
	b.Submit(testRect(0.25, 0.25))
	b.Prepare()
	assert.NotPanics(t, b.Render)

	calls := dev.DrawCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, 2, calls[0].Count)
}

func TestDebugRectBatchRendersDefaultCapacity(t *testing.T) {
	dev := newTestDevice(t)
	b := NewDebugRectBatch(dev)
	require.NoError(t, b.Setup())

	for range DefaultMaxDebugRects {
		b.Submit(testRect(0, 0))
	}
	b.Prepare()
	assert.NotPanics(t, b.Render)
}

func TestDebugRectBatchDrawsEveryRectWhereSubmitted(t *testing.T) {
	// on a 16x16 target, NDC (p+0.5)/8-1 is the center of pixel p
	dev, fb := newTargetDevice(t, 16, 16)
	b := NewDebugRectBatch(dev, WithMaxRects(3))
	require.NoError(t, b.Setup())

	rect := func(x, y float32, c mgl32.Vec4) vertex.DebugRectVertex {
		return vertex.DebugRectVertex{
			MVP:       mgl32.Ident4(),
			Offset:    mgl32.Vec2{x, y},
			RectSizes: mgl32.Vec2{0.375, 0.375},
			Color:     c,
		}
	}
	b.Submit(rect(-0.5, -0.5, mgl32.Vec4{1, 0, 0, 1})) // pixels 2..5 on both axes
	b.Submit(rect(0.5, 0.5, mgl32.Vec4{0, 1, 0, 1}))   // pixels 10..13 on both axes
	b.Submit(rect(0.5, -0.5, mgl32.Vec4{0, 0, 1, 1}))  // columns 10..13, rows 2..5
	b.Prepare()
	b.Render()

	img, err := dev.ReadColor(fb)
	require.NoError(t, err)
	// ReadColor is top row first
	at := func(x, y int) color.RGBA { return img.RGBAAt(x, 15-y) }

	red := color.RGBA{R: 255, A: 255}
	green := color.RGBA{G: 255, A: 255}
	blue := color.RGBA{B: 255, A: 255}
	black := color.RGBA{A: 255}

	assert.Equal(t, red, at(2, 2))
	assert.Equal(t, red, at(5, 5))
	assert.Equal(t, green, at(10, 10))
	assert.Equal(t, green, at(13, 13))
	assert.Equal(t, blue, at(10, 2))
	assert.Equal(t, blue, at(13, 5))

	// outlines only
	assert.Equal(t, black, at(4, 4))
	assert.Equal(t, black, at(12, 12))
	assert.Equal(t, black, at(8, 8))
}
