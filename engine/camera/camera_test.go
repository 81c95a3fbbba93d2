package camera

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
)

func project(c Camera, p mgl32.Vec2) mgl32.Vec2 {
	v := c.ViewProjectionMatrix().Mul4x1(mgl32.Vec4{p.X(), p.Y(), 0, 1})
	return mgl32.Vec2{v.X() / v.W(), v.Y() / v.W()}
}

func assertVec2(t *testing.T, want, got mgl32.Vec2) {
	t.Helper()
	assert.InDelta(t, want.X(), got.X(), 1e-5)
	assert.InDelta(t, want.Y(), got.Y(), 1e-5)
}

func TestCameraCentersPosition(t *testing.T) {
	c := NewCamera(WithViewport(200, 100), WithPosition(mgl32.Vec2{10, -5}), WithZoom(2))

	assertVec2(t, mgl32.Vec2{0, 0}, project(c, mgl32.Vec2{10, -5}))
	// half the viewport is 100 pixels, 50 world units at zoom 2
	assertVec2(t, mgl32.Vec2{1, 0}, project(c, mgl32.Vec2{60, -5}))
	assertVec2(t, mgl32.Vec2{0, -1}, project(c, mgl32.Vec2{10, -30}))
}

func TestCameraFollowsController(t *testing.T) {
	ctrl := NewCameraController(WithStartPosition(mgl32.Vec2{3, 4}), WithStartZoom(4))
	c := NewCamera(WithViewport(80, 80), WithController(ctrl))

	assertVec2(t, mgl32.Vec2{3, 4}, c.Position())
	assert.Equal(t, float32(4), c.Zoom())
	assertVec2(t, mgl32.Vec2{0, 0}, project(c, mgl32.Vec2{3, 4}))

	ctrl.SetPosition(mgl32.Vec2{13, 4})
	// matrices only move on Update
	assertVec2(t, mgl32.Vec2{0, 0}, project(c, mgl32.Vec2{3, 4}))
	c.Update()
	assertVec2(t, mgl32.Vec2{0, 0}, project(c, mgl32.Vec2{13, 4}))
	assertVec2(t, mgl32.Vec2{-1, 0}, project(c, mgl32.Vec2{3, 4}))
}

func TestScreenToWorldInvertsProjection(t *testing.T) {
	c := NewCamera(WithViewport(640, 480), WithPosition(mgl32.Vec2{-20, 7}), WithZoom(8))

	for _, px := range []mgl32.Vec2{{0, 0}, {320, 240}, {639, 1}, {100, 400}} {
		w := c.ScreenToWorld(px.X(), px.Y())
		ndc := project(c, w)
		assertVec2(t, mgl32.Vec2{px.X()/320 - 1, px.Y()/240 - 1}, ndc)
	}
}

func TestSetViewportRebuildsProjection(t *testing.T) {
	c := NewCamera(WithViewport(100, 100))
	c.SetViewport(400, 100)

	w, h := c.Viewport()
	assert.Equal(t, float32(400), w)
	assert.Equal(t, float32(100), h)
	assertVec2(t, mgl32.Vec2{1, 1}, project(c, mgl32.Vec2{200, 50}))
}

func TestControllerZoomIsClamped(t *testing.T) {
	ctrl := NewCameraController(WithZoomBounds(0.5, 4), WithStartZoom(10))
	assert.Equal(t, float32(4), ctrl.Zoom())

	ctrl.SetZoom(0.1)
	assert.Equal(t, float32(0.5), ctrl.Zoom())

	ctrl.ZoomAt(-100, mgl32.Vec2{})
	assert.Equal(t, float32(0.5), ctrl.Zoom())
}

func TestZoomAtKeepsCursorPointFixed(t *testing.T) {
	ctrl := NewCameraController(WithStartPosition(mgl32.Vec2{5, 5}), WithStartZoom(2), WithZoomSpeed(0.5))
	cursor := mgl32.Vec2{40, -20}
	before := ctrl.Position().Add(cursor.Mul(1 / ctrl.Zoom()))

	ctrl.ZoomAt(2, cursor)

	assert.InDelta(t, 4.5, ctrl.Zoom(), 1e-5)
	after := ctrl.Position().Add(cursor.Mul(1 / ctrl.Zoom()))
	assertVec2(t, before, after)
}

func TestDragPansOppositeToCursor(t *testing.T) {
	ctrl := NewCameraController(WithStartZoom(2))

	ctrl.DragTo(50, 50)
	assertVec2(t, mgl32.Vec2{}, ctrl.Position())

	ctrl.BeginDrag(10, 10)
	assert.True(t, ctrl.Dragging())
	ctrl.DragTo(30, 0)
	assertVec2(t, mgl32.Vec2{-10, 5}, ctrl.Position())
	ctrl.DragTo(30, 4)
	assertVec2(t, mgl32.Vec2{-10, 3}, ctrl.Position())

	ctrl.EndDrag()
	assert.False(t, ctrl.Dragging())
	ctrl.DragTo(100, 100)
	assertVec2(t, mgl32.Vec2{-10, 3}, ctrl.Position())
}

func TestPanSpeedScalesPan(t *testing.T) {
	ctrl := NewCameraController(WithPanSpeed(3))
	ctrl.Pan(1, -2)
	assertVec2(t, mgl32.Vec2{-3, 6}, ctrl.Position())
}

func TestVisibleBoundsFollowsViewport(t *testing.T) {
	c := NewCamera(WithViewport(200, 100), WithPosition(mgl32.Vec2{10, -5}), WithZoom(2))
	b := c.VisibleBounds()

	assert.InDelta(t, -40, b.Min.X(), 1e-3)
	assert.InDelta(t, -30, b.Min.Y(), 1e-3)
	assert.InDelta(t, 60, b.Max.X(), 1e-3)
	assert.InDelta(t, 20, b.Max.Y(), 1e-3)
}
