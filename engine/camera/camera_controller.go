package camera

import "github.com/go-gl/mathgl/mgl32"

// CameraController owns the positional state of a 2D camera. It pans by dragging and zooms with
// the scroll wheel around the point under the cursor. Camera reads from the controller on Update.
type CameraController interface {
	// Position returns the world point at the viewport center.
	//
	// Returns:
	//   - mgl32.Vec2: the position
	Position() mgl32.Vec2

	// SetPosition moves the camera.
	//
	// Parameters:
	//   - pos: the world point at the viewport center
	SetPosition(pos mgl32.Vec2)

	// Zoom returns the number of pixels per world unit.
	//
	// Returns:
	//   - float32: the zoom factor
	Zoom() float32

	// SetZoom sets the zoom factor, clamped to the zoom bounds.
	//
	// Parameters:
	//   - zoom: pixels per world unit
	SetZoom(zoom float32)

	// MinZoom returns the smallest allowed zoom factor.
	//
	// Returns:
	//   - float32: minimum zoom
	MinZoom() float32

	// MaxZoom returns the largest allowed zoom factor.
	//
	// Returns:
	//   - float32: maximum zoom
	MaxZoom() float32

	// ZoomSpeed returns the zoom change per scroll step as a fraction of the current zoom.
	//
	// Returns:
	//   - float32: the zoom speed
	ZoomSpeed() float32

	// PanSpeed returns the multiplier applied to drag distances.
	//
	// Returns:
	//   - float32: the pan speed
	PanSpeed() float32

	// Pan moves the camera by a distance in framebuffer pixels, scaled by PanSpeed.
	// Positive dx moves the view content right, which moves the camera left.
	//
	// Parameters:
	//   - dx, dy: distance in pixels, y growing upward
	Pan(dx, dy float32)

	// ZoomAt scales the zoom by scroll steps while keeping the world point under the cursor fixed.
	//
	// Parameters:
	//   - steps: scroll steps, positive zooms in
	//   - cursor: cursor position in pixels relative to the viewport center, y growing upward
	ZoomAt(steps float32, cursor mgl32.Vec2)

	// BeginDrag starts a pan drag at a cursor position in pixels.
	//
	// Parameters:
	//   - x, y: cursor position, y growing upward
	BeginDrag(x, y float32)

	// DragTo pans by the cursor movement since the last drag position. No-op when not dragging.
	//
	// Parameters:
	//   - x, y: cursor position, y growing upward
	DragTo(x, y float32)

	// EndDrag stops the current drag.
	EndDrag()

	// Dragging reports whether a drag is in progress.
	//
	// Returns:
	//   - bool: true while dragging
	Dragging() bool
}
