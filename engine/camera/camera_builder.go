package camera

import "github.com/go-gl/mathgl/mgl32"

type CameraBuilderOption func(*cameraImpl)

// WithViewport sets the framebuffer size the projection is built for.
//
// Parameters:
//   - width, height: size in pixels
//
// Returns:
//   - CameraBuilderOption: a function that sets the camera's viewport
func WithViewport(width, height float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.viewportWidth, c.viewportHeight = width, height
	}
}

// WithDepthRange sets the near and far planes of the orthographic projection.
// Vertex z values outside the range are clipped.
//
// Parameters:
//   - near: near plane distance
//   - far: far plane distance
//
// Returns:
//   - CameraBuilderOption: a function that sets the depth range
func WithDepthRange(near, far float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.near, c.far = near, far
	}
}

// WithPosition sets the position used while no controller is attached.
//
// Parameters:
//   - pos: the world point at the viewport center
//
// Returns:
//   - CameraBuilderOption: a function that sets the camera position
func WithPosition(pos mgl32.Vec2) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.position = pos
	}
}

// WithZoom sets the zoom used while no controller is attached.
//
// Parameters:
//   - zoom: pixels per world unit
//
// Returns:
//   - CameraBuilderOption: a function that sets the camera zoom
func WithZoom(zoom float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.zoom = zoom
	}
}

// WithController attaches a CameraController at construction.
//
// Parameters:
//   - ctrl: the controller
//
// Returns:
//   - CameraBuilderOption: a function that sets the camera's controller
func WithController(ctrl CameraController) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.controller = ctrl
	}
}
