package camera

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-frame/common"
	"github.com/go-gl/mathgl/mgl32"
)

type cameraImpl struct {
	mu *sync.Mutex

	viewportWidth  float32
	viewportHeight float32

	near float32
	far  float32

	// defaults used while no controller is attached
	position mgl32.Vec2
	zoom     float32

	viewMatrix           mgl32.Mat4
	projectionMatrix     mgl32.Mat4
	viewProjectionMatrix mgl32.Mat4

	controller CameraController
}

// Camera is an orthographic 2D camera. One world unit covers Zoom framebuffer pixels and the
// camera position lands on the center of the viewport.
//
// The controller owns position and zoom; Update reads them and recomputes the matrices, which
// producers multiply with their model matrices to fill the MVP of submitted vertices.
type Camera interface {
	// Viewport returns the framebuffer size the projection is built for.
	//
	// Returns:
	//   - width, height: size in pixels
	Viewport() (width, height float32)

	// SetViewport sets the framebuffer size and recomputes the matrices.
	//
	// Parameters:
	//   - width, height: size in pixels
	SetViewport(width, height float32)

	// Near returns the near clipping plane distance.
	//
	// Returns:
	//   - float32: near plane distance
	Near() float32

	// Far returns the far clipping plane distance.
	//
	// Returns:
	//   - float32: far plane distance
	Far() float32

	// Position returns the world point at the center of the viewport.
	//
	// Returns:
	//   - mgl32.Vec2: the camera position
	Position() mgl32.Vec2

	// Zoom returns the number of pixels per world unit.
	//
	// Returns:
	//   - float32: the zoom factor
	Zoom() float32

	// ViewMatrix returns the current view matrix.
	//
	// Returns:
	//   - mgl32.Mat4: the view matrix
	ViewMatrix() mgl32.Mat4

	// ProjectionMatrix returns the current orthographic projection.
	//
	// Returns:
	//   - mgl32.Mat4: the projection matrix
	ProjectionMatrix() mgl32.Mat4

	// ViewProjectionMatrix returns projection * view.
	//
	// Returns:
	//   - mgl32.Mat4: the combined matrix
	ViewProjectionMatrix() mgl32.Mat4

	// ScreenToWorld maps a framebuffer position to world coordinates.
	//
	// Parameters:
	//   - x: column in pixels from the left
	//   - y: row in pixels from the bottom
	//
	// Returns:
	//   - mgl32.Vec2: the world point under the pixel
	ScreenToWorld(x, y float32) mgl32.Vec2

	// VisibleBounds returns the world rectangle covered by the viewport as of the last Update.
	//
	// Returns:
	//   - common.Bounds: the visible rectangle
	VisibleBounds() common.Bounds

	// Controller returns the attached CameraController, or nil.
	//
	// Returns:
	//   - CameraController: the attached controller or nil
	Controller() CameraController

	// SetController attaches a CameraController to the camera.
	//
	// Parameters:
	//   - ctrl: the controller to attach
	SetController(ctrl CameraController)

	// Update reads position and zoom from the controller and recomputes the matrices.
	// Should be called once per frame before submitting.
	Update()
}

var _ Camera = &cameraImpl{}

// NewCamera creates a new Camera with an 800x600 viewport at the origin and a zoom of one.
//
// Parameters:
//   - options: functional options to configure the camera
//
// Returns:
//   - Camera: the newly created camera
func NewCamera(options ...CameraBuilderOption) Camera {
	c := &cameraImpl{
		mu:             &sync.Mutex{},
		viewportWidth:  800,
		viewportHeight: 600,
		near:           -1,
		far:            1,
		zoom:           1,
	}
	for _, option := range options {
		option(c)
	}
	c.updateMatrices()
	return c
}

func (c *cameraImpl) Viewport() (width, height float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewportWidth, c.viewportHeight
}

func (c *cameraImpl) SetViewport(width, height float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.viewportWidth, c.viewportHeight = width, height
	c.updateMatrices()
}

func (c *cameraImpl) Near() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.near
}

func (c *cameraImpl) Far() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.far
}

func (c *cameraImpl) Position() mgl32.Vec2 {
	c.mu.Lock()
	defer c.mu.Unlock()
	pos, _ := c.state()
	return pos
}

func (c *cameraImpl) Zoom() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, zoom := c.state()
	return zoom
}

func (c *cameraImpl) ViewMatrix() mgl32.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewMatrix
}

func (c *cameraImpl) ProjectionMatrix() mgl32.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.projectionMatrix
}

func (c *cameraImpl) ViewProjectionMatrix() mgl32.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewProjectionMatrix
}

func (c *cameraImpl) ScreenToWorld(x, y float32) mgl32.Vec2 {
	c.mu.Lock()
	defer c.mu.Unlock()
	pos, zoom := c.state()
	return mgl32.Vec2{
		pos.X() + (x-c.viewportWidth/2)/zoom,
		pos.Y() + (y-c.viewportHeight/2)/zoom,
	}
}

func (c *cameraImpl) VisibleBounds() common.Bounds {
	c.mu.Lock()
	defer c.mu.Unlock()
	return common.ExtractViewBounds(c.viewProjectionMatrix)
}

func (c *cameraImpl) Controller() CameraController {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.controller
}

func (c *cameraImpl) SetController(ctrl CameraController) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.controller = ctrl
	c.updateMatrices()
}

func (c *cameraImpl) Update() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.updateMatrices()
}

// state returns the position and zoom from the controller, or the camera defaults without one.
// Caller must hold the mutex.
func (c *cameraImpl) state() (mgl32.Vec2, float32) {
	if c.controller == nil {
		return c.position, c.zoom
	}
	return c.controller.Position(), c.controller.Zoom()
}

// updateMatrices recalculates the view, projection and view-projection matrices.
// Caller must hold the mutex.
func (c *cameraImpl) updateMatrices() {
	pos, zoom := c.state()
	if zoom <= 0 {
		zoom = 1
	}
	hw := c.viewportWidth / 2 / zoom
	hh := c.viewportHeight / 2 / zoom

	c.viewMatrix = mgl32.Translate3D(-pos.X(), -pos.Y(), 0)
	c.projectionMatrix = mgl32.Ortho(-hw, hw, -hh, hh, c.near, c.far)
	c.viewProjectionMatrix = c.projectionMatrix.Mul4(c.viewMatrix)
}
