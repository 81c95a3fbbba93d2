package camera

import (
	"math"
	"sync"

	"github.com/go-gl/mathgl/mgl32"
)

// cameraControllerImpl is the single implementation of CameraController.
type cameraControllerImpl struct {
	mu *sync.Mutex

	position mgl32.Vec2
	zoom     float32

	minZoom   float32
	maxZoom   float32
	zoomSpeed float32
	panSpeed  float32

	dragging bool
	lastDrag mgl32.Vec2
}

var _ CameraController = &cameraControllerImpl{}

// NewCameraController creates a new camera controller at the origin with a zoom of one.
//
// Parameters:
//   - options: functional options to configure the controller
//
// Returns:
//   - CameraController: the newly created controller
func NewCameraController(options ...CameraControllerOption) CameraController {
	cc := &cameraControllerImpl{
		mu:        &sync.Mutex{},
		zoom:      1,
		minZoom:   0.05,
		maxZoom:   64,
		zoomSpeed: 0.1,
		panSpeed:  1,
	}
	for _, option := range options {
		option(cc)
	}
	cc.zoom = cc.clampZoom(cc.zoom)
	return cc
}

// clampZoom bounds zoom to [minZoom, maxZoom].
func (cc *cameraControllerImpl) clampZoom(zoom float32) float32 {
	return max(cc.minZoom, min(zoom, cc.maxZoom))
}

func (cc *cameraControllerImpl) Position() mgl32.Vec2 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.position
}

func (cc *cameraControllerImpl) SetPosition(pos mgl32.Vec2) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.position = pos
}

func (cc *cameraControllerImpl) Zoom() float32 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.zoom
}

func (cc *cameraControllerImpl) SetZoom(zoom float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.zoom = cc.clampZoom(zoom)
}

func (cc *cameraControllerImpl) MinZoom() float32 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.minZoom
}

func (cc *cameraControllerImpl) MaxZoom() float32 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.maxZoom
}

func (cc *cameraControllerImpl) ZoomSpeed() float32 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.zoomSpeed
}

func (cc *cameraControllerImpl) PanSpeed() float32 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.panSpeed
}

func (cc *cameraControllerImpl) Pan(dx, dy float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.pan(dx, dy)
}

// pan moves the camera opposite to the content. Caller must hold the mutex.
func (cc *cameraControllerImpl) pan(dx, dy float32) {
	cc.position = cc.position.Sub(mgl32.Vec2{dx, dy}.Mul(cc.panSpeed / cc.zoom))
}

func (cc *cameraControllerImpl) ZoomAt(steps float32, cursor mgl32.Vec2) {
	cc.mu.Lock()
	defer cc.mu.Unlock()

	before := cc.position.Add(cursor.Mul(1 / cc.zoom))
	factor := float32(math.Pow(float64(1+cc.zoomSpeed), float64(steps)))
	cc.zoom = cc.clampZoom(cc.zoom * factor)
	// keep the world point under the cursor in place
	cc.position = before.Sub(cursor.Mul(1 / cc.zoom))
}

func (cc *cameraControllerImpl) BeginDrag(x, y float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.dragging = true
	cc.lastDrag = mgl32.Vec2{x, y}
}

func (cc *cameraControllerImpl) DragTo(x, y float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	if !cc.dragging {
		return
	}
	cur := mgl32.Vec2{x, y}
	d := cur.Sub(cc.lastDrag)
	cc.pan(d.X(), d.Y())
	cc.lastDrag = cur
}

func (cc *cameraControllerImpl) EndDrag() {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.dragging = false
}

func (cc *cameraControllerImpl) Dragging() bool {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.dragging
}
