package sprite

import (
	"sync"
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-frame/common"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/device"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/vertex"
	"github.com/go-gl/mathgl/mgl32"
)

type sprite struct {
	mu      *sync.Mutex
	enabled atomic.Bool

	position mgl32.Vec3
	size     mgl32.Vec2
	rotation float32
	pivot    mgl32.Vec2

	drawOrder uint32
	texture   device.TextureHandle
	uvMin     mgl32.Vec2
	uvMax     mgl32.Vec2
	color     mgl32.Vec4
	tint      mgl32.Vec4

	entityId      uint32
	entityVersion uint32
	sceneId       uint32
	sceneVersion  uint32
}

// Sprite is a producer side textured rectangle. It owns a transform and the identity written into
// the picking target, and turns them into the four vertices the renderer batches.
//
// Sprites are not tied to a frame: build the quad with the current view-projection and submit it
// between Begin and Render.
type Sprite interface {
	// Enabled returns whether the sprite should be submitted.
	//
	// Returns:
	//   - bool: true if enabled
	Enabled() bool

	// SetEnabled sets whether the sprite should be submitted.
	//
	// Parameters:
	//   - enabled: true to enable
	SetEnabled(enabled bool)

	// Position returns the world position of the sprite pivot. Z is passed through to clip space.
	//
	// Returns:
	//   - mgl32.Vec3: the position
	Position() mgl32.Vec3

	// SetPosition moves the sprite.
	//
	// Parameters:
	//   - pos: the new world position
	SetPosition(pos mgl32.Vec3)

	// Size returns the width and height in world units.
	//
	// Returns:
	//   - mgl32.Vec2: the size
	Size() mgl32.Vec2

	// SetSize resizes the sprite.
	//
	// Parameters:
	//   - size: width and height in world units
	SetSize(size mgl32.Vec2)

	// Rotation returns the counter clockwise rotation around the pivot in radians.
	//
	// Returns:
	//   - float32: the angle
	Rotation() float32

	// SetRotation sets the counter clockwise rotation around the pivot.
	//
	// Parameters:
	//   - radians: the angle
	SetRotation(radians float32)

	// DrawOrder returns the paint order key. Lower keys are painted first.
	//
	// Returns:
	//   - uint32: the key
	DrawOrder() uint32

	// SetDrawOrder sets the paint order key.
	//
	// Parameters:
	//   - order: the key
	SetDrawOrder(order uint32)

	// Texture returns the sampled texture, or zero when the sprite draws its flat color.
	//
	// Returns:
	//   - device.TextureHandle: the texture
	Texture() device.TextureHandle

	// SetTexture sets the sampled texture. Zero switches to the flat color.
	//
	// Parameters:
	//   - tex: the texture handle
	SetTexture(tex device.TextureHandle)

	// SetColor sets the flat color used without a texture.
	//
	// Parameters:
	//   - c: RGBA in [0, 1]
	SetColor(c mgl32.Vec4)

	// SetTint sets the color multiplied into the final color.
	//
	// Parameters:
	//   - c: RGBA in [0, 1]
	SetTint(c mgl32.Vec4)

	// Identity returns the picking payload of the sprite.
	//
	// Returns:
	//   - entityId, entityVersion, sceneId, sceneVersion: the four picking channels
	Identity() (entityId, entityVersion, sceneId, sceneVersion uint32)

	// ModelMatrix returns translate(position) * rotate(rotation) * scale(size) * translate(-pivot).
	//
	// Returns:
	//   - mgl32.Mat4: the model matrix
	ModelMatrix() mgl32.Mat4

	// Bounds returns the world rectangle covering the sprite, rotation included.
	//
	// Returns:
	//   - common.Bounds: the enclosing rectangle
	Bounds() common.Bounds

	// Quad builds the four vertices of the sprite.
	//
	// Parameters:
	//   - viewProjection: the camera matrix multiplied in front of the model matrix
	//
	// Returns:
	//   - vertex.Quad: bottom-left, bottom-right, top-right, top-left
	Quad(viewProjection mgl32.Mat4) vertex.Quad

	// Outline builds a debug rectangle around the sprite bounds, ignoring rotation.
	//
	// Parameters:
	//   - viewProjection: the camera matrix
	//   - color: line color
	//
	// Returns:
	//   - vertex.DebugRectVertex: the rectangle
	Outline(viewProjection mgl32.Mat4, color mgl32.Vec4) vertex.DebugRectVertex
}

var _ Sprite = &sprite{}

// NewSprite creates an enabled white 1x1 sprite at the origin, pivoting around its center.
//
// Parameters:
//   - options: functional options to configure the sprite
//
// Returns:
//   - Sprite: the newly created sprite
func NewSprite(options ...SpriteBuilderOption) Sprite {
	s := &sprite{
		mu:    &sync.Mutex{},
		size:  mgl32.Vec2{1, 1},
		pivot: mgl32.Vec2{0.5, 0.5},
		uvMax: mgl32.Vec2{1, 1},
		color: mgl32.Vec4{1, 1, 1, 1},
		tint:  mgl32.Vec4{1, 1, 1, 1},
	}
	s.enabled.Store(true)
	for _, option := range options {
		option(s)
	}
	return s
}

func (s *sprite) Enabled() bool {
	return s.enabled.Load()
}

func (s *sprite) SetEnabled(enabled bool) {
	s.enabled.Store(enabled)
}

func (s *sprite) Position() mgl32.Vec3 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.position
}

func (s *sprite) SetPosition(pos mgl32.Vec3) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.position = pos
}

func (s *sprite) Size() mgl32.Vec2 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.size
}

func (s *sprite) SetSize(size mgl32.Vec2) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.size = size
}

func (s *sprite) Rotation() float32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rotation
}

func (s *sprite) SetRotation(radians float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rotation = radians
}

func (s *sprite) DrawOrder() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.drawOrder
}

func (s *sprite) SetDrawOrder(order uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drawOrder = order
}

func (s *sprite) Texture() device.TextureHandle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.texture
}

func (s *sprite) SetTexture(tex device.TextureHandle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.texture = tex
}

func (s *sprite) SetColor(c mgl32.Vec4) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.color = c
}

func (s *sprite) SetTint(c mgl32.Vec4) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tint = c
}

func (s *sprite) Identity() (entityId, entityVersion, sceneId, sceneVersion uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.entityId, s.entityVersion, s.sceneId, s.sceneVersion
}

func (s *sprite) ModelMatrix() mgl32.Mat4 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.modelMatrix()
}

// modelMatrix maps the unit square to world space. Caller must hold the mutex.
func (s *sprite) modelMatrix() mgl32.Mat4 {
	return mgl32.Translate3D(s.position.X(), s.position.Y(), s.position.Z()).
		Mul4(mgl32.HomogRotate3DZ(s.rotation)).
		Mul4(mgl32.Scale3D(s.size.X(), s.size.Y(), 1)).
		Mul4(mgl32.Translate3D(-s.pivot.X(), -s.pivot.Y(), 0))
}

// unitCorners are the model space corners in quad order.
var unitCorners = [4]mgl32.Vec2{{0, 0}, {1, 0}, {1, 1}, {0, 1}}

func (s *sprite) Bounds() common.Bounds {
	s.mu.Lock()
	defer s.mu.Unlock()

	model := s.modelMatrix()
	var pts [4]mgl32.Vec2
	for i, c := range unitCorners {
		w := model.Mul4x1(mgl32.Vec4{c.X(), c.Y(), 0, 1})
		pts[i] = mgl32.Vec2{w.X(), w.Y()}
	}
	return common.BoundsOf(pts[:]...)
}

func (s *sprite) Quad(viewProjection mgl32.Mat4) vertex.Quad {
	s.mu.Lock()
	defer s.mu.Unlock()

	mvp := viewProjection.Mul4(s.modelMatrix())
	var useTex uint32
	if s.texture != 0 {
		useTex = 1
	}
	uvs := [4]mgl32.Vec2{
		{s.uvMin.X(), s.uvMin.Y()},
		{s.uvMax.X(), s.uvMin.Y()},
		{s.uvMax.X(), s.uvMax.Y()},
		{s.uvMin.X(), s.uvMax.Y()},
	}

	var q vertex.Quad
	for i, c := range unitCorners {
		q[i] = vertex.TexturedVertex{
			DrawOrder:       s.drawOrder,
			MVP:             mvp,
			VertexPos:       mgl32.Vec3{c.X(), c.Y(), 0},
			DiffuseColor:    s.color,
			TintColor:       s.tint,
			ToUseDiffuseTex: useTex,
			DiffuseTexId:    uint32(s.texture),
			UV:              uvs[i],
			EntityId:        s.entityId,
			EntityVersion:   s.entityVersion,
			SceneId:         s.sceneId,
			SceneVersion:    s.sceneVersion,
		}
	}
	return q
}

func (s *sprite) Outline(viewProjection mgl32.Mat4, color mgl32.Vec4) vertex.DebugRectVertex {
	s.mu.Lock()
	defer s.mu.Unlock()

	center := mgl32.Vec2{
		s.position.X() + (0.5-s.pivot.X())*s.size.X(),
		s.position.Y() + (0.5-s.pivot.Y())*s.size.Y(),
	}
	return vertex.DebugRectVertex{
		MVP:       viewProjection,
		Offset:    center,
		RectSizes: s.size,
		Color:     color,
	}
}
