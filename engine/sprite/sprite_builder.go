package sprite

import (
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/device"
	"github.com/go-gl/mathgl/mgl32"
)

// SpriteBuilderOption is a functional option for configuring a Sprite during construction.
type SpriteBuilderOption func(*sprite)

// WithPosition sets the world position of the sprite pivot.
//
// Parameters:
//   - pos: the position
//
// Returns:
//   - SpriteBuilderOption: functional option to set the position
func WithPosition(pos mgl32.Vec3) SpriteBuilderOption {
	return func(s *sprite) {
		s.position = pos
	}
}

// WithSize sets the width and height in world units.
//
// Parameters:
//   - size: the size
//
// Returns:
//   - SpriteBuilderOption: functional option to set the size
func WithSize(size mgl32.Vec2) SpriteBuilderOption {
	return func(s *sprite) {
		s.size = size
	}
}

// WithRotation sets the counter clockwise rotation in radians.
//
// Parameters:
//   - radians: the angle
//
// Returns:
//   - SpriteBuilderOption: functional option to set the rotation
func WithRotation(radians float32) SpriteBuilderOption {
	return func(s *sprite) {
		s.rotation = radians
	}
}

// WithPivot sets the point the sprite rotates around and is positioned by, as a fraction of its
// size. {0, 0} is the bottom-left corner.
//
// Parameters:
//   - pivot: the pivot
//
// Returns:
//   - SpriteBuilderOption: functional option to set the pivot
func WithPivot(pivot mgl32.Vec2) SpriteBuilderOption {
	return func(s *sprite) {
		s.pivot = pivot
	}
}

// WithDrawOrder sets the paint order key.
//
// Parameters:
//   - order: the key
//
// Returns:
//   - SpriteBuilderOption: functional option to set the draw order
func WithDrawOrder(order uint32) SpriteBuilderOption {
	return func(s *sprite) {
		s.drawOrder = order
	}
}

// WithTexture sets the sampled texture.
//
// Parameters:
//   - tex: the texture handle, zero for none
//
// Returns:
//   - SpriteBuilderOption: functional option to set the texture
func WithTexture(tex device.TextureHandle) SpriteBuilderOption {
	return func(s *sprite) {
		s.texture = tex
	}
}

// WithUVRect samples a sub rectangle of the texture, for atlases. UV {0, 0} is the bottom-left
// of the image.
//
// Parameters:
//   - min: bottom-left UV
//   - max: top-right UV
//
// Returns:
//   - SpriteBuilderOption: functional option to set the UV rectangle
func WithUVRect(min, max mgl32.Vec2) SpriteBuilderOption {
	return func(s *sprite) {
		s.uvMin, s.uvMax = min, max
	}
}

// WithColor sets the flat color used without a texture.
//
// Parameters:
//   - c: RGBA in [0, 1]
//
// Returns:
//   - SpriteBuilderOption: functional option to set the color
func WithColor(c mgl32.Vec4) SpriteBuilderOption {
	return func(s *sprite) {
		s.color = c
	}
}

// WithTint sets the color multiplied into the final color.
//
// Parameters:
//   - c: RGBA in [0, 1]
//
// Returns:
//   - SpriteBuilderOption: functional option to set the tint
func WithTint(c mgl32.Vec4) SpriteBuilderOption {
	return func(s *sprite) {
		s.tint = c
	}
}

// WithIdentity sets the picking payload.
//
// Parameters:
//   - entityId, entityVersion, sceneId, sceneVersion: the four picking channels
//
// Returns:
//   - SpriteBuilderOption: functional option to set the identity
func WithIdentity(entityId, entityVersion, sceneId, sceneVersion uint32) SpriteBuilderOption {
	return func(s *sprite) {
		s.entityId = entityId
		s.entityVersion = entityVersion
		s.sceneId = sceneId
		s.sceneVersion = sceneVersion
	}
}

// WithEnabled sets whether the sprite should be submitted.
//
// Parameters:
//   - enabled: true to enable
//
// Returns:
//   - SpriteBuilderOption: functional option to set the Enabled state
func WithEnabled(enabled bool) SpriteBuilderOption {
	return func(s *sprite) {
		s.enabled.Store(enabled)
	}
}
