package sprite

import (
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/device"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func corner(v mgl32.Vec3, mvp mgl32.Mat4) mgl32.Vec2 {
	p := mvp.Mul4x1(v.Vec4(1))
	return mgl32.Vec2{p.X(), p.Y()}
}

func assertVec2(t *testing.T, want, got mgl32.Vec2) {
	t.Helper()
	assert.InDelta(t, want.X(), got.X(), 1e-4)
	assert.InDelta(t, want.Y(), got.Y(), 1e-4)
}

func TestQuadCornersInOrder(t *testing.T) {
	s := NewSprite(WithPosition(mgl32.Vec3{10, 20, 0}), WithSize(mgl32.Vec2{4, 2}))
	q := s.Quad(mgl32.Ident4())

	want := []mgl32.Vec2{{8, 19}, {12, 19}, {12, 21}, {8, 21}}
	for i := range q {
		assertVec2(t, want[i], corner(q[i].VertexPos, q[i].MVP))
	}
}

func TestQuadRotatesAroundPivot(t *testing.T) {
	s := NewSprite(
		WithPosition(mgl32.Vec3{10, 20, 0}),
		WithSize(mgl32.Vec2{4, 2}),
		WithRotation(math.Pi/2),
	)
	q := s.Quad(mgl32.Ident4())

	assertVec2(t, mgl32.Vec2{11, 18}, corner(q[0].VertexPos, q[0].MVP))
	assertVec2(t, mgl32.Vec2{9, 22}, corner(q[2].VertexPos, q[2].MVP))
}

func TestQuadAppliesViewProjection(t *testing.T) {
	vp := mgl32.Scale3D(0.5, 0.5, 1)
	s := NewSprite(WithPivot(mgl32.Vec2{0, 0}), WithSize(mgl32.Vec2{2, 2}))
	q := s.Quad(vp)
	assertVec2(t, mgl32.Vec2{1, 1}, corner(q[2].VertexPos, q[2].MVP))
}

func TestQuadCarriesAttributes(t *testing.T) {
	s := NewSprite(
		WithDrawOrder(7),
		WithTexture(device.TextureHandle(42)),
		WithTint(mgl32.Vec4{1, 0, 0, 1}),
		WithIdentity(7, 2, 3, 1),
		WithUVRect(mgl32.Vec2{0.25, 0.5}, mgl32.Vec2{0.5, 1}),
	)
	q := s.Quad(mgl32.Ident4())

	for _, v := range q {
		assert.Equal(t, uint32(7), v.DrawOrder)
		assert.Equal(t, uint32(1), v.ToUseDiffuseTex)
		assert.Equal(t, uint32(42), v.DiffuseTexId)
		assert.Equal(t, mgl32.Vec4{1, 0, 0, 1}, v.TintColor)
		assert.Equal(t, []uint32{7, 2, 3, 1}, []uint32{v.EntityId, v.EntityVersion, v.SceneId, v.SceneVersion})
	}
	assert.Equal(t, mgl32.Vec2{0.25, 0.5}, q[0].UV)
	assert.Equal(t, mgl32.Vec2{0.5, 0.5}, q[1].UV)
	assert.Equal(t, mgl32.Vec2{0.5, 1}, q[2].UV)
	assert.Equal(t, mgl32.Vec2{0.25, 1}, q[3].UV)
}

func TestQuadWithoutTextureUsesColor(t *testing.T) {
	s := NewSprite(WithColor(mgl32.Vec4{0, 0, 1, 1}))
	s.SetTexture(5)
	s.SetTexture(0)
	q := s.Quad(mgl32.Ident4())

	require.Equal(t, uint32(0), q[0].ToUseDiffuseTex)
	assert.Equal(t, mgl32.Vec4{0, 0, 1, 1}, q[0].DiffuseColor)
}

func TestOutlineCoversBounds(t *testing.T) {
	s := NewSprite(
		WithPosition(mgl32.Vec3{2, 2, 0}),
		WithSize(mgl32.Vec2{4, 6}),
		WithPivot(mgl32.Vec2{0, 0}),
	)
	r := s.Outline(mgl32.Ident4(), mgl32.Vec4{0, 1, 0, 1})

	assert.Equal(t, mgl32.Vec2{4, 5}, r.Offset)
	assert.Equal(t, mgl32.Vec2{4, 6}, r.RectSizes)
	assert.Equal(t, mgl32.Vec4{0, 1, 0, 1}, r.Color)
}

func TestEnabledToggle(t *testing.T) {
	s := NewSprite(WithEnabled(false))
	assert.False(t, s.Enabled())
	s.SetEnabled(true)
	assert.True(t, s.Enabled())
}

func TestBoundsIncludesRotation(t *testing.T) {
	s := NewSprite(WithPosition(mgl32.Vec3{10, 20, 0}), WithSize(mgl32.Vec2{4, 2}))
	b := s.Bounds()
	assertVec2(t, mgl32.Vec2{8, 19}, b.Min)
	assertVec2(t, mgl32.Vec2{12, 21}, b.Max)

	s.SetRotation(math.Pi / 2)
	b = s.Bounds()
	assertVec2(t, mgl32.Vec2{9, 18}, b.Min)
	assertVec2(t, mgl32.Vec2{11, 22}, b.Max)
}
