package common

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Bounds is an axis aligned rectangle in world units. Min holds the smaller corner.
type Bounds struct {
	Min mgl32.Vec2
	Max mgl32.Vec2
}

// BoundsOf returns the smallest Bounds containing every point.
//
// Parameters:
//   - points: the points, at least one
//
// Returns:
//   - Bounds: the enclosing rectangle
func BoundsOf(points ...mgl32.Vec2) Bounds {
	b := Bounds{
		Min: mgl32.Vec2{math.MaxFloat32, math.MaxFloat32},
		Max: mgl32.Vec2{-math.MaxFloat32, -math.MaxFloat32},
	}
	for _, p := range points {
		b.Min = mgl32.Vec2{min(b.Min.X(), p.X()), min(b.Min.Y(), p.Y())}
		b.Max = mgl32.Vec2{max(b.Max.X(), p.X()), max(b.Max.Y(), p.Y())}
	}
	return b
}

// ExtractViewBounds returns the world rectangle an orthographic view-projection matrix maps onto
// the [-1, 1] clip square.
//
// Parameters:
//   - viewProj: the combined projection * view matrix
//
// Returns:
//   - Bounds: the visible world rectangle, empty if the matrix is singular
func ExtractViewBounds(viewProj mgl32.Mat4) Bounds {
	if viewProj.Det() == 0 {
		return Bounds{}
	}
	inv := viewProj.Inv()
	corners := make([]mgl32.Vec2, 0, 4)
	for _, c := range [4]mgl32.Vec2{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}} {
		w := inv.Mul4x1(mgl32.Vec4{c.X(), c.Y(), 0, 1})
		corners = append(corners, mgl32.Vec2{w.X() / w.W(), w.Y() / w.W()})
	}
	return BoundsOf(corners...)
}

// Width returns the horizontal extent.
func (b Bounds) Width() float32 {
	return b.Max.X() - b.Min.X()
}

// Height returns the vertical extent.
func (b Bounds) Height() float32 {
	return b.Max.Y() - b.Min.Y()
}

// Contains reports whether p lies inside b, edges included.
//
// Parameters:
//   - p: the point
//
// Returns:
//   - bool: true if p is inside
func (b Bounds) Contains(p mgl32.Vec2) bool {
	return p.X() >= b.Min.X() && p.X() <= b.Max.X() && p.Y() >= b.Min.Y() && p.Y() <= b.Max.Y()
}

// Intersects reports whether b and o overlap. Touching edges count as overlap.
//
// Parameters:
//   - o: the other rectangle
//
// Returns:
//   - bool: true if the rectangles overlap
func (b Bounds) Intersects(o Bounds) bool {
	return b.Min.X() <= o.Max.X() && o.Min.X() <= b.Max.X() &&
		b.Min.Y() <= o.Max.Y() && o.Min.Y() <= b.Max.Y()
}
