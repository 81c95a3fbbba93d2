package common

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
)

func TestBoundsOfEnclosesPoints(t *testing.T) {
	b := BoundsOf(mgl32.Vec2{3, -1}, mgl32.Vec2{-2, 4}, mgl32.Vec2{0, 0})

	assert.Equal(t, mgl32.Vec2{-2, -1}, b.Min)
	assert.Equal(t, mgl32.Vec2{3, 4}, b.Max)
	assert.Equal(t, float32(5), b.Width())
	assert.Equal(t, float32(5), b.Height())
}

func TestBoundsContains(t *testing.T) {
	b := Bounds{Min: mgl32.Vec2{0, 0}, Max: mgl32.Vec2{10, 5}}

	assert.True(t, b.Contains(mgl32.Vec2{5, 2}))
	assert.True(t, b.Contains(mgl32.Vec2{10, 5}))
	assert.False(t, b.Contains(mgl32.Vec2{10.1, 5}))
	assert.False(t, b.Contains(mgl32.Vec2{-1, 2}))
}

func TestBoundsIntersects(t *testing.T) {
	b := Bounds{Min: mgl32.Vec2{0, 0}, Max: mgl32.Vec2{10, 10}}

	tests := []struct {
		name string
		o    Bounds
		want bool
	}{
		{"inside", Bounds{Min: mgl32.Vec2{2, 2}, Max: mgl32.Vec2{3, 3}}, true},
		{"overlapping", Bounds{Min: mgl32.Vec2{8, -4}, Max: mgl32.Vec2{12, 2}}, true},
		{"touching edge", Bounds{Min: mgl32.Vec2{10, 0}, Max: mgl32.Vec2{12, 2}}, true},
		{"left of", Bounds{Min: mgl32.Vec2{-5, 0}, Max: mgl32.Vec2{-1, 2}}, false},
		{"above", Bounds{Min: mgl32.Vec2{0, 11}, Max: mgl32.Vec2{2, 12}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, b.Intersects(tt.o))
			assert.Equal(t, tt.want, tt.o.Intersects(b))
		})
	}
}

func TestExtractViewBoundsOrtho(t *testing.T) {
	viewProj := mgl32.Ortho(-4, 4, -3, 3, -1, 1).Mul4(mgl32.Translate3D(-10, -20, 0))
	b := ExtractViewBounds(viewProj)

	assert.InDelta(t, 6, b.Min.X(), 1e-4)
	assert.InDelta(t, 17, b.Min.Y(), 1e-4)
	assert.InDelta(t, 14, b.Max.X(), 1e-4)
	assert.InDelta(t, 23, b.Max.Y(), 1e-4)
}

func TestExtractViewBoundsSingular(t *testing.T) {
	assert.Equal(t, Bounds{}, ExtractViewBounds(mgl32.Mat4{}))
}
