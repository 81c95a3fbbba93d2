package vertex

import (
	"encoding/binary"
	"math"
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
)

// TexturedVertexSize is the byte size of one TexturedVertex on the GPU.
const TexturedVertexSize = 144

// DebugRectVertexSize is the byte size of one DebugRectVertex on the GPU.
const DebugRectVertexSize = 96

// NoEntity is the picking value written where no object was drawn.
const NoEntity int32 = -1

// TexturedVertex is one corner of a textured quad. Every field is 4 bytes wide so the Go layout
// matches the GPU attribute layout with no padding.
// Size: 144 bytes.
type TexturedVertex struct {
	DrawOrder       uint32     // offset   0: paint order key, only read from the first vertex of a quad
	MVP             mgl32.Mat4 // offset   4: model-view-projection, column major
	VertexPos       mgl32.Vec3 // offset  68: model space position
	DiffuseColor    mgl32.Vec4 // offset  80: flat color used when no texture is sampled
	TintColor       mgl32.Vec4 // offset  96: multiplied into the final color
	ToUseDiffuseTex uint32     // offset 112: 1 samples DiffuseTexId, 0 uses DiffuseColor
	DiffuseTexId    uint32     // offset 116: texture handle on submit, texture slot once batched
	UV              mgl32.Vec2 // offset 120: texture coordinate
	EntityId        uint32     // offset 128: picking payload
	EntityVersion   uint32     // offset 132
	SceneId         uint32     // offset 136
	SceneVersion    uint32     // offset 140
}

// Quad is the four vertices of one textured object in bottom-left, bottom-right, top-right,
// top-left order.
type Quad [4]TexturedVertex

// QuadIndices are the two triangles of a quad relative to its first vertex.
var QuadIndices = [6]uint32{0, 1, 2, 2, 3, 0}

// Size returns the size of the TexturedVertex struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes.
func (v *TexturedVertex) Size() int {
	return int(unsafe.Sizeof(*v))
}

// Marshal serializes the vertex into a little endian byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 144-byte buffer ready for GPU upload.
func (v *TexturedVertex) Marshal() []byte {
	buf := make([]byte, TexturedVertexSize)
	v.MarshalTo(buf)
	return buf
}

// MarshalTo serializes the vertex into buf, which must hold at least TexturedVertexSize bytes.
//
// Parameters:
//   - buf: destination buffer
func (v *TexturedVertex) MarshalTo(buf []byte) {
	w := writer{buf: buf}
	w.u32(v.DrawOrder)
	w.f32s(v.MVP[:])
	w.f32s(v.VertexPos[:])
	w.f32s(v.DiffuseColor[:])
	w.f32s(v.TintColor[:])
	w.u32(v.ToUseDiffuseTex)
	w.u32(v.DiffuseTexId)
	w.f32s(v.UV[:])
	w.u32(v.EntityId)
	w.u32(v.EntityVersion)
	w.u32(v.SceneId)
	w.u32(v.SceneVersion)
}

// UnmarshalTexturedVertex decodes a vertex previously written by MarshalTo.
//
// Parameters:
//   - buf: at least TexturedVertexSize bytes
//
// Returns:
//   - TexturedVertex: the decoded vertex
func UnmarshalTexturedVertex(buf []byte) TexturedVertex {
	var v TexturedVertex
	r := reader{buf: buf}
	v.DrawOrder = r.u32()
	r.f32s(v.MVP[:])
	r.f32s(v.VertexPos[:])
	r.f32s(v.DiffuseColor[:])
	r.f32s(v.TintColor[:])
	v.ToUseDiffuseTex = r.u32()
	v.DiffuseTexId = r.u32()
	r.f32s(v.UV[:])
	v.EntityId = r.u32()
	v.EntityVersion = r.u32()
	v.SceneId = r.u32()
	v.SceneVersion = r.u32()
	return v
}

// DebugRectVertex describes one outlined rectangle. The device expands the single vertex into a
// closed loop through the four corners offset ± RectSizes/2.
// Size: 96 bytes.
type DebugRectVertex struct {
	MVP       mgl32.Mat4 // offset  0
	Offset    mgl32.Vec2 // offset 64: rectangle center in model space
	RectSizes mgl32.Vec2 // offset 72: full width and height
	Color     mgl32.Vec4 // offset 80
}

// Size returns the size of the DebugRectVertex struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes.
func (v *DebugRectVertex) Size() int {
	return int(unsafe.Sizeof(*v))
}

// MarshalTo serializes the vertex into buf, which must hold at least DebugRectVertexSize bytes.
//
// Parameters:
//   - buf: destination buffer
func (v *DebugRectVertex) MarshalTo(buf []byte) {
	w := writer{buf: buf}
	w.f32s(v.MVP[:])
	w.f32s(v.Offset[:])
	w.f32s(v.RectSizes[:])
	w.f32s(v.Color[:])
}

// UnmarshalDebugRectVertex decodes a vertex previously written by MarshalTo.
//
// Parameters:
//   - buf: at least DebugRectVertexSize bytes
//
// Returns:
//   - DebugRectVertex: the decoded vertex
func UnmarshalDebugRectVertex(buf []byte) DebugRectVertex {
	var v DebugRectVertex
	r := reader{buf: buf}
	r.f32s(v.MVP[:])
	r.f32s(v.Offset[:])
	r.f32s(v.RectSizes[:])
	r.f32s(v.Color[:])
	return v
}

// Corners returns the model space corners of the rectangle in loop order starting bottom-left.
//
// Returns:
//   - [4]mgl32.Vec2: bottom-left, bottom-right, top-right, top-left
func (v *DebugRectVertex) Corners() [4]mgl32.Vec2 {
	hw, hh := v.RectSizes.X()/2, v.RectSizes.Y()/2
	x, y := v.Offset.X(), v.Offset.Y()
	return [4]mgl32.Vec2{
		{x - hw, y - hh},
		{x + hw, y - hh},
		{x + hw, y + hh},
		{x - hw, y + hh},
	}
}

type writer struct {
	buf []byte
	off int
}

func (w *writer) u32(v uint32) {
	binary.LittleEndian.PutUint32(w.buf[w.off:w.off+4], v)
	w.off += 4
}

func (w *writer) f32s(vs []float32) {
	for _, f := range vs {
		w.u32(math.Float32bits(f))
	}
}

type reader struct {
	buf []byte
	off int
}

func (r *reader) u32() uint32 {
	v := binary.LittleEndian.Uint32(r.buf[r.off : r.off+4])
	r.off += 4
	return v
}

func (r *reader) f32s(dst []float32) {
	for i := range dst {
		dst[i] = math.Float32frombits(r.u32())
	}
}
