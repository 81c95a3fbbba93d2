package vertex

// Format identifies the shape of a single vertex attribute.
type Format int

const (
	// FormatUint32 is one unsigned 32-bit integer.
	FormatUint32 Format = iota

	// FormatFloat32x2 is two 32-bit floats.
	FormatFloat32x2

	// FormatFloat32x3 is three 32-bit floats.
	FormatFloat32x3

	// FormatFloat32x4 is four 32-bit floats.
	FormatFloat32x4

	// FormatMat4 is a column major 4x4 float matrix. Devices without matrix attributes spread it
	// across four consecutive Float32x4 locations.
	FormatMat4
)

// Size returns the byte size of an attribute of this format.
//
// Returns:
//   - uint32: size in bytes
func (f Format) Size() uint32 {
	switch f {
	case FormatUint32:
		return 4
	case FormatFloat32x2:
		return 8
	case FormatFloat32x3:
		return 12
	case FormatFloat32x4:
		return 16
	case FormatMat4:
		return 64
	default:
		return 0
	}
}

// Locations returns how many shader input locations the format occupies.
//
// Returns:
//   - uint32: location count
func (f Format) Locations() uint32 {
	if f == FormatMat4 {
		return 4
	}
	return 1
}

// Attribute is one named input of a vertex layout.
type Attribute struct {
	Name     string
	Location uint32
	Format   Format
	Offset   uint32
}

// Layout is the interleaved attribute layout of one vertex buffer.
type Layout struct {
	Stride     uint32
	Attributes []Attribute
}

// TexturedLayout is the attribute layout of TexturedVertex.
var TexturedLayout = newLayout(
	Attribute{Name: "a_drawOrder", Format: FormatUint32},
	Attribute{Name: "a_mvp", Format: FormatMat4},
	Attribute{Name: "a_vertexPos", Format: FormatFloat32x3},
	Attribute{Name: "a_diffuseColor", Format: FormatFloat32x4},
	Attribute{Name: "a_tintColor", Format: FormatFloat32x4},
	Attribute{Name: "a_toUseDiffuseTex", Format: FormatUint32},
	Attribute{Name: "a_diffuseTexId", Format: FormatUint32},
	Attribute{Name: "a_uv", Format: FormatFloat32x2},
	Attribute{Name: "a_entityId", Format: FormatUint32},
	Attribute{Name: "a_entityVersion", Format: FormatUint32},
	Attribute{Name: "a_sceneId", Format: FormatUint32},
	Attribute{Name: "a_sceneVersion", Format: FormatUint32},
)

// DebugRectLayout is the attribute layout of DebugRectVertex.
var DebugRectLayout = newLayout(
	Attribute{Name: "a_mvp", Format: FormatMat4},
	Attribute{Name: "a_offset", Format: FormatFloat32x2},
	Attribute{Name: "a_rectSizes", Format: FormatFloat32x2},
	Attribute{Name: "a_color", Format: FormatFloat32x4},
)

// newLayout packs attrs back to back, assigning offsets and shader locations in order.
func newLayout(attrs ...Attribute) Layout {
	var offset, location uint32
	for i := range attrs {
		attrs[i].Offset = offset
		attrs[i].Location = location
		offset += attrs[i].Format.Size()
		location += attrs[i].Format.Locations()
	}
	return Layout{Stride: offset, Attributes: attrs}
}
