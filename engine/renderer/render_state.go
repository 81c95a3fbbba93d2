package renderer

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/draw_order"
)

// PrimitiveKind names a primitive family that is drawn in draw order.
type PrimitiveKind uint8

const (
	// PrimitiveTexturedQuad is drawn by the textured quad batch.
	PrimitiveTexturedQuad PrimitiveKind = iota

	primitiveKindCount
)

func (k PrimitiveKind) String() string {
	switch k {
	case PrimitiveTexturedQuad:
		return "textured-quad"
	default:
		return fmt.Sprintf("primitive(%d)", uint8(k))
	}
}

// RenderStateIndicator records which primitive families have objects at one draw order in the
// current frame. The renderer keeps at most one per draw order per frame.
type RenderStateIndicator struct {
	DrawOrder uint32

	// Kinds holds PrimitiveKind values.
	Kinds draw_order.SparseSet[uint8]
}

// reset points the indicator at drawOrder with no kinds, reusing its set.
func (s *RenderStateIndicator) reset(drawOrder uint32) {
	s.DrawOrder = drawOrder
	if s.Kinds == nil {
		s.Kinds = draw_order.NewSparseSet[uint8](int(primitiveKindCount))
		return
	}
	s.Kinds.Clear()
}

// Has reports whether kind is present at the indicator's draw order.
//
// Parameters:
//   - kind: the primitive family
//
// Returns:
//   - bool: true if an object of kind was submitted at this draw order
func (s *RenderStateIndicator) Has(kind PrimitiveKind) bool {
	return s.Kinds != nil && s.Kinds.Exists(uint8(kind))
}
