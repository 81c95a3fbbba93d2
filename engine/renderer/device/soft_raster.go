package device

import (
	"math"

	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/vertex"
	"github.com/go-gl/mathgl/mgl32"
)

// alphaDiscard is the alpha below which textured fragments write neither color nor picking.
const alphaDiscard = 0.1

// triangle is a screen space triangle ready to fill. Positions are in pixels with y growing upward.
// Flat attributes come from the first vertex.
type triangle struct {
	p    [3]mgl32.Vec2
	uv   [3]mgl32.Vec2
	area float32

	// topLeft marks the edges (p[i] -> p[i+1]) that own pixel centers lying exactly on them.
	topLeft [3]bool

	minX, maxX, minY, maxY int

	flat    vertex.TexturedVertex
	picking [4]int32
}

// project maps a model space point through mvp into framebuffer pixels.
func project(mvp mgl32.Mat4, pos mgl32.Vec3, width, height int) (mgl32.Vec2, bool) {
	clip := mvp.Mul4x1(pos.Vec4(1))
	if clip.W() <= 0 {
		return mgl32.Vec2{}, false
	}
	ndc := clip.Vec3().Mul(1 / clip.W())
	return mgl32.Vec2{
		(ndc.X() + 1) * 0.5 * float32(width),
		(ndc.Y() + 1) * 0.5 * float32(height),
	}, true
}

func newTriangle(corners [3]vertex.TexturedVertex, target *softFramebuffer) (triangle, bool) {
	var t triangle
	for i, c := range corners {
		p, ok := project(c.MVP, c.VertexPos, target.width, target.height)
		if !ok {
			return t, false
		}
		t.p[i] = p
		t.uv[i] = c.UV
	}
	t.area = edge(t.p[0], t.p[1], t.p[2])
	if t.area == 0 {
		return t, false
	}
	if t.area < 0 {
		// wind counter clockwise so every interior edge value is positive
		t.p[1], t.p[2] = t.p[2], t.p[1]
		t.uv[1], t.uv[2] = t.uv[2], t.uv[1]
		t.area = -t.area
	}
	for i := range 3 {
		a, b := t.p[i], t.p[(i+1)%3]
		dy, dx := b.Y()-a.Y(), b.X()-a.X()
		t.topLeft[i] = dy < 0 || (dy == 0 && dx < 0)
	}

	minX := min(t.p[0].X(), t.p[1].X(), t.p[2].X())
	maxX := max(t.p[0].X(), t.p[1].X(), t.p[2].X())
	minY := min(t.p[0].Y(), t.p[1].Y(), t.p[2].Y())
	maxY := max(t.p[0].Y(), t.p[1].Y(), t.p[2].Y())
	t.minX = max(int(math.Floor(float64(minX))), 0)
	t.maxX = min(int(math.Ceil(float64(maxX))), target.width-1)
	t.minY = max(int(math.Floor(float64(minY))), 0)
	t.maxY = min(int(math.Ceil(float64(maxY))), target.height-1)
	if t.minX > t.maxX || t.minY > t.maxY {
		return t, false
	}

	t.flat = corners[0]
	t.picking = [4]int32{
		int32(t.flat.EntityId),
		int32(t.flat.EntityVersion),
		int32(t.flat.SceneId),
		int32(t.flat.SceneVersion),
	}
	return t, true
}

// edge is twice the signed area of (a, b, p); positive when p is left of a -> b.
func edge(a, b, p mgl32.Vec2) float32 {
	return (b.X()-a.X())*(p.Y()-a.Y()) - (b.Y()-a.Y())*(p.X()-a.X())
}

// rasterTriangle fills the rows [y0, y1) of t into fb.
func rasterTriangle(fb *softFramebuffer, t *triangle, samplers []*softTexture, blending bool, y0, y1 int) {
	rowMin, rowMax := max(t.minY, y0), min(t.maxY, y1-1)
	for y := rowMin; y <= rowMax; y++ {
		for x := t.minX; x <= t.maxX; x++ {
			p := mgl32.Vec2{float32(x) + 0.5, float32(y) + 0.5}
			var w [3]float32
			inside := true
			for i := range 3 {
				// w[i] weighs the vertex opposite edge i+1 -> i+2
				e := (i + 1) % 3
				w[i] = edge(t.p[e], t.p[(e+1)%3], p)
				if w[i] < 0 || (w[i] == 0 && !t.topLeft[e]) {
					inside = false
					break
				}
			}
			if !inside {
				continue
			}
			uv := t.uv[0].Mul(w[0] / t.area).Add(t.uv[1].Mul(w[1] / t.area)).Add(t.uv[2].Mul(w[2] / t.area))
			shadeFragment(fb, x, y, t, uv, samplers, blending)
		}
	}
}

func shadeFragment(fb *softFramebuffer, x, y int, t *triangle, uv mgl32.Vec2, samplers []*softTexture, blending bool) {
	var c mgl32.Vec4
	if t.flat.ToUseDiffuseTex == 1 {
		var tex *softTexture
		if int(t.flat.DiffuseTexId) < len(samplers) {
			tex = samplers[t.flat.DiffuseTexId]
		}
		c = mulComponents(sample(tex, uv), t.flat.TintColor)
	} else {
		c = mulComponents(t.flat.DiffuseColor, t.flat.TintColor)
	}
	if c.W() < alphaDiscard {
		return
	}
	row := fb.height - 1 - y
	writeColor(fb, x, row, c, blending)
	fb.picking[row*fb.width+x] = t.picking
}

func mulComponents(a, b mgl32.Vec4) mgl32.Vec4 {
	return mgl32.Vec4{a[0] * b[0], a[1] * b[1], a[2] * b[2], a[3] * b[3]}
}

// sample reads tex at uv with clamp to edge addressing. A missing texture samples opaque black.
func sample(tex *softTexture, uv mgl32.Vec2) mgl32.Vec4 {
	if tex == nil || tex.img == nil || tex.img.Rect.Empty() {
		return mgl32.Vec4{0, 0, 0, 1}
	}
	w, h := tex.img.Rect.Dx(), tex.img.Rect.Dy()
	u := clamp01(uv.X()) * float32(w)
	v := clamp01(uv.Y()) * float32(h)
	if tex.filter == FilterNearest {
		return texel(tex, int(u), int(v))
	}

	u, v = u-0.5, v-0.5
	x0, y0 := int(math.Floor(float64(u))), int(math.Floor(float64(v)))
	fx, fy := u-float32(x0), v-float32(y0)
	top := texel(tex, x0, y0+1).Mul(1 - fx).Add(texel(tex, x0+1, y0+1).Mul(fx))
	bottom := texel(tex, x0, y0).Mul(1 - fx).Add(texel(tex, x0+1, y0).Mul(fx))
	return bottom.Mul(1 - fy).Add(top.Mul(fy))
}

// texel returns the texel at column x and row y counted from the bottom, clamped to the image.
func texel(tex *softTexture, x, y int) mgl32.Vec4 {
	w, h := tex.img.Rect.Dx(), tex.img.Rect.Dy()
	x = max(0, min(x, w-1))
	y = max(0, min(y, h-1))
	i := tex.img.PixOffset(x, h-1-y)
	p := tex.img.Pix[i : i+4]
	return mgl32.Vec4{float32(p[0]) / 255, float32(p[1]) / 255, float32(p[2]) / 255, float32(p[3]) / 255}
}

// writeColor stores c at (x, row) where row counts from the top. With blending the color channels use
// SRC_ALPHA / ONE_MINUS_SRC_ALPHA and alpha uses ONE / ONE.
func writeColor(fb *softFramebuffer, x, row int, c mgl32.Vec4, blending bool) {
	i := fb.color.PixOffset(x, row)
	p := fb.color.Pix[i : i+4]
	if blending {
		a := clamp01(c.W())
		for k := range 3 {
			dst := float32(p[k]) / 255
			p[k] = toUnorm8(c[k]*a + dst*(1-a))
		}
		p[3] = toUnorm8(c.W() + float32(p[3])/255)
		return
	}
	for k := range 4 {
		p[k] = toUnorm8(c[k])
	}
}

// lineLoop is a debug rectangle projected to pixels.
type lineLoop struct {
	corners [4]mgl32.Vec2
	color   mgl32.Vec4
	visible bool
}

func newLineLoop(r *vertex.DebugRectVertex, target *softFramebuffer) lineLoop {
	l := lineLoop{color: r.Color, visible: true}
	for i, c := range r.Corners() {
		p, ok := project(r.MVP, c.Vec3(0), target.width, target.height)
		if !ok {
			l.visible = false
			return l
		}
		l.corners[i] = p
	}
	return l
}

// rasterLineLoop draws the four edges of l into the rows [y0, y1) of fb. Lines only touch color.
func rasterLineLoop(fb *softFramebuffer, l *lineLoop, blending bool, y0, y1 int) {
	if !l.visible {
		return
	}
	for i := range 4 {
		a, b := l.corners[i], l.corners[(i+1)%4]
		dx, dy := b.X()-a.X(), b.Y()-a.Y()
		steps := int(math.Ceil(float64(max(abs32(dx), abs32(dy)))))
		if steps == 0 {
			steps = 1
		}
		for s := 0; s <= steps; s++ {
			f := float32(s) / float32(steps)
			x := int(math.Floor(float64(a.X() + dx*f)))
			y := int(math.Floor(float64(a.Y() + dy*f)))
			if x < 0 || x >= fb.width || y < y0 || y >= y1 || y >= fb.height {
				continue
			}
			writeColor(fb, x, fb.height-1-y, l.color, blending)
		}
	}
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}

func clamp01(v float32) float32 {
	return max(0, min(v, 1))
}

func toUnorm8(v float32) uint8 {
	return uint8(clamp01(v)*255 + 0.5)
}
