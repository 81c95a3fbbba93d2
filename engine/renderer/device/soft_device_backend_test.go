package device

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/vertex"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type softFixture struct {
	dev      SoftDevice
	fb       FramebufferHandle
	quads    PipelineHandle
	rects    PipelineHandle
	vertices BufferHandle
	indices  BufferHandle
	rectBuf  BufferHandle
}

func newSoftFixture(t *testing.T, width, height int, options ...SoftDeviceBuilderOption) *softFixture {
	t.Helper()
	f := &softFixture{dev: NewSoftDevice(options...)}
	require.NoError(t, f.dev.Setup())
	t.Cleanup(f.dev.Release)

	var err error
	f.fb, err = f.dev.CreateFramebuffer("target")
	require.NoError(t, err)
	require.NoError(t, f.dev.ResizeFramebuffer(f.fb, width, height))
	f.dev.BindFramebuffer(f.fb)
	f.dev.ClearFramebuffer(f.fb, [4]float32{0, 0, 0, 1})

	f.quads, err = f.dev.CreatePipeline(PipelineDescriptor{Kind: PipelineTexturedQuad, Layout: vertex.TexturedLayout})
	require.NoError(t, err)
	f.rects, err = f.dev.CreatePipeline(PipelineDescriptor{Kind: PipelineDebugRect, Layout: vertex.DebugRectLayout})
	require.NoError(t, err)
	f.vertices, err = f.dev.CreateVertexBuffer("quads", vertex.TexturedLayout, 64)
	require.NoError(t, err)
	f.indices, err = f.dev.CreateIndexBuffer("quads", 96)
	require.NoError(t, err)
	f.rectBuf, err = f.dev.CreateVertexBuffer("rects", vertex.DebugRectLayout, 8)
	require.NoError(t, err)
	return f
}

// ndcQuad covers [x0,x1] x [y0,y1] in normalized device coordinates.
func ndcQuad(x0, y0, x1, y1 float32, c mgl32.Vec4, entity uint32) vertex.Quad {
	corners := [4]mgl32.Vec3{{x0, y0, 0}, {x1, y0, 0}, {x1, y1, 0}, {x0, y1, 0}}
	uvs := [4]mgl32.Vec2{{0, 0}, {1, 0}, {1, 1}, {0, 1}}
	var q vertex.Quad
	for i := range q {
		q[i] = vertex.TexturedVertex{
			MVP:           mgl32.Ident4(),
			VertexPos:     corners[i],
			DiffuseColor:  c,
			TintColor:     mgl32.Vec4{1, 1, 1, 1},
			UV:            uvs[i],
			EntityId:      entity,
			EntityVersion: 1,
		}
	}
	return q
}

func (f *softFixture) drawQuads(textures []TextureHandle, quads ...vertex.Quad) {
	buf := make([]byte, 0, len(quads)*4*vertex.TexturedVertexSize)
	idx := make([]uint32, 0, len(quads)*6)
	for n, q := range quads {
		for i := range q {
			buf = append(buf, q[i].Marshal()...)
		}
		for _, i := range vertex.QuadIndices {
			idx = append(idx, uint32(n*4)+i)
		}
	}
	f.dev.WriteVertices(f.vertices, 0, buf)
	f.dev.WriteIndices(f.indices, 0, idx)
	f.dev.DrawIndexed(DrawCommand{
		Pipeline:     f.quads,
		VertexBuffer: f.vertices,
		IndexBuffer:  f.indices,
		Textures:     textures,
		Count:        len(idx),
	})
}

func TestSoftDeviceFillsQuadAndPicking(t *testing.T) {
	f := newSoftFixture(t, 8, 8, WithWorkers(1))
	// left half of the target
	f.drawQuads(nil, ndcQuad(-1, -1, 0, 1, mgl32.Vec4{1, 0, 0, 1}, 7))

	assert.Equal(t, [4]int32{7, 1, 0, 0}, f.dev.ReadPickingPixel(f.fb, 0, 0))
	assert.Equal(t, [4]int32{7, 1, 0, 0}, f.dev.ReadPickingPixel(f.fb, 3, 7))
	assert.Equal(t, PickingClearValue, f.dev.ReadPickingPixel(f.fb, 4, 4))
	assert.Equal(t, PickingClearValue, f.dev.ReadPickingPixel(f.fb, -1, 0))
	assert.Equal(t, PickingClearValue, f.dev.ReadPickingPixel(f.fb, 0, 8))

	img, err := f.dev.ReadColor(f.fb)
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{255, 0, 0, 255}, img.RGBAAt(1, 1))
	assert.Equal(t, color.RGBA{0, 0, 0, 255}, img.RGBAAt(6, 1))
}

func TestSoftDeviceDiscardsTransparentFragments(t *testing.T) {
	f := newSoftFixture(t, 4, 4, WithWorkers(1))
	f.drawQuads(nil, ndcQuad(-1, -1, 1, 1, mgl32.Vec4{1, 1, 1, 0.05}, 9))

	assert.Equal(t, PickingClearValue, f.dev.ReadPickingPixel(f.fb, 2, 2))
	img, err := f.dev.ReadColor(f.fb)
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{0, 0, 0, 255}, img.RGBAAt(2, 2))
}

func TestSoftDeviceBlendsEveryPixelOnce(t *testing.T) {
	f := newSoftFixture(t, 16, 16, WithWorkers(1))
	f.dev.SetBlending(true)
	f.drawQuads(nil, ndcQuad(-1, -1, 1, 1, mgl32.Vec4{1, 1, 1, 0.5}, 1))

	img, err := f.dev.ReadColor(f.fb)
	require.NoError(t, err)
	want := img.RGBAAt(0, 0)
	assert.InDelta(t, 128, int(want.R), 1)
	// pixels on the shared diagonal must not be blended twice
	for i := range 16 {
		assert.Equal(t, want, img.RGBAAt(i, 15-i), "diagonal pixel %d", i)
		assert.Equal(t, want, img.RGBAAt(i, i), "anti-diagonal pixel %d", i)
	}
}

func TestSoftDeviceSamplesTextureBottomUp(t *testing.T) {
	f := newSoftFixture(t, 2, 2, WithWorkers(1))

	src := image.NewRGBA(image.Rect(0, 0, 1, 2))
	src.SetRGBA(0, 0, color.RGBA{0, 0, 255, 255}) // top row
	src.SetRGBA(0, 1, color.RGBA{0, 255, 0, 255}) // bottom row
	tex, err := f.dev.CreateTexture(src, FilterNearest)
	require.NoError(t, err)

	q := ndcQuad(-1, -1, 1, 1, mgl32.Vec4{}, 3)
	for i := range q {
		q[i].ToUseDiffuseTex = 1
		q[i].DiffuseTexId = 0
	}
	f.drawQuads([]TextureHandle{tex}, q)

	img, err := f.dev.ReadColor(f.fb)
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{0, 0, 255, 255}, img.RGBAAt(0, 0))
	assert.Equal(t, color.RGBA{0, 255, 0, 255}, img.RGBAAt(0, 1))
}

func TestSoftDeviceDebugRectTouchesColorOnly(t *testing.T) {
	f := newSoftFixture(t, 10, 10, WithWorkers(1))
	r := vertex.DebugRectVertex{
		MVP:       mgl32.Ident4(),
		RectSizes: mgl32.Vec2{1, 1},
		Color:     mgl32.Vec4{0, 1, 0, 1},
	}
	buf := make([]byte, vertex.DebugRectVertexSize)
	r.MarshalTo(buf)
	f.dev.WriteVertices(f.rectBuf, 0, buf)
	f.dev.Draw(DrawCommand{Pipeline: f.rects, VertexBuffer: f.rectBuf, Count: 1})

	img, err := f.dev.ReadColor(f.fb)
	require.NoError(t, err)
	// corner (-0.5,-0.5) lands on pixel (2, 2) from the bottom, row 7 from the top
	assert.Equal(t, color.RGBA{0, 255, 0, 255}, img.RGBAAt(2, 7))
	assert.Equal(t, color.RGBA{0, 0, 0, 255}, img.RGBAAt(5, 5))
	assert.Equal(t, PickingClearValue, f.dev.ReadPickingPixel(f.fb, 2, 2))

	calls := f.dev.DrawCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, PipelineDebugRect, calls[0].Kind)
}

func TestSoftDeviceBandsMatchInline(t *testing.T) {
	draw := func(options ...SoftDeviceBuilderOption) *image.RGBA {
		f := newSoftFixture(t, 96, 80, options...)
		f.dev.SetBlending(true)
		f.drawQuads(nil,
			ndcQuad(-0.9, -0.7, 0.3, 0.8, mgl32.Vec4{1, 0, 0, 0.6}, 1),
			ndcQuad(-0.2, -0.9, 0.9, 0.2, mgl32.Vec4{0, 0, 1, 0.7}, 2),
		)
		img, err := f.dev.ReadColor(f.fb)
		require.NoError(t, err)
		return img
	}
	inline := draw(WithWorkers(1))
	banded := draw(WithWorkers(4), WithMinParallelRows(1))
	assert.Equal(t, inline.Pix, banded.Pix)
}

func TestSoftDeviceRecordsDrawnObjects(t *testing.T) {
	f := newSoftFixture(t, 4, 4, WithWorkers(1))
	a := ndcQuad(-1, -1, 0, 0, mgl32.Vec4{1, 1, 1, 1}, 4)
	b := ndcQuad(0, 0, 1, 1, mgl32.Vec4{1, 1, 1, 1}, 5)
	for i := range b {
		b[i].DrawOrder = 2
		b[i].ToUseDiffuseTex = 1
		b[i].DiffuseTexId = 1
	}
	f.drawQuads([]TextureHandle{11, 12}, a, b)

	calls := f.dev.DrawCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, []DrawnObject{
		{DrawOrder: 0, EntityId: 4},
		{DrawOrder: 2, EntityId: 5, Slot: 1, Texture: 12},
	}, calls[0].Objects)

	f.dev.ResetDrawCalls()
	assert.Empty(t, f.dev.DrawCalls())
}

func TestSoftDeviceContractViolationsPanicWithDeviceError(t *testing.T) {
	f := newSoftFixture(t, 4, 4, WithWorkers(1))

	defer func() {
		r := recover()
		require.NotNil(t, r)
		err, ok := r.(error)
		require.True(t, ok)
		assert.True(t, errors.Is(err, ErrInvalidValue))
	}()
	f.dev.WriteIndices(f.indices, 90, make([]uint32, 12))
}

func TestCreatePipelineRejectsMismatchedLayout(t *testing.T) {
	dev := NewSoftDevice(WithWorkers(1))
	_, err := dev.CreatePipeline(PipelineDescriptor{Kind: PipelineTexturedQuad, Layout: vertex.DebugRectLayout})
	assert.ErrorIs(t, err, ErrInvalidValue)
}
