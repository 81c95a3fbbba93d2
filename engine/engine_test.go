package engine

import (
	"image/color"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-frame/common"
	"github.com/Carmen-Shannon/oxy-frame/engine/config"
	"github.com/Carmen-Shannon/oxy-frame/engine/log"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer"
	"github.com/Carmen-Shannon/oxy-frame/engine/sprite"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func headlessConfig() config.Config {
	cfg := config.Default()
	cfg.Backend = "soft"
	cfg.Headless = true
	cfg.Window.Width = 64
	cfg.Window.Height = 64
	cfg.Soft.Workers = 1
	return cfg
}

func newHeadlessEngine(t *testing.T, options ...EngineBuilderOption) Engine {
	t.Helper()
	options = append([]EngineBuilderOption{
		WithConfig(headlessConfig()),
		WithLogger(log.NewWriter(io.Discard, slog.LevelError)),
	}, options...)
	e, err := NewEngine(options...)
	require.NoError(t, err)
	t.Cleanup(e.Close)
	return e
}

func TestHeadlessEngineRendersAndPicks(t *testing.T) {
	e := newHeadlessEngine(t)
	assert.Nil(t, e.Window())

	s := sprite.NewSprite(
		sprite.WithSize(mgl32.Vec2{16, 16}),
		sprite.WithColor(mgl32.Vec4{1, 0, 0, 1}),
		sprite.WithIdentity(7, 2, 3, 1),
	)
	var frames []uint64
	e.SetFrameCallback(func(ctx FrameContext) {
		frames = append(frames, ctx.Frame)
		assert.Equal(t, 64, ctx.Width)
		assert.Equal(t, 64, ctx.Height)
		ctx.Renderer.SubmitTexturedQuad(s.Quad(ctx.Camera.ViewProjectionMatrix()))
	})

	require.NoError(t, e.RunFrames(3))
	assert.Equal(t, []uint64{0, 1, 2}, frames)

	got, ok := e.Pick(32, 32)
	require.True(t, ok)
	assert.Equal(t, renderer.PickResult{EntityId: 7, EntityVersion: 2, SceneId: 3, SceneVersion: 1}, got)

	got, ok = e.Pick(2, 2)
	require.True(t, ok)
	assert.False(t, got.Hit())

	_, ok = e.Pick(64, 0)
	assert.False(t, ok)

	img, err := e.Renderer().CaptureFrame()
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{R: 255, A: 255}, img.RGBAAt(32, 32))
	assert.Equal(t, color.RGBA{R: 255, G: 255, B: 255, A: 255}, img.RGBAAt(2, 2))
}

func TestCameraMovesSubmittedSprites(t *testing.T) {
	e := newHeadlessEngine(t)
	s := sprite.NewSprite(sprite.WithSize(mgl32.Vec2{8, 8}), sprite.WithIdentity(1, 0, 0, 0))
	e.SetFrameCallback(func(ctx FrameContext) {
		ctx.Renderer.SubmitTexturedQuad(s.Quad(ctx.Camera.ViewProjectionMatrix()))
	})

	e.Camera().Controller().SetPosition(mgl32.Vec2{20, 0})
	require.NoError(t, e.RunFrames(1))

	// the origin is now 20 pixels left of the center
	got, ok := e.Pick(12, 32)
	require.True(t, ok)
	assert.Equal(t, int32(1), got.EntityId)
	got, ok = e.Pick(32, 32)
	require.True(t, ok)
	assert.False(t, got.Hit())
}

func TestRunStopsOnQuit(t *testing.T) {
	e := newHeadlessEngine(t, WithTickRate(500))

	var ticks atomic.Int32
	e.SetTickCallback(func(deltaTime float32) {
		ticks.Add(1)
	})
	go func() {
		for ticks.Load() < 3 {
			time.Sleep(time.Millisecond)
		}
		e.Quit()
		e.Quit()
	}()

	assert.NoError(t, e.Run())
	assert.GreaterOrEqual(t, ticks.Load(), int32(3))
}

func TestClosedEngineRefusesToRun(t *testing.T) {
	e := newHeadlessEngine(t)
	e.Close()
	e.Close()

	assert.ErrorIs(t, e.Run(), ErrClosed)
	assert.ErrorIs(t, e.RunFrames(1), ErrClosed)
	_, ok := e.Pick(1, 1)
	assert.False(t, ok)
}

func TestSetTickRate(t *testing.T) {
	e := newHeadlessEngine(t).(*engine)

	e.SetTickRate(120)
	assert.Equal(t, time.Second/120, e.engineTickRate)

	e.SetTickRate(0)
	assert.Equal(t, time.Second/60, e.engineTickRate)
}

func TestKeyDownResetsCameraOnHome(t *testing.T) {
	e := newHeadlessEngine(t).(*engine)
	var keys []uint32
	e.SetKeyCallback(func(keyCode uint32) {
		keys = append(keys, keyCode)
	})

	e.controller.SetPosition(mgl32.Vec2{5, 5})
	e.controller.SetZoom(3)
	e.keyDown(common.KeyHome)
	e.keyDown(common.KeySpace)

	assert.Equal(t, mgl32.Vec2{}, e.controller.Position())
	assert.Equal(t, float32(1), e.controller.Zoom())
	assert.Equal(t, []uint32{common.KeySpace}, keys)
}

func TestNewEngineRejectsBadConfig(t *testing.T) {
	logger := WithLogger(log.NewWriter(io.Discard, slog.LevelError))

	_, err := NewEngine(WithConfigFile(filepath.Join(t.TempDir(), "missing.yml")), logger)
	assert.Error(t, err)

	cfg := headlessConfig()
	cfg.Backend = "gl"
	_, err = NewEngine(WithConfig(cfg), logger)
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "oxy-frame.yml")
	require.NoError(t, os.WriteFile(path, []byte("backend: vulkan\n"), 0o644))
	_, err = NewEngine(WithConfigFile(path), logger)
	assert.Error(t, err)
}

func TestConfigFileThenOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "oxy-frame.yml")
	doc := "backend: soft\nheadless: true\ntick_rate: 30\nwindow:\n  width: 32\n  height: 16\n"
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	e := newHeadlessEngine(t, WithConfigFile(path), WithTickRate(90))
	impl := e.(*engine)

	assert.Equal(t, 32, e.Config().Window.Width)
	assert.Equal(t, time.Second/90, impl.engineTickRate)
	w, h := e.Camera().Viewport()
	assert.Equal(t, float32(32), w)
	assert.Equal(t, float32(16), h)
}
