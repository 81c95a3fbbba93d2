package engine

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/oxy-frame/common"
	"github.com/Carmen-Shannon/oxy-frame/engine/camera"
	"github.com/Carmen-Shannon/oxy-frame/engine/config"
	"github.com/Carmen-Shannon/oxy-frame/engine/log"
	"github.com/Carmen-Shannon/oxy-frame/engine/profiler"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/batch"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/device"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/device/gl_backend"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/device/wgpu_backend"
	"github.com/Carmen-Shannon/oxy-frame/engine/window"
	"github.com/go-gl/mathgl/mgl32"
)

// ErrClosed is returned by Run and RunFrames after Close.
var ErrClosed = errors.New("engine: closed")

// FrameContext is handed to the frame callback between Begin and Render.
type FrameContext struct {
	// Renderer accepts submissions for the frame.
	Renderer renderer.Renderer

	// Camera has been updated for the frame.
	Camera camera.Camera

	// Delta is the time since the previous frame in seconds.
	Delta float32

	// Width and Height are the framebuffer size of the frame.
	Width  int
	Height int

	// Frame counts frames started by the engine, starting at zero.
	Frame uint64
}

// engine implements the Engine interface.
// Owns every component it builds and drives the producer side of the renderer.
type engine struct {
	tickRateChannel chan time.Duration

	running atomic.Bool
	closed  bool

	quitChannel chan struct{}
	quitOnce    sync.Once

	cfg       config.Config
	configErr error
	backend   renderer.RendererBackendType
	headless  bool

	logger   *log.Logger
	profiler *profiler.Profiler

	window     window.Window
	ownsWindow bool
	dev        device.Device
	presenter  device.Presenter
	renderer   renderer.Renderer
	controller camera.CameraController
	camera     camera.Camera

	engineTickRate time.Duration
	tickCallback   func(deltaTime float32)
	frameCallback  func(ctx FrameContext)
	pickCallback   func(result renderer.PickResult)
	keyCallback    func(keyCode uint32)

	frames    uint64
	lastFrame time.Time
	cursor    mgl32.Vec2
	failure   error
}

// Engine is the composition root. It builds the window, device, renderer, presenter and camera
// from the configuration and runs the producer loop that feeds the render thread.
//
// Every method except Quit must be called from the goroutine that created the engine. With a
// window this must be the main goroutine.
type Engine interface {
	// Config returns the configuration the engine was built from.
	//
	// Returns:
	//   - config.Config: the validated configuration
	Config() config.Config

	// Logger returns the engine logger.
	//
	// Returns:
	//   - *log.Logger: the logger, shared with every component
	Logger() *log.Logger

	// Window returns the window, or nil when running headless.
	//
	// Returns:
	//   - window.Window: the window instance
	Window() window.Window

	// Renderer returns the running renderer.
	//
	// Returns:
	//   - renderer.Renderer: the renderer
	Renderer() renderer.Renderer

	// Camera returns the camera whose view-projection frames are built with.
	//
	// Returns:
	//   - camera.Camera: the camera
	Camera() camera.Camera

	// SetTickRate sets the producer tick rate in ticks per second.
	// If the engine is running, the change takes effect immediately.
	//
	// Parameters:
	//   - fps: target ticks per second (defaults to 60 if <= 0)
	SetTickRate(fps float64)

	// SetTickCallback registers the function called every tick, whether or not a frame starts.
	//
	// Parameters:
	//   - callback: function receiving the delta time in seconds
	SetTickCallback(callback func(deltaTime float32))

	// SetFrameCallback registers the function that submits primitives for a frame. It runs after
	// Begin and before Render on ticks where the previous frame has completed.
	//
	// Parameters:
	//   - callback: function receiving the frame context
	SetFrameCallback(callback func(ctx FrameContext))

	// SetPickCallback registers the function called with the result of every left click.
	//
	// Parameters:
	//   - callback: function receiving the picked identity
	SetPickCallback(callback func(result renderer.PickResult))

	// SetKeyCallback registers the function called on key presses the engine does not consume.
	//
	// Parameters:
	//   - callback: function receiving the key code, see the common package
	SetKeyCallback(callback func(keyCode uint32))

	// Pick reads the picking target of the displayed frame.
	//
	// Parameters:
	//   - x: column in pixels from the left
	//   - y: row in pixels from the bottom
	//
	// Returns:
	//   - renderer.PickResult: the identity under the pixel
	//   - bool: false if the position is outside the frame or the renderer is not running
	Pick(x, y int) (renderer.PickResult, bool)

	// Run drives ticks until the window closes or Quit is called.
	//
	// Returns:
	//   - error: the render thread failure that stopped the loop, if any
	Run() error

	// RunFrames renders n frames back to back and waits for the last one to complete.
	//
	// Parameters:
	//   - n: the number of frames
	//
	// Returns:
	//   - error: error if the render thread failed or the engine was closed
	RunFrames(n int) error

	// Quit stops Run. Safe to call multiple times and from any goroutine.
	Quit()

	// Close stops the renderer and releases the presenter and the window.
	Close()
}

var _ Engine = &engine{}

// NewEngine creates a new Engine and starts its render thread.
// Without WithConfig or WithConfigFile the engine uses config.Default.
//
// Parameters:
//   - options: functional options for engine configuration
//
// Returns:
//   - Engine: the running engine
//   - error: error if the configuration is invalid or any component fails to start
func NewEngine(options ...EngineBuilderOption) (Engine, error) {
	e := &engine{
		tickRateChannel: make(chan time.Duration, 1),
		quitChannel:     make(chan struct{}),
		cfg:             config.Default(),
	}

	for _, opt := range options {
		opt(e)
	}
	if e.configErr != nil {
		return nil, e.configErr
	}
	if err := e.cfg.Validate(); err != nil {
		return nil, err
	}
	backend, err := renderer.ParseBackendType(e.cfg.Backend)
	if err != nil {
		return nil, err
	}
	e.backend = backend
	e.headless = e.window == nil && (e.cfg.Headless || backend == renderer.BackendTypeSoft)
	if e.engineTickRate == 0 {
		e.engineTickRate = tickInterval(e.cfg.TickRate)
	}

	if e.logger == nil {
		e.logger = log.New(e.cfg.Log.Level, e.cfg.Log.Dir, e.cfg.Log.Console)
	}
	if e.cfg.Profiler.Enabled {
		e.profiler = profiler.NewProfiler(
			profiler.WithInterval(e.cfg.Profiler.Interval),
			profiler.WithLogger(e.logger),
		)
	}

	if err := e.build(); err != nil {
		e.Close()
		return nil, err
	}
	e.logger.Info("engine started", "backend", e.backend, "headless", e.headless, "tick", e.engineTickRate)
	return e, nil
}

// build creates the window, device, presenter, renderer and camera in dependency order.
// The presenter initializes its API on the window thread before the render thread starts.
func (e *engine) build() error {
	if !e.headless && e.window == nil {
		api := window.ClientNone
		if e.backend == renderer.BackendTypeGL {
			api = window.ClientOpenGL
		}
		w := e.cfg.Window
		win, err := window.NewWindow(
			window.WithTitle(w.Title),
			window.WithClientAPI(api),
			window.WithSizeLimits(w.MinWidth, w.MinHeight, w.MaxWidth, w.MaxHeight),
			window.WithWidth(w.Width),
			window.WithHeight(w.Height),
			window.WithVSync(w.VSync),
			window.WithLogger(e.logger),
		)
		if err != nil {
			return err
		}
		e.window = win
		e.ownsWindow = true
	}

	if e.dev == nil {
		dev, err := e.newDevice()
		if err != nil {
			return err
		}
		e.dev = dev
	}

	if e.window != nil {
		presenter, err := e.newPresenter()
		if err != nil {
			// the render thread never took ownership of the device
			e.dev.Release()
			return err
		}
		e.presenter = presenter
	}

	cc := common.Coalesce(e.cfg.ClearColor, &[4]float32{1, 1, 1, 1})
	e.renderer = renderer.NewRenderer(e.dev,
		renderer.WithMaxTexturedQuads(common.Coalesce(e.cfg.MaxTexturedQuads, batch.DefaultMaxQuads)),
		renderer.WithMaxDebugRects(common.Coalesce(e.cfg.MaxDebugRects, batch.DefaultMaxDebugRects)),
		renderer.WithClearColor(mgl32.Vec4{cc[0], cc[1], cc[2], cc[3]}),
		renderer.WithLogger(e.logger),
		renderer.WithProfiler(e.profiler),
	)
	if err := e.renderer.Initiate(); err != nil {
		e.renderer = nil
		return fmt.Errorf("failed to start renderer: %w", err)
	}

	if e.controller == nil {
		e.controller = camera.NewCameraController()
	}
	width, height := e.size()
	e.camera = camera.NewCamera(
		camera.WithViewport(float32(width), float32(height)),
		camera.WithController(e.controller),
	)

	if e.window != nil {
		e.bindInput()
	}
	return nil
}

func (e *engine) newDevice() (device.Device, error) {
	switch e.backend {
	case renderer.BackendTypeGL:
		ctx := e.window.SharedContext()
		if ctx == nil {
			return nil, fmt.Errorf("backend %s needs a window with an OpenGL context", e.backend)
		}
		return gl_backend.NewDevice(ctx, gl_backend.WithLogger(e.logger)), nil
	case renderer.BackendTypeWGPU:
		opts := []wgpu_backend.WGPUDeviceBuilderOption{
			wgpu_backend.WithLogger(e.logger),
			wgpu_backend.WithForceFallbackAdapter(e.cfg.WGPU.ForceFallbackAdapter),
		}
		if e.window != nil {
			opts = append(opts, wgpu_backend.WithSurface(e.window.SurfaceDescriptor()))
		}
		return wgpu_backend.NewDevice(opts...), nil
	case renderer.BackendTypeSoft:
		opts := []device.SoftDeviceBuilderOption{
			device.WithDrawRecording(false),
			device.WithSoftLogger(e.logger),
		}
		if e.cfg.Soft.Workers > 0 {
			opts = append(opts, device.WithWorkers(e.cfg.Soft.Workers))
		}
		return device.NewSoftDevice(opts...), nil
	default:
		return nil, fmt.Errorf("unsupported backend %s", e.backend)
	}
}

func (e *engine) newPresenter() (device.Presenter, error) {
	switch e.backend {
	case renderer.BackendTypeGL:
		return gl_backend.NewPresenter(e.window, gl_backend.WithPresenterLogger(e.logger))
	case renderer.BackendTypeWGPU:
		return wgpu_backend.NewPresenter(e.dev,
			wgpu_backend.WithPresenterLogger(e.logger),
			wgpu_backend.WithVSync(e.cfg.Window.VSync),
		)
	default:
		// soft frames live in system memory; a window only shows them through a GPU presenter
		return nil, nil
	}
}

// bindInput routes window events to the camera controller and picking.
func (e *engine) bindInput() {
	e.window.SetResizeCallback(func(width, height int) {
		e.camera.SetViewport(float32(width), float32(height))
	})
	e.window.SetMouseMoveCallback(func(x, y int32) {
		e.cursor = mgl32.Vec2{float32(x), float32(y)}
		e.controller.DragTo(float32(x), float32(y))
	})
	e.window.SetMouseDownCallback(func(button window.MouseButton, x, y int32) {
		switch button {
		case window.MouseButtonLeft:
			e.click(int(x), int(y))
		case window.MouseButtonMiddle:
			e.controller.BeginDrag(float32(x), float32(y))
		}
	})
	e.window.SetMouseUpCallback(func(button window.MouseButton, x, y int32) {
		if button == window.MouseButtonMiddle {
			e.controller.EndDrag()
		}
	})
	e.window.SetScrollCallback(func(delta float32) {
		w, h := e.camera.Viewport()
		e.controller.ZoomAt(delta, e.cursor.Sub(mgl32.Vec2{w / 2, h / 2}))
	})
	e.window.SetKeyDownCallback(e.keyDown)
}

func (e *engine) keyDown(keyCode uint32) {
	switch keyCode {
	case common.KeyHome:
		e.controller.SetPosition(mgl32.Vec2{})
		e.controller.SetZoom(1)
	default:
		if e.keyCallback != nil {
			e.keyCallback(keyCode)
		}
	}
}

func (e *engine) click(x, y int) {
	result, ok := e.Pick(x, y)
	if !ok {
		return
	}
	e.logger.Debug("picked", "x", x, "y", y, "entity", result.EntityId, "entity_version", result.EntityVersion,
		"scene", result.SceneId, "scene_version", result.SceneVersion)
	if e.pickCallback != nil {
		e.pickCallback(result)
	}
}

// size returns the framebuffer size frames are rendered at.
func (e *engine) size() (int, int) {
	if e.window != nil {
		return e.window.Width(), e.window.Height()
	}
	return e.cfg.Window.Width, e.cfg.Window.Height
}

func (e *engine) Config() config.Config {
	return e.cfg
}

func (e *engine) Logger() *log.Logger {
	return e.logger
}

func (e *engine) Window() window.Window {
	return e.window
}

func (e *engine) Renderer() renderer.Renderer {
	return e.renderer
}

func (e *engine) Camera() camera.Camera {
	return e.camera
}

func (e *engine) Pick(x, y int) (renderer.PickResult, bool) {
	if e.renderer == nil {
		return renderer.PickResult{}, false
	}
	return e.renderer.TryReadPixelFromClickingTexture(x, y)
}

func (e *engine) Run() error {
	if e.closed {
		return ErrClosed
	}
	e.running.Store(true)
	defer e.running.Store(false)

	ticker := time.NewTicker(e.engineTickRate)
	defer ticker.Stop()

	lastTick := time.Now()

	for {
		select {
		case <-e.quitChannel:
			return e.failure
		case newRate := <-e.tickRateChannel:
			ticker.Reset(newRate)
			e.engineTickRate = newRate
		case <-ticker.C:
			if e.window != nil && (!e.window.IsRunning() || !e.window.PollEvents()) {
				e.signalQuit()
				continue
			}
			now := time.Now()
			dt := float32(now.Sub(lastTick).Seconds())
			lastTick = now

			if e.tickCallback != nil {
				e.tickCallback(dt)
			}
			e.frame()
		}
	}
}

func (e *engine) RunFrames(n int) error {
	if e.closed {
		return ErrClosed
	}
	dt := float32(e.engineTickRate.Seconds())
	for i := 0; i < n; i++ {
		if err := e.waitFrame(); err != nil {
			return err
		}
		if e.window != nil && e.window.IsRunning() {
			e.window.PollEvents()
		}
		if e.tickCallback != nil {
			e.tickCallback(dt)
		}
		e.frame()
	}
	return e.waitFrame()
}

// waitFrame spins until the render thread has completed the submitted frame.
func (e *engine) waitFrame() error {
	for !e.renderer.IsRenderingDone() {
		if err := e.renderer.Err(); err != nil {
			return fmt.Errorf("render thread failed: %w", err)
		}
		runtime.Gosched()
	}
	if err := e.renderer.Err(); err != nil {
		return fmt.Errorf("render thread failed: %w", err)
	}
	return nil
}

// frame presents the published output and starts the next frame when the render thread is idle.
// It reports whether a frame was started.
func (e *engine) frame() bool {
	if err := e.renderer.Err(); err != nil {
		e.logger.Error("render thread failed, quitting", "error", err)
		e.failure = err
		e.signalQuit()
		return false
	}
	if !e.renderer.IsRenderingDone() {
		return false
	}

	width, height := e.size()
	if e.presenter != nil {
		if tex := e.renderer.GetOutputTextureId(); tex != 0 {
			if err := e.presenter.Present(tex, width, height); err != nil {
				e.logger.Warn("present failed", "error", err)
			}
		}
	}
	if width <= 0 || height <= 0 {
		return false
	}

	now := time.Now()
	var dt float32
	if !e.lastFrame.IsZero() {
		dt = float32(now.Sub(e.lastFrame).Seconds())
	}
	e.lastFrame = now

	e.camera.Update()
	e.renderer.Begin(width, height)
	if e.frameCallback != nil {
		e.frameCallback(FrameContext{
			Renderer: e.renderer,
			Camera:   e.camera,
			Delta:    dt,
			Width:    width,
			Height:   height,
			Frame:    e.frames,
		})
	}
	e.renderer.Render()
	e.frames++
	return true
}

func (e *engine) Quit() {
	e.signalQuit()
}

// signalQuit closes the quit channel to signal Run to exit.
// Uses sync.Once to ensure the channel is only closed once.
func (e *engine) signalQuit() {
	e.quitOnce.Do(func() {
		close(e.quitChannel)
	})
}

func (e *engine) Close() {
	if e.closed {
		return
	}
	e.closed = true
	e.signalQuit()

	if e.presenter != nil {
		e.presenter.Release()
		e.presenter = nil
	}
	if e.renderer != nil {
		e.renderer.Terminate()
	}
	if e.window != nil && e.ownsWindow {
		if err := e.window.Close(); err != nil {
			e.logger.Warn("window close failed", "error", err)
		}
	}
	e.logger.Info("engine stopped", "frames", e.frames)
}

// SetTickRate sets the producer tick rate in ticks per second.
// If the engine is running, the change takes effect immediately.
func (e *engine) SetTickRate(fps float64) {
	newRate := tickInterval(fps)

	if e.running.Load() {
		// Non-blocking send - if channel is full, replace the pending value
		select {
		case e.tickRateChannel <- newRate:
		default:
			select {
			case <-e.tickRateChannel:
			default:
			}
			e.tickRateChannel <- newRate
		}
	} else {
		e.engineTickRate = newRate
	}
}

func tickInterval(fps float64) time.Duration {
	if fps <= 0 {
		fps = 60
	}
	return time.Duration(float64(time.Second) / fps)
}

func (e *engine) SetTickCallback(callback func(deltaTime float32)) {
	e.tickCallback = callback
}

func (e *engine) SetFrameCallback(callback func(ctx FrameContext)) {
	e.frameCallback = callback
}

func (e *engine) SetPickCallback(callback func(result renderer.PickResult)) {
	e.pickCallback = callback
}

func (e *engine) SetKeyCallback(callback func(keyCode uint32)) {
	e.keyCallback = callback
}
