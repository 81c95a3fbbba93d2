package gl_backend

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-frame/engine/log"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/device"
	"github.com/go-gl/gl/v4.1-core/gl"
)

// Surface is the window side of presentation: a GL context sharing textures with the render
// thread context, and a back buffer to swap.
type Surface interface {
	// MakeContextCurrent binds the window context to the calling thread.
	MakeContextCurrent()

	// SwapBuffers presents the back buffer.
	SwapBuffers()
}

// glPresenter blits published output textures into the window's default framebuffer.
type glPresenter struct {
	surface Surface
	logger  *log.Logger

	// readFBO wraps the presented texture as a blit source. Framebuffer objects are not shared
	// between contexts, so the presenter owns its own.
	readFBO uint32
}

var _ device.Presenter = &glPresenter{}

// NewPresenter creates a presenter on the calling thread, which must own the window.
//
// Parameters:
//   - surface: the window
//   - options: functional options to configure the presenter
//
// Returns:
//   - device.Presenter: the presenter
//   - error: error if OpenGL could not be initialized on the window context
func NewPresenter(surface Surface, options ...GLPresenterBuilderOption) (device.Presenter, error) {
	p := &glPresenter{surface: surface}
	for _, opt := range options {
		opt(p)
	}
	surface.MakeContextCurrent()
	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize OpenGL: %w", err)
	}
	gl.GenFramebuffers(1, &p.readFBO)
	return p, nil
}

func (p *glPresenter) Present(tex device.TextureHandle, width, height int) error {
	gl.BindFramebuffer(gl.DRAW_FRAMEBUFFER, 0)
	gl.Viewport(0, 0, int32(width), int32(height))
	black := [4]float32{0, 0, 0, 1}
	gl.ClearBufferfv(gl.COLOR, 0, &black[0])

	if tex != 0 {
		var tw, th int32
		gl.BindTexture(gl.TEXTURE_2D, uint32(tex))
		gl.GetTexLevelParameteriv(gl.TEXTURE_2D, 0, gl.TEXTURE_WIDTH, &tw)
		gl.GetTexLevelParameteriv(gl.TEXTURE_2D, 0, gl.TEXTURE_HEIGHT, &th)
		gl.BindTexture(gl.TEXTURE_2D, 0)

		if tw > 0 && th > 0 {
			gl.BindFramebuffer(gl.READ_FRAMEBUFFER, p.readFBO)
			gl.FramebufferTexture2D(gl.READ_FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.TEXTURE_2D, uint32(tex), 0)
			gl.ReadBuffer(gl.COLOR_ATTACHMENT0)
			gl.BlitFramebuffer(0, 0, tw, th, 0, 0, int32(width), int32(height), gl.COLOR_BUFFER_BIT, gl.NEAREST)
			gl.BindFramebuffer(gl.READ_FRAMEBUFFER, 0)
		}
	}

	if code := gl.GetError(); code != gl.NO_ERROR {
		return &device.Error{Backend: "gl", Op: "Present", Category: category(code)}
	}
	p.surface.SwapBuffers()
	return nil
}

func (p *glPresenter) Release() {
	if p.readFBO != 0 {
		gl.DeleteFramebuffers(1, &p.readFBO)
		p.readFBO = 0
	}
	p.logger.Info("opengl presenter released")
}

// GLPresenterBuilderOption is a functional option for configuring a glPresenter.
type GLPresenterBuilderOption func(p *glPresenter)

// WithPresenterLogger sets the logger used by the presenter.
//
// Parameters:
//   - logger: the logger, may be nil
//
// Returns:
//   - GLPresenterBuilderOption: option function to apply
func WithPresenterLogger(logger *log.Logger) GLPresenterBuilderOption {
	return func(p *glPresenter) {
		p.logger = logger
	}
}
