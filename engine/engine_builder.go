package engine

import (
	"github.com/Carmen-Shannon/oxy-frame/engine/camera"
	"github.com/Carmen-Shannon/oxy-frame/engine/config"
	"github.com/Carmen-Shannon/oxy-frame/engine/log"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/device"
	"github.com/Carmen-Shannon/oxy-frame/engine/window"
)

// EngineBuilderOption is a functional option for configuring an Engine.
// Options are applied in order, so options after WithConfig or WithConfigFile override the file.
type EngineBuilderOption func(*engine)

// WithConfig sets the configuration. It is validated when the engine is built.
//
// Parameters:
//   - cfg: the configuration
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithConfig(cfg config.Config) EngineBuilderOption {
	return func(e *engine) {
		e.cfg = cfg
	}
}

// WithConfigFile loads the configuration from a YAML file.
// A load failure is returned by NewEngine.
//
// Parameters:
//   - path: the config file
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithConfigFile(path string) EngineBuilderOption {
	return func(e *engine) {
		cfg, err := config.Load(path)
		if err != nil {
			e.configErr = err
			return
		}
		e.cfg = cfg
	}
}

// WithLogger sets the logger instead of building one from the log section of the configuration.
//
// Parameters:
//   - logger: the logger shared with every component
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithLogger(logger *log.Logger) EngineBuilderOption {
	return func(e *engine) {
		e.logger = logger
	}
}

// WithWindow sets a custom configured window for the engine to use rather than allowing the engine
// to create and manage one internally. The caller keeps ownership and closes it after Close.
//
// Parameters:
//   - w: a pre-configured Window instance
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithWindow(w window.Window) EngineBuilderOption {
	return func(e *engine) {
		e.window = w
	}
}

// WithDevice sets the device the renderer drives instead of creating one for the configured backend.
// The renderer takes ownership and releases it on Close.
//
// Parameters:
//   - dev: an unused device
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithDevice(dev device.Device) EngineBuilderOption {
	return func(e *engine) {
		e.dev = dev
	}
}

// WithCameraController sets the controller the camera follows.
//
// Parameters:
//   - ctrl: the controller
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithCameraController(ctrl camera.CameraController) EngineBuilderOption {
	return func(e *engine) {
		e.controller = ctrl
	}
}

// WithProfiling enables or disables frame statistics, overriding the configuration.
//
// Parameters:
//   - enabled: if true, enables performance profiling
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProfiling(enabled bool) EngineBuilderOption {
	return func(e *engine) {
		e.cfg.Profiler.Enabled = enabled
	}
}

// WithTickRate sets the producer tick rate in ticks per second, overriding the configuration.
// Values <= 0 will be treated as the default (60Hz).
//
// Parameters:
//   - fps: target ticks per second
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithTickRate(fps float64) EngineBuilderOption {
	return func(e *engine) {
		e.engineTickRate = tickInterval(fps)
	}
}
