package gl_backend

import "github.com/Carmen-Shannon/oxy-frame/engine/log"

// GLDeviceBuilderOption is a functional option for configuring a glDevice.
type GLDeviceBuilderOption func(d *glDevice)

// WithLogger sets the logger used by the device.
//
// Parameters:
//   - logger: the logger, may be nil
//
// Returns:
//   - GLDeviceBuilderOption: option function to apply
func WithLogger(logger *log.Logger) GLDeviceBuilderOption {
	return func(d *glDevice) {
		d.logger = logger
	}
}
