package device

import "github.com/Carmen-Shannon/oxy-frame/engine/log"

// SoftDeviceBuilderOption is a functional option for configuring a softDevice.
// Use the With* functions to create options.
type SoftDeviceBuilderOption func(d *softDevice)

// WithWorkers sets how many row bands each draw is split into. One disables the worker pool.
//
// Parameters:
//   - workers: band count, values below one are treated as one
//
// Returns:
//   - SoftDeviceBuilderOption: option function to apply
func WithWorkers(workers int) SoftDeviceBuilderOption {
	return func(d *softDevice) {
		d.workers = workers
	}
}

// WithMinParallelRows sets the framebuffer height below which draws are rasterized inline.
//
// Parameters:
//   - rows: minimum height in pixels for banded rasterization
//
// Returns:
//   - SoftDeviceBuilderOption: option function to apply
func WithMinParallelRows(rows int) SoftDeviceBuilderOption {
	return func(d *softDevice) {
		d.minParallelRows = rows
	}
}

// WithDrawRecording toggles the draw call log returned by DrawCalls.
//
// Parameters:
//   - enabled: whether draws are recorded
//
// Returns:
//   - SoftDeviceBuilderOption: option function to apply
func WithDrawRecording(enabled bool) SoftDeviceBuilderOption {
	return func(d *softDevice) {
		d.recordDraws = enabled
	}
}

// WithSoftLogger sets the logger used by the device.
//
// Parameters:
//   - logger: the logger, may be nil
//
// Returns:
//   - SoftDeviceBuilderOption: option function to apply
func WithSoftLogger(logger *log.Logger) SoftDeviceBuilderOption {
	return func(d *softDevice) {
		d.logger = logger
	}
}
