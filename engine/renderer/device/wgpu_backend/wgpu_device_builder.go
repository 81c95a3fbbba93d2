package wgpu_backend

import (
	"github.com/Carmen-Shannon/oxy-frame/engine/log"
	"github.com/cogentcore/webgpu/wgpu"
)

// WGPUDeviceBuilderOption is a functional option for configuring a wgpuDevice.
type WGPUDeviceBuilderOption func(d *wgpuDevice)

// WithLogger sets the logger used by the device.
//
// Parameters:
//   - logger: the logger, may be nil
//
// Returns:
//   - WGPUDeviceBuilderOption: option function to apply
func WithLogger(logger *log.Logger) WGPUDeviceBuilderOption {
	return func(d *wgpuDevice) {
		d.logger = logger
	}
}

// WithForceFallbackAdapter requests the software fallback adapter instead of a hardware one.
//
// Parameters:
//   - force: whether to force the fallback adapter
//
// Returns:
//   - WGPUDeviceBuilderOption: option function to apply
func WithForceFallbackAdapter(force bool) WGPUDeviceBuilderOption {
	return func(d *wgpuDevice) {
		d.forceFallbackAdapter = force
	}
}

// WithSurface creates a window surface with the device so a presenter can display output textures.
// Without it the device is headless.
//
// Parameters:
//   - desc: the platform surface descriptor of the window
//
// Returns:
//   - WGPUDeviceBuilderOption: option function to apply
func WithSurface(desc *wgpu.SurfaceDescriptor) WGPUDeviceBuilderOption {
	return func(d *wgpuDevice) {
		d.surfaceDescriptor = desc
	}
}
