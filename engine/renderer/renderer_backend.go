package renderer

import (
	"fmt"
	"strings"
)

// RendererBackendType identifies the device implementation the Renderer drives.
type RendererBackendType int

const (
	// BackendTypeGL selects the OpenGL 4.1 core device on a context shared with the window.
	BackendTypeGL RendererBackendType = iota

	// BackendTypeWGPU selects the WebGPU device.
	BackendTypeWGPU

	// BackendTypeSoft selects the CPU rasterizer. It needs no window and no GPU.
	BackendTypeSoft
)

func (t RendererBackendType) String() string {
	switch t {
	case BackendTypeGL:
		return "gl"
	case BackendTypeWGPU:
		return "wgpu"
	case BackendTypeSoft:
		return "soft"
	default:
		return fmt.Sprintf("backend(%d)", int(t))
	}
}

// ParseBackendType maps a backend name as written in configuration files to its type.
//
// Parameters:
//   - name: one of gl, wgpu or soft, case insensitive
//
// Returns:
//   - RendererBackendType: the backend
//   - error: error if name is not a known backend
func ParseBackendType(name string) (RendererBackendType, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "gl", "opengl":
		return BackendTypeGL, nil
	case "wgpu", "webgpu":
		return BackendTypeWGPU, nil
	case "soft", "software":
		return BackendTypeSoft, nil
	default:
		return 0, fmt.Errorf("unknown renderer backend %q", name)
	}
}

// NeedsWindowContext reports whether the backend renders on a graphics context owned by a window.
//
// Returns:
//   - bool: true for GPU backends
func (t RendererBackendType) NeedsWindowContext() bool {
	return t == BackendTypeGL
}
