package wgpu_backend

import (
	_ "embed"
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

// TexturedQuadSource consumes vertex.TexturedLayout and writes color to target 0 and the entity
// tuple to target 1.
//
//go:embed assets/textured_quad.wgsl
var TexturedQuadSource string

// DebugRectSource draws one instance per vertex.DebugRectVertex.
//
//go:embed assets/debug_rect.wgsl
var DebugRectSource string

//go:embed assets/present.wgsl
var PresentSource string

const (
	vertexEntryPoint   = "vs_main"
	fragmentEntryPoint = "fs_main"
)

func createShaderModule(dev *wgpu.Device, label, source string) (*wgpu.ShaderModule, error) {
	module, err := dev.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: label,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: source,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to compile shader %q: %w", label, err)
	}
	return module, nil
}

// alphaBlend is SRC_ALPHA / ONE_MINUS_SRC_ALPHA for color and ONE / ONE for alpha.
var alphaBlend = &wgpu.BlendState{
	Color: wgpu.BlendComponent{
		SrcFactor: wgpu.BlendFactorSrcAlpha,
		DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
		Operation: wgpu.BlendOperationAdd,
	},
	Alpha: wgpu.BlendComponent{
		SrcFactor: wgpu.BlendFactorOne,
		DstFactor: wgpu.BlendFactorOne,
		Operation: wgpu.BlendOperationAdd,
	},
}
