package gl_backend

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/go-gl/gl/v4.1-core/gl"
)

// TexturedQuadVertexSource consumes vertex.TexturedLayout.
//
//go:embed assets/textured_quad.vert.glsl
var TexturedQuadVertexSource string

// TexturedQuadFragmentSource writes color to attachment 0 and the entity tuple to attachment 1.
//
//go:embed assets/textured_quad.frag.glsl
var TexturedQuadFragmentSource string

// DebugRectVertexSource consumes vertex.DebugRectLayout.
//
//go:embed assets/debug_rect.vert.glsl
var DebugRectVertexSource string

// DebugRectGeometrySource expands each point into a closed 5 vertex line strip.
//
//go:embed assets/debug_rect.geom.glsl
var DebugRectGeometrySource string

//go:embed assets/debug_rect.frag.glsl
var DebugRectFragmentSource string

type shaderStage struct {
	kind   uint32
	source string
}

func compileShader(kind uint32, source string) (uint32, error) {
	shader := gl.CreateShader(kind)
	csources, free := gl.Strs(source + "\x00")
	gl.ShaderSource(shader, 1, csources, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLength)
		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetShaderInfoLog(shader, logLength, nil, gl.Str(log))
		gl.DeleteShader(shader)
		return 0, fmt.Errorf("compile error: %s", strings.TrimRight(log, "\x00"))
	}
	return shader, nil
}

// linkProgram compiles every stage and links them. Stage objects are deleted once linked.
func linkProgram(stages ...shaderStage) (uint32, error) {
	shaders := make([]uint32, 0, len(stages))
	deleteShaders := func() {
		for _, s := range shaders {
			gl.DeleteShader(s)
		}
	}

	for _, st := range stages {
		s, err := compileShader(st.kind, st.source)
		if err != nil {
			deleteShaders()
			return 0, err
		}
		shaders = append(shaders, s)
	}

	program := gl.CreateProgram()
	for _, s := range shaders {
		gl.AttachShader(program, s)
	}
	gl.LinkProgram(program)
	for _, s := range shaders {
		gl.DetachShader(program, s)
	}
	deleteShaders()

	var status int32
	gl.GetProgramiv(program, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetProgramiv(program, gl.INFO_LOG_LENGTH, &logLength)
		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetProgramInfoLog(program, logLength, nil, gl.Str(log))
		gl.DeleteProgram(program)
		return 0, fmt.Errorf("link error: %s", strings.TrimRight(log, "\x00"))
	}
	return program, nil
}
