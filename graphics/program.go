package graphics

import (
	"fmt"
	"strings"

	gl "github.com/go-gl/gl/v4.1-core/gl"
)

// fullScreenTriangleVertexShaderCore and fullScreenTriangleVertexShaderES
// are the built-in vertex stage spec.md §4.4 calls for (desktop core
// profile and GLES3 respectively): each synthesizes a 3-vertex
// full-screen triangle from gl_VertexID, so no vertex buffer is ever
// bound (the "null mesh"
// fmp.cpp creates via YRGraphics::createNullMesh(3)).
const fullScreenTriangleVertexShaderCore = `#version 410 core
out vec2 uv;
void main() {
    vec2 pos = vec2((gl_VertexID << 1) & 2, gl_VertexID & 2);
    uv = pos;
    gl_Position = vec4(pos * 2.0 - 1.0, 0.0, 1.0);
}
`

const fullScreenTriangleVertexShaderES = `#version 300 es
out vec2 uv;
void main() {
    vec2 pos = vec2((gl_VertexID << 1) & 2, gl_VertexID & 2);
    uv = pos;
    gl_Position = vec4(pos * 2.0 - 1.0, 0.0, 1.0);
}
`

// Program is a linked vertex+fragment GPU program plus the uniform
// location of the single sampler2D the fragment shader declares.
type Program struct {
	handle      uint32
	textureLoc  int32
	hasTextureU bool
}

// NewProgram compiles the built-in full-screen-triangle vertex shader
// together with the user's (already-translated) fragment shader and
// links them, matching renderer.go's newProgram/compileShader
// conventions. The fragment shader's first sampler2D uniform is bound
// to texture unit 0 — the single bound resource spec.md §4.4 asks for.
func NewProgram(translatedFragmentSource string, gles bool) (*Program, error) {
	vertexSource := fullScreenTriangleVertexShaderCore
	if gles {
		vertexSource = fullScreenTriangleVertexShaderES
	}

	vs, err := compileShader(vertexSource, gl.VERTEX_SHADER)
	if err != nil {
		return nil, newShaderError("vertex shader", err)
	}
	fs, err := compileShader(translatedFragmentSource, gl.FRAGMENT_SHADER)
	if err != nil {
		return nil, newShaderError("fragment shader", err)
	}

	handle := gl.CreateProgram()
	gl.AttachShader(handle, vs)
	gl.AttachShader(handle, fs)
	gl.LinkProgram(handle)

	var status int32
	gl.GetProgramiv(handle, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetProgramiv(handle, gl.INFO_LOG_LENGTH, &logLength)
		logText := strings.Repeat("\x00", int(logLength+1))
		gl.GetProgramInfoLog(handle, logLength, nil, gl.Str(logText))
		return nil, newShaderError("link program", fmt.Errorf("%s", logText))
	}
	gl.DeleteShader(vs)
	gl.DeleteShader(fs)

	p := &Program{handle: handle}
	p.textureLoc, p.hasTextureU = findFirstSampler2D(handle)
	return p, nil
}

func compileShader(source string, shaderType uint32) (uint32, error) {
	shader := gl.CreateShader(shaderType)
	csources, free := gl.Strs(source + "\x00")
	gl.ShaderSource(shader, 1, csources, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLength)
		logText := strings.Repeat("\x00", int(logLength+1))
		gl.GetShaderInfoLog(shader, logLength, nil, gl.Str(logText))
		return 0, fmt.Errorf("%s", logText)
	}
	return shader, nil
}

func findFirstSampler2D(program uint32) (int32, bool) {
	var count int32
	gl.GetProgramiv(program, gl.ACTIVE_UNIFORMS, &count)
	for i := int32(0); i < count; i++ {
		var size int32
		var xtype uint32
		nameBuf := make([]byte, 256)
		gl.GetActiveUniform(program, uint32(i), int32(len(nameBuf)), nil, &size, &xtype, &nameBuf[0])
		if xtype == gl.SAMPLER_2D {
			name := gl.Str(string(nameBuf) + "\x00")
			return gl.GetUniformLocation(program, name), true
		}
	}
	return -1, false
}

// Use binds the program and, if the fragment shader declared a
// sampler2D, points it at texture unit 0.
func (p *Program) Use() {
	gl.UseProgram(p.handle)
	if p.hasTextureU {
		gl.Uniform1i(p.textureLoc, 0)
	}
}

// Close deletes the linked program.
func (p *Program) Close() {
	gl.DeleteProgram(p.handle)
}
