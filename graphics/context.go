// Package graphics owns every OpenGL/EGL/GLFW interaction the pipeline
// needs: acquiring a context (windowed or headless), translating and
// linking the user's fragment shader, managing stream textures, and
// running the single-texture render pass that applies the shader.
// Nothing outside this package touches gl.* or EGL directly, matching
// goshadertoy's convention that glfwcontext and headless are the only
// packages allowed to import glfw/EGL.
package graphics

// Context is the minimal surface the pipeline needs from whichever
// backend supplies the GL context. Unlike the interactive Shadertoy
// player this is adapted from, there is no window to poll or mouse
// input to read — the filter stage never presents to screen.
type Context interface {
	MakeCurrent()
	Shutdown()
	IsGLES() bool
}
