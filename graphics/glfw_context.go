//go:build !linux

package graphics

import (
	"log"
	"runtime"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"
)

// glfwContext backs the desktop core-profile path, used when no
// headless backend is available for the host platform (anything but
// Linux). Adapted from glfwcontext.Context: same window-hint sequence
// and lock-OS-thread requirement, minus the window-presentation and
// input-polling surface the original shadertoy player needed.
type glfwContext struct {
	window *glfw.Window
}

func newGLFWContext(width, height int) (*glfwContext, error) {
	runtime.LockOSThread()

	if err := glfw.Init(); err != nil {
		return nil, err
	}

	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 1)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
	glfw.WindowHint(glfw.Visible, glfw.False)

	win, err := glfw.CreateWindow(width, height, "glsl-video-filter", nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, err
	}
	win.MakeContextCurrent()

	if err := gl.Init(); err != nil {
		return nil, err
	}
	log.Printf("graphics: GLFW context, OpenGL %s", gl.GoStr(gl.GetString(gl.VERSION)))

	return &glfwContext{window: win}, nil
}

func (c *glfwContext) MakeCurrent() { c.window.MakeContextCurrent() }
func (c *glfwContext) Shutdown()    { glfw.Terminate() }
func (c *glfwContext) IsGLES() bool { return false }

// NewContext opens a hidden GLFW window and core-profile context. Used
// on every platform other than Linux, where no headless EGL path is
// wired (see headless_linux.go).
func NewContext(width, height int) (Context, error) {
	return newGLFWContext(width, height)
}
