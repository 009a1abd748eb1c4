//go:build gl

package compute

import (
	"fmt"
	"runtime"

	"github.com/go-gl/glfw/v3.3/glfw"
)

// NewHeadlessContext creates a hidden window whose OpenGL 4.3 core
// context becomes current on the calling goroutine's thread. The thread
// stays locked until the returned func runs.
func NewHeadlessContext() (func(), error) {
	runtime.LockOSThread()
	if err := glfw.Init(); err != nil {
		runtime.UnlockOSThread()
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	glfw.WindowHint(glfw.Visible, glfw.False)
	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 3)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)

	win, err := glfw.CreateWindow(1, 1, "erosim", nil, nil)
	if err != nil {
		glfw.Terminate()
		runtime.UnlockOSThread()
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	win.MakeContextCurrent()

	return func() {
		glfw.DetachCurrentContext()
		win.Destroy()
		glfw.Terminate()
		runtime.UnlockOSThread()
	}, nil
}
