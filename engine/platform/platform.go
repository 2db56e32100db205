package platform

import (
	"runtime"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/olivercrane/vasari/engine/core"
)

func init() {
	// GLFW event handling must run on the main OS thread
	runtime.LockOSThread()
}

// Platform owns the native window and translates GLFW events into the
// engine's input state. The renderer only sees it through CreateSurface,
// FramebufferSize and the resize callback.
type Platform struct {
	Window *glfw.Window
	Input  *core.Input

	onResize func(width, height uint32)
}

func New(input *core.Input) (*Platform, error) {
	return &Platform{
		Input: input,
	}, nil
}

func (p *Platform) Startup(applicationName string, x, y, width, height uint32) error {
	if err := glfw.Init(); err != nil {
		core.LogError("failed to initialize glfw: %s", err)
		return err
	}

	glfw.WindowHint(glfw.Visible, glfw.False)
	glfw.WindowHint(glfw.Resizable, glfw.True)
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI) // Required for Vulkan.

	window, err := glfw.CreateWindow(int(width), int(height), applicationName, nil, nil)
	if err != nil {
		core.LogError("failed to create window: %s", err)
		return err
	}
	p.Window = window

	p.Window.SetKeyCallback(p.keyCallback)
	p.Window.SetFramebufferSizeCallback(p.framebufferSizeCallback)
	p.Window.SetPos(int(x), int(y))
	p.Window.Show()

	return nil
}

func (p *Platform) Shutdown() error {
	glfw.Terminate()
	return nil
}

// PumpMessages polls the window system once. Returns false when the window
// wants to close.
func (p *Platform) PumpMessages() bool {
	glfw.PollEvents()
	return !p.Window.ShouldClose()
}

// SetResizeCallback registers the function invoked when the framebuffer
// changes size. Only one listener is supported.
func (p *Platform) SetResizeCallback(fn func(width, height uint32)) {
	p.onResize = fn
}

// GetRequiredExtensionNames reports the instance extensions the window
// system needs for surface creation.
func (p *Platform) GetRequiredExtensionNames() []string {
	return p.Window.GetRequiredInstanceExtensions()
}

// FramebufferSize returns the current drawable size in pixels.
func (p *Platform) FramebufferSize() (uint32, uint32) {
	w, h := p.Window.GetFramebufferSize()
	return uint32(w), uint32(h)
}

// SetTitle updates the window title. Used for the once-per-second stats line.
func (p *Platform) SetTitle(title string) {
	p.Window.SetTitle(title)
}

func (p *Platform) keyCallback(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
	code, ok := translateKey(key)
	if !ok {
		return
	}
	switch action {
	case glfw.Press:
		if code == core.KEY_ESCAPE {
			p.Input.RequestQuit()
			return
		}
		p.Input.ProcessKey(code, true)
	case glfw.Release:
		p.Input.ProcessKey(code, false)
	}
}

func (p *Platform) framebufferSizeCallback(w *glfw.Window, width, height int) {
	if p.onResize != nil {
		p.onResize(uint32(width), uint32(height))
	}
}

func translateKey(key glfw.Key) (core.KeyCode, bool) {
	switch key {
	case glfw.KeyEscape:
		return core.KEY_ESCAPE, true
	case glfw.KeySpace:
		return core.KEY_SPACE, true
	case glfw.KeyW:
		return core.KEY_W, true
	case glfw.KeyA:
		return core.KEY_A, true
	case glfw.KeyS:
		return core.KEY_S, true
	case glfw.KeyD:
		return core.KEY_D, true
	case glfw.KeyQ:
		return core.KEY_Q, true
	case glfw.KeyE:
		return core.KEY_E, true
	case glfw.KeyM:
		return core.KEY_M, true
	default:
		return 0, false
	}
}
