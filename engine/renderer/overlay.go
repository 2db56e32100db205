package renderer

// Overlay is the hook surface for a UI layer drawn after the scene pass,
// inside the same render pass instance. Implementations record into the
// frame's command buffer between NewFrame and Render; they get their
// descriptors from the backend's dedicated overlay pool rather than the
// static scene pool.
type Overlay interface {
	// NewFrame is invoked once per frame after the render pass opens,
	// before any scene draws are recorded.
	NewFrame()

	// Render records the overlay's draws. Called after the scene pass,
	// immediately before the frame is submitted.
	Render(packet *RenderPacket) error

	Shutdown() error
}

// NullOverlay is the default overlay: it draws nothing.
type NullOverlay struct{}

func (NullOverlay) NewFrame() {}

func (NullOverlay) Render(packet *RenderPacket) error { return nil }

func (NullOverlay) Shutdown() error { return nil }
