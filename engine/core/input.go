package core

import "sync"

// Key code definitions. Only the keys the engine actually reads are mapped;
// the platform layer translates GLFW scancodes into these.
type KeyCode uint16

const (
	KEY_ESCAPE KeyCode = 0x1B
	KEY_SPACE  KeyCode = 0x20
	KEY_A      KeyCode = 0x41
	KEY_D      KeyCode = 0x44
	KEY_E      KeyCode = 0x45
	KEY_M      KeyCode = 0x4D
	KEY_Q      KeyCode = 0x51
	KEY_S      KeyCode = 0x53
	KEY_W      KeyCode = 0x57

	KEYS_MAX_KEYS KeyCode = 0x100
)

// Input tracks keyboard state across frames. The platform layer writes into
// it from GLFW callbacks; the run loop reads it once per frame, so access is
// guarded even though contention is effectively nil.
type Input struct {
	mu       sync.Mutex
	current  [KEYS_MAX_KEYS]bool
	previous [KEYS_MAX_KEYS]bool
	quit     bool
}

func NewInput() *Input {
	return &Input{}
}

// ProcessKey records a key transition coming from the windowing layer.
func (in *Input) ProcessKey(key KeyCode, pressed bool) {
	if key >= KEYS_MAX_KEYS {
		return
	}
	in.mu.Lock()
	in.current[key] = pressed
	in.mu.Unlock()
}

// RequestQuit flags the application to exit at the top of the next frame.
func (in *Input) RequestQuit() {
	in.mu.Lock()
	in.quit = true
	in.mu.Unlock()
}

func (in *Input) QuitRequested() bool {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.quit
}

// Update rolls the current key state into the previous one. Call once per
// frame, after all reads.
func (in *Input) Update() {
	in.mu.Lock()
	in.previous = in.current
	in.mu.Unlock()
}

func (in *Input) IsKeyDown(key KeyCode) bool {
	if key >= KEYS_MAX_KEYS {
		return false
	}
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.current[key]
}

// KeyPressed reports a rising edge: down this frame, up the frame before.
func (in *Input) KeyPressed(key KeyCode) bool {
	if key >= KEYS_MAX_KEYS {
		return false
	}
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.current[key] && !in.previous[key]
}
