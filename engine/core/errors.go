package core

import (
	"errors"
)

var (
	// ErrSwapchainBooting signals that the frame was skipped because the
	// swapchain is being recreated; the caller should retry next frame.
	ErrSwapchainBooting = errors.New("swapchain resized or recreated, booting")

	// ErrFenceTimeout means a bounded GPU wait expired. The device may
	// just be wedged behind a long submission; retrying can succeed.
	ErrFenceTimeout = errors.New("fence wait timed out")

	// ErrDeviceLost is unrecoverable; the logical device has to be
	// rebuilt from scratch.
	ErrDeviceLost = errors.New("device lost")
)
