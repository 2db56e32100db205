package vulkan

import (
	"math"
	"testing"

	vk "github.com/goki/vulkan"
)

func TestSelectSurfaceFormatPrefersBGRA8SrgbNonlinear(t *testing.T) {
	formats := []vk.SurfaceFormat{
		{Format: vk.FormatR8g8b8a8Unorm, ColorSpace: vk.ColorSpaceSrgbNonlinear},
		{Format: vk.FormatB8g8r8a8Unorm, ColorSpace: vk.ColorSpaceSrgbNonlinear},
	}

	got := selectSurfaceFormat(formats)
	if got.Format != vk.FormatB8g8r8a8Unorm {
		t.Fatalf("expected BGRA8 to be selected, got format %d", got.Format)
	}
}

func TestSelectSurfaceFormatFallsBackToFirst(t *testing.T) {
	formats := []vk.SurfaceFormat{
		{Format: vk.FormatR8g8b8a8Snorm, ColorSpace: vk.ColorSpaceSrgbNonlinear},
		{Format: vk.FormatR8g8b8a8Unorm, ColorSpace: vk.ColorSpaceSrgbNonlinear},
	}

	got := selectSurfaceFormat(formats)
	if got.Format != vk.FormatR8g8b8a8Snorm {
		t.Fatalf("expected first reported format as fallback, got format %d", got.Format)
	}
}

func TestSelectPresentMode(t *testing.T) {
	all := []vk.PresentMode{vk.PresentModeImmediate, vk.PresentModeMailbox, vk.PresentModeFifo}
	fifoOnly := []vk.PresentMode{vk.PresentModeFifo}

	cases := []struct {
		name         string
		modes        []vk.PresentMode
		vsync        bool
		tripleBuffer bool
		want         vk.PresentMode
	}{
		{"no vsync picks immediate", all, false, false, vk.PresentModeImmediate},
		{"no vsync without immediate falls back to fifo", fifoOnly, false, false, vk.PresentModeFifo},
		{"vsync with triple buffering picks mailbox", all, true, true, vk.PresentModeMailbox},
		{"vsync with triple buffering without mailbox falls back", fifoOnly, true, true, vk.PresentModeFifo},
		{"vsync double buffered stays fifo", all, true, false, vk.PresentModeFifo},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := selectPresentMode(tc.modes, tc.vsync, tc.tripleBuffer)
			if got != tc.want {
				t.Fatalf("got mode %d, want %d", got, tc.want)
			}
		})
	}
}

func TestClampExtentUsesCurrentWhenAuthoritative(t *testing.T) {
	current := vk.Extent2D{Width: 1280, Height: 720}
	requested := vk.Extent2D{Width: 1920, Height: 1080}
	minExtent := vk.Extent2D{Width: 1, Height: 1}
	maxExtent := vk.Extent2D{Width: 4096, Height: 4096}

	got := clampExtent(current, requested, minExtent, maxExtent)
	if got != current {
		t.Fatalf("expected current extent %v, got %v", current, got)
	}
}

func TestClampExtentClampsRequestedIntoBounds(t *testing.T) {
	sentinel := vk.Extent2D{Width: math.MaxUint32, Height: math.MaxUint32}
	minExtent := vk.Extent2D{Width: 640, Height: 480}
	maxExtent := vk.Extent2D{Width: 2048, Height: 2048}

	cases := []struct {
		name      string
		requested vk.Extent2D
		want      vk.Extent2D
	}{
		{"inside bounds passes through", vk.Extent2D{Width: 1280, Height: 720}, vk.Extent2D{Width: 1280, Height: 720}},
		{"too small clamps up", vk.Extent2D{Width: 100, Height: 100}, vk.Extent2D{Width: 640, Height: 480}},
		{"too large clamps down", vk.Extent2D{Width: 8192, Height: 8192}, vk.Extent2D{Width: 2048, Height: 2048}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := clampExtent(sentinel, tc.requested, minExtent, maxExtent)
			if got != tc.want {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestRecreateExtentPrefersCachedResizeSize(t *testing.T) {
	w, h := recreateExtent(1920, 1080, 1280, 720)
	if w != 1920 || h != 1080 {
		t.Fatalf("got %dx%d, want 1920x1080", w, h)
	}
}

func TestRecreateExtentKeepsCurrentSizeWithoutResize(t *testing.T) {
	// An out of date present bumps the rebuild generation without any
	// resize callback, so no cached size exists.
	w, h := recreateExtent(0, 0, 1280, 720)
	if w != 1280 || h != 720 {
		t.Fatalf("got %dx%d, want 1280x720", w, h)
	}

	// A minimized window has no usable size anywhere.
	w, h = recreateExtent(0, 0, 0, 0)
	if w != 0 || h != 0 {
		t.Fatalf("got %dx%d, want 0x0", w, h)
	}
}
