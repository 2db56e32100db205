package vulkan

import (
	"testing"

	vk "github.com/goki/vulkan"
)

func TestPadUniformBufferSize(t *testing.T) {
	alignments := []vk.DeviceSize{16, 32, 64, 256}
	sizes := []vk.DeviceSize{1, 16, 80, 192, 255, 256, 1000}

	for _, alignment := range alignments {
		for _, size := range sizes {
			padded := padUniformBufferSize(size, alignment)
			if padded < size {
				t.Fatalf("pad(%d, %d) = %d shrank the size", size, alignment, padded)
			}
			if padded%alignment != 0 {
				t.Fatalf("pad(%d, %d) = %d is not aligned", size, alignment, padded)
			}
			if padded >= size+alignment {
				t.Fatalf("pad(%d, %d) = %d overshoots by a full alignment", size, alignment, padded)
			}
		}
	}

	// A zero alignment means the device imposes no constraint.
	if got := padUniformBufferSize(100, 0); got != 100 {
		t.Fatalf("pad(100, 0) = %d, want 100", got)
	}

	// Already aligned sizes pass through.
	if got := padUniformBufferSize(256, 256); got != 256 {
		t.Fatalf("pad(256, 256) = %d, want 256", got)
	}
}

func TestFrameOffsetRegionsAreDisjoint(t *testing.T) {
	type region struct {
		name       string
		start, end vk.DeviceSize
	}

	for _, alignment := range []vk.DeviceSize{16, 64, 256} {
		var regions []region
		for f := uint32(0); f < 2; f++ {
			co := cameraOffset(f, alignment)
			so := sceneOffset(f, alignment)
			regions = append(regions,
				region{"camera", co, co + cameraDataSize},
				region{"scene", so, so + sceneDataSize},
			)
		}

		for i := 0; i < len(regions); i++ {
			for j := i + 1; j < len(regions); j++ {
				a, b := regions[i], regions[j]
				if a.start < b.end && b.start < a.end {
					t.Fatalf("alignment %d: %s [%d,%d) overlaps %s [%d,%d)",
						alignment, a.name, a.start, a.end, b.name, b.start, b.end)
				}
			}
		}

		// Every region must fit inside the allocation.
		total := globalBufferSize(alignment)
		for _, r := range regions {
			if r.end > total {
				t.Fatalf("alignment %d: %s region ends at %d beyond buffer size %d", alignment, r.name, r.end, total)
			}
		}
	}
}

func TestDynamicOffsetsMatchRegionLayout(t *testing.T) {
	dm := &VulkanDescriptorManager{minAlignment: 256}

	frame0 := dm.DynamicOffsets(0)
	if frame0[0] != 0 || frame0[1] != 0 {
		t.Fatalf("frame 0 offsets should be zero, got %v", frame0)
	}

	frame1 := dm.DynamicOffsets(1)
	if frame1[0] != uint32(padUniformBufferSize(cameraDataSize, 256)) {
		t.Fatalf("frame 1 camera offset: got %d", frame1[0])
	}
	if frame1[1] != uint32(padUniformBufferSize(sceneDataSize, 256)) {
		t.Fatalf("frame 1 scene offset: got %d", frame1[1])
	}
}
