package renderer

import (
	"testing"
	"unsafe"

	"github.com/olivercrane/vasari/engine/math"
)

// The uniform mirrors are written into mapped GPU memory byte for byte, so
// their in-memory size must match the shader-side std140/std430 declarations.
func TestGPUBlockSizes(t *testing.T) {
	tests := []struct {
		name string
		size uintptr
		want uintptr
	}{
		{"CameraData", unsafe.Sizeof(CameraData{}), 192},
		{"SceneData", unsafe.Sizeof(SceneData{}), 80},
		{"ObjectData", unsafe.Sizeof(ObjectData{}), 64},
	}
	for _, tt := range tests {
		if tt.size != tt.want {
			t.Errorf("%s size = %d, want %d", tt.name, tt.size, tt.want)
		}
	}
}

func TestVertexLayout(t *testing.T) {
	// Position (12) + Normal (12) + Colour (12) + Texcoord (8) = 44 bytes,
	// tightly packed; the pipeline vertex input stride depends on it.
	if got := unsafe.Sizeof(math.Vertex3D{}); got != 44 {
		t.Fatalf("Vertex3D size = %d, want 44", got)
	}
	v := math.Vertex3D{}
	if off := unsafe.Offsetof(v.Normal); off != 12 {
		t.Errorf("Normal offset = %d, want 12", off)
	}
	if off := unsafe.Offsetof(v.Colour); off != 24 {
		t.Errorf("Colour offset = %d, want 24", off)
	}
	if off := unsafe.Offsetof(v.Texcoord); off != 36 {
		t.Errorf("Texcoord offset = %d, want 36", off)
	}
}
