package renderer

import (
	"github.com/olivercrane/vasari/engine/math"
)

// Number of frame slots the CPU may record ahead of the GPU.
const MaxFramesInFlight = 2

// Capacity of each per-frame object storage buffer, in model matrices.
const MaxObjectCount = 10000

// CameraData mirrors the global uniform block at set 0 binding 0. Field
// order and byte layout must match the shader declaration exactly: three
// consecutive column-major mat4s, 192 bytes.
type CameraData struct {
	View           math.Mat4
	Projection     math.Mat4
	ViewProjection math.Mat4
}

// SceneData mirrors set 0 binding 1: five vec4s, 80 bytes. FogDistances
// packs (near, far, unused, unused) in X/Y.
type SceneData struct {
	FogColor          math.Vec4
	FogDistances      math.Vec4
	AmbientColor      math.Vec4
	SunlightDirection math.Vec4
	SunlightColor     math.Vec4
}

// ObjectData is one element of the per-frame storage buffer at set 1
// binding 0: a single model matrix, 64 bytes, tightly packed. Shaders index
// it with gl_BaseInstance.
type ObjectData struct {
	Model math.Mat4
}

// RenderPacket carries the per-frame values the backend needs to begin and
// end one frame.
type RenderPacket struct {
	DeltaTime   float64
	FrameNumber uint64
	ClearColor  math.Vec4
}
