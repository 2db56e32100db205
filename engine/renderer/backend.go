package renderer

import (
	"github.com/olivercrane/vasari/engine/math"
)

// Backend is the boundary between the draw loop and the graphics API. The
// Vulkan implementation lives in renderer/vulkan; tests drive the loop with
// a recording fake.
//
// Frame protocol: BeginFrame acquires a swapchain image and opens the render
// pass; the Update*/Bind*/Draw calls record into the frame's command buffer;
// EndFrame submits and presents. BeginFrame returns core.ErrSwapchainBooting
// when the swapchain is being recreated, in which case the frame is skipped.
type Backend interface {
	Initialize(appName string, width, height uint32) error
	Shutdown() error
	Resized(width, height uint32) error

	BeginFrame(packet *RenderPacket) error
	UpdateGlobalState(camera CameraData, scene SceneData) error
	UpdateObjectData(objects []ObjectData) error
	BindMaterial(material *Material) error
	BindMesh(mesh *Mesh) error
	PushModel(model math.Mat4) error
	Draw(vertexCount, firstInstance uint32) error
	EndFrame(packet *RenderPacket) error

	CreateMesh(mesh *Mesh) error
	CreateTexture(name string, pixels []byte, width, height uint32) error
	CreateMaterial(material *Material) error

	WaitIdle() error
}
