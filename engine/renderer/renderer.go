package renderer

import (
	"errors"
	"fmt"
	gomath "math"

	"github.com/olivercrane/vasari/engine/core"
	"github.com/olivercrane/vasari/engine/math"
)

// Renderer drives the per-frame protocol against a Backend and owns the
// scene tables, camera and frame counter. All methods must be called from
// a single thread; the GPU behind the backend is the only concurrent actor.
type Renderer struct {
	backend     Backend
	overlay     Overlay
	scene       *Scene
	Camera      *Camera
	frameNumber uint64
}

func New(backend Backend, camera *Camera) *Renderer {
	return &Renderer{
		backend: backend,
		overlay: NullOverlay{},
		Camera:  camera,
	}
}

// SetOverlay replaces the UI overlay. Must be called before the first
// DrawFrame; passing nil restores the no-op overlay.
func (r *Renderer) SetOverlay(overlay Overlay) {
	if overlay == nil {
		overlay = NullOverlay{}
	}
	r.overlay = overlay
}

func (r *Renderer) Initialize(appName string, width, height uint32) error {
	return r.backend.Initialize(appName, width, height)
}

func (r *Renderer) Shutdown() error {
	if err := r.overlay.Shutdown(); err != nil {
		core.LogWarn("overlay shutdown: %s", err)
	}
	return r.backend.Shutdown()
}

func (r *Renderer) OnResize(width, height uint32) error {
	if height > 0 {
		r.Camera.SetAspectRatio(float32(width) / float32(height))
	}
	return r.backend.Resized(width, height)
}

func (r *Renderer) FrameNumber() uint64 {
	return r.frameNumber
}

func (r *Renderer) Scene() *Scene {
	return r.scene
}

// LoadScene uploads every mesh and registers every material of the scene,
// then stable-sorts the renderables by (material, mesh) so the draw pass
// can skip redundant binds.
func (r *Renderer) LoadScene(scene *Scene) error {
	for _, mesh := range scene.Meshes() {
		if len(mesh.Vertices) == 0 {
			return fmt.Errorf("mesh %q has no vertices", mesh.Name)
		}
		if err := r.backend.CreateMesh(mesh); err != nil {
			return fmt.Errorf("uploading mesh %q: %w", mesh.Name, err)
		}
	}
	for _, material := range scene.Materials() {
		if err := r.backend.CreateMaterial(material); err != nil {
			return fmt.Errorf("creating material %q: %w", material.Name, err)
		}
	}
	scene.Sort()
	r.scene = scene
	core.LogInfo("Scene loaded: %d meshes, %d materials, %d renderables",
		len(scene.Meshes()), len(scene.Materials()), len(scene.Renderables()))
	return nil
}

// CreateTexture decodes nothing; it hands already-decoded RGBA8 pixels to
// the backend upload pipeline. Must be called before LoadScene registers a
// material referencing the texture.
func (r *Renderer) CreateTexture(name string, pixels []byte, width, height uint32) error {
	if uint32(len(pixels)) != width*height*4 {
		return fmt.Errorf("texture %q: pixel buffer is %d bytes, want %d (RGBA8 %dx%d)",
			name, len(pixels), width*height*4, width, height)
	}
	return r.backend.CreateTexture(name, pixels, width, height)
}

// DrawFrame runs one iteration of the frame protocol: begin (wait/acquire/
// record-open), write the per-frame uniform and storage regions, issue the
// draw pass with adjacency-based bind skipping, then end (submit/present).
// The frame number increments every call, wrapping, regardless of errors.
func (r *Renderer) DrawFrame(deltaTime float64) error {
	if r.scene == nil {
		return fmt.Errorf("no scene loaded")
	}

	defer func() {
		r.frameNumber++
	}()

	packet := &RenderPacket{
		DeltaTime:   deltaTime,
		FrameNumber: r.frameNumber,
		ClearColor:  r.clearColor(),
	}

	if err := r.backend.BeginFrame(packet); err != nil {
		if errors.Is(err, core.ErrSwapchainBooting) {
			// Swapchain is mid-recreation; skip this frame.
			return nil
		}
		return fmt.Errorf("begin frame %d: %w", r.frameNumber, err)
	}

	r.overlay.NewFrame()

	if err := r.backend.UpdateGlobalState(r.Camera.GPUData(), r.sceneData()); err != nil {
		return err
	}

	renderables := r.scene.Renderables()
	objects := make([]ObjectData, len(renderables))
	for i := range renderables {
		objects[i].Model = renderables[i].Transform
	}
	if err := r.backend.UpdateObjectData(objects); err != nil {
		return err
	}

	if err := r.drawRenderables(renderables); err != nil {
		return err
	}

	if err := r.overlay.Render(packet); err != nil {
		return fmt.Errorf("overlay render: %w", err)
	}

	if err := r.backend.EndFrame(packet); err != nil {
		return fmt.Errorf("end frame %d: %w", r.frameNumber, err)
	}
	return nil
}

// drawRenderables issues one draw per renderable, binding pipeline and
// vertex buffer only when the material or mesh changes from the previous
// entry. The list is expected to be sorted by (material, mesh); firstInstance
// carries the renderable's index so the vertex shader can address the object
// storage buffer without a per-draw push constant.
func (r *Renderer) drawRenderables(renderables []RenderObject) error {
	var lastMaterial *Material
	var lastMesh *Mesh

	for i := range renderables {
		object := &renderables[i]

		if object.Material != lastMaterial {
			if err := r.backend.BindMaterial(object.Material); err != nil {
				return fmt.Errorf("binding material %q: %w", object.Material.Name, err)
			}
			lastMaterial = object.Material
		}

		// Older shader variants still read the model matrix from the push
		// constant block; the storage buffer path coexists with it.
		if err := r.backend.PushModel(object.Transform); err != nil {
			return err
		}

		if object.Mesh != lastMesh {
			if err := r.backend.BindMesh(object.Mesh); err != nil {
				return fmt.Errorf("binding mesh %q: %w", object.Mesh.Name, err)
			}
			lastMesh = object.Mesh
		}

		if err := r.backend.Draw(uint32(len(object.Mesh.Vertices)), uint32(i)); err != nil {
			return err
		}
	}
	return nil
}

// clearColor animates the background with the frame counter for visual
// liveness.
func (r *Renderer) clearColor() math.Vec4 {
	flash := float32(gomath.Abs(gomath.Sin(float64(r.frameNumber) / 120.0)))
	return math.NewVec4(0.0, 0.0, flash, 1.0)
}

func (r *Renderer) sceneData() SceneData {
	t := float64(r.frameNumber) / 120.0
	return SceneData{
		FogColor:          math.NewVec4(0.2, 0.2, 0.2, 1.0),
		FogDistances:      math.NewVec4(0.99, 120.0, 0.0, 0.0),
		AmbientColor:      math.NewVec4(float32(gomath.Sin(t)*0.5+0.5), 0.5, float32(gomath.Cos(t)*0.5+0.5), 1.0),
		SunlightDirection: math.NewVec4(-0.4, -1.0, -0.3, 0.0),
		SunlightColor:     math.NewVec4(1.0, 1.0, 0.95, 1.0),
	}
}

func (r *Renderer) WaitIdle() error {
	return r.backend.WaitIdle()
}
