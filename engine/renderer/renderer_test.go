package renderer

import (
	"bytes"
	"fmt"
	gomath "math"
	"testing"

	"github.com/olivercrane/vasari/engine/core"
	"github.com/olivercrane/vasari/engine/math"
)

// fakeBackend records the call sequence the draw loop issues and models the
// per-slot fence rotation of the real backend: BeginFrame waits on the
// slot's fence and resets it, EndFrame signals it again (an instantaneous
// GPU).
type fakeBackend struct {
	initialized bool

	frameSlot   int
	fences      [MaxFramesInFlight]bool
	framesBegun int
	framesEnded int

	// Number of upcoming acquires that report an out of date swapchain,
	// booting the frame before the slot fence is consumed.
	outOfDateAcquires int

	pipelineBinds int
	meshBinds     int
	textureBinds  int
	draws         int
	pushes        int

	meshes   map[string][]byte
	textures map[string][]byte
}

func newFakeBackend() *fakeBackend {
	fb := &fakeBackend{
		meshes:   make(map[string][]byte),
		textures: make(map[string][]byte),
	}
	// Render fences start life signaled so the first wait does not block.
	for i := range fb.fences {
		fb.fences[i] = true
	}
	return fb
}

func (f *fakeBackend) Initialize(appName string, width, height uint32) error {
	f.initialized = true
	return nil
}

func (f *fakeBackend) Shutdown() error { return nil }

func (f *fakeBackend) Resized(width, height uint32) error { return nil }

func (f *fakeBackend) BeginFrame(packet *RenderPacket) error {
	if f.outOfDateAcquires > 0 {
		f.outOfDateAcquires--
		return core.ErrSwapchainBooting
	}
	if !f.fences[f.frameSlot] {
		return fmt.Errorf("frame slot %d fence not signaled", f.frameSlot)
	}
	f.fences[f.frameSlot] = false
	f.framesBegun++
	return nil
}

func (f *fakeBackend) UpdateGlobalState(camera CameraData, scene SceneData) error { return nil }

func (f *fakeBackend) UpdateObjectData(objects []ObjectData) error {
	if len(objects) > MaxObjectCount {
		return fmt.Errorf("%d objects exceed storage buffer capacity", len(objects))
	}
	return nil
}

func (f *fakeBackend) BindMaterial(material *Material) error {
	f.pipelineBinds++
	if material.Textured() {
		if _, ok := f.textures[material.Texture]; !ok {
			return fmt.Errorf("material %q references missing texture %q", material.Name, material.Texture)
		}
		f.textureBinds++
	}
	return nil
}

func (f *fakeBackend) BindMesh(mesh *Mesh) error {
	if _, ok := f.meshes[mesh.Name]; !ok {
		return fmt.Errorf("mesh %q was never uploaded", mesh.Name)
	}
	f.meshBinds++
	return nil
}

func (f *fakeBackend) PushModel(model math.Mat4) error {
	f.pushes++
	return nil
}

func (f *fakeBackend) Draw(vertexCount, firstInstance uint32) error {
	f.draws++
	return nil
}

func (f *fakeBackend) EndFrame(packet *RenderPacket) error {
	f.fences[f.frameSlot] = true
	f.frameSlot = (f.frameSlot + 1) % MaxFramesInFlight
	f.framesEnded++
	return nil
}

func (f *fakeBackend) CreateMesh(mesh *Mesh) error {
	f.meshes[mesh.Name] = vertexBytes(mesh.Vertices)
	return nil
}

func (f *fakeBackend) CreateTexture(name string, pixels []byte, width, height uint32) error {
	stored := make([]byte, len(pixels))
	copy(stored, pixels)
	f.textures[name] = stored
	return nil
}

func (f *fakeBackend) CreateMaterial(material *Material) error { return nil }

func (f *fakeBackend) WaitIdle() error { return nil }

func vertexBytes(vertices []math.Vertex3D) []byte {
	var buf bytes.Buffer
	for _, v := range vertices {
		for _, f32 := range []float32{
			v.Position.X, v.Position.Y, v.Position.Z,
			v.Normal.X, v.Normal.Y, v.Normal.Z,
			v.Colour.X, v.Colour.Y, v.Colour.Z,
			v.Texcoord.X, v.Texcoord.Y,
		} {
			bits := gomath.Float32bits(f32)
			buf.Write([]byte{byte(bits), byte(bits >> 8), byte(bits >> 16), byte(bits >> 24)})
		}
	}
	return buf.Bytes()
}

func triangleMesh(name string) *Mesh {
	return &Mesh{
		Name: name,
		Vertices: []math.Vertex3D{
			{Position: math.NewVec3(1, 1, 0), Colour: math.NewVec3(0, 1, 0)},
			{Position: math.NewVec3(-1, 1, 0), Colour: math.NewVec3(0, 1, 0)},
			{Position: math.NewVec3(0, -1, 0), Colour: math.NewVec3(0, 1, 0)},
		},
	}
}

func buildGridScene(t *testing.T) *Scene {
	t.Helper()
	scene := NewScene()

	if err := scene.AddMesh(triangleMesh("triangle")); err != nil {
		t.Fatal(err)
	}
	if err := scene.AddMesh(triangleMesh("feature")); err != nil {
		t.Fatal(err)
	}
	if err := scene.AddMaterial(&Material{Name: "defaultmesh", Shader: "lit"}); err != nil {
		t.Fatal(err)
	}
	if err := scene.AddMaterial(&Material{Name: "texturedmesh", Shader: "textured_lit", Texture: "checker"}); err != nil {
		t.Fatal(err)
	}

	// 41x41 grid sharing one mesh and one material, plus two special-case
	// renderables.
	for x := -20; x <= 20; x++ {
		for z := -20; z <= 20; z++ {
			translation := math.NewMat4Translation(math.NewVec3(float32(x), 0, float32(z)))
			scale := math.NewMat4Scale(math.NewVec3(0.2, 0.2, 0.2))
			if err := scene.AddRenderable("triangle", "defaultmesh", translation.Mul(scale)); err != nil {
				t.Fatal(err)
			}
		}
	}
	if err := scene.AddRenderable("feature", "defaultmesh", math.NewMat4Identity()); err != nil {
		t.Fatal(err)
	}
	if err := scene.AddRenderable("feature", "texturedmesh", math.NewMat4Translation(math.NewVec3(0, 2, 0))); err != nil {
		t.Fatal(err)
	}
	return scene
}

func newTestRenderer(t *testing.T, fb *fakeBackend, scene *Scene) *Renderer {
	t.Helper()
	r := New(fb, NewCamera(16.0/9.0))
	if err := r.Initialize("test", 1280, 720); err != nil {
		t.Fatal(err)
	}
	if err := r.CreateTexture("checker", make([]byte, 4*4*4), 4, 4); err != nil {
		t.Fatal(err)
	}
	if err := r.LoadScene(scene); err != nil {
		t.Fatal(err)
	}
	return r
}

func TestDrawSkipsRedundantBinds(t *testing.T) {
	fb := newFakeBackend()
	scene := buildGridScene(t)
	r := newTestRenderer(t, fb, scene)

	if err := r.DrawFrame(1.0 / 60.0); err != nil {
		t.Fatal(err)
	}

	total := len(scene.Renderables())
	if total != 41*41+2 {
		t.Fatalf("renderable count = %d, want %d", total, 41*41+2)
	}
	if fb.draws != total {
		t.Errorf("draw calls = %d, want %d", fb.draws, total)
	}
	// Sorted by (material, mesh) the scene has at most 3 material runs and
	// 3 mesh runs; without skipping these would be 1683 each.
	if fb.pipelineBinds < 2 || fb.pipelineBinds > 3 {
		t.Errorf("pipeline binds = %d, want 2 or 3", fb.pipelineBinds)
	}
	if fb.meshBinds < 2 || fb.meshBinds > 3 {
		t.Errorf("mesh binds = %d, want 2 or 3", fb.meshBinds)
	}
	// Every renderable still gets its push constant.
	if fb.pushes != total {
		t.Errorf("push constant writes = %d, want %d", fb.pushes, total)
	}
}

func TestDrawOrderIsSortedByMaterialThenMesh(t *testing.T) {
	scene := buildGridScene(t)
	scene.Sort()

	renderables := scene.Renderables()
	for i := 1; i < len(renderables); i++ {
		prev, cur := renderables[i-1], renderables[i]
		if prev.Material.Name > cur.Material.Name {
			t.Fatalf("renderable %d: material %q sorts after %q", i, prev.Material.Name, cur.Material.Name)
		}
		if prev.Material.Name == cur.Material.Name && prev.Mesh.Name > cur.Mesh.Name {
			t.Fatalf("renderable %d: mesh %q sorts after %q within material %q",
				i, prev.Mesh.Name, cur.Mesh.Name, cur.Material.Name)
		}
	}
}

func TestTenFrameLifecycle(t *testing.T) {
	fb := newFakeBackend()

	// A 2-mesh, 2-material scene: one textured, one untextured.
	scene := NewScene()
	if err := scene.AddMesh(triangleMesh("triangle")); err != nil {
		t.Fatal(err)
	}
	if err := scene.AddMesh(triangleMesh("quad")); err != nil {
		t.Fatal(err)
	}
	if err := scene.AddMaterial(&Material{Name: "defaultmesh", Shader: "lit"}); err != nil {
		t.Fatal(err)
	}
	if err := scene.AddMaterial(&Material{Name: "texturedmesh", Shader: "textured_lit", Texture: "checker"}); err != nil {
		t.Fatal(err)
	}
	if err := scene.AddRenderable("triangle", "defaultmesh", math.NewMat4Identity()); err != nil {
		t.Fatal(err)
	}
	if err := scene.AddRenderable("quad", "texturedmesh", math.NewMat4Identity()); err != nil {
		t.Fatal(err)
	}

	r := newTestRenderer(t, fb, scene)

	for i := 0; i < 10; i++ {
		if err := r.DrawFrame(1.0 / 60.0); err != nil {
			t.Fatalf("frame %d: %v", i, err)
		}
	}

	if r.FrameNumber() != 10 {
		t.Errorf("frame number = %d, want 10", r.FrameNumber())
	}
	if fb.framesBegun != 10 || fb.framesEnded != 10 {
		t.Errorf("frames begun/ended = %d/%d, want 10/10", fb.framesBegun, fb.framesEnded)
	}
	for slot, signaled := range fb.fences {
		if !signaled {
			t.Errorf("frame slot %d fence left unsignaled", slot)
		}
	}
}

func TestMeshUploadRoundTrip(t *testing.T) {
	fb := newFakeBackend()
	mesh := triangleMesh("triangle")

	if err := fb.CreateMesh(mesh); err != nil {
		t.Fatal(err)
	}

	got := fb.meshes["triangle"]
	want := vertexBytes(mesh.Vertices)
	if !bytes.Equal(got, want) {
		t.Fatalf("uploaded mesh bytes differ: got %d bytes, want %d", len(got), len(want))
	}
}

func TestCreateTextureValidatesPixelBuffer(t *testing.T) {
	fb := newFakeBackend()
	r := New(fb, NewCamera(1.0))

	if err := r.CreateTexture("bad", make([]byte, 7), 2, 2); err == nil {
		t.Fatal("expected error for short pixel buffer")
	}
	if err := r.CreateTexture("good", make([]byte, 2*2*4), 2, 2); err != nil {
		t.Fatalf("valid RGBA8 buffer rejected: %v", err)
	}
}

func TestDrawFrameSkipsWhenSwapchainOutOfDate(t *testing.T) {
	fb := newFakeBackend()

	scene := NewScene()
	if err := scene.AddMesh(triangleMesh("triangle")); err != nil {
		t.Fatal(err)
	}
	if err := scene.AddMaterial(&Material{Name: "defaultmesh", Shader: "lit"}); err != nil {
		t.Fatal(err)
	}
	if err := scene.AddRenderable("triangle", "defaultmesh", math.NewMat4Identity()); err != nil {
		t.Fatal(err)
	}
	r := newTestRenderer(t, fb, scene)

	if err := r.DrawFrame(1.0 / 60.0); err != nil {
		t.Fatalf("warm-up frame: %v", err)
	}

	// The swapchain goes out of date with no resize event in between, as
	// when a compositor changes the surface behind the window.
	fb.outOfDateAcquires = 1
	if err := r.DrawFrame(1.0 / 60.0); err != nil {
		t.Fatalf("out of date frame should be skipped, got: %v", err)
	}
	if fb.framesBegun != 1 || fb.framesEnded != 1 {
		t.Fatalf("skipped frame reached the backend: begun/ended = %d/%d", fb.framesBegun, fb.framesEnded)
	}
	if r.FrameNumber() != 2 {
		t.Fatalf("frame number = %d, want 2", r.FrameNumber())
	}

	// The next frame renders normally.
	if err := r.DrawFrame(1.0 / 60.0); err != nil {
		t.Fatalf("recovery frame: %v", err)
	}
	if fb.framesBegun != 2 || fb.framesEnded != 2 {
		t.Fatalf("recovery frame not rendered: begun/ended = %d/%d", fb.framesBegun, fb.framesEnded)
	}
	for slot, signaled := range fb.fences {
		if !signaled {
			t.Fatalf("frame slot %d fence left unsignaled", slot)
		}
	}
}

func TestDrawFrameWithoutSceneErrors(t *testing.T) {
	r := New(newFakeBackend(), NewCamera(1.0))

	if err := r.DrawFrame(1.0 / 60.0); err == nil {
		t.Fatal("expected an error before any scene is loaded")
	}
	if r.FrameNumber() != 0 {
		t.Fatalf("frame number advanced to %d with no scene", r.FrameNumber())
	}
}
