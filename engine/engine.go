package engine

import (
	"fmt"
	"time"

	"github.com/olivercrane/vasari/engine/assets"
	"github.com/olivercrane/vasari/engine/core"
	"github.com/olivercrane/vasari/engine/math"
	"github.com/olivercrane/vasari/engine/platform"
	"github.com/olivercrane/vasari/engine/renderer"
	"github.com/olivercrane/vasari/engine/renderer/vulkan"
)

const (
	gridHalfExtent = 20 // 41x41 triangles
	featureMesh    = "models/monkey.obj"
	checkerTexture = "textures/checker.png"
)

// Application owns the run loop and wires the platform, asset manager and
// renderer together.
type Application struct {
	config       Config
	platform     *platform.Platform
	input        *core.Input
	assetManager *assets.AssetManager
	configWatch  *ConfigWatcher
	renderer     *renderer.Renderer

	clock   *core.Clock
	metrics *core.Metrics

	isRunning   bool
	isSuspended bool
	lastTime    float64

	// Index of the renderable the debug keys act on, resolved after the
	// scene is loaded and sorted.
	featureIndex   int
	materialCycle  []string
	meshCycle      []string
	materialCursor int
	meshCursor     int
}

func New(cfg Config) (*Application, error) {
	core.SetLogLevel(cfg.LogLevel)

	input := core.NewInput()
	p, err := platform.New(input)
	if err != nil {
		core.LogError(err.Error())
		return nil, err
	}

	am, err := assets.NewAssetManager()
	if err != nil {
		core.LogError(err.Error())
		return nil, err
	}

	camera := renderer.NewCamera(float32(cfg.Window.Width) / float32(cfg.Window.Height))
	backend := vulkan.New(p, am, vulkan.Options{
		Debug:        cfg.Renderer.Debug,
		VSync:        cfg.Renderer.VSync,
		TripleBuffer: cfg.Renderer.TripleBuffer,
	})

	return &Application{
		config:       cfg,
		platform:     p,
		input:        input,
		assetManager: am,
		renderer:     renderer.New(backend, camera),
		clock:        core.NewClock(),
		metrics:      core.NewMetrics(),
		isRunning:    true,
		featureIndex: -1,
	}, nil
}

func (a *Application) Initialize(configPath string) error {
	if err := a.platform.Startup(a.config.Window.Title,
		a.config.Window.X, a.config.Window.Y,
		a.config.Window.Width, a.config.Window.Height); err != nil {
		return err
	}
	a.platform.SetResizeCallback(a.onResized)

	if err := a.assetManager.Initialize(a.config.Assets.Dir); err != nil {
		return err
	}

	if configPath != "" {
		watcher, err := WatchConfig(configPath)
		if err != nil {
			// Live reload is a convenience; run without it.
			core.LogWarn("config watch disabled: %s", err)
		} else {
			a.configWatch = watcher
		}
	}

	width, height := a.platform.FramebufferSize()
	if err := a.renderer.Initialize(a.config.Window.Title, width, height); err != nil {
		return err
	}

	if err := a.loadScene(); err != nil {
		return err
	}

	return nil
}

// loadScene builds the startup scene: a flat grid of triangles, a feature
// mesh in the middle (OBJ when the asset exists, a cube otherwise) and a
// textured quad.
func (a *Application) loadScene() error {
	scene := renderer.NewScene()

	if err := scene.AddMesh(triangleMesh()); err != nil {
		return err
	}
	if err := scene.AddMesh(a.loadFeatureMesh()); err != nil {
		return err
	}
	if err := scene.AddMesh(quadMesh()); err != nil {
		return err
	}

	// The checker texture must exist before the textured material is
	// registered.
	pixels, texWidth, texHeight := a.loadCheckerPixels()
	if err := a.renderer.CreateTexture("checker", pixels, texWidth, texHeight); err != nil {
		return err
	}

	materials := []*renderer.Material{
		{Name: "grid", Shader: "interp_color"},
		{Name: "flat", Shader: "flat_color"},
		{Name: "lit", Shader: "lit"},
		{Name: "checkered", Shader: "textured_lit", Texture: "checker"},
	}
	for _, m := range materials {
		if err := scene.AddMaterial(m); err != nil {
			return err
		}
	}

	// 41x41 triangle grid on the ground plane.
	for x := -gridHalfExtent; x <= gridHalfExtent; x++ {
		for z := -gridHalfExtent; z <= gridHalfExtent; z++ {
			transform := math.NewMat4Translation(math.NewVec3(float32(x), 0, float32(z)))
			if err := scene.AddRenderable("triangle", "grid", transform); err != nil {
				return err
			}
		}
	}

	// Feature mesh, raised above the grid.
	feature := math.NewMat4Translation(math.NewVec3(0, 3, 0))
	if err := scene.AddRenderable("feature", "lit", feature); err != nil {
		return err
	}

	// Textured quad off to the side.
	quad := math.NewMat4Translation(math.NewVec3(6, 2, 0)).Mul(math.NewMat4Scale(math.NewVec3(3, 3, 3)))
	if err := scene.AddRenderable("quad", "checkered", quad); err != nil {
		return err
	}

	if err := a.renderer.LoadScene(scene); err != nil {
		return err
	}

	// LoadScene sorted the renderables, so find the feature entry now.
	for i, obj := range scene.Renderables() {
		if obj.Mesh.Name == "feature" {
			a.featureIndex = i
			break
		}
	}
	a.materialCycle = []string{"lit", "flat", "grid", "checkered"}
	a.meshCycle = []string{"feature", "quad", "triangle"}

	return nil
}

// loadFeatureMesh tries the OBJ asset, falling back to a procedural cube so
// the engine runs without any models on disk.
func (a *Application) loadFeatureMesh() *renderer.Mesh {
	model, err := a.assetManager.LoadModel(featureMesh)
	if err != nil {
		core.LogWarn("feature model unavailable (%s), using a cube", err)
		return cubeMesh("feature", 1.5)
	}
	core.LogInfo("Loaded feature model %s (%d vertices).", featureMesh, len(model.Vertices))
	return &renderer.Mesh{Name: "feature", Vertices: model.Vertices}
}

// loadCheckerPixels tries the texture asset, falling back to a generated
// checkerboard.
func (a *Application) loadCheckerPixels() ([]byte, uint32, uint32) {
	img, err := a.assetManager.LoadImage(checkerTexture)
	if err != nil {
		core.LogWarn("checker texture unavailable (%s), generating one", err)
		return checkerboardPixels(64, 8), 64, 64
	}
	return img.Pixels, img.Width, img.Height
}

func (a *Application) Run() error {
	a.clock.Start()
	a.clock.Update()
	a.lastTime = a.clock.Elapsed()

	var titleAccumulator float64
	targetFrameSeconds := 1.0 / 60.0

	for a.isRunning {
		if !a.platform.PumpMessages() {
			a.isRunning = false
		}
		if a.input.QuitRequested() {
			a.isRunning = false
		}
		if !a.isRunning {
			break
		}

		if a.isSuspended {
			time.Sleep(50 * time.Millisecond)
			continue
		}

		a.clock.Update()
		currentTime := a.clock.Elapsed()
		delta := currentTime - a.lastTime

		a.processInput(delta)

		if err := a.renderer.DrawFrame(delta); err != nil {
			core.LogError("frame %d failed: %s", a.renderer.FrameNumber(), err)
			return err
		}

		a.clock.Update()
		frameElapsed := a.clock.Elapsed() - currentTime
		a.metrics.Update(frameElapsed)

		titleAccumulator += delta
		if titleAccumulator >= 1.0 {
			fps, ms := a.metrics.Frame()
			a.platform.SetTitle(fmt.Sprintf("%s | %.0f fps | %.2f ms", a.config.Window.Title, fps, ms))
			titleAccumulator -= 1.0
		}

		// Yield the rest of the frame budget when presenting without
		// vsync, so a trivial scene does not spin a core.
		if !a.config.Renderer.VSync {
			if remaining := targetFrameSeconds - frameElapsed; remaining > 0 {
				time.Sleep(time.Duration(remaining * float64(time.Second)))
			}
		}

		a.input.Update()
		a.lastTime = currentTime
	}

	return nil
}

func (a *Application) processInput(delta float64) {
	if a.input.KeyPressed(core.KEY_ESCAPE) {
		a.input.RequestQuit()
		return
	}

	a.renderer.Camera.ProcessInput(a.input, delta)

	if a.featureIndex < 0 {
		return
	}
	scene := a.renderer.Scene()

	if a.input.KeyPressed(core.KEY_SPACE) {
		a.materialCursor = (a.materialCursor + 1) % len(a.materialCycle)
		name := a.materialCycle[a.materialCursor]
		if err := scene.SetRenderableMaterial(a.featureIndex, name); err != nil {
			core.LogWarn(err.Error())
		} else {
			core.LogInfo("Feature material -> %s", name)
		}
	}

	if a.input.KeyPressed(core.KEY_M) {
		a.meshCursor = (a.meshCursor + 1) % len(a.meshCycle)
		name := a.meshCycle[a.meshCursor]
		if err := scene.SetRenderableMesh(a.featureIndex, name); err != nil {
			core.LogWarn(err.Error())
		} else {
			core.LogInfo("Feature mesh -> %s", name)
		}
	}
}

func (a *Application) onResized(width, height uint32) {
	// A minimized window reports 0x0; suspend until it comes back.
	if width == 0 || height == 0 {
		if !a.isSuspended {
			core.LogInfo("Window minimized, suspending.")
			a.isSuspended = true
		}
		return
	}
	if a.isSuspended {
		core.LogInfo("Window restored, resuming.")
		a.isSuspended = false
	}

	if err := a.renderer.OnResize(width, height); err != nil {
		core.LogError("resize to %dx%d failed: %s", width, height, err)
	}
}

func (a *Application) Shutdown() error {
	core.LogInfo("Shutting down.")

	if err := a.renderer.WaitIdle(); err != nil {
		core.LogWarn(err.Error())
	}
	if err := a.renderer.Shutdown(); err != nil {
		core.LogError(err.Error())
	}
	if a.configWatch != nil {
		a.configWatch.Close()
	}
	a.assetManager.Shutdown()
	return a.platform.Shutdown()
}

// triangleMesh is the unit of the ground grid: one upright triangle with a
// red/green/blue corner each, which the interpolating shader blends.
func triangleMesh() *renderer.Mesh {
	return &renderer.Mesh{
		Name: "triangle",
		Vertices: []math.Vertex3D{
			{Position: math.NewVec3(0.4, 0, 0), Normal: math.NewVec3Up(), Colour: math.NewVec3(1, 0, 0), Texcoord: math.Vec2{X: 1, Y: 1}},
			{Position: math.NewVec3(-0.4, 0, 0), Normal: math.NewVec3Up(), Colour: math.NewVec3(0, 1, 0), Texcoord: math.Vec2{X: 0, Y: 1}},
			{Position: math.NewVec3(0, 0.8, 0), Normal: math.NewVec3Up(), Colour: math.NewVec3(0, 0, 1), Texcoord: math.Vec2{X: 0.5, Y: 0}},
		},
	}
}

// quadMesh is two triangles spanning [-0.5, 0.5]^2 in the XY plane, facing
// +Z, with full texture coverage.
func quadMesh() *renderer.Mesh {
	corner := func(x, y, u, v float32) math.Vertex3D {
		return math.Vertex3D{
			Position: math.NewVec3(x, y, 0),
			Normal:   math.NewVec3(0, 0, 1),
			Colour:   math.NewVec3(1, 1, 1),
			Texcoord: math.Vec2{X: u, Y: v},
		}
	}
	bl := corner(-0.5, -0.5, 0, 1)
	br := corner(0.5, -0.5, 1, 1)
	tr := corner(0.5, 0.5, 1, 0)
	tl := corner(-0.5, 0.5, 0, 0)
	return &renderer.Mesh{
		Name:     "quad",
		Vertices: []math.Vertex3D{bl, br, tr, bl, tr, tl},
	}
}

// cubeMesh builds an axis-aligned cube with per-face normals, 36 vertices.
func cubeMesh(name string, halfExtent float32) *renderer.Mesh {
	h := halfExtent
	faces := []struct {
		normal  math.Vec3
		corners [4]math.Vec3
	}{
		{math.NewVec3(0, 0, 1), [4]math.Vec3{{-h, -h, h}, {h, -h, h}, {h, h, h}, {-h, h, h}}},
		{math.NewVec3(0, 0, -1), [4]math.Vec3{{h, -h, -h}, {-h, -h, -h}, {-h, h, -h}, {h, h, -h}}},
		{math.NewVec3(1, 0, 0), [4]math.Vec3{{h, -h, h}, {h, -h, -h}, {h, h, -h}, {h, h, h}}},
		{math.NewVec3(-1, 0, 0), [4]math.Vec3{{-h, -h, -h}, {-h, -h, h}, {-h, h, h}, {-h, h, -h}}},
		{math.NewVec3(0, 1, 0), [4]math.Vec3{{-h, h, h}, {h, h, h}, {h, h, -h}, {-h, h, -h}}},
		{math.NewVec3(0, -1, 0), [4]math.Vec3{{-h, -h, -h}, {h, -h, -h}, {h, -h, h}, {-h, -h, h}}},
	}

	uvs := [4]math.Vec2{{X: 0, Y: 1}, {X: 1, Y: 1}, {X: 1, Y: 0}, {X: 0, Y: 0}}
	vertices := make([]math.Vertex3D, 0, 36)
	for _, face := range faces {
		quad := [4]math.Vertex3D{}
		for i := 0; i < 4; i++ {
			quad[i] = math.Vertex3D{
				Position: face.corners[i],
				Normal:   face.normal,
				Colour:   math.NewVec3(1, 1, 1),
				Texcoord: uvs[i],
			}
		}
		vertices = append(vertices, quad[0], quad[1], quad[2], quad[0], quad[2], quad[3])
	}
	return &renderer.Mesh{Name: name, Vertices: vertices}
}

// checkerboardPixels builds an RGBA8 magenta/black checkerboard, the classic
// missing-texture stand-in.
func checkerboardPixels(size, cells uint32) []byte {
	pixels := make([]byte, size*size*4)
	cell := size / cells
	for y := uint32(0); y < size; y++ {
		for x := uint32(0); x < size; x++ {
			i := (y*size + x) * 4
			if ((x/cell)+(y/cell))%2 == 0 {
				pixels[i] = 0xFF
				pixels[i+2] = 0xFF
			}
			pixels[i+3] = 0xFF
		}
	}
	return pixels
}
