package renderer

import (
	"fmt"
	"strings"

	"golang.org/x/exp/slices"

	"github.com/olivercrane/vasari/engine/core"
	"github.com/olivercrane/vasari/engine/math"
)

// Mesh pairs the CPU-side vertex array with the name the backend uses to
// look up its GPU vertex buffer. The vertex slice is retained after upload.
type Mesh struct {
	Name     string
	Vertices []math.Vertex3D
}

// Material names a pipeline variant plus the optional texture bound at
// set 2. Immutable after registration; the scene table is the sole owner.
type Material struct {
	Name    string
	Shader  string
	Texture string
}

func (m *Material) Textured() bool {
	return m.Texture != ""
}

// RenderObject is a non-owning view over a mesh/material pair with a world
// transform. Its lifetime is bounded by the owning scene tables.
type RenderObject struct {
	Mesh      *Mesh
	Material  *Material
	Transform math.Mat4
}

// Scene is a flat ordered list of renderables plus named lookup tables for
// meshes and materials, populated once at startup.
type Scene struct {
	meshes      map[string]*Mesh
	materials   map[string]*Material
	renderables []RenderObject
}

func NewScene() *Scene {
	return &Scene{
		meshes:    make(map[string]*Mesh),
		materials: make(map[string]*Material),
	}
}

func (s *Scene) AddMesh(mesh *Mesh) error {
	if mesh.Name == "" {
		return fmt.Errorf("mesh must have a name")
	}
	if _, exists := s.meshes[mesh.Name]; exists {
		return fmt.Errorf("mesh %q already registered", mesh.Name)
	}
	s.meshes[mesh.Name] = mesh
	return nil
}

func (s *Scene) AddMaterial(material *Material) error {
	if material.Name == "" {
		return fmt.Errorf("material must have a name")
	}
	if _, exists := s.materials[material.Name]; exists {
		return fmt.Errorf("material %q already registered", material.Name)
	}
	s.materials[material.Name] = material
	return nil
}

func (s *Scene) Mesh(name string) *Mesh {
	return s.meshes[name]
}

func (s *Scene) Material(name string) *Material {
	return s.materials[name]
}

func (s *Scene) Meshes() map[string]*Mesh {
	return s.meshes
}

func (s *Scene) Materials() map[string]*Material {
	return s.materials
}

// AddRenderable appends a renderable referencing registered tables.
func (s *Scene) AddRenderable(meshName, materialName string, transform math.Mat4) error {
	mesh, ok := s.meshes[meshName]
	if !ok {
		err := fmt.Errorf("renderable references unknown mesh %q", meshName)
		core.LogError(err.Error())
		return err
	}
	material, ok := s.materials[materialName]
	if !ok {
		err := fmt.Errorf("renderable references unknown material %q", materialName)
		core.LogError(err.Error())
		return err
	}
	s.renderables = append(s.renderables, RenderObject{
		Mesh:      mesh,
		Material:  material,
		Transform: transform,
	})
	return nil
}

// Sort orders renderables by (material, mesh) so the draw pass can skip
// redundant pipeline and vertex-buffer binds. Stable, so insertion order is
// kept within each run.
func (s *Scene) Sort() {
	slices.SortStableFunc(s.renderables, func(a, b RenderObject) int {
		if c := strings.Compare(a.Material.Name, b.Material.Name); c != 0 {
			return c
		}
		return strings.Compare(a.Mesh.Name, b.Mesh.Name)
	})
}

func (s *Scene) Renderables() []RenderObject {
	return s.renderables
}

// SetRenderableMaterial swaps the material of the renderable at index. Used
// by the debug keys to cycle the feature object's shading.
func (s *Scene) SetRenderableMaterial(index int, materialName string) error {
	if index < 0 || index >= len(s.renderables) {
		return fmt.Errorf("renderable index %d out of range", index)
	}
	material, ok := s.materials[materialName]
	if !ok {
		return fmt.Errorf("unknown material %q", materialName)
	}
	s.renderables[index].Material = material
	return nil
}

// SetRenderableMesh swaps the mesh of the renderable at index. The list is
// not re-sorted; the draw pass just loses a bind skip for that entry.
func (s *Scene) SetRenderableMesh(index int, meshName string) error {
	if index < 0 || index >= len(s.renderables) {
		return fmt.Errorf("renderable index %d out of range", index)
	}
	mesh, ok := s.meshes[meshName]
	if !ok {
		return fmt.Errorf("unknown mesh %q", meshName)
	}
	s.renderables[index].Mesh = mesh
	return nil
}
