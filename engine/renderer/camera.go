package renderer

import (
	"github.com/olivercrane/vasari/engine/core"
	"github.com/olivercrane/vasari/engine/math"
)

const cameraSpeed float32 = 12.0

// Camera holds the view position and projection parameters. Movement input
// is accumulated into a normalized direction vector once per frame.
type Camera struct {
	Position math.Vec3

	fov         float32
	aspectRatio float32
	nearClip    float32
	farClip     float32
}

func NewCamera(aspectRatio float32) *Camera {
	return &Camera{
		Position:    math.NewVec3(0.0, 6.0, 20.0),
		fov:         math.DegToRad(70.0),
		aspectRatio: aspectRatio,
		nearClip:    0.1,
		farClip:     200.0,
	}
}

func (c *Camera) SetAspectRatio(aspectRatio float32) {
	if aspectRatio > 0 {
		c.aspectRatio = aspectRatio
	}
}

// ProcessInput converts held movement keys into a normalized direction and
// advances the position by speed * dt.
func (c *Camera) ProcessInput(in *core.Input, deltaTime float64) {
	direction := math.NewVec3Zero()
	if in.IsKeyDown(core.KEY_W) {
		direction.Z -= 1
	}
	if in.IsKeyDown(core.KEY_S) {
		direction.Z += 1
	}
	if in.IsKeyDown(core.KEY_A) {
		direction.X -= 1
	}
	if in.IsKeyDown(core.KEY_D) {
		direction.X += 1
	}
	if in.IsKeyDown(core.KEY_Q) {
		direction.Y -= 1
	}
	if in.IsKeyDown(core.KEY_E) {
		direction.Y += 1
	}
	direction = direction.Normalized()
	c.Position = c.Position.Add(direction.MulScalar(cameraSpeed * float32(deltaTime)))
}

func (c *Camera) View() math.Mat4 {
	target := c.Position.Add(math.NewVec3(0, -0.25, -1))
	return math.NewMat4LookAt(c.Position, target, math.NewVec3Up())
}

func (c *Camera) Projection() math.Mat4 {
	return math.NewMat4Perspective(c.fov, c.aspectRatio, c.nearClip, c.farClip)
}

// GPUData packs the camera matrices the way the global uniform block
// expects them.
func (c *Camera) GPUData() CameraData {
	view := c.View()
	projection := c.Projection()
	return CameraData{
		View:           view,
		Projection:     projection,
		ViewProjection: projection.Mul(view),
	}
}
