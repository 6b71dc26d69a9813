package scene

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Camera defaults.
const (
	CameraFovY     = 45.0 // degrees
	CameraNear     = 0.1
	CameraFar      = 1000.0
	CameraDistance = 4.0
)

// Camera is a perspective camera looking at Target.
type Camera struct {
	FovY   float64 // degrees
	Aspect float64
	Near   float64
	Far    float64

	Position mgl32.Vec3
	Target   mgl32.Vec3
	Up       mgl32.Vec3
}

func NewCamera(aspect float64) *Camera {
	return &Camera{
		FovY:     CameraFovY,
		Aspect:   aspect,
		Near:     CameraNear,
		Far:      CameraFar,
		Position: mgl32.Vec3{0, 0, CameraDistance},
		Up:       mgl32.Vec3{0, 1, 0},
	}
}

func (c *Camera) Projection() mgl32.Mat4 {
	return mgl32.Perspective(mgl32.DegToRad(float32(c.FovY)), float32(c.Aspect), float32(c.Near), float32(c.Far))
}

func (c *Camera) View() mgl32.Mat4 {
	return mgl32.LookAtV(c.Position, c.Target, c.Up)
}

// Transform is the particle set's placement in the world.
type Transform struct {
	RotationY float64 // radians, in [0, 2π)
	PositionY float64
}

func (t Transform) Model() mgl32.Mat4 {
	return mgl32.Translate3D(0, float32(t.PositionY), 0).Mul4(mgl32.HomogRotate3DY(float32(t.RotationY)))
}
