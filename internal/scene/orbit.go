package scene

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

const (
	DefaultDampingFactor = 0.05
	minPolar             = 1e-6
)

// OrbitControls orbits, zooms and pans a Camera around its target. Input
// accumulates deltas; Update applies them, eased by the damping factor.
type OrbitControls struct {
	camera *Camera

	EnableDamping bool
	DampingFactor float64
	RotateSpeed   float64
	ZoomSpeed     float64
	PanSpeed      float64
	MinDistance   float64
	MaxDistance   float64

	deltaTheta float64
	deltaPhi   float64
	scale      float64
	panOffset  mgl32.Vec3
}

func NewOrbitControls(cam *Camera) *OrbitControls {
	return &OrbitControls{
		camera:        cam,
		EnableDamping: true,
		DampingFactor: DefaultDampingFactor,
		RotateSpeed:   1,
		ZoomSpeed:     1,
		PanSpeed:      1,
		MinDistance:   0.5,
		MaxDistance:   100,
		scale:         1,
	}
}

// Rotate handles a drag of (dx, dy) pixels in a viewport of the given height.
func (o *OrbitControls) Rotate(dx, dy, viewportHeight float64) {
	if viewportHeight <= 0 {
		return
	}
	o.deltaTheta -= 2 * math.Pi * dx / viewportHeight * o.RotateSpeed
	o.deltaPhi -= 2 * math.Pi * dy / viewportHeight * o.RotateSpeed
}

// Zoom handles a scroll step; positive values move the camera closer.
func (o *OrbitControls) Zoom(steps float64) {
	o.scale *= math.Pow(0.95, o.ZoomSpeed*steps)
}

// Pan moves the target in the camera plane by a drag of (dx, dy) pixels.
func (o *OrbitControls) Pan(dx, dy, viewportHeight float64) {
	if viewportHeight <= 0 {
		return
	}
	c := o.camera
	offset := c.Position.Sub(c.Target)
	dist := float64(offset.Len()) * math.Tan(c.FovY / 2 * math.Pi / 180)
	view := c.View()
	right := mgl32.Vec3{view[0], view[4], view[8]}
	up := mgl32.Vec3{view[1], view[5], view[9]}
	move := right.Mul(float32(-2 * dx * dist / viewportHeight * o.PanSpeed)).
		Add(up.Mul(float32(2 * dy * dist / viewportHeight * o.PanSpeed)))
	o.panOffset = o.panOffset.Add(move)
}

// Update applies pending input to the camera and reports whether it moved.
func (o *OrbitControls) Update() bool {
	c := o.camera
	offset := c.Position.Sub(c.Target)
	radius := float64(offset.Len())
	if radius == 0 {
		return false
	}
	theta := math.Atan2(float64(offset.X()), float64(offset.Z()))
	phi := math.Acos(clampF(float64(offset.Y())/radius, -1, 1))

	factor := 1.0
	if o.EnableDamping {
		factor = o.DampingFactor
	}
	theta += o.deltaTheta * factor
	phi += o.deltaPhi * factor
	phi = clampF(phi, minPolar, math.Pi-minPolar)
	radius = clampF(radius*o.scale, o.MinDistance, o.MaxDistance)

	target := c.Target.Add(o.panOffset.Mul(float32(factor)))
	sinPhi := math.Sin(phi)
	next := mgl32.Vec3{
		float32(radius * sinPhi * math.Sin(theta)),
		float32(radius * math.Cos(phi)),
		float32(radius * sinPhi * math.Cos(theta)),
	}.Add(target)

	moved := !next.ApproxEqual(c.Position) || !target.ApproxEqual(c.Target)
	c.Position = next
	c.Target = target

	if o.EnableDamping {
		o.deltaTheta *= 1 - o.DampingFactor
		o.deltaPhi *= 1 - o.DampingFactor
		o.panOffset = o.panOffset.Mul(float32(1 - o.DampingFactor))
	} else {
		o.deltaTheta, o.deltaPhi = 0, 0
		o.panOffset = mgl32.Vec3{}
	}
	o.scale = 1
	return moved
}

func clampF(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
