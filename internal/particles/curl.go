package particles

import (
	"math"

	"github.com/aquilax/go-perlin"
	"github.com/go-gl/mathgl/mgl32"
)

const (
	noiseAlpha   = 2.0
	noiseBeta    = 2.0
	noiseOctaves = 2
	curlEpsilon  = 0.1
)

// CurlField is a divergence-free vector field built from three noise
// potentials. It shares the integrator, unit clamp and containment of the
// simulation shader but not its noise basis: go-perlin's gradient table here,
// Gustavson cnoise on the GPU. Runs of the two backends diverge.
type CurlField struct {
	noise *perlin.Perlin
}

func NewCurlField(seed int64) *CurlField {
	return &CurlField{noise: perlin.NewPerlin(noiseAlpha, noiseBeta, noiseOctaves, seed)}
}

// potential samples the vector potential; the component offsets decorrelate
// the three channels of a single noise function.
func (c *CurlField) potential(x, y, z float64) (float64, float64, float64) {
	return c.noise.Noise3D(x, y, z),
		c.noise.Noise3D(y-19.1, z+33.4, x+47.2),
		c.noise.Noise3D(z+74.2, x-124.5, y+99.4)
}

// At returns curl(potential) at q, clamped to unit length.
func (c *CurlField) At(q mgl32.Vec3) mgl32.Vec3 {
	x, y, z := float64(q[0]), float64(q[1]), float64(q[2])
	const e = curlEpsilon

	_, dx0y, dx0z := c.potential(x-e, y, z)
	_, dx1y, dx1z := c.potential(x+e, y, z)
	dy0x, _, dy0z := c.potential(x, y-e, z)
	dy1x, _, dy1z := c.potential(x, y+e, z)
	dz0x, dz0y, _ := c.potential(x, y, z-e)
	dz1x, dz1y, _ := c.potential(x, y, z+e)

	cx := (dy1z - dy0z) - (dz1y - dz0y)
	cy := (dz1x - dz0x) - (dx1z - dx0z)
	cz := (dx1y - dx0y) - (dy1x - dy0x)
	v := mgl32.Vec3{float32(cx), float32(cy), float32(cz)}.Mul(float32(1 / (2 * e)))

	if l := v.Len(); l > 1 {
		v = v.Mul(1 / l)
	}
	return v
}

// Advect moves one particle by one simulation step. A zero speed or delta
// leaves p untouched, wherever it lies.
func (c *CurlField) Advect(p mgl32.Vec3, sp SimParams) mgl32.Vec3 {
	if sp.Speed == 0 || sp.Delta == 0 {
		return p
	}
	q := p.Mul(sp.CurlFrequency).Add(mgl32.Vec3{1, 1, 1}.Mul(sp.Time * sp.Speed))
	step := sp.Speed * sp.Delta * FlowScale * (1 + sp.AudioAmplitude*AudioGain)
	return contain(p.Add(c.At(q).Mul(step)))
}

// contain pulls points outside BoundRadius back towards the shell.
func contain(p mgl32.Vec3) mgl32.Vec3 {
	l := p.Len()
	if l <= BoundRadius || math.IsNaN(float64(l)) {
		return p
	}
	excess := (l - BoundRadius) * Containment
	return p.Sub(p.Mul(excess / l))
}
