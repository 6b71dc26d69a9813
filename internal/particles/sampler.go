package particles

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Sampler produces one particle start position per call.
type Sampler interface {
	Sample() mgl32.Vec3
}

// UniformBall samples points uniformly inside a ball centred on the origin.
type UniformBall struct {
	Radius float64
	rng    *Rand
}

func NewUniformBall(radius float64, seed uint64) *UniformBall {
	return &UniformBall{Radius: radius, rng: NewRand(seed)}
}

// Sample picks a direction uniformly on the sphere and a radius with density
// proportional to r², which makes the volume density constant.
func (b *UniformBall) Sample() mgl32.Vec3 {
	theta := b.rng.Float64() * 2 * math.Pi
	cosPhi := b.rng.RangeF(-1, 1)
	sinPhi := math.Sqrt(1 - cosPhi*cosPhi)
	r := b.Radius * math.Cbrt(b.rng.Float64())
	return mgl32.Vec3{
		float32(r * sinPhi * math.Cos(theta)),
		float32(r * sinPhi * math.Sin(theta)),
		float32(r * cosPhi),
	}
}

// FixedPoint returns the same point on every call.
type FixedPoint mgl32.Vec3

func (p FixedPoint) Sample() mgl32.Vec3 { return mgl32.Vec3(p) }

// SeedPositions fills a width×height RGB float grid, one sample per texel.
func SeedPositions(width, height int, s Sampler) []float32 {
	data := make([]float32, width*height*3)
	for i := 0; i < len(data); i += 3 {
		p := s.Sample()
		data[i+0] = p.X()
		data[i+1] = p.Y()
		data[i+2] = p.Z()
	}
	return data
}

// TexelUVs returns the UV of every texel centre, row-major. These are the
// only per-vertex attributes of the particle point set.
func TexelUVs(width, height int) []float32 {
	uvs := make([]float32, 0, width*height*2)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			uvs = append(uvs,
				(float32(x)+0.5)/float32(width),
				(float32(y)+0.5)/float32(height),
			)
		}
	}
	return uvs
}
