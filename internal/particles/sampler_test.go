package particles

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUniformBall_InsideRadius(t *testing.T) {
	const n = 10000
	const tol = 1e-5
	for _, radius := range []float64{1, 2.5} {
		b := NewUniformBall(radius, 42)
		for i := 0; i < n; i++ {
			p := b.Sample()
			require.LessOrEqual(t, float64(p.Len()), radius+tol, "sample %d outside radius %v", i, radius)
		}
	}
}

func TestUniformBall_VolumeDistribution(t *testing.T) {
	const n = 10000
	b := NewUniformBall(1, 7)

	var inner, half int
	var mean mgl32.Vec3
	halfVolumeRadius := math.Cbrt(0.5)
	for i := 0; i < n; i++ {
		p := b.Sample()
		l := float64(p.Len())
		if l < 0.5 {
			inner++
		}
		if l < halfVolumeRadius {
			half++
		}
		mean = mean.Add(p)
	}
	mean = mean.Mul(1.0 / n)

	// Uniform in volume: P(r < 0.5) = 1/8, P(r < cbrt(1/2)) = 1/2.
	assert.InDelta(t, 0.125, float64(inner)/n, 0.02)
	assert.InDelta(t, 0.5, float64(half)/n, 0.03)
	for axis := 0; axis < 3; axis++ {
		assert.InDelta(t, 0, float64(mean[axis]), 0.03, "axis %d", axis)
	}
}

func TestSeedPositions(t *testing.T) {
	data := SeedPositions(4, 2, FixedPoint{1, 2, 3})
	require.Len(t, data, 4*2*3)
	for i := 0; i < len(data); i += 3 {
		assert.Equal(t, []float32{1, 2, 3}, data[i:i+3])
	}
}

func TestTexelUVs(t *testing.T) {
	uvs := TexelUVs(4, 2)
	require.Len(t, uvs, 4*2*2)
	assert.Equal(t, []float32{0.125, 0.25}, uvs[0:2])
	// Last texel: x=3, y=1.
	assert.Equal(t, []float32{0.875, 0.75}, uvs[len(uvs)-2:])
}
