package scene

import (
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"audiosphere/internal/particles"
)

// Render defaults.
const (
	DefaultPointSize = 1.0
	DefaultOpacity   = 0.25
	MaxPixelRatio    = 1.5
)

// ParticleUniforms feed the particle render stage.
type ParticleUniforms struct {
	PointSize      float32
	Opacity        float32
	Time           float32
	PixelRatio     float32
	AudioAmplitude float32
	// AudioData is nil when the magnitudes did not change since the last frame.
	AudioData      []uint8
}

// BackgroundUniforms feed the full-screen background stage.
type BackgroundUniforms struct {
	Time       float32
	Resolution mgl32.Vec2
}

// Frame is everything one composed draw needs.
type Frame struct {
	Positions  particles.Target
	Points     particles.PointSet
	Model      mgl32.Mat4
	View       mgl32.Mat4
	Projection mgl32.Mat4
	Particles  ParticleUniforms
	Background BackgroundUniforms
}

// Renderer draws the background quad then the particles.
type Renderer interface {
	SetSize(width, height int, pixelRatio float64)
	Render(f *Frame) error
}

// Clock reports seconds elapsed since the simulation started.
type Clock interface {
	Elapsed() float64
}

// SystemClock is a monotonic wall clock.
type SystemClock struct {
	start time.Time
}

func NewSystemClock() *SystemClock { return &SystemClock{start: time.Now()} }

func (c *SystemClock) Elapsed() float64 { return time.Since(c.start).Seconds() }

// ManualClock returns whatever T is set to.
type ManualClock struct {
	T float64
}

func (c *ManualClock) Elapsed() float64 { return c.T }

// PixelRatio is the device pixel ratio of a surface, capped at max.
func PixelRatio(framebufferWidth, windowWidth int, max float64) float64 {
	if windowWidth <= 0 || framebufferWidth <= 0 {
		return 1
	}
	r := float64(framebufferWidth) / float64(windowWidth)
	if r > max {
		return max
	}
	return r
}
