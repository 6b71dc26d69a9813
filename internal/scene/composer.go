package scene

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"audiosphere/internal/audio"
	"audiosphere/internal/metrics"
	"audiosphere/internal/particles"
)

// ErrNotReady is returned by Tick before Init succeeded.
var ErrNotReady = errors.New("scene: composer not initialised")

// State of the render loop.
type State int

const (
	StateUninitialized State = iota
	StateReady               // resources allocated, no tick yet
	StateRunning             // at least one tick issued
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateReady:
		return "ready"
	case StateRunning:
		return "running"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Motion defaults for the sphere.
const (
	DefaultRotationStep = 0.002 // radians per tick
	DefaultBobAmplitude = 0.05
	DefaultBobSpeed     = 1.0
)

// Options are the fixed tuning values of the scene.
type Options struct {
	Width, Height int
	PixelRatio    float64

	FBOWidth, FBOHeight int
	Speed               float32
	CurlFrequency       float32

	PointSize float32
	Opacity   float32

	RotationStep float64
	BobAmplitude float64
	BobSpeed     float64
}

func DefaultOptions() Options {
	return Options{
		Width:         800,
		Height:        600,
		PixelRatio:    1,
		FBOWidth:      particles.DefaultSize,
		FBOHeight:     particles.DefaultSize,
		Speed:         particles.DefaultSpeed,
		CurlFrequency: particles.DefaultCurlFrequency,
		PointSize:     DefaultPointSize,
		Opacity:       DefaultOpacity,
		RotationStep:  DefaultRotationStep,
		BobAmplitude:  DefaultBobAmplitude,
		BobSpeed:      DefaultBobSpeed,
	}
}

// AudioFeed hands out the latest published audio frame without blocking.
type AudioFeed interface {
	Latest() *audio.Frame
}

// Controls is the interactive camera controller, advanced once per tick.
type Controls interface {
	Update() bool
}

// Deps are the collaborators the composer drives. Controls and Audio may be nil.
type Deps struct {
	Backend  particles.Backend
	Sampler  particles.Sampler
	Renderer Renderer
	Clock    Clock
	Audio    AudioFeed
	Controls Controls
}

// Composer owns camera, viewport and clock and runs the per-tick pipeline.
type Composer struct {
	state State
	opts  Options
	log   *zap.Logger

	camera   *Camera
	controls Controls
	clock    Clock
	audio    AudioFeed
	renderer Renderer
	fbo      *particles.FBO

	width, height int
	pixelRatio    float64
	pendingResize *[2]int

	ticks      uint64
	time       float64
	transform  Transform
	background BackgroundUniforms
	lastAudio  *audio.Frame
}

// NewComposer returns an uninitialised composer. Resize calls made before
// Init are queued and applied by Init.
func NewComposer(log *zap.Logger) *Composer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Composer{log: log.Named("scene")}
}

// Init allocates the camera and the FBO and moves the composer to Ready.
// On failure nothing stays allocated and the composer remains uninitialised.
func (c *Composer) Init(opts Options, deps Deps) error {
	if c.state != StateUninitialized {
		return fmt.Errorf("scene: init in state %s", c.state)
	}
	if deps.Backend == nil || deps.Renderer == nil || deps.Clock == nil || deps.Sampler == nil {
		return errors.New("scene: backend, renderer, clock and sampler are required")
	}
	if c.pendingResize != nil {
		opts.Width, opts.Height = c.pendingResize[0], c.pendingResize[1]
	}
	if opts.Width <= 0 || opts.Height <= 0 {
		return fmt.Errorf("scene: invalid viewport %dx%d", opts.Width, opts.Height)
	}
	if opts.PixelRatio <= 0 {
		opts.PixelRatio = 1
	}

	initial := particles.SeedPositions(opts.FBOWidth, opts.FBOHeight, deps.Sampler)
	fbo, err := particles.NewFBO(deps.Backend, opts.FBOWidth, opts.FBOHeight, initial, opts.Speed, opts.CurlFrequency)
	if err != nil {
		return fmt.Errorf("scene: %w", err)
	}

	c.pendingResize = nil
	c.opts = opts
	c.fbo = fbo
	c.renderer = deps.Renderer
	c.clock = deps.Clock
	c.audio = deps.Audio
	c.controls = deps.Controls
	c.camera = NewCamera(float64(opts.Width) / float64(opts.Height))
	c.pixelRatio = opts.PixelRatio
	c.state = StateReady
	c.applySize(opts.Width, opts.Height)

	metrics.Particles.Set(float64(fbo.Count()))
	c.log.Info("scene ready",
		zap.Int("particles", fbo.Count()),
		zap.Int("width", opts.Width),
		zap.Int("height", opts.Height),
		zap.Float64("pixel_ratio", opts.PixelRatio))
	return nil
}

// Tick runs one frame: controls, clock, simulation, sphere motion,
// background time, draw. Stage failures are logged and the frame continues.
func (c *Composer) Tick() error {
	if c.state == StateUninitialized {
		return ErrNotReady
	}
	if c.state == StateReady {
		c.state = StateRunning
		c.log.Debug("render loop running")
	}

	if c.controls != nil {
		c.controls.Update()
	}

	c.time = c.clock.Elapsed()
	au := c.audioUniforms()

	start := time.Now()
	if err := c.fbo.Update(c.time, au); err != nil {
		metrics.FrameErrors.WithLabelValues("simulation").Inc()
		c.log.Warn("simulation step failed", zap.Error(err))
	}
	metrics.SimulationStep.Observe(time.Since(start).Seconds())

	c.ticks++
	c.transform.RotationY = math.Mod(c.opts.RotationStep*float64(c.ticks), 2*math.Pi)
	c.transform.PositionY = c.opts.BobAmplitude * math.Sin(c.time*c.opts.BobSpeed)
	c.background.Time = float32(c.time)

	frame := Frame{
		Positions:  c.fbo.Current(),
		Points:     c.fbo.Points(),
		Model:      c.transform.Model(),
		View:       c.camera.View(),
		Projection: c.camera.Projection(),
		Particles: ParticleUniforms{
			PointSize:      c.opts.PointSize,
			Opacity:        c.opts.Opacity,
			Time:           float32(c.time),
			PixelRatio:     float32(c.pixelRatio),
			AudioAmplitude: au.Amplitude,
			AudioData:      au.Data,
		},
		Background: c.background,
	}
	if err := c.renderer.Render(&frame); err != nil {
		metrics.FrameErrors.WithLabelValues("render").Inc()
		c.log.Warn("draw failed", zap.Error(err))
	}
	metrics.FramesRendered.Inc()
	return nil
}

// audioUniforms reads the latest published frame. Data is only passed on
// when a new frame arrived so the backends upload it once.
func (c *Composer) audioUniforms() particles.AudioUniforms {
	if c.audio == nil {
		return particles.AudioUniforms{}
	}
	f := c.audio.Latest()
	if f == nil {
		return particles.AudioUniforms{}
	}
	au := particles.AudioUniforms{Amplitude: f.Amplitude}
	if f != c.lastAudio {
		au.Data = f.Magnitudes
		c.lastAudio = f
	}
	return au
}

// Resize updates camera aspect, surface size and background resolution.
// Before Init the size is queued. Non-positive sizes are ignored.
func (c *Composer) Resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	if c.state == StateUninitialized {
		c.pendingResize = &[2]int{width, height}
		return
	}
	c.applySize(width, height)
}

func (c *Composer) applySize(width, height int) {
	c.width, c.height = width, height
	c.camera.Aspect = float64(width) / float64(height)
	c.renderer.SetSize(width, height, c.pixelRatio)
	c.background.Resolution = mgl32.Vec2{float32(width), float32(height)}
}

// SetPixelRatio changes the surface density, e.g. when the window moves
// to another monitor.
func (c *Composer) SetPixelRatio(r float64) {
	if r <= 0 {
		return
	}
	c.pixelRatio = r
	if c.state != StateUninitialized {
		c.renderer.SetSize(c.width, c.height, r)
	}
}

// SetControls replaces the camera controller; nil disables it.
func (c *Composer) SetControls(ctl Controls) { c.controls = ctl }

// Close releases the FBO and returns the composer to Uninitialized.
func (c *Composer) Close() {
	if c.fbo != nil {
		c.fbo.Release()
		c.fbo = nil
	}
	c.state = StateUninitialized
}

func (c *Composer) State() State                   { return c.state }
func (c *Composer) Camera() *Camera                { return c.camera }
func (c *Composer) Transform() Transform           { return c.transform }
func (c *Composer) Background() BackgroundUniforms { return c.background }
func (c *Composer) FBO() *particles.FBO            { return c.fbo }
func (c *Composer) Ticks() uint64                  { return c.ticks }
