package gpu

import (
	"errors"
	"fmt"
	"unsafe"

	"github.com/go-gl/gl/v4.1-core/gl"

	"audiosphere/internal/particles"
)

func glOffset(n int) unsafe.Pointer { return unsafe.Pointer(uintptr(n)) }

// Target is a float position texture with its own framebuffer. Texels are
// stored RGBA32F since RGB32F is not guaranteed colour-renderable.
type Target struct {
	tex           uint32
	fbo           uint32
	width, height int
	owner         *Backend
}

func (t *Target) Size() (int, int) { return t.width, t.height }

// Texture is the GL name of the position texture, 0 once released.
func (t *Target) Texture() uint32 { return t.tex }

func (t *Target) Release() {
	if t.fbo != 0 {
		gl.DeleteFramebuffers(1, &t.fbo)
		t.fbo = 0
	}
	if t.tex != 0 {
		gl.DeleteTextures(1, &t.tex)
		t.tex = 0
	}
}

// Points is the particle vertex buffer: one UV per particle.
type Points struct {
	vao, vbo uint32
	count    int
}

func (p *Points) Count() int { return p.count }

func (p *Points) Release() {
	if p.vbo != 0 {
		gl.DeleteBuffers(1, &p.vbo)
		p.vbo = 0
	}
	if p.vao != 0 {
		gl.DeleteVertexArrays(1, &p.vao)
		p.vao = 0
	}
}

// Backend runs the simulation pass on the GPU. All methods must be called on
// the thread that owns the GL context.
type Backend struct {
	simProg uint32
	quadVAO uint32
	quadVBO uint32
	seed    [3]float32

	uPositions      int32
	uTime           int32
	uDelta          int32
	uSpeed          int32
	uCurlFrequency  int32
	uAudioAmplitude int32
	uFlowScale      int32
	uAudioGain      int32
	uContainment    int32
	uBoundRadius    int32
	uSeed           int32
}

// NewBackend compiles the simulation program. The seed shifts the noise
// domain so separate runs flow differently.
func NewBackend(seed int64) (*Backend, error) {
	prog, err := linkProgram(quadVertSrc, simFragSrc)
	if err != nil {
		return nil, fmt.Errorf("%w: simulation program: %w", particles.ErrAllocation, err)
	}
	rng := particles.NewRand(uint64(seed))
	b := &Backend{
		simProg: prog,
		seed:    [3]float32{float32(rng.RangeF(0, 100)), float32(rng.RangeF(0, 100)), float32(rng.RangeF(0, 100))},
	}
	b.quadVAO, b.quadVBO = newQuad()

	gl.UseProgram(prog)
	b.uPositions = uniform(prog, "uPositions")
	b.uTime = uniform(prog, "uTime")
	b.uDelta = uniform(prog, "uDelta")
	b.uSpeed = uniform(prog, "uSpeed")
	b.uCurlFrequency = uniform(prog, "uCurlFrequency")
	b.uAudioAmplitude = uniform(prog, "uAudioAmplitude")
	b.uFlowScale = uniform(prog, "uFlowScale")
	b.uAudioGain = uniform(prog, "uAudioGain")
	b.uContainment = uniform(prog, "uContainment")
	b.uBoundRadius = uniform(prog, "uBoundRadius")
	b.uSeed = uniform(prog, "uSeed")
	gl.Uniform1i(b.uPositions, 0)
	gl.Uniform1f(b.uFlowScale, particles.FlowScale)
	gl.Uniform1f(b.uAudioGain, particles.AudioGain)
	gl.Uniform1f(b.uContainment, particles.Containment)
	gl.Uniform1f(b.uBoundRadius, particles.BoundRadius)
	gl.Uniform3f(b.uSeed, b.seed[0], b.seed[1], b.seed[2])
	gl.UseProgram(0)
	return b, nil
}

// newQuad builds a two-triangle clip-space quad.
func newQuad() (vao, vbo uint32) {
	gl.GenVertexArrays(1, &vao)
	gl.GenBuffers(1, &vbo)
	gl.BindVertexArray(vao)
	gl.BindBuffer(gl.ARRAY_BUFFER, vbo)
	verts := [12]float32{
		-1, -1, 1, -1, 1, 1,
		-1, -1, 1, 1, -1, 1,
	}
	gl.BufferData(gl.ARRAY_BUFFER, len(verts)*4, gl.Ptr(&verts[0]), gl.STATIC_DRAW)
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointer(0, 2, gl.FLOAT, false, 2*4, glOffset(0))
	gl.BindVertexArray(0)
	return vao, vbo
}

func (b *Backend) NewTarget(width, height int, data []float32) (particles.Target, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid target size %dx%d", width, height)
	}
	var texels []float32
	if data != nil {
		if len(data) != width*height*3 {
			return nil, fmt.Errorf("initial data has %d floats, want %d", len(data), width*height*3)
		}
		texels = make([]float32, width*height*4)
		for i := 0; i < width*height; i++ {
			copy(texels[i*4:i*4+3], data[i*3:i*3+3])
			texels[i*4+3] = 1
		}
	}

	t := &Target{width: width, height: height, owner: b}
	gl.GenTextures(1, &t.tex)
	gl.BindTexture(gl.TEXTURE_2D, t.tex)
	var ptr unsafe.Pointer
	if texels != nil {
		ptr = gl.Ptr(&texels[0])
	}
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA32F, int32(width), int32(height), 0, gl.RGBA, gl.FLOAT, ptr)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.NEAREST)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.NEAREST)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	gl.BindTexture(gl.TEXTURE_2D, 0)

	gl.GenFramebuffers(1, &t.fbo)
	gl.BindFramebuffer(gl.FRAMEBUFFER, t.fbo)
	gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.TEXTURE_2D, t.tex, 0)
	status := gl.CheckFramebufferStatus(gl.FRAMEBUFFER)
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	if status != gl.FRAMEBUFFER_COMPLETE {
		t.Release()
		return nil, fmt.Errorf("framebuffer incomplete: 0x%x", status)
	}
	return t, nil
}

func (b *Backend) NewPointSet(uvs []float32) (particles.PointSet, error) {
	if len(uvs) == 0 || len(uvs)%2 != 0 {
		return nil, fmt.Errorf("invalid uv buffer of %d floats", len(uvs))
	}
	p := &Points{count: len(uvs) / 2}
	gl.GenVertexArrays(1, &p.vao)
	gl.GenBuffers(1, &p.vbo)
	gl.BindVertexArray(p.vao)
	gl.BindBuffer(gl.ARRAY_BUFFER, p.vbo)
	gl.BufferData(gl.ARRAY_BUFFER, len(uvs)*4, gl.Ptr(&uvs[0]), gl.STATIC_DRAW)
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointer(0, 2, gl.FLOAT, false, 2*4, glOffset(0))
	gl.BindVertexArray(0)
	if code := gl.GetError(); code != gl.NO_ERROR {
		p.Release()
		return nil, fmt.Errorf("point buffer: gl error 0x%x", code)
	}
	return p, nil
}

// Simulate renders one full-screen pass from src into dst. Blending and
// depth testing are disabled for the pass and left disabled.
func (b *Backend) Simulate(src, dst particles.Target, p particles.SimParams) error {
	s, ok := src.(*Target)
	if !ok || s.owner != b {
		return errors.New("gpu: source target from another backend")
	}
	d, ok := dst.(*Target)
	if !ok || d.owner != b {
		return errors.New("gpu: destination target from another backend")
	}
	if s == d {
		return errors.New("gpu: source and destination are the same target")
	}
	if s.tex == 0 || d.fbo == 0 {
		return errors.New("gpu: target released")
	}

	gl.BindFramebuffer(gl.FRAMEBUFFER, d.fbo)
	gl.Viewport(0, 0, int32(d.width), int32(d.height))
	gl.Disable(gl.BLEND)
	gl.Disable(gl.DEPTH_TEST)

	gl.UseProgram(b.simProg)
	gl.Uniform1f(b.uTime, p.Time)
	gl.Uniform1f(b.uDelta, p.Delta)
	gl.Uniform1f(b.uSpeed, p.Speed)
	gl.Uniform1f(b.uCurlFrequency, p.CurlFrequency)
	gl.Uniform1f(b.uAudioAmplitude, p.AudioAmplitude)

	gl.ActiveTexture(gl.TEXTURE0)
	gl.BindTexture(gl.TEXTURE_2D, s.tex)
	gl.BindVertexArray(b.quadVAO)
	gl.DrawArrays(gl.TRIANGLES, 0, 6)
	gl.BindVertexArray(0)
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)

	if code := gl.GetError(); code != gl.NO_ERROR {
		return fmt.Errorf("gpu: simulation pass: gl error 0x%x", code)
	}
	return nil
}

// Release deletes the simulation program and quad. Targets and point sets
// are released by their owner.
func (b *Backend) Release() {
	if b.quadVBO != 0 {
		gl.DeleteBuffers(1, &b.quadVBO)
		b.quadVBO = 0
	}
	if b.quadVAO != 0 {
		gl.DeleteVertexArrays(1, &b.quadVAO)
		b.quadVAO = 0
	}
	if b.simProg != 0 {
		gl.DeleteProgram(b.simProg)
		b.simProg = 0
	}
}
