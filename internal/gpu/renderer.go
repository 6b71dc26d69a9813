package gpu

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/gl/v4.1-core/gl"

	"audiosphere/internal/audio"
	"audiosphere/internal/particles"
	"audiosphere/internal/scene"
)

// Renderer draws the background quad and the particle points into the
// default framebuffer.
type Renderer struct {
	pointsProg uint32
	bgProg     uint32
	quadVAO    uint32
	quadVBO    uint32
	audioTex   uint32

	width, height   int
	pixelRatio      float64
	// framebufferSize reports the real drawable size in pixels.
	framebufferSize func() (int, int)

	ptUPositions      int32
	ptUAudio          int32
	ptUModel          int32
	ptUView           int32
	ptUProjection     int32
	ptUPointSize      int32
	ptUPixelRatio     int32
	ptUAudioAmplitude int32
	ptUOpacity        int32
	ptUTime           int32

	bgUTime       int32
	bgUResolution int32
	bgUViewport   int32
}

func NewRenderer(framebufferSize func() (int, int)) (*Renderer, error) {
	pointsProg, err := linkProgram(pointsVertSrc, pointsFragSrc)
	if err != nil {
		return nil, fmt.Errorf("%w: points program: %w", particles.ErrAllocation, err)
	}
	bgProg, err := linkProgram(quadVertSrc, backgroundFragSrc)
	if err != nil {
		gl.DeleteProgram(pointsProg)
		return nil, fmt.Errorf("%w: background program: %w", particles.ErrAllocation, err)
	}

	r := &Renderer{
		pointsProg:      pointsProg,
		bgProg:          bgProg,
		pixelRatio:      1,
		framebufferSize: framebufferSize,
	}
	r.quadVAO, r.quadVBO = newQuad()

	// Audio magnitudes: one R8 row, a texel per frequency bin.
	gl.GenTextures(1, &r.audioTex)
	gl.BindTexture(gl.TEXTURE_2D, r.audioTex)
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)
	silence := make([]uint8, audio.BinCount)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.R8, audio.BinCount, 1, 0, gl.RED, gl.UNSIGNED_BYTE, gl.Ptr(&silence[0]))
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	gl.BindTexture(gl.TEXTURE_2D, 0)

	gl.UseProgram(pointsProg)
	r.ptUPositions = uniform(pointsProg, "uPositions")
	r.ptUAudio = uniform(pointsProg, "uAudio")
	r.ptUModel = uniform(pointsProg, "uModel")
	r.ptUView = uniform(pointsProg, "uView")
	r.ptUProjection = uniform(pointsProg, "uProjection")
	r.ptUPointSize = uniform(pointsProg, "uPointSize")
	r.ptUPixelRatio = uniform(pointsProg, "uPixelRatio")
	r.ptUAudioAmplitude = uniform(pointsProg, "uAudioAmplitude")
	r.ptUOpacity = uniform(pointsProg, "uOpacity")
	r.ptUTime = uniform(pointsProg, "uTime")
	gl.Uniform1i(r.ptUPositions, 0)
	gl.Uniform1i(r.ptUAudio, 1)

	gl.UseProgram(bgProg)
	r.bgUTime = uniform(bgProg, "uTime")
	r.bgUResolution = uniform(bgProg, "uResolution")
	r.bgUViewport = uniform(bgProg, "uViewport")
	gl.UseProgram(0)

	gl.Enable(gl.PROGRAM_POINT_SIZE)
	return r, nil
}

func (r *Renderer) SetSize(width, height int, pixelRatio float64) {
	r.width, r.height = width, height
	r.pixelRatio = pixelRatio
}

// Render draws the background first with depth testing off, then the
// particles with depth testing on. Both stages blend additively.
func (r *Renderer) Render(f *scene.Frame) error {
	pos, ok := f.Positions.(*Target)
	if !ok || pos.tex == 0 {
		return errors.New("gpu: frame positions are not a live gpu target")
	}
	pts, ok := f.Points.(*Points)
	if !ok || pts.vao == 0 {
		return errors.New("gpu: frame points are not a live gpu point set")
	}

	var fbW, fbH int
	if r.framebufferSize != nil {
		fbW, fbH = r.framebufferSize()
	}
	if fbW == 0 || fbH == 0 {
		fbW = int(math.Round(float64(r.width) * r.pixelRatio))
		fbH = int(math.Round(float64(r.height) * r.pixelRatio))
	}
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	gl.Viewport(0, 0, int32(fbW), int32(fbH))
	gl.ClearColor(0, 0, 0, 1)
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)

	gl.Enable(gl.BLEND)
	gl.BlendFunc(gl.SRC_ALPHA, gl.ONE)

	// Background stage.
	gl.Disable(gl.DEPTH_TEST)
	gl.DepthMask(false)
	gl.UseProgram(r.bgProg)
	gl.Uniform1f(r.bgUTime, f.Background.Time)
	gl.Uniform2f(r.bgUResolution, f.Background.Resolution.X(), f.Background.Resolution.Y())
	gl.Uniform2f(r.bgUViewport, float32(fbW), float32(fbH))
	gl.BindVertexArray(r.quadVAO)
	gl.DrawArrays(gl.TRIANGLES, 0, 6)

	// Particle stage.
	gl.Enable(gl.DEPTH_TEST)
	gl.DepthMask(true)
	gl.UseProgram(r.pointsProg)
	if data := f.Particles.AudioData; len(data) > 0 {
		n := min(len(data), audio.BinCount)
		gl.ActiveTexture(gl.TEXTURE1)
		gl.BindTexture(gl.TEXTURE_2D, r.audioTex)
		gl.TexSubImage2D(gl.TEXTURE_2D, 0, 0, 0, int32(n), 1, gl.RED, gl.UNSIGNED_BYTE, gl.Ptr(&data[0]))
	}
	gl.UniformMatrix4fv(r.ptUModel, 1, false, &f.Model[0])
	gl.UniformMatrix4fv(r.ptUView, 1, false, &f.View[0])
	gl.UniformMatrix4fv(r.ptUProjection, 1, false, &f.Projection[0])
	gl.Uniform1f(r.ptUPointSize, f.Particles.PointSize)
	gl.Uniform1f(r.ptUPixelRatio, f.Particles.PixelRatio)
	gl.Uniform1f(r.ptUAudioAmplitude, f.Particles.AudioAmplitude)
	gl.Uniform1f(r.ptUOpacity, f.Particles.Opacity)
	gl.Uniform1f(r.ptUTime, f.Particles.Time)

	gl.ActiveTexture(gl.TEXTURE0)
	gl.BindTexture(gl.TEXTURE_2D, pos.tex)
	gl.ActiveTexture(gl.TEXTURE1)
	gl.BindTexture(gl.TEXTURE_2D, r.audioTex)
	gl.BindVertexArray(pts.vao)
	gl.DrawArrays(gl.POINTS, 0, int32(pts.count))
	gl.BindVertexArray(0)
	gl.ActiveTexture(gl.TEXTURE0)

	if code := gl.GetError(); code != gl.NO_ERROR {
		return fmt.Errorf("gpu: draw: gl error 0x%x", code)
	}
	return nil
}

func (r *Renderer) Destroy() {
	if r.quadVBO != 0 {
		gl.DeleteBuffers(1, &r.quadVBO)
	}
	if r.quadVAO != 0 {
		gl.DeleteVertexArrays(1, &r.quadVAO)
	}
	for _, id := range []uint32{r.pointsProg, r.bgProg} {
		if id != 0 {
			gl.DeleteProgram(id)
		}
	}
	if r.audioTex != 0 {
		gl.DeleteTextures(1, &r.audioTex)
	}
	*r = Renderer{}
}
