package particles

import (
	"fmt"
)

// FBO owns the two position targets and the point set. Exactly one target is
// current (readable by the render stage); the other is the next write target.
type FBO struct {
	backend Backend
	width   int
	height  int

	targets [2]Target
	current int
	points  PointSet

	params   SimParams
	lastTime float64
	released bool
}

// NewFBO allocates both targets, uploads initial into the first one and builds
// the point set. On any failure everything allocated so far is released.
func NewFBO(b Backend, width, height int, initial []float32, speed, curlFreq float32) (*FBO, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: invalid size %dx%d", ErrAllocation, width, height)
	}
	if len(initial) != width*height*3 {
		return nil, fmt.Errorf("initial positions: got %d floats, want %d", len(initial), width*height*3)
	}

	f := &FBO{
		backend: b,
		width:   width,
		height:  height,
		params: SimParams{
			Speed:         speed,
			CurlFrequency: curlFreq,
		},
	}
	ok := false
	defer func() {
		if !ok {
			f.Release()
		}
	}()

	var err error
	if f.targets[0], err = b.NewTarget(width, height, initial); err != nil {
		return nil, fmt.Errorf("%w: position target 0: %w", ErrAllocation, err)
	}
	if f.targets[1], err = b.NewTarget(width, height, nil); err != nil {
		return nil, fmt.Errorf("%w: position target 1: %w", ErrAllocation, err)
	}
	if f.points, err = b.NewPointSet(TexelUVs(width, height)); err != nil {
		return nil, fmt.Errorf("%w: point set: %w", ErrAllocation, err)
	}
	ok = true
	return f, nil
}

// Update runs one simulation step into the alternate target and swaps roles.
// If the pass fails the current target is left untouched.
func (f *FBO) Update(time float64, audio AudioUniforms) error {
	if f.released {
		return fmt.Errorf("fbo update: released")
	}
	f.params.Time = float32(time)
	f.params.Delta = float32(clampStep(time - f.lastTime))
	f.params.AudioAmplitude = audio.Amplitude
	f.params.AudioData = audio.Data
	f.lastTime = time

	src := f.targets[f.current]
	dst := f.targets[1-f.current]
	if err := f.backend.Simulate(src, dst, f.params); err != nil {
		return fmt.Errorf("simulate: %w", err)
	}
	f.current = 1 - f.current
	return nil
}

// Current is the texture the render stage samples this frame.
func (f *FBO) Current() Target { return f.targets[f.current] }

// Alternate is the target the next Update writes.
func (f *FBO) Alternate() Target { return f.targets[1-f.current] }

func (f *FBO) Points() PointSet { return f.points }

func (f *FBO) Params() SimParams { return f.params }

func (f *FBO) Size() (int, int) { return f.width, f.height }

// Count is the number of particles.
func (f *FBO) Count() int { return f.width * f.height }

// Release frees both targets and the point set. Safe to call more than once.
func (f *FBO) Release() {
	if f.released {
		return
	}
	f.released = true
	for i, t := range f.targets {
		if t != nil {
			t.Release()
			f.targets[i] = nil
		}
	}
	if f.points != nil {
		f.points.Release()
		f.points = nil
	}
}
