package particles

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/go-gl/mathgl/mgl32"
	"golang.org/x/sync/errgroup"
)

// CPUBackend runs the simulation pass on the host. It drives headless
// verification and tests; the desktop build uses the OpenGL backend.
type CPUBackend struct {
	field   *CurlField
	workers int
}

func NewCPUBackend(seed int64) *CPUBackend {
	return &CPUBackend{field: NewCurlField(seed), workers: runtime.GOMAXPROCS(0)}
}

// CPUTarget is a host-memory position buffer.
type CPUTarget struct {
	width, height int
	data          []float32
}

func (t *CPUTarget) Size() (int, int) { return t.width, t.height }

// Positions exposes the RGB float data, row-major.
func (t *CPUTarget) Positions() []float32 { return t.data }

// At returns the position stored at texel i.
func (t *CPUTarget) At(i int) mgl32.Vec3 {
	return mgl32.Vec3{t.data[i*3], t.data[i*3+1], t.data[i*3+2]}
}

func (t *CPUTarget) Release() { t.data = nil }

type cpuPoints struct {
	uvs []float32
}

func (p *cpuPoints) Count() int { return len(p.uvs) / 2 }
func (p *cpuPoints) Release()   { p.uvs = nil }

func (b *CPUBackend) NewTarget(width, height int, data []float32) (Target, error) {
	n := width * height * 3
	if data != nil && len(data) != n {
		return nil, fmt.Errorf("target data: got %d floats, want %d", len(data), n)
	}
	t := &CPUTarget{width: width, height: height, data: make([]float32, n)}
	copy(t.data, data)
	return t, nil
}

func (b *CPUBackend) NewPointSet(uvs []float32) (PointSet, error) {
	return &cpuPoints{uvs: append([]float32(nil), uvs...)}, nil
}

func (b *CPUBackend) Simulate(src, dst Target, p SimParams) error {
	s, ok1 := src.(*CPUTarget)
	d, ok2 := dst.(*CPUTarget)
	if !ok1 || !ok2 {
		return errors.New("cpu backend: foreign target")
	}
	if s == d {
		return errors.New("cpu backend: source and destination are the same target")
	}
	if s.data == nil || d.data == nil {
		return errors.New("cpu backend: target released")
	}

	rows := s.height
	workers := b.workers
	if workers > rows {
		workers = rows
	}
	if workers < 1 {
		workers = 1
	}
	per := (rows + workers - 1) / workers

	var g errgroup.Group
	for y0 := 0; y0 < rows; y0 += per {
		y0 := y0
		y1 := min(y0+per, rows)
		g.Go(func() error {
			for i := y0 * s.width; i < y1*s.width; i++ {
				next := b.field.Advect(s.At(i), p)
				d.data[i*3] = next[0]
				d.data[i*3+1] = next[1]
				d.data[i*3+2] = next[2]
			}
			return nil
		})
	}
	return g.Wait()
}

func (b *CPUBackend) Release() {}

// MaxRadius returns the largest distance from the origin in t.
func MaxRadius(t *CPUTarget) float32 {
	var m float32
	for i := 0; i < t.width*t.height; i++ {
		if l := t.At(i).Len(); l > m {
			m = l
		}
	}
	return m
}
