package particles

import "errors"

// ErrAllocation marks a failure to create a GPU target or program. It is fatal
// at startup.
var ErrAllocation = errors.New("allocation failure")

// Target is one offscreen RGB float position buffer.
type Target interface {
	Size() (width, height int)
	Release()
}

// PointSet is the drawable point primitive, one vertex per texel.
type PointSet interface {
	Count() int
	Release()
}

// Backend executes the simulation pass and owns the resources it needs for it.
// Implementations: gpu.Backend (OpenGL) and CPUBackend.
type Backend interface {
	NewTarget(width, height int, data []float32) (Target, error)
	NewPointSet(uvs []float32) (PointSet, error)
	// Simulate reads every texel of src and writes the advected position into dst.
	Simulate(src, dst Target, p SimParams) error
	Release()
}
