package audio

import "sync/atomic"

// Frame is one published analysis result. It is never mutated after Publish.
type Frame struct {
	Amplitude  float32 // max(bin)/255
	Magnitudes []uint8 // BinCount byte magnitudes
}

// Cell is a single-writer single-reader "latest value" handoff between the
// audio poll loop and the render loop. Neither side blocks.
type Cell struct {
	p atomic.Pointer[Frame]
}

func (c *Cell) Publish(f *Frame) { c.p.Store(f) }

// Latest returns the most recently published frame, or nil before the first one.
func (c *Cell) Latest() *Frame { return c.p.Load() }
