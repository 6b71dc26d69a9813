package audio

import "sync"

// Ring keeps the most recent mono samples written by a device callback.
type Ring struct {
	mu      sync.Mutex
	buf     []float32
	pos     int
	written uint64
}

func NewRing(size int) *Ring {
	return &Ring{buf: make([]float32, size)}
}

// Write is called from the audio device thread.
func (r *Ring) Write(samples []float32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(samples) > len(r.buf) {
		samples = samples[len(samples)-len(r.buf):]
	}
	for _, s := range samples {
		r.buf[r.pos] = s
		r.pos = (r.pos + 1) % len(r.buf)
	}
	r.written += uint64(len(samples))
}

// Latest copies the newest samples into dst, oldest first, and returns how
// many were available (at most len(dst)). Missing samples are left at the
// front of dst untouched.
func (r *Ring) Latest(dst []float32) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := len(dst)
	if n > len(r.buf) {
		n = len(r.buf)
	}
	if uint64(n) > r.written {
		n = int(r.written)
	}
	start := (r.pos - n + len(r.buf)) % len(r.buf)
	off := len(dst) - n
	for i := 0; i < n; i++ {
		dst[off+i] = r.buf[(start+i)%len(r.buf)]
	}
	return n
}

// Written is the total number of samples ever written.
func (r *Ring) Written() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.written
}
