package audio

import (
	"fmt"
	"io"
	"math"
	"sync"

	"github.com/hajimehoshi/oto/v2"
)

const (
	ToneSampleRate   = 44100
	toneChannelCount = 2
	toneVolume       = 0.35
)

// Tone plays a pulsing synthetic tone through the speakers and feeds the same
// samples to the analyzer. It stands in for a microphone on machines without one.
type Tone struct {
	Frequency float64 // Hz of the fundamental
	PulseRate float64 // envelope cycles per second

	mu     sync.Mutex
	ctx    *oto.Context
	player oto.Player
}

func NewTone() *Tone {
	return &Tone{Frequency: 110, PulseRate: 0.5}
}

func (t *Tone) Name() string { return "tone" }

// Start blocks until the output device is ready.
func (t *Tone) Start(sink *Ring) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.player != nil {
		return nil
	}
	if t.ctx == nil {
		ctx, ready, err := oto.NewContext(ToneSampleRate, toneChannelCount, oto.FormatFloat32LE)
		if err != nil {
			return fmt.Errorf("%w: output context: %w", ErrDeviceUnavailable, err)
		}
		<-ready
		t.ctx = ctx
	}
	t.player = t.ctx.NewPlayer(newToneReader(t.Frequency, t.PulseRate, ToneSampleRate, sink))
	t.player.SetVolume(toneVolume)
	t.player.Play()
	return nil
}

func (t *Tone) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.player == nil {
		return nil
	}
	err := t.player.Close()
	t.player = nil
	return err
}

// toneReader synthesises stereo float32 LE frames on demand and mirrors the
// mono signal into the analysis ring.
type toneReader struct {
	freq, pulse float64
	dt          float64
	t           float64
	sink        *Ring
	mono        []float32
}

func newToneReader(freq, pulse float64, sampleRate int, sink *Ring) *toneReader {
	return &toneReader{freq: freq, pulse: pulse, dt: 1 / float64(sampleRate), sink: sink}
}

// sample is a fundamental plus two harmonics under a slow raised-cosine envelope.
func (r *toneReader) sample() float64 {
	env := 0.5 - 0.5*math.Cos(2*math.Pi*r.pulse*r.t)
	w := 2 * math.Pi * r.freq * r.t
	v := math.Sin(w) + 0.5*math.Sin(2*w) + 0.25*math.Sin(3*w)
	return env * v / 1.75
}

func (r *toneReader) Read(p []byte) (int, error) {
	frames := len(p) / (4 * toneChannelCount)
	if frames == 0 {
		return 0, io.ErrShortBuffer
	}
	if cap(r.mono) < frames {
		r.mono = make([]float32, frames)
	}
	r.mono = r.mono[:frames]
	for i := 0; i < frames; i++ {
		s := r.sample()
		putStereoF32(p, i, s)
		r.mono[i] = float32(s)
		r.t += r.dt
	}
	if r.sink != nil {
		r.sink.Write(r.mono)
	}
	return frames * 4 * toneChannelCount, nil
}

// putStereoF32 writes a [-1,1] sample as float32 LE to both stereo channels at frame i.
func putStereoF32(buf []byte, i int, sample float64) {
	v := math.Float32bits(float32(sample))
	buf[i*8] = byte(v)
	buf[i*8+1] = byte(v >> 8)
	buf[i*8+2] = byte(v >> 16)
	buf[i*8+3] = byte(v >> 24)
	buf[i*8+4] = byte(v)
	buf[i*8+5] = byte(v >> 8)
	buf[i*8+6] = byte(v >> 16)
	buf[i*8+7] = byte(v >> 24)
}
