package audio

import (
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
)

// Analysis defaults, identical to a browser AnalyserNode with fftSize 256.
const (
	FFTSize     = 256
	BinCount    = FFTSize / 2
	Smoothing   = 0.8
	MinDecibels = -100.0
	MaxDecibels = -30.0
)

// FrequencyAnalyser turns the newest time-domain window into byte magnitudes.
type FrequencyAnalyser interface {
	ByteFrequencyData(samples []float32, dst []uint8)
}

// Spectrum computes byte frequency data: Blackman window, FFT, magnitude
// normalised by the window size, exponential smoothing over calls, then a
// linear map of [MinDecibels, MaxDecibels] onto [0, 255].
type Spectrum struct {
	size     int
	window   []float64
	smoothed []float64
	buf      []complex128
}

func NewSpectrum(size int) *Spectrum {
	s := &Spectrum{
		size:     size,
		window:   make([]float64, size),
		smoothed: make([]float64, size/2),
		buf:      make([]complex128, size),
	}
	const a0, a1, a2 = 0.42, 0.5, 0.08
	for i := range s.window {
		x := float64(i) / float64(size)
		s.window[i] = a0 - a1*math.Cos(2*math.Pi*x) + a2*math.Cos(4*math.Pi*x)
	}
	return s
}

// ByteFrequencyData reads the last Size samples (zero padded at the front when
// fewer are given) and fills dst with min(len(dst), Size/2) bins.
func (s *Spectrum) ByteFrequencyData(samples []float32, dst []uint8) {
	pad := s.size - len(samples)
	if pad < 0 {
		samples = samples[-pad:]
		pad = 0
	}
	for i := range s.buf {
		v := 0.0
		if i >= pad {
			v = float64(samples[i-pad])
		}
		s.buf[i] = complex(v*s.window[i], 0)
	}
	spectrum := fft.FFT(s.buf)

	scale := 1.0 / float64(s.size)
	rangeDB := MaxDecibels - MinDecibels
	for k := 0; k < len(s.smoothed) && k < len(dst); k++ {
		mag := cmplx.Abs(spectrum[k]) * scale
		s.smoothed[k] = Smoothing*s.smoothed[k] + (1-Smoothing)*mag
		if math.IsNaN(s.smoothed[k]) || math.IsInf(s.smoothed[k], 0) {
			s.smoothed[k] = 0
		}
		db := 20 * math.Log10(s.smoothed[k])
		v := math.Floor(255 / rangeDB * (db - MinDecibels))
		switch {
		case math.IsNaN(v) || v < 0:
			dst[k] = 0
		case v > 255:
			dst[k] = 255
		default:
			dst[k] = uint8(v)
		}
	}
}

// Reset drops the smoothing history.
func (s *Spectrum) Reset() {
	for i := range s.smoothed {
		s.smoothed[i] = 0
	}
}
