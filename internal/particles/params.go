package particles

// Tuning constants of the simulation.
const (
	DefaultSize          = 512
	DefaultSpeed         = 0.4
	DefaultCurlFrequency = 0.74

	FlowScale   = 0.25 // displacement per second at unit speed
	AudioGain   = 2.0  // pulse strength at full audio amplitude
	Containment = 0.5  // fraction of overshoot beyond BoundRadius removed per step
	BoundRadius = 1.0
	MaxStep     = 0.1 // seconds; larger frame gaps are clamped
)

// AudioUniforms is the audio input of one simulation step.
type AudioUniforms struct {
	Amplitude float32
	// Data holds byte magnitudes. nil keeps whatever the backend last uploaded.
	Data []uint8
}

// SimParams is the full uniform set of the simulation pass.
type SimParams struct {
	Time           float32
	Delta          float32
	Speed          float32
	CurlFrequency  float32
	AudioAmplitude float32
	// AudioData is the optional magnitude row of the last published frame.
	// The shipped passes advect with AudioAmplitude only.
	AudioData      []uint8
}

func clampStep(d float64) float64 {
	if d < 0 {
		return 0
	}
	if d > MaxStep {
		return MaxStep
	}
	return d
}
