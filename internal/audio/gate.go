package audio

// DefaultThreshold is the amplitude a frame must exceed to be published.
const DefaultThreshold = 0.2

// Gate publishes a frame only when its amplitude is strictly above Threshold.
// Quiet frames publish nothing, so the render side keeps the last loud frame.
type Gate struct {
	Threshold float64
	cell      *Cell
}

func NewGate(threshold float64, cell *Cell) *Gate {
	return &Gate{Threshold: threshold, cell: cell}
}

// Amplitude is max(bin)/255, or 0 for an empty slice.
func Amplitude(mags []uint8) float64 {
	var m uint8
	for _, v := range mags {
		if v > m {
			m = v
		}
	}
	return float64(m) / 255.0
}

// Offer publishes a copy of mags if it passes the gate.
func (g *Gate) Offer(mags []uint8) (amplitude float64, published bool) {
	amplitude = Amplitude(mags)
	if amplitude <= g.Threshold {
		return amplitude, false
	}
	g.cell.Publish(&Frame{
		Amplitude:  float32(amplitude),
		Magnitudes: append([]uint8(nil), mags...),
	})
	return amplitude, true
}
