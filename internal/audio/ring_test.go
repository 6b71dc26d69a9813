package audio

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRing_LatestInOrder(t *testing.T) {
	r := NewRing(4)
	r.Write([]float32{1, 2, 3})
	r.Write([]float32{4, 5})

	dst := make([]float32, 4)
	n := r.Latest(dst)
	assert.Equal(t, 4, n)
	assert.Equal(t, []float32{2, 3, 4, 5}, dst)
	assert.Equal(t, uint64(5), r.Written())
}

func TestRing_PartialFillLeavesFront(t *testing.T) {
	r := NewRing(8)
	r.Write([]float32{7, 8})

	dst := []float32{-1, -1, -1, -1}
	n := r.Latest(dst)
	assert.Equal(t, 2, n)
	assert.Equal(t, []float32{-1, -1, 7, 8}, dst)
}

func TestRing_OversizedWriteKeepsTail(t *testing.T) {
	r := NewRing(3)
	r.Write([]float32{1, 2, 3, 4, 5})

	dst := make([]float32, 3)
	r.Latest(dst)
	assert.Equal(t, []float32{3, 4, 5}, dst)
}

func TestToneReader_FeedsRing(t *testing.T) {
	ring := NewRing(FFTSize)
	r := newToneReader(440, 2, ToneSampleRate, ring)

	buf := make([]byte, 64*8)
	n, err := r.Read(buf)
	assert.NoError(t, err)
	assert.Equal(t, len(buf), n)
	assert.Equal(t, uint64(64), ring.Written())

	_, err = r.Read(make([]byte, 3))
	assert.Error(t, err)
}
