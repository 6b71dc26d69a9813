package audio

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// syntheticAnalyser ignores samples and returns a fixed peak in bin 3.
type syntheticAnalyser struct {
	mu   sync.Mutex
	peak uint8
	boom bool
}

func (s *syntheticAnalyser) set(peak uint8) {
	s.mu.Lock()
	s.peak = peak
	s.mu.Unlock()
}

func (s *syntheticAnalyser) ByteFrequencyData(_ []float32, dst []uint8) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.boom {
		panic("analysis exploded")
	}
	for i := range dst {
		dst[i] = 0
	}
	dst[3] = s.peak
}

type fakeSource struct {
	startErr error
	started  int
	closed   int
}

func (f *fakeSource) Name() string { return "fake" }

func (f *fakeSource) Start(sink *Ring) error {
	if f.startErr != nil {
		return f.startErr
	}
	f.started++
	sink.Write([]float32{0.1, 0.2})
	return nil
}

func (f *fakeSource) Close() error {
	f.closed++
	return nil
}

func startedAnalyzer(t *testing.T, fa FrequencyAnalyser) (*Analyzer, *Cell) {
	t.Helper()
	cell := &Cell{}
	a := NewAnalyzer(&fakeSource{}, cell, nil, WithAnalyser(fa))
	require.NoError(t, a.Start())
	return a, cell
}

// pollFresh feeds one sample so the poll sees new input, then polls.
func pollFresh(a *Analyzer) (bool, error) {
	a.ring.Write([]float32{0})
	return a.Poll()
}

// burstSource writes one window on Start and then nothing, like a stream the
// host revoked.
type burstSource struct {
	window []float32
	closed int
}

func (b *burstSource) Name() string { return "burst" }

func (b *burstSource) Start(sink *Ring) error {
	sink.Write(b.window)
	return nil
}

func (b *burstSource) Close() error {
	b.closed++
	return nil
}

func TestAnalyzer_GateHoldsAtThreshold(t *testing.T) {
	fa := &syntheticAnalyser{}
	a, cell := startedAnalyzer(t, fa)

	fa.set(200)
	published, err := pollFresh(a)
	require.NoError(t, err)
	require.True(t, published)
	loud := cell.Latest()
	require.NotNil(t, loud)
	assert.InDelta(t, 200.0/255, loud.Amplitude, 1e-6)

	below := uint8(math.Floor(0.199 * 255)) // 50
	boundary := uint8(51)                    // exactly 0.2
	for _, peak := range []uint8{below, boundary} {
		fa.set(peak)
		published, err = pollFresh(a)
		require.NoError(t, err)
		assert.False(t, published, "peak %d must be gated", peak)
		assert.Same(t, loud, cell.Latest(), "peak %d must not change the published frame", peak)
	}

	above := uint8(math.Ceil(0.201 * 255)) // 52
	fa.set(above)
	published, err = pollFresh(a)
	require.NoError(t, err)
	assert.True(t, published)
	assert.InDelta(t, float64(above)/255, cell.Latest().Amplitude, 1e-6)
	assert.Len(t, cell.Latest().Magnitudes, BinCount)
}

func TestAnalyzer_PublishedFrameIsACopy(t *testing.T) {
	fa := &syntheticAnalyser{}
	a, cell := startedAnalyzer(t, fa)

	fa.set(255)
	_, err := pollFresh(a)
	require.NoError(t, err)
	first := cell.Latest()

	fa.set(100)
	_, err = pollFresh(a)
	require.NoError(t, err)
	assert.Equal(t, uint8(255), first.Magnitudes[3])
	assert.Equal(t, uint8(100), cell.Latest().Magnitudes[3])
}

func TestAnalyzer_InactiveUntilStarted(t *testing.T) {
	cell := &Cell{}
	fa := &syntheticAnalyser{peak: 255}
	a := NewAnalyzer(&fakeSource{}, cell, nil, WithAnalyser(fa))

	published, err := a.Poll()
	require.NoError(t, err)
	assert.False(t, published)
	assert.Nil(t, cell.Latest())
}

func TestAnalyzer_StartFailureStaysInactive(t *testing.T) {
	for _, want := range []error{ErrPermissionDenied, ErrDeviceUnavailable} {
		src := &fakeSource{startErr: want}
		a := NewAnalyzer(src, &Cell{}, nil, WithAnalyser(&syntheticAnalyser{peak: 255}))

		err := a.Start()
		assert.ErrorIs(t, err, want)
		assert.False(t, a.Active())

		published, err := a.Poll()
		assert.NoError(t, err)
		assert.False(t, published)
	}
}

func TestAnalyzer_NilSource(t *testing.T) {
	a := NewAnalyzer(nil, &Cell{}, nil)
	assert.ErrorIs(t, a.Start(), ErrDeviceUnavailable)
	assert.False(t, a.Active())
}

func TestAnalyzer_StopMakesPollANoOp(t *testing.T) {
	src := &fakeSource{}
	cell := &Cell{}
	fa := &syntheticAnalyser{peak: 255}
	a := NewAnalyzer(src, cell, nil, WithAnalyser(fa))
	require.NoError(t, a.Start())
	require.NoError(t, a.Start(), "second start is a no-op")
	assert.Equal(t, 1, src.started)

	a.Stop()
	a.Stop()
	assert.Equal(t, 1, src.closed)

	published, err := a.Poll()
	require.NoError(t, err)
	assert.False(t, published)
	assert.Nil(t, cell.Latest())
}

func TestAnalyzer_PollRecoversPanic(t *testing.T) {
	fa := &syntheticAnalyser{boom: true}
	a, cell := startedAnalyzer(t, fa)

	published, err := a.Poll()
	assert.Error(t, err)
	assert.False(t, published)
	assert.Nil(t, cell.Latest())
}

func TestAnalyzer_RunPublishesUntilCancelled(t *testing.T) {
	fa := &syntheticAnalyser{peak: 255}
	cell := &Cell{}
	a := NewAnalyzer(&fakeSource{}, cell, nil, WithAnalyser(fa), WithPollInterval(time.Millisecond))
	require.NoError(t, a.Start())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	require.Eventually(t, func() bool { return cell.Latest() != nil }, time.Second, time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestAnalyzer_WithThreshold(t *testing.T) {
	fa := &syntheticAnalyser{peak: 128}
	cell := &Cell{}
	a := NewAnalyzer(&fakeSource{}, cell, nil, WithAnalyser(fa), WithThreshold(0.6))
	require.NoError(t, a.Start())

	published, err := a.Poll()
	require.NoError(t, err)
	assert.False(t, published)
}

func TestGate_EmptyInput(t *testing.T) {
	g := NewGate(DefaultThreshold, &Cell{})
	amp, ok := g.Offer(nil)
	assert.Zero(t, amp)
	assert.False(t, ok)
}

func TestAnalyzer_SilentStreamPublishesOnce(t *testing.T) {
	window := sineWindow(16, 1)
	cell := &Cell{}
	a := NewAnalyzer(&burstSource{window: window}, cell, nil)
	require.NoError(t, a.Start())

	published := 0
	for range 300 {
		ok, err := a.Poll()
		require.NoError(t, err)
		if ok {
			published++
		}
	}
	assert.Equal(t, 1, published)
	first := cell.Latest()
	require.NotNil(t, first)

	a.ring.Write(window)
	ok, err := a.Poll()
	require.NoError(t, err)
	assert.True(t, ok, "fresh samples publish again")
	assert.NotSame(t, first, cell.Latest())
}

func TestAnalyzer_StartAfterStopIsRefused(t *testing.T) {
	src := &fakeSource{}
	a := NewAnalyzer(src, &Cell{}, nil)

	a.Stop()
	assert.ErrorIs(t, a.Start(), ErrStopped)
	assert.False(t, a.Active())
	assert.Zero(t, src.started, "a stopped analyzer never opens its source")
	assert.Zero(t, src.closed)
}
