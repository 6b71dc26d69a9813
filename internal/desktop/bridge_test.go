package desktop

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"audiosphere/internal/audio"
	"audiosphere/internal/scene"
)

type fakeLoop struct {
	ticks   int
	tickErr error
	sizes   [][2]int
	ratios  []float64
}

func (f *fakeLoop) Tick() error {
	f.ticks++
	return f.tickErr
}

func (f *fakeLoop) Resize(w, h int) { f.sizes = append(f.sizes, [2]int{w, h}) }

func (f *fakeLoop) SetPixelRatio(r float64) { f.ratios = append(f.ratios, r) }

type fakeControls struct {
	rotations, pans [][3]float64
	zooms           []float64
}

func (c *fakeControls) Rotate(dx, dy, vh float64) { c.rotations = append(c.rotations, [3]float64{dx, dy, vh}) }
func (c *fakeControls) Pan(dx, dy, vh float64)    { c.pans = append(c.pans, [3]float64{dx, dy, vh}) }
func (c *fakeControls) Zoom(steps float64)        { c.zooms = append(c.zooms, steps) }

func newBridge(t *testing.T) (*bridge, *EventBus, *fakeLoop, *fakeControls, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zap.DebugLevel)
	loop := &fakeLoop{}
	ctl := &fakeControls{}
	b := &bridge{
		loop:        loop,
		controls:    ctl,
		log:         zap.New(core),
		pixelRatio:  func() float64 { return 1.5 },
		closeWindow: func() {},
	}
	bus := NewEventBus()
	b.attach(bus)
	return b, bus, loop, ctl, logs
}

func TestBridge_TickAndResize(t *testing.T) {
	_, bus, loop, _, _ := newBridge(t)

	bus.Emit(Event{Type: EventTick})
	bus.Emit(Event{Type: EventTick})
	bus.Emit(Event{Type: EventResize, Width: 800, Height: 600})
	bus.Emit(Event{Type: EventResize, Width: 0, Height: 0})

	assert.Equal(t, 2, loop.ticks)
	assert.Equal(t, [][2]int{{800, 600}}, loop.sizes)
	assert.Equal(t, []float64{1.5}, loop.ratios)
}

func TestBridge_TickErrorsAreLoggedNotFatal(t *testing.T) {
	_, bus, loop, _, logs := newBridge(t)
	loop.tickErr = scene.ErrNotReady

	for range 5 {
		bus.Emit(Event{Type: EventTick})
	}
	assert.Equal(t, 5, loop.ticks)
	assert.Equal(t, 1, logs.FilterMessage("tick failed").Len())

	loop.tickErr = errors.New("context lost")
	bus.Emit(Event{Type: EventTick})
	assert.Equal(t, 2, logs.FilterMessage("tick failed").Len())
}

func TestBridge_DragAndScroll(t *testing.T) {
	_, bus, _, ctl, _ := newBridge(t)

	bus.Emit(Event{Type: EventDrag, X: 4, Y: -2, Height: 600, Button: ButtonRotate})
	bus.Emit(Event{Type: EventDrag, X: 1, Y: 1, Height: 600, Button: ButtonPan})
	bus.Emit(Event{Type: EventScroll, Y: -1})

	assert.Equal(t, [][3]float64{{4, -2, 600}}, ctl.rotations)
	assert.Equal(t, [][3]float64{{1, 1, 600}}, ctl.pans)
	assert.Equal(t, []float64{-1}, ctl.zooms)
}

func TestBridge_FirstClickStartsAudioOnce(t *testing.T) {
	b, bus, _, _, _ := newBridge(t)
	var starts atomic.Int32
	b.startAudio = func() error {
		starts.Add(1)
		return nil
	}

	bus.Emit(Event{Type: EventClick})
	require.Eventually(t, func() bool { return starts.Load() == 1 }, time.Second, time.Millisecond)
	require.Eventually(t, func() bool {
		b.audioMu.Lock()
		defer b.audioMu.Unlock()
		return b.audioStarted
	}, time.Second, time.Millisecond)

	bus.Emit(Event{Type: EventClick})
	bus.Emit(Event{Type: EventClick})
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, int32(1), starts.Load())
}

func TestBridge_FailedAudioStartRetriesOnClick(t *testing.T) {
	b, bus, _, _, logs := newBridge(t)
	var starts atomic.Int32
	b.startAudio = func() error {
		if starts.Add(1) == 1 {
			return audio.ErrPermissionDenied
		}
		return nil
	}
	settled := func() bool {
		b.audioMu.Lock()
		defer b.audioMu.Unlock()
		return !b.audioPending
	}

	bus.Emit(Event{Type: EventClick})
	require.Eventually(t, func() bool { return starts.Load() == 1 && settled() }, time.Second, time.Millisecond)
	assert.Equal(t, 1, logs.FilterMessage("audio not started, click to retry").Len())

	bus.Emit(Event{Type: EventClick})
	require.Eventually(t, func() bool { return starts.Load() == 2 && settled() }, time.Second, time.Millisecond)

	bus.Emit(Event{Type: EventClick})
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, int32(2), starts.Load(), "a successful start is not repeated")
}

func TestBridge_ClickDuringStartIsIgnored(t *testing.T) {
	b, bus, _, _, _ := newBridge(t)
	release := make(chan struct{})
	var starts atomic.Int32
	b.startAudio = func() error {
		starts.Add(1)
		<-release
		return nil
	}

	bus.Emit(Event{Type: EventClick})
	require.Eventually(t, func() bool { return starts.Load() == 1 }, time.Second, time.Millisecond)
	bus.Emit(Event{Type: EventClick})
	close(release)
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, int32(1), starts.Load())
}

func TestBridge_CloseEvent(t *testing.T) {
	b, bus, _, _, _ := newBridge(t)
	closed := false
	b.closeWindow = func() { closed = true }

	bus.Emit(Event{Type: EventClose})
	assert.True(t, closed)
}

func TestEventBus_OrderAndIsolation(t *testing.T) {
	bus := NewEventBus()
	var got []string
	bus.Subscribe(EventTick, func(Event) { got = append(got, "a") })
	bus.Subscribe(EventTick, func(Event) { got = append(got, "b") })
	bus.Subscribe(EventResize, func(Event) { got = append(got, "resize") })

	bus.Emit(Event{Type: EventTick})
	assert.Equal(t, []string{"a", "b"}, got)

	bus.Emit(Event{Type: EventScroll})
	assert.Equal(t, []string{"a", "b"}, got, "no subscribers is a no-op")
}
