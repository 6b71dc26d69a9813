package desktop

import (
	"errors"
	"sync"

	"go.uber.org/zap"

	"audiosphere/internal/scene"
)

type renderLoop interface {
	Tick() error
	Resize(width, height int)
	SetPixelRatio(r float64)
}

type cameraControls interface {
	Rotate(dx, dy, viewportHeight float64)
	Pan(dx, dy, viewportHeight float64)
	Zoom(steps float64)
}

// bridge routes host events to the composer, the camera controls and the
// audio gesture unlock.
type bridge struct {
	loop        renderLoop
	controls    cameraControls
	log         *zap.Logger
	pixelRatio  func() float64
	startAudio  func() error
	closeWindow func()

	audioMu      sync.Mutex
	audioPending bool
	audioStarted bool
	tickErrs     int
}

func (b *bridge) attach(bus *EventBus) {
	bus.Subscribe(EventTick, b.onTick)
	bus.Subscribe(EventResize, b.onResize)
	bus.Subscribe(EventClick, b.onClick)
	bus.Subscribe(EventDrag, b.onDrag)
	bus.Subscribe(EventScroll, b.onScroll)
	bus.Subscribe(EventClose, func(Event) { b.closeWindow() })
}

func (b *bridge) onTick(Event) {
	if err := b.loop.Tick(); err != nil {
		b.tickErrs++
		// An uninitialised composer logs once, not every frame.
		if !errors.Is(err, scene.ErrNotReady) || b.tickErrs == 1 {
			b.log.Warn("tick failed", zap.Error(err))
		}
	}
}

func (b *bridge) onResize(e Event) {
	if e.Width <= 0 || e.Height <= 0 {
		// Minimised.
		return
	}
	if b.pixelRatio != nil {
		b.loop.SetPixelRatio(b.pixelRatio())
	}
	b.loop.Resize(e.Width, e.Height)
	b.log.Debug("viewport resized", zap.Int("width", e.Width), zap.Int("height", e.Height))
}

// onClick starts audio capture on a user gesture. Start may block on device
// negotiation so it runs off the render thread. A failed start is retried on
// the next click; clicks while a start is in flight are ignored.
func (b *bridge) onClick(Event) {
	if b.startAudio == nil {
		return
	}
	b.audioMu.Lock()
	if b.audioStarted || b.audioPending {
		b.audioMu.Unlock()
		return
	}
	b.audioPending = true
	b.audioMu.Unlock()

	go func() {
		err := b.startAudio()
		b.audioMu.Lock()
		b.audioPending = false
		b.audioStarted = err == nil
		b.audioMu.Unlock()
		if err != nil {
			b.log.Info("audio not started, click to retry", zap.Error(err))
		}
	}()
}

func (b *bridge) onDrag(e Event) {
	switch e.Button {
	case ButtonRotate:
		b.controls.Rotate(e.X, e.Y, float64(e.Height))
	case ButtonPan:
		b.controls.Pan(e.X, e.Y, float64(e.Height))
	}
}

func (b *bridge) onScroll(e Event) {
	b.controls.Zoom(e.Y)
}
