package audio

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"audiosphere/internal/metrics"
)

// DefaultPollInterval matches a 60 Hz display.
const DefaultPollInterval = time.Second / 60

// stallPolls is how many consecutive polls without new samples mark the
// stream as stalled in the log.
const stallPolls = 60

// ErrStopped is returned by Start once Stop has been called.
var ErrStopped = errors.New("audio: analyzer stopped")

// Analyzer turns a Source into gated Frames published on a Cell.
// It is inactive until Start succeeds and again after Stop.
type Analyzer struct {
	source   Source
	ring     *Ring
	analyser FrequencyAnalyser
	gate     *Gate
	log      *zap.Logger
	interval time.Duration

	startMu sync.Mutex
	active  atomic.Bool
	stopped bool // guarded by startMu

	// Poll state; only the poll loop touches these.
	samples     []float32
	mags        []uint8
	lastWritten uint64
	stale       int
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithAnalyser replaces the FFT stage, e.g. with synthetic magnitudes.
func WithAnalyser(fa FrequencyAnalyser) Option {
	return func(a *Analyzer) { a.analyser = fa }
}

func WithThreshold(th float64) Option {
	return func(a *Analyzer) { a.gate.Threshold = th }
}

func WithPollInterval(d time.Duration) Option {
	return func(a *Analyzer) {
		if d > 0 {
			a.interval = d
		}
	}
}

// NewAnalyzer builds an inactive analyzer. A nil source is allowed; Start
// then reports ErrDeviceUnavailable.
func NewAnalyzer(src Source, cell *Cell, log *zap.Logger, opts ...Option) *Analyzer {
	if log == nil {
		log = zap.NewNop()
	}
	a := &Analyzer{
		source:   src,
		ring:     NewRing(FFTSize * 8),
		analyser: NewSpectrum(FFTSize),
		gate:     NewGate(DefaultThreshold, cell),
		log:      log.Named("audio"),
		interval: DefaultPollInterval,
		samples:  make([]float32, FFTSize),
		mags:     make([]uint8, BinCount),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Active reports whether capture is running.
func (a *Analyzer) Active() bool { return a.active.Load() }

// Start opens the source. On failure the analyzer stays inactive and the
// error wraps ErrPermissionDenied, ErrDeviceUnavailable or the source error.
// After Stop it returns ErrStopped without touching the source.
func (a *Analyzer) Start() error {
	a.startMu.Lock()
	defer a.startMu.Unlock()
	if a.stopped {
		return ErrStopped
	}
	if a.active.Load() {
		return nil
	}
	if a.source == nil {
		return fmt.Errorf("%w: no source configured", ErrDeviceUnavailable)
	}
	if err := a.source.Start(a.ring); err != nil {
		a.log.Warn("audio capture unavailable, continuing without audio",
			zap.String("source", a.source.Name()), zap.Error(err))
		return err
	}
	a.active.Store(true)
	a.log.Info("audio capture started", zap.String("source", a.source.Name()))
	return nil
}

// Stop revokes the source. Polls and Starts after Stop are no-ops.
func (a *Analyzer) Stop() {
	a.startMu.Lock()
	defer a.startMu.Unlock()
	a.stopped = true
	if !a.active.Swap(false) {
		return
	}
	if err := a.source.Close(); err != nil {
		a.log.Warn("audio source close", zap.Error(err))
	}
	a.log.Info("audio capture stopped")
}

// Poll analyses the newest window and offers it to the gate. It reports
// whether a frame was published. A poll that finds no samples written since
// the previous one publishes nothing, so a revoked stream goes quiet instead
// of repeating its last window.
func (a *Analyzer) Poll() (published bool, err error) {
	if !a.active.Load() {
		metrics.AudioPolls.WithLabelValues(metrics.PollInactive).Inc()
		return false, nil
	}
	defer func() {
		if r := recover(); r != nil {
			published = false
			err = fmt.Errorf("audio poll panic: %v", r)
		}
		if err != nil {
			metrics.AudioPolls.WithLabelValues(metrics.PollFailed).Inc()
		}
	}()

	written := a.ring.Written()
	if written == a.lastWritten {
		a.stale++
		if a.stale == stallPolls {
			a.log.Warn("audio stream stalled, no samples since last poll",
				zap.Int("polls", a.stale))
		}
		metrics.AudioPolls.WithLabelValues(metrics.PollStale).Inc()
		return false, nil
	}
	if a.stale >= stallPolls {
		a.log.Info("audio stream resumed")
	}
	a.lastWritten, a.stale = written, 0

	for i := range a.samples {
		a.samples[i] = 0
	}
	a.ring.Latest(a.samples)
	a.analyser.ByteFrequencyData(a.samples, a.mags)

	amp, ok := a.gate.Offer(a.mags)
	if !ok {
		metrics.AudioPolls.WithLabelValues(metrics.PollGated).Inc()
		return false, nil
	}
	metrics.AudioPolls.WithLabelValues(metrics.PollPublished).Inc()
	metrics.AudioAmplitude.Set(amp)
	a.log.Debug("audio frame published", zap.Float64("amplitude", amp))
	return true, nil
}

// Run polls on its own ticker until ctx is done, independently of the render
// loop. Failed polls are logged and skipped.
func (a *Analyzer) Run(ctx context.Context) error {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()
		case <-ticker.C:
			if _, err := a.Poll(); err != nil {
				a.log.Warn("audio poll failed", zap.Error(err))
			}
		}
	}
}
