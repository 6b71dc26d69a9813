package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Poll results recorded in AudioPolls.
const (
	PollPublished = "published"
	PollGated     = "gated"
	PollInactive  = "inactive"
	PollFailed    = "failed"
	PollStale     = "stale"
)

var (
	// FramesRendered counts completed render ticks.
	FramesRendered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "audiosphere_frames_total",
			Help: "Total number of render ticks",
		},
	)

	// FrameErrors counts per-frame failures that were logged and skipped, by stage.
	FrameErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audiosphere_frame_errors_total",
			Help: "Per-frame failures by pipeline stage",
		},
		[]string{"stage"},
	)

	// SimulationStep tracks the duration of one FBO update.
	SimulationStep = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "audiosphere_simulation_step_seconds",
			Help:    "Time spent issuing one simulation step",
			Buckets: []float64{.0005, .001, .002, .004, .008, .016, .033, .066},
		},
	)

	// AudioPolls counts analyzer polls by result.
	AudioPolls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audiosphere_audio_polls_total",
			Help: "Audio analyzer polls by result",
		},
		[]string{"result"},
	)

	// AudioAmplitude is the amplitude of the last published audio frame.
	AudioAmplitude = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "audiosphere_audio_amplitude",
			Help: "Amplitude of the last published audio frame",
		},
	)

	// Particles is the number of simulated particles.
	Particles = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "audiosphere_particles",
			Help: "Number of simulated particles",
		},
	)
)

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler { return promhttp.Handler() }

// Serve exposes the default registry on addr until ctx is done.
func Serve(ctx context.Context, addr string, log *zap.Logger) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info("metrics endpoint listening", zap.String("addr", ln.Addr().String()))
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
