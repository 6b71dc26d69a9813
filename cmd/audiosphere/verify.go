package main

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"audiosphere/internal/config"
	"audiosphere/internal/particles"
)

const (
	verifyFrameTime = 1.0 / 60
	// verifyLimit is the largest radius a bounded run may reach.
	verifyLimit = 1.5
	// Every pulsePeriod steps the first pulseLength steps run at full amplitude.
	pulsePeriod = 30
	pulseLength = 5
)

type verifyReport struct {
	Steps     int
	Particles int
	MaxRadius float32
}

func (r verifyReport) Bounded() bool { return r.MaxRadius <= verifyLimit }

// verify runs the simulation headless on the CPU backend with periodic
// full-amplitude audio pulses and reports how far particles drifted.
func verify(ctx context.Context, cfg config.Config, log *zap.Logger, out io.Writer) error {
	rep, err := simulateHeadless(ctx, cfg, log)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "steps=%d particles=%d max_radius=%.4f bounded=%t\n",
		rep.Steps, rep.Particles, rep.MaxRadius, rep.Bounded())
	if !rep.Bounded() {
		return fmt.Errorf("particles drifted to radius %.4f (limit %.1f)", rep.MaxRadius, verifyLimit)
	}
	return nil
}

func simulateHeadless(ctx context.Context, cfg config.Config, log *zap.Logger) (verifyReport, error) {
	size := cfg.Particles.Size
	backend := particles.NewCPUBackend(cfg.Particles.Seed)
	defer backend.Release()

	sampler := particles.NewUniformBall(cfg.Particles.Radius, uint64(cfg.Particles.Seed))
	fbo, err := particles.NewFBO(backend, size, size, particles.SeedPositions(size, size, sampler),
		cfg.Particles.Speed, cfg.Particles.CurlFrequency)
	if err != nil {
		return verifyReport{}, err
	}
	defer fbo.Release()

	rep := verifyReport{Particles: fbo.Count()}
	for step := 1; step <= cfg.VerifySteps; step++ {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		var au particles.AudioUniforms
		if step%pulsePeriod < pulseLength {
			au.Amplitude = 1
		}
		if err := fbo.Update(float64(step)*verifyFrameTime, au); err != nil {
			return rep, err
		}
		rep.Steps = step
		r := particles.MaxRadius(fbo.Current().(*particles.CPUTarget))
		rep.MaxRadius = max(rep.MaxRadius, r)
		if step%100 == 0 {
			log.Debug("verify progress", zap.Int("step", step), zap.Float32("max_radius", r))
		}
	}
	return rep, nil
}
