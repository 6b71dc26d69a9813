package desktop

import (
	"time"

	"audiosphere/internal/audio"
	"audiosphere/internal/config"
	"audiosphere/internal/scene"
)

// sceneOptions maps the configuration onto composer options. Viewport size
// and pixel ratio come from the window.
func sceneOptions(cfg config.Config) scene.Options {
	opts := scene.DefaultOptions()
	opts.Width, opts.Height = cfg.Window.Width, cfg.Window.Height
	opts.FBOWidth, opts.FBOHeight = cfg.Particles.Size, cfg.Particles.Size
	opts.Speed = cfg.Particles.Speed
	opts.CurlFrequency = cfg.Particles.CurlFrequency
	opts.PointSize = cfg.Render.PointSize
	opts.Opacity = cfg.Render.Opacity
	opts.RotationStep = cfg.Render.RotationStep
	opts.BobAmplitude = cfg.Render.BobAmplitude
	opts.BobSpeed = cfg.Render.BobSpeed
	return opts
}

// newSource returns the configured capture source, nil for none.
func newSource(cfg config.AudioConfig) audio.Source {
	switch cfg.Source {
	case config.SourceMic:
		return audio.NewMicrophone()
	case config.SourceTone:
		t := audio.NewTone()
		if cfg.ToneFrequency > 0 {
			t.Frequency = cfg.ToneFrequency
		}
		return t
	}
	return nil
}

func analyzerOptions(cfg config.AudioConfig) []audio.Option {
	return []audio.Option{
		audio.WithThreshold(cfg.Threshold),
		audio.WithPollInterval(time.Second / time.Duration(cfg.PollHz)),
	}
}
