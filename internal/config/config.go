package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	jsoniter "github.com/json-iterator/go"

	"audiosphere/internal/audio"
	"audiosphere/internal/particles"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// SeedEnv overrides the particle seed when set.
const SeedEnv = "AUDIOSPHERE_SEED"

// Audio sources.
const (
	SourceMic  = "mic"
	SourceTone = "tone"
	SourceNone = "none"
)

type WindowConfig struct {
	Width         int     `json:"width"`
	Height        int     `json:"height"`
	Title         string  `json:"title"`
	VSync         bool    `json:"vsync"`
	MaxPixelRatio float64 `json:"max_pixel_ratio"`
}

type ParticleConfig struct {
	Size          int     `json:"size"`
	Speed         float32 `json:"speed"`
	CurlFrequency float32 `json:"curl_frequency"`
	Radius        float64 `json:"radius"`
	// Seed 0 means pick one from the clock at startup.
	Seed          int64   `json:"seed"`
}

type RenderConfig struct {
	PointSize    float32 `json:"point_size"`
	Opacity      float32 `json:"opacity"`
	RotationStep float64 `json:"rotation_step"`
	BobAmplitude float64 `json:"bob_amplitude"`
	BobSpeed     float64 `json:"bob_speed"`
}

type AudioConfig struct {
	Source        string  `json:"source"`
	Threshold     float64 `json:"threshold"`
	PollHz        int     `json:"poll_hz"`
	Autostart     bool    `json:"autostart"`
	ToneFrequency float64 `json:"tone_frequency"`
}

type LogConfig struct {
	Level    string `json:"level"`
	Encoding string `json:"encoding"`
}

// Config is the full runtime configuration.
type Config struct {
	Window      WindowConfig   `json:"window"`
	Particles   ParticleConfig `json:"particles"`
	Render      RenderConfig   `json:"render"`
	Audio       AudioConfig    `json:"audio"`
	Log         LogConfig      `json:"log"`
	MetricsAddr string         `json:"metrics_addr"`

	// Verify runs a headless CPU simulation for VerifySteps steps and exits.
	Verify      bool `json:"-"`
	VerifySteps int  `json:"-"`
}

func Default() Config {
	return Config{
		Window: WindowConfig{
			Width:         800,
			Height:        600,
			Title:         "audiosphere",
			VSync:         true,
			MaxPixelRatio: 1.5,
		},
		Particles: ParticleConfig{
			Size:          particles.DefaultSize,
			Speed:         particles.DefaultSpeed,
			CurlFrequency: particles.DefaultCurlFrequency,
			Radius:        1,
		},
		Render: RenderConfig{
			PointSize:    1.0,
			Opacity:      0.25,
			RotationStep: 0.002,
			BobAmplitude: 0.05,
			BobSpeed:     1,
		},
		Audio: AudioConfig{
			Source:        SourceMic,
			Threshold:     audio.DefaultThreshold,
			PollHz:        60,
			ToneFrequency: 110,
		},
		Log: LogConfig{
			Level:    "info",
			Encoding: "console",
		},
		VerifySteps: 600,
	}
}

// Load decodes a JSON file over the defaults. Missing keys keep their defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	f, err := os.Open(path)
	if err != nil {
		return cfg, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()
	if err := decode(f, &cfg); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func decode(r io.Reader, cfg *Config) error {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	return dec.Decode(cfg)
}

// Parse builds the configuration from defaults, the optional -config file,
// command-line flags and the environment, in that order of precedence
// (later wins), then validates it.
func Parse(args []string, getenv func(string) string) (Config, error) {
	scratch := Default()
	pre := newFlagSet(&scratch, io.Discard)
	var path string
	pre.StringVar(&path, "config", "", "")
	// Errors surface from the second parse, which prints usage.
	_ = pre.Parse(args)

	cfg := Default()
	if path != "" {
		var err error
		if cfg, err = Load(path); err != nil {
			return Config{}, err
		}
	}

	fs := newFlagSet(&cfg, os.Stderr)
	fs.String("config", path, "path to a JSON config file")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if getenv != nil {
		if err := applyEnv(&cfg, getenv); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// newFlagSet binds every flag to a field of cfg; the field's current value
// is the flag default.
func newFlagSet(cfg *Config, out io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet("audiosphere", flag.ContinueOnError)
	fs.SetOutput(out)

	fs.IntVar(&cfg.Window.Width, "width", cfg.Window.Width, "window width in screen coordinates")
	fs.IntVar(&cfg.Window.Height, "height", cfg.Window.Height, "window height in screen coordinates")
	fs.BoolVar(&cfg.Window.VSync, "vsync", cfg.Window.VSync, "wait for vertical sync")
	fs.Float64Var(&cfg.Window.MaxPixelRatio, "max-pixel-ratio", cfg.Window.MaxPixelRatio, "cap on the device pixel ratio")

	fs.IntVar(&cfg.Particles.Size, "size", cfg.Particles.Size, "simulation texture edge; particles = size*size")
	float32Var(fs, &cfg.Particles.Speed, "speed", "simulation speed")
	float32Var(fs, &cfg.Particles.CurlFrequency, "curl-frequency", "curl noise spatial frequency")
	fs.Int64Var(&cfg.Particles.Seed, "seed", cfg.Particles.Seed, "seed for positions and noise (0 = clock)")

	float32Var(fs, &cfg.Render.PointSize, "point-size", "particle point size in pixels")
	float32Var(fs, &cfg.Render.Opacity, "opacity", "particle opacity")

	fs.StringVar(&cfg.Audio.Source, "audio", cfg.Audio.Source, "audio source: mic, tone or none")
	fs.Float64Var(&cfg.Audio.Threshold, "audio-threshold", cfg.Audio.Threshold, "minimum amplitude that updates the audio uniforms")
	fs.BoolVar(&cfg.Audio.Autostart, "audio-autostart", cfg.Audio.Autostart, "start audio without waiting for a click")

	fs.StringVar(&cfg.Log.Level, "log-level", cfg.Log.Level, "debug, info, warn or error")
	fs.StringVar(&cfg.Log.Encoding, "log-encoding", cfg.Log.Encoding, "console or json")
	fs.StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "serve prometheus metrics on this address")

	fs.BoolVar(&cfg.Verify, "verify", cfg.Verify, "run a headless CPU simulation and report drift")
	fs.IntVar(&cfg.VerifySteps, "steps", cfg.VerifySteps, "steps for -verify")
	return fs
}

type float32Value struct{ p *float32 }

func (v float32Value) String() string {
	if v.p == nil {
		return "0"
	}
	return strconv.FormatFloat(float64(*v.p), 'g', -1, 32)
}

func (v float32Value) Set(s string) error {
	f, err := strconv.ParseFloat(s, 32)
	if err != nil {
		return err
	}
	*v.p = float32(f)
	return nil
}

func float32Var(fs *flag.FlagSet, p *float32, name, usage string) {
	fs.Var(float32Value{p}, name, usage)
}

func applyEnv(cfg *Config, getenv func(string) string) error {
	s := strings.TrimSpace(getenv(SeedEnv))
	if s == "" {
		return nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("%s: %w", SeedEnv, err)
	}
	cfg.Particles.Seed = v
	return nil
}

// Validate reports every invalid field at once.
func (c Config) Validate() error {
	var errs []error
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		errs = append(errs, fmt.Errorf("window size %dx%d must be positive", c.Window.Width, c.Window.Height))
	}
	if c.Window.MaxPixelRatio < 1 {
		errs = append(errs, fmt.Errorf("max pixel ratio %g must be >= 1", c.Window.MaxPixelRatio))
	}
	if c.Particles.Size <= 0 || c.Particles.Size > 4096 {
		errs = append(errs, fmt.Errorf("particle texture size %d out of range (1..4096)", c.Particles.Size))
	}
	if c.Particles.Speed < 0 {
		errs = append(errs, fmt.Errorf("speed %g must not be negative", c.Particles.Speed))
	}
	if c.Particles.Radius <= 0 || c.Particles.Radius > particles.BoundRadius {
		errs = append(errs, fmt.Errorf("radius %g out of range (0..%g]", c.Particles.Radius, float64(particles.BoundRadius)))
	}
	if c.Render.Opacity < 0 || c.Render.Opacity > 1 {
		errs = append(errs, fmt.Errorf("opacity %g out of range (0..1)", c.Render.Opacity))
	}
	if c.Render.PointSize <= 0 {
		errs = append(errs, fmt.Errorf("point size %g must be positive", c.Render.PointSize))
	}
	switch c.Audio.Source {
	case SourceMic, SourceTone, SourceNone:
	default:
		errs = append(errs, fmt.Errorf("unknown audio source %q", c.Audio.Source))
	}
	if c.Audio.Threshold < 0 || c.Audio.Threshold >= 1 {
		errs = append(errs, fmt.Errorf("audio threshold %g out of range [0,1)", c.Audio.Threshold))
	}
	if c.Audio.PollHz <= 0 {
		errs = append(errs, fmt.Errorf("audio poll rate %d must be positive", c.Audio.PollHz))
	}
	switch c.Log.Encoding {
	case "console", "json":
	default:
		errs = append(errs, fmt.Errorf("unknown log encoding %q", c.Log.Encoding))
	}
	if c.Verify && c.VerifySteps <= 0 {
		errs = append(errs, fmt.Errorf("verify steps %d must be positive", c.VerifySteps))
	}
	return errors.Join(errs...)
}
