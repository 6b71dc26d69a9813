package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noEnv(string) string { return "" }

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "audiosphere.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 512, cfg.Particles.Size)
	assert.Equal(t, float32(0.4), cfg.Particles.Speed)
	assert.Equal(t, float32(0.74), cfg.Particles.CurlFrequency)
	assert.Equal(t, float32(1.0), cfg.Render.PointSize)
	assert.Equal(t, float32(0.25), cfg.Render.Opacity)
	assert.Equal(t, 0.2, cfg.Audio.Threshold)
	assert.Equal(t, 1.5, cfg.Window.MaxPixelRatio)
}

func TestParse_NoArgs(t *testing.T) {
	cfg, err := Parse(nil, noEnv)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestParse_Flags(t *testing.T) {
	cfg, err := Parse([]string{
		"-size", "64",
		"-speed", "0.5",
		"-audio", "tone",
		"-audio-autostart",
		"-verify", "-steps", "10",
	}, noEnv)
	require.NoError(t, err)
	assert.Equal(t, 64, cfg.Particles.Size)
	assert.Equal(t, float32(0.5), cfg.Particles.Speed)
	assert.Equal(t, SourceTone, cfg.Audio.Source)
	assert.True(t, cfg.Audio.Autostart)
	assert.True(t, cfg.Verify)
	assert.Equal(t, 10, cfg.VerifySteps)
}

func TestParse_FileThenFlags(t *testing.T) {
	path := writeConfig(t, `{
		"particles": {"size": 128, "speed": 0.2},
		"audio": {"source": "none"},
		"log": {"level": "debug", "encoding": "json"}
	}`)

	cfg, err := Parse([]string{"-config", path, "-speed", "0.3"}, noEnv)
	require.NoError(t, err)
	assert.Equal(t, 128, cfg.Particles.Size, "from file")
	assert.Equal(t, float32(0.3), cfg.Particles.Speed, "flag beats file")
	assert.Equal(t, SourceNone, cfg.Audio.Source)
	assert.Equal(t, "json", cfg.Log.Encoding)
	assert.Equal(t, float32(0.74), cfg.Particles.CurlFrequency, "untouched keys keep defaults")
}

func TestParse_EnvSeed(t *testing.T) {
	env := func(k string) string {
		if k == SeedEnv {
			return "42"
		}
		return ""
	}
	cfg, err := Parse([]string{"-seed", "7"}, env)
	require.NoError(t, err)
	assert.Equal(t, int64(42), cfg.Particles.Seed)

	_, err = Parse(nil, func(string) string { return "forty-two" })
	assert.ErrorContains(t, err, SeedEnv)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, `{"particles": {"sise": 3}}`))
	assert.Error(t, err, "unknown keys are rejected")

	_, err = Load(writeConfig(t, `{"particles": `))
	assert.Error(t, err)
}

func TestParse_UnknownFlag(t *testing.T) {
	_, err := Parse([]string{"-no-such-flag"}, noEnv)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"window", func(c *Config) { c.Window.Width = 0 }, "window size"},
		{"pixel ratio", func(c *Config) { c.Window.MaxPixelRatio = 0.5 }, "pixel ratio"},
		{"size", func(c *Config) { c.Particles.Size = 0 }, "texture size"},
		{"speed", func(c *Config) { c.Particles.Speed = -1 }, "speed"},
		{"radius", func(c *Config) { c.Particles.Radius = 2 }, "radius"},
		{"opacity", func(c *Config) { c.Render.Opacity = 2 }, "opacity"},
		{"source", func(c *Config) { c.Audio.Source = "line-in" }, "audio source"},
		{"threshold", func(c *Config) { c.Audio.Threshold = 1 }, "threshold"},
		{"encoding", func(c *Config) { c.Log.Encoding = "xml" }, "encoding"},
		{"steps", func(c *Config) { c.Verify, c.VerifySteps = true, 0 }, "verify steps"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.want)
		})
	}
}

func TestValidate_JoinsErrors(t *testing.T) {
	cfg := Default()
	cfg.Window.Height = -1
	cfg.Audio.PollHz = 0
	err := cfg.Validate()
	assert.ErrorContains(t, err, "window size")
	assert.ErrorContains(t, err, "poll rate")
}
