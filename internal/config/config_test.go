package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"readsel/internal/audio"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "pf_dora", cfg.Engine.Voice)
	assert.Equal(t, 1.0, cfg.Engine.Speed)
	assert.Equal(t, 10, cfg.Pipeline.Capacity)
	assert.Equal(t, "default", cfg.Audio.Device)
	assert.Equal(t, audio.DefaultFormat, cfg.AudioFormat())

	opts := cfg.PipelineOptions()
	assert.Equal(t, 100*time.Millisecond, opts.StartupDelay)
	assert.Equal(t, 2*time.Second, cfg.CaptureConfig().Timeout)
	assert.Equal(t, "wl-paste --primary", cfg.CaptureConfig().Command)
}

func TestDefaultEngineCommandRunsShippedWorker(t *testing.T) {
	args := strings.Fields(Default().Engine.Command)
	require.NotEmpty(t, args)
	script := args[len(args)-1]
	assert.True(t, strings.HasSuffix(script, ".py"), "last argument is the worker script: %q", script)

	// paths are relative to the repository root
	_, err := os.Stat(filepath.Join("..", "..", script))
	assert.NoError(t, err)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "readsel.yaml")
	data := `
engine:
  mode: tone
  voice: pm_alex
  speed: 1.25
audio:
  backend: exec
  device: "hw:1,0"
pipeline:
  capacity: 4
journal:
  path: ""
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "tone", cfg.Engine.Mode)
	assert.Equal(t, "pm_alex", cfg.Engine.Voice)
	assert.Equal(t, 1.25, cfg.Engine.Speed)
	assert.Equal(t, "hw:1,0", cfg.AudioConfig().Device)
	assert.Equal(t, 4, cfg.PipelineOptions().Capacity)
	assert.Empty(t, cfg.Journal.Path)
	// untouched sections keep their defaults
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("READSEL_ENGINE_MODE", "tone")
	t.Setenv("READSEL_ENGINE_SPEED", "0.8")
	t.Setenv("READSEL_AUDIO_BACKEND", "exec")
	t.Setenv("READSEL_AUDIO_DEVICE", "pipewire")
	t.Setenv("READSEL_PIPELINE_CAPACITY", "3")
	t.Setenv("READSEL_CAPTURE_TIMEOUT_MS", "500")
	t.Setenv("READSEL_TELEMETRY_ENABLED", "true")
	t.Setenv("READSEL_JOURNAL_PATH", "")
	t.Setenv("READSEL_LOG_LEVEL", "  ")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "tone", cfg.Engine.Mode)
	assert.Equal(t, 0.8, cfg.Engine.Speed)
	assert.Equal(t, "pipewire", cfg.Audio.Device)
	assert.Equal(t, 3, cfg.Pipeline.Capacity)
	assert.Equal(t, 500*time.Millisecond, cfg.CaptureConfig().Timeout)
	assert.True(t, cfg.Telemetry.Enabled)
	assert.Empty(t, cfg.Journal.Path)
	assert.Equal(t, "info", cfg.Log.Level, "blank value does not override")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad log level", func(c *Config) { c.Log.Level = "loud" }},
		{"unknown engine", func(c *Config) { c.Engine.Mode = "espeak" }},
		{"kokoro without command", func(c *Config) { c.Engine.Command = " " }},
		{"zero speed", func(c *Config) { c.Engine.Speed = 0 }},
		{"unknown voice", func(c *Config) { c.Engine.Voice = "nobody" }},
		{"speaker with device", func(c *Config) { c.Audio.Device = "hw:1,0" }},
		{"unknown backend", func(c *Config) { c.Audio.Backend = "jack" }},
		{"zero buffer", func(c *Config) { c.Audio.FramesPerBuffer = 0 }},
		{"zero capacity", func(c *Config) { c.Pipeline.Capacity = 0 }},
		{"negative delay", func(c *Config) { c.Pipeline.StartupDelayMS = -1 }},
		{"zero capture timeout", func(c *Config) { c.Capture.TimeoutMS = 0 }},
		{"telemetry without sink", func(c *Config) {
			c.Telemetry.Enabled = true
			c.Telemetry.TraceFile = ""
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	assert.NoError(t, Default().Validate())
}

func TestSpeakerDeviceRejected(t *testing.T) {
	cfg := Default()
	cfg.Audio.Device = "hw:1,0"
	assert.ErrorIs(t, cfg.Validate(), audio.ErrDeviceUnsupported)
}
