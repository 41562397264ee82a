package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"readsel/internal/audio"
	"readsel/internal/pipeline"
	"readsel/internal/selection"
	"readsel/internal/tts"
)

type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	FileLevel  string `yaml:"file_level"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	Compress   bool   `yaml:"compress"`
}

type CaptureConfig struct {
	Command   string `yaml:"command"`
	TimeoutMS int    `yaml:"timeout_ms"`
}

type EngineConfig struct {
	Mode           string  `yaml:"mode"` // kokoro, tone
	Command        string  `yaml:"command"`
	Voice          string  `yaml:"voice"`
	Speed          float64 `yaml:"speed"`
	StartTimeoutMS int     `yaml:"start_timeout_ms"`
}

type AudioConfig struct {
	Backend         string `yaml:"backend"` // speaker, exec
	Device          string `yaml:"device"`
	Command         string `yaml:"command"`
	FramesPerBuffer int    `yaml:"frames_per_buffer"`
}

type PipelineConfig struct {
	Capacity       int `yaml:"capacity"`
	StartupDelayMS int `yaml:"startup_delay_ms"`
}

type TelemetryConfig struct {
	Enabled      bool   `yaml:"enabled"`
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	OTLPInsecure bool   `yaml:"otlp_insecure"`
	TraceFile    string `yaml:"trace_file"`
}

type JournalConfig struct {
	Path    string `yaml:"path"`
	MaxRuns int    `yaml:"max_runs"`
}

type Config struct {
	Log       LogConfig       `yaml:"log"`
	Capture   CaptureConfig   `yaml:"capture"`
	Engine    EngineConfig    `yaml:"engine"`
	Audio     AudioConfig     `yaml:"audio"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Journal   JournalConfig   `yaml:"journal"`
}

func Default() Config {
	return Config{
		Log: LogConfig{
			Level:      "info",
			File:       "logs/readsel.log",
			FileLevel:  "debug",
			MaxSizeMB:  10,
			MaxBackups: 5,
			Compress:   true,
		},
		Capture: CaptureConfig{
			Command:   selection.DefaultCommand,
			TimeoutMS: int(selection.DefaultTimeout / time.Millisecond),
		},
		Engine: EngineConfig{
			Mode:           "kokoro",
			Command:        "python3 -u scripts/kokoro_worker.py",
			Voice:          tts.DefaultVoice,
			Speed:          1.0,
			StartTimeoutMS: 120000,
		},
		Audio: AudioConfig{
			Backend:         "speaker",
			Device:          "default",
			Command:         audio.DefaultPlayerCommand,
			FramesPerBuffer: audio.DefaultFormat.FramesPerBuffer,
		},
		Pipeline: PipelineConfig{
			Capacity:       pipeline.DefaultCapacity,
			StartupDelayMS: int(pipeline.DefaultStartupDelay / time.Millisecond),
		},
		Telemetry: TelemetryConfig{
			Enabled:      false,
			OTLPInsecure: true,
			TraceFile:    "logs/traces.json",
		},
		Journal: JournalConfig{
			Path:    "data/readsel.db",
			MaxRuns: 1000,
		},
	}
}

func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return cfg, fmt.Errorf("config file not found: %w", err)
			}
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	overrideString(&cfg.Log.Level, "READSEL_LOG_LEVEL")
	overrideString(&cfg.Log.File, "READSEL_LOG_FILE")
	overrideString(&cfg.Log.FileLevel, "READSEL_LOG_FILE_LEVEL")
	overrideString(&cfg.Capture.Command, "READSEL_CAPTURE_COMMAND")
	overrideInt(&cfg.Capture.TimeoutMS, "READSEL_CAPTURE_TIMEOUT_MS")
	overrideString(&cfg.Engine.Mode, "READSEL_ENGINE_MODE")
	overrideString(&cfg.Engine.Command, "READSEL_ENGINE_COMMAND")
	overrideString(&cfg.Engine.Voice, "READSEL_ENGINE_VOICE")
	overrideFloat(&cfg.Engine.Speed, "READSEL_ENGINE_SPEED")
	overrideInt(&cfg.Engine.StartTimeoutMS, "READSEL_ENGINE_START_TIMEOUT_MS")
	overrideString(&cfg.Audio.Backend, "READSEL_AUDIO_BACKEND")
	overrideString(&cfg.Audio.Device, "READSEL_AUDIO_DEVICE")
	overrideString(&cfg.Audio.Command, "READSEL_AUDIO_COMMAND")
	overrideInt(&cfg.Audio.FramesPerBuffer, "READSEL_AUDIO_FRAMES_PER_BUFFER")
	overrideInt(&cfg.Pipeline.Capacity, "READSEL_PIPELINE_CAPACITY")
	overrideInt(&cfg.Pipeline.StartupDelayMS, "READSEL_PIPELINE_STARTUP_DELAY_MS")
	overrideBool(&cfg.Telemetry.Enabled, "READSEL_TELEMETRY_ENABLED")
	overrideString(&cfg.Telemetry.OTLPEndpoint, "READSEL_TELEMETRY_OTLP_ENDPOINT")
	overrideBool(&cfg.Telemetry.OTLPInsecure, "READSEL_TELEMETRY_OTLP_INSECURE")
	overrideString(&cfg.Telemetry.TraceFile, "READSEL_TELEMETRY_TRACE_FILE")
	overrideStringAllowEmpty(&cfg.Journal.Path, "READSEL_JOURNAL_PATH")
	overrideInt(&cfg.Journal.MaxRuns, "READSEL_JOURNAL_MAX_RUNS")
}

func overrideString(target *string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok && strings.TrimSpace(value) != "" {
		*target = value
	}
}

// overrideStringAllowEmpty lets an empty variable switch a feature off.
func overrideStringAllowEmpty(target *string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		*target = strings.TrimSpace(value)
	}
}

func overrideInt(target *int, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			*target = parsed
		}
	}
}

func overrideBool(target *bool, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseBool(value); err == nil {
			*target = parsed
		}
	}
}

func overrideFloat(target *float64, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			*target = parsed
		}
	}
}

// Validate checks the configuration. Flags applied after Load should be
// followed by another call.
func (cfg Config) Validate() error {
	switch strings.ToLower(cfg.Log.Level) {
	case "trace", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("log.level %q is not a known level", cfg.Log.Level)
	}
	if cfg.Log.File != "" && cfg.Log.MaxSizeMB <= 0 {
		return errors.New("log.max_size_mb must be positive")
	}
	if cfg.Capture.TimeoutMS <= 0 {
		return errors.New("capture.timeout_ms must be positive")
	}
	switch cfg.Engine.Mode {
	case "kokoro":
		if strings.TrimSpace(cfg.Engine.Command) == "" {
			return errors.New("engine.command must be set when mode=kokoro")
		}
	case "tone":
	default:
		return errors.New("engine.mode must be one of kokoro|tone")
	}
	if cfg.Engine.Speed <= 0 || cfg.Engine.Speed > 4 {
		return errors.New("engine.speed must be in (0, 4]")
	}
	if _, err := tts.ResolveVoice(cfg.Engine.Voice); err != nil {
		return fmt.Errorf("engine.voice: %w", err)
	}
	switch cfg.Audio.Backend {
	case "speaker":
		if cfg.Audio.Device != "" && cfg.Audio.Device != "default" {
			return fmt.Errorf("audio.device %q: %w (set audio.backend=exec)", cfg.Audio.Device, audio.ErrDeviceUnsupported)
		}
	case "exec":
	default:
		return errors.New("audio.backend must be one of speaker|exec")
	}
	if err := cfg.AudioFormat().Validate(); err != nil {
		return fmt.Errorf("audio: %w", err)
	}
	if cfg.Pipeline.Capacity <= 0 {
		return errors.New("pipeline.capacity must be >= 1")
	}
	if cfg.Pipeline.StartupDelayMS < 0 {
		return errors.New("pipeline.startup_delay_ms must be >= 0")
	}
	if cfg.Telemetry.Enabled && cfg.Telemetry.OTLPEndpoint == "" && cfg.Telemetry.TraceFile == "" {
		return errors.New("telemetry.trace_file must be set when no otlp_endpoint is configured")
	}
	if cfg.Journal.MaxRuns < 0 {
		return errors.New("journal.max_runs must be >= 0")
	}
	return nil
}

func (cfg Config) CaptureConfig() selection.Config {
	return selection.Config{
		Command: cfg.Capture.Command,
		Timeout: time.Duration(cfg.Capture.TimeoutMS) * time.Millisecond,
	}
}

func (cfg Config) KokoroConfig() tts.KokoroConfig {
	return tts.KokoroConfig{
		Command:      cfg.Engine.Command,
		Voice:        cfg.Engine.Voice,
		StartTimeout: time.Duration(cfg.Engine.StartTimeoutMS) * time.Millisecond,
	}
}

func (cfg Config) AudioConfig() audio.Config {
	return audio.Config{
		Backend: cfg.Audio.Backend,
		Device:  cfg.Audio.Device,
		Command: cfg.Audio.Command,
	}
}

// AudioFormat is mono at the engine rate; only the buffer size is tunable.
func (cfg Config) AudioFormat() audio.Format {
	return audio.Format{
		SampleRate:      tts.SampleRate,
		Channels:        1,
		FramesPerBuffer: cfg.Audio.FramesPerBuffer,
	}
}

func (cfg Config) PipelineOptions() pipeline.Options {
	return pipeline.Options{
		Capacity:     cfg.Pipeline.Capacity,
		StartupDelay: time.Duration(cfg.Pipeline.StartupDelayMS) * time.Millisecond,
		Format:       cfg.AudioFormat(),
	}
}
