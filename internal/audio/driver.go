package audio

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrStreamClosed      = errors.New("stream closed")
	ErrDeviceUnsupported = errors.New("audio device unsupported")
)

// Driver acquires the audio subsystem. Every pipeline run opens its own
// Output and closes it when the run is over.
type Driver interface {
	Open() (Output, error)
}

// Output is an acquired audio subsystem.
type Output interface {
	OpenStream(f Format) (Stream, error)
	Close() error
}

// Stream is a blocking real-time sink. Write returns once the samples have
// been accepted by the device, which paces the caller at playback speed.
type Stream interface {
	Write(ctx context.Context, samples []float32) error
	Close() error
}

// Config selects and configures a backend.
type Config struct {
	// Backend is "speaker" or "exec".
	Backend string
	// Device is the output device selector; "default" means the system default.
	Device string
	// Command is the player used by the exec backend. {device}, {rate},
	// {channels} and {frames} are substituted.
	Command string
}

const DefaultPlayerCommand = "aplay -q -D {device} -t raw -f FLOAT_LE -r {rate} -c {channels} --period-size={frames}"

// NewDriver builds the backend named by cfg.Backend.
func NewDriver(cfg Config) (Driver, error) {
	switch cfg.Backend {
	case "", "speaker":
		return NewSpeakerDriver(cfg.Device)
	case "exec":
		return NewExecDriver(cfg.Command, cfg.Device)
	default:
		return nil, fmt.Errorf("unknown audio backend %q", cfg.Backend)
	}
}
