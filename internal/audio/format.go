package audio

import "fmt"

// Format describes the PCM layout handed to a Stream. Samples are always
// float32 in [-1, 1].
type Format struct {
	SampleRate      int
	Channels        int
	FramesPerBuffer int
}

// DefaultFormat matches what the speech engines generate.
var DefaultFormat = Format{
	SampleRate:      24000,
	Channels:        1,
	FramesPerBuffer: 2048,
}

func (f Format) Validate() error {
	if f.SampleRate <= 0 {
		return fmt.Errorf("invalid sample rate %d", f.SampleRate)
	}
	if f.Channels != 1 && f.Channels != 2 {
		return fmt.Errorf("unsupported channel count %d", f.Channels)
	}
	if f.FramesPerBuffer <= 0 {
		return fmt.Errorf("invalid frames per buffer %d", f.FramesPerBuffer)
	}
	return nil
}

func (f Format) String() string {
	return fmt.Sprintf("%dHz/%dch/%d frames", f.SampleRate, f.Channels, f.FramesPerBuffer)
}
