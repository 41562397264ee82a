package audio

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/speaker"
	"github.com/sirupsen/logrus"
)

// The beep speaker can only be initialised once per process.
var (
	speakerOnce sync.Once
	speakerRate beep.SampleRate
	speakerErr  error
)

func initSpeaker(f Format) (beep.SampleRate, error) {
	speakerOnce.Do(func() {
		speakerRate = beep.SampleRate(f.SampleRate)
		speakerErr = speaker.Init(speakerRate, f.FramesPerBuffer)
		if speakerErr == nil {
			logrus.Debugf("audio: speaker initialised at %s", f)
		}
	})
	return speakerRate, speakerErr
}

// SpeakerDriver plays through the system default output using beep.
type SpeakerDriver struct{}

// NewSpeakerDriver accepts only the system default device.
func NewSpeakerDriver(device string) (*SpeakerDriver, error) {
	if device != "" && device != "default" {
		return nil, fmt.Errorf("%w: %q (the speaker backend only plays to the default device, use the exec backend)", ErrDeviceUnsupported, device)
	}
	return &SpeakerDriver{}, nil
}

func (d *SpeakerDriver) Open() (Output, error) {
	return &speakerOutput{}, nil
}

type speakerOutput struct {
	mu      sync.Mutex
	streams []*speakerStream
	closed  bool
}

func (o *speakerOutput) OpenStream(f Format) (Stream, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return nil, ErrStreamClosed
	}

	rate, err := initSpeaker(f)
	if err != nil {
		return nil, fmt.Errorf("init speaker: %w", err)
	}

	q := newStreamQueue(f.Channels)
	var s beep.Streamer = q
	if want := beep.SampleRate(f.SampleRate); want != rate {
		s = beep.Resample(4, want, rate, q)
	}
	speaker.Play(s)

	st := &speakerStream{queue: q}
	o.streams = append(o.streams, st)
	return st, nil
}

func (o *speakerOutput) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return nil
	}
	o.closed = true

	var errs []error
	for _, s := range o.streams {
		errs = append(errs, s.Close())
	}
	o.streams = nil
	return errors.Join(errs...)
}

type speakerStream struct {
	queue *streamQueue
}

// Write blocks until the mixer has pulled the last sample.
func (s *speakerStream) Write(ctx context.Context, samples []float32) error {
	if s.queue.isStopped() {
		return ErrStreamClosed
	}
	if len(samples) == 0 {
		return nil
	}

	seg := s.queue.push(samples)
	select {
	case <-seg.done:
		return nil
	case <-ctx.Done():
		s.queue.drop(seg)
		return ctx.Err()
	case <-s.queue.stopped:
		return ErrStreamClosed
	}
}

func (s *speakerStream) Close() error {
	speaker.Lock()
	s.queue.stop()
	speaker.Unlock()
	return nil
}
