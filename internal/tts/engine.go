package tts

import (
	"context"
	"errors"
	"iter"
)

var (
	ErrEngineClosed = errors.New("engine closed")
	ErrUnknownVoice = errors.New("unknown voice")
)

// SampleRate is the rate every engine generates at.
const SampleRate = 24000

// Request describes one utterance to synthesize.
type Request struct {
	Text  string
	Voice string
	Speed float64
}

// Segment is one unit of generated audio, mono float32 at SampleRate.
// A segment without samples means the engine produced no audio for that step.
type Segment struct {
	Index   int
	Samples []float32
}

// Empty reports whether the segment carries no audio.
func (s Segment) Empty() bool { return len(s.Samples) == 0 }

// Seconds is the playback length of the segment.
func (s Segment) Seconds() float64 {
	return float64(len(s.Samples)) / SampleRate
}

// Engine generates speech audio. It is expensive to build and is meant to be
// created once and shared by every pipeline run.
//
// Generate returns a lazy, forward-only sequence. Segments are yielded in
// generation order; the sequence ends after yielding a non-nil error.
// Stopping the iteration early abandons the request.
type Engine interface {
	Generate(ctx context.Context, req Request) iter.Seq2[Segment, error]
	Close() error
}
