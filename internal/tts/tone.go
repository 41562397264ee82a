package tts

import (
	"context"
	"iter"
	"math"
	"regexp"
	"strings"
	"time"
)

var fragmentEnd = regexp.MustCompile(`[^.!?;:\n]*[.!?;:\n]+|[^.!?;:\n]+$`)

// ToneEngine is an offline engine that renders each sentence fragment as a
// short sine beep whose length follows the fragment length. It is used when no
// Kokoro worker is available and by tests.
type ToneEngine struct {
	// Frequency of the beep in Hz. Zero means 440.
	Frequency float64
	// PerRune is the audio length per rune of the fragment. Zero means 40ms.
	PerRune time.Duration
	// Delay simulates generation latency before each segment.
	Delay time.Duration
}

// Fragments splits text the way ToneEngine segments it.
func Fragments(text string) []string {
	return fragmentEnd.FindAllString(text, -1)
}

// Generate implements Engine.
func (t *ToneEngine) Generate(ctx context.Context, req Request) iter.Seq2[Segment, error] {
	return func(yield func(Segment, error) bool) {
		speed := req.Speed
		if speed <= 0 {
			speed = 1.0
		}
		for i, frag := range Fragments(req.Text) {
			if t.Delay > 0 {
				select {
				case <-ctx.Done():
					yield(Segment{}, ctx.Err())
					return
				case <-time.After(t.Delay):
				}
			} else if err := ctx.Err(); err != nil {
				yield(Segment{}, err)
				return
			}

			seg := Segment{Index: i}
			if words := strings.Trim(frag, " \t\n.!?;:"); words != "" {
				seg.Samples = t.beep(len([]rune(words)), speed)
			}
			if !yield(seg, nil) {
				return
			}
		}
	}
}

func (t *ToneEngine) beep(runes int, speed float64) []float32 {
	freq := t.Frequency
	if freq == 0 {
		freq = 440
	}
	per := t.PerRune
	if per == 0 {
		per = 40 * time.Millisecond
	}
	n := int(float64(runes) * per.Seconds() * SampleRate / speed)
	if n < 1 {
		n = 1
	}
	out := make([]float32, n)
	for i := range out {
		// short linear fade at both ends keeps segment joins click-free
		env := math.Min(1, math.Min(float64(i), float64(n-1-i))/240)
		out[i] = float32(0.2 * env * math.Sin(2*math.Pi*freq*float64(i)/SampleRate))
	}
	return out
}

// Close implements Engine.
func (t *ToneEngine) Close() error { return nil }
