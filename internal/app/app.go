// Package app wires capture, normalization, the streaming pipeline and the
// run journal into a single "read the selection aloud" operation.
package app

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"readsel/internal/journal"
	"readsel/internal/pipeline"
	"readsel/internal/text"
	"readsel/internal/tts"
)

// Capturer returns the text to read.
type Capturer interface {
	Capture(ctx context.Context) (string, error)
}

type Options struct {
	Voice string
	Speed float64
	// MaxRuns bounds the journal; zero keeps every run.
	MaxRuns int
}

type App struct {
	capturer Capturer
	engine   tts.Engine
	pipeline *pipeline.Pipeline
	journal  *journal.Store
	opts     Options
}

func New(capturer Capturer, engine tts.Engine, p *pipeline.Pipeline, j *journal.Store, opts Options) *App {
	if opts.Voice == "" {
		opts.Voice = tts.DefaultVoice
	}
	if opts.Speed <= 0 {
		opts.Speed = 1.0
	}
	return &App{capturer: capturer, engine: engine, pipeline: p, journal: j, opts: opts}
}

// Speak reads raw aloud, or the current selection when raw is nil. Empty
// input is not an error: it yields a zero Outcome and nothing is played.
// The returned error is only set when the text could not be obtained; run
// failures are reported by the Outcome.
func (a *App) Speak(ctx context.Context, raw *string) (*pipeline.Outcome, error) {
	var input string
	if raw != nil {
		input = *raw
	} else {
		logrus.Debug("app: capturing primary selection")
		captured, err := a.capturer.Capture(ctx)
		if err != nil {
			return nil, err
		}
		input = captured
	}
	logrus.Debugf("app: original text %d chars, %d newlines", len([]rune(input)), text.CountNewlines(input))

	utterance, ok := text.Normalize(input)
	if !ok {
		logrus.Warn("app: nothing selected")
		return &pipeline.Outcome{}, nil
	}
	chars := len([]rune(utterance))
	logrus.Debugf("app: normalized text %d chars, %d newlines", chars, text.CountNewlines(utterance))
	logrus.Infof("app: speaking %d characters", chars)

	started := time.Now()
	out := a.pipeline.Run(ctx, a.engine, tts.Request{
		Text:  utterance,
		Voice: a.opts.Voice,
		Speed: a.opts.Speed,
	})
	if out.Success() {
		logrus.Infof("app: done in %.1fs", out.Elapsed.Seconds())
	}

	a.record(ctx, started, chars, out)
	return out, nil
}

func (a *App) record(ctx context.Context, started time.Time, chars int, out *pipeline.Outcome) {
	if a.journal == nil || !a.journal.Enabled() {
		return
	}
	// the run may have been interrupted, the journal write should still happen
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()

	entry := journal.Entry{
		RunID:       out.RunID,
		StartedAt:   started,
		Chars:       chars,
		Voice:       a.opts.Voice,
		Produced:    out.Produced,
		Consumed:    out.Consumed,
		ProducerErr: errString(out.ProducerErr),
		ConsumerErr: errString(out.ConsumerErr),
		Success:     out.Success(),
		Elapsed:     out.Elapsed,
	}
	if err := a.journal.Record(ctx, entry); err != nil {
		logrus.Warnf("app: %v", err)
		return
	}
	if n, err := a.journal.Prune(ctx, a.opts.MaxRuns); err != nil {
		logrus.Warnf("app: %v", err)
	} else if n > 0 {
		logrus.Debugf("app: pruned %d old runs", n)
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// Interrupted reports whether err stems from the caller cancelling the run.
func Interrupted(err error) bool {
	return errors.Is(err, context.Canceled)
}
