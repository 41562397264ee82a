package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"readsel/internal/tts"
)

// Producer pulls segments from the engine and pushes them into the channel.
type Producer struct {
	engine tts.Engine
	ch     *Channel
	delay  time.Duration
	log    *logrus.Entry

	produced int
	err      error
}

// NewProducer returns a producer that waits delay before asking the engine
// for audio, giving the consumer time to open its stream.
func NewProducer(engine tts.Engine, ch *Channel, delay time.Duration, log *logrus.Entry) *Producer {
	return &Producer{engine: engine, ch: ch, delay: delay, log: log}
}

// Run generates req until the engine is done, fails, or ctx ends. The channel
// is closed when Run returns, whatever the reason.
func (p *Producer) Run(ctx context.Context, req tts.Request) {
	defer p.ch.Close()

	if !sleepCtx(ctx, p.delay) {
		p.err = p.stopReason(ctx)
		p.log.Warnf("producer: stopped before generation: %v", p.err)
		return
	}

	for seg, err := range p.engine.Generate(ctx, req) {
		if err != nil {
			if ctx.Err() != nil {
				p.err = p.stopReason(ctx)
				p.log.Warnf("producer: %v", p.err)
				return
			}
			p.err = fmt.Errorf("%w: %w", ErrGeneration, err)
			p.log.Errorf("producer: %v", p.err)
			return
		}
		if seg.Empty() {
			p.log.Debugf("producer: segment %d has no audio, skipped", seg.Index)
			continue
		}

		p.log.WithFields(logrus.Fields{
			"samples": len(seg.Samples),
			"queued":  p.ch.Len(),
		}).Debugf("producer: pushing segment %d", seg.Index)

		if err := p.ch.Push(ctx, seg); err != nil {
			p.err = p.stopReason(ctx)
			p.log.Warnf("producer: %v", p.err)
			return
		}
		p.produced++
		p.log.Infof("producer: segment %d generated (%.2fs)", p.produced, seg.Seconds())
	}
	p.log.Debugf("producer: generation finished, %d segments", p.produced)
}

// stopReason tells a playback failure apart from a caller cancelling the run.
func (p *Producer) stopReason(ctx context.Context) error {
	cause := context.Cause(ctx)
	if errors.Is(cause, ErrPlayback) {
		return ErrPlaybackStopped
	}
	if cause == nil {
		cause = ctx.Err()
	}
	return cause
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (p *Producer) Produced() int { return p.produced }

func (p *Producer) Err() error { return p.err }
