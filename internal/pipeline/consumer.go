package pipeline

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"readsel/internal/audio"
)

// Consumer drains the channel into one audio stream.
type Consumer struct {
	ch     *Channel
	output audio.Output
	format audio.Format
	log    *logrus.Entry

	consumed int
	err      error
}

func NewConsumer(ch *Channel, output audio.Output, format audio.Format, log *logrus.Entry) *Consumer {
	return &Consumer{ch: ch, output: output, format: format, log: log}
}

// Run plays segments until the termination sentinel, a playback failure, or
// ctx ends. The returned error is also kept in Err.
func (c *Consumer) Run(ctx context.Context) error {
	c.err = c.run(ctx)
	if c.err != nil {
		c.log.Errorf("consumer: %v", c.err)
	}
	return c.err
}

func (c *Consumer) run(ctx context.Context) (err error) {
	stream, err := c.output.OpenStream(c.format)
	if err != nil {
		return fmt.Errorf("%w: open stream: %w", ErrPlayback, err)
	}
	c.log.Debugf("consumer: stream open (%s)", c.format)
	c.log.Info("consumer: playback started")
	defer func() {
		if cerr := stream.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("%w: close stream: %w", ErrPlayback, cerr)
		}
	}()

	for {
		seg, ok, err := c.ch.Pop(ctx)
		if err != nil {
			return err
		}
		if !ok {
			c.log.Infof("consumer: playback finished, %d segments", c.consumed)
			return nil
		}
		if ctx.Err() != nil {
			return context.Cause(ctx)
		}

		if err := stream.Write(ctx, seg.Samples); err != nil {
			if ctx.Err() != nil {
				return context.Cause(ctx)
			}
			return fmt.Errorf("%w: %w", ErrPlayback, err)
		}
		c.consumed++
		c.log.Debugf("consumer: segment %d played (%.2fs)", c.consumed, seg.Seconds())
	}
}

func (c *Consumer) Consumed() int { return c.consumed }

func (c *Consumer) Err() error { return c.err }
