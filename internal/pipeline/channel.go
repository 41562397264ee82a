package pipeline

import (
	"context"
	"errors"
	"sync"

	"readsel/internal/tts"
)

// DefaultCapacity is how many segments may wait between generation and
// playback.
const DefaultCapacity = 10

var errChannelClosed = errors.New("push on closed channel")

// Channel is the bounded FIFO between the producer and the consumer. Closing
// it is the termination sentinel: it happens at most once and a receive that
// observes it reports ok == false, which no segment can be mistaken for.
type Channel struct {
	queue chan tts.Segment
	done  chan struct{}

	closeOnce sync.Once
}

func NewChannel(capacity int) *Channel {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Channel{
		queue: make(chan tts.Segment, capacity),
		done:  make(chan struct{}),
	}
}

// Push blocks while the channel is full. It fails with the context error if
// ctx ends first.
func (c *Channel) Push(ctx context.Context, seg tts.Segment) error {
	select {
	case <-c.done:
		return errChannelClosed
	default:
	}
	select {
	case <-ctx.Done():
		return context.Cause(ctx)
	case c.queue <- seg:
		return nil
	}
}

// Pop blocks while the channel is empty. ok is false once the channel has
// been closed and drained.
func (c *Channel) Pop(ctx context.Context) (seg tts.Segment, ok bool, err error) {
	select {
	case <-ctx.Done():
		return tts.Segment{}, false, context.Cause(ctx)
	case seg, ok = <-c.queue:
		return seg, ok, nil
	}
}

// Close sends the termination sentinel. Only the producer calls it, after its
// last Push has returned.
func (c *Channel) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		close(c.queue)
	})
}

func (c *Channel) Len() int { return len(c.queue) }

func (c *Channel) Cap() int { return cap(c.queue) }
