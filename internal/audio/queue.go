package audio

import (
	"sync"
)

// segment is one Write call waiting to be played.
type segment struct {
	samples []float32
	pos     int
	done    chan struct{}
}

// streamQueue is a beep.Streamer playing queued segments back to back. It
// never runs dry: while no segment is queued it yields silence and stays
// alive until stop is called.
type streamQueue struct {
	channels int

	mu      sync.Mutex
	current *segment
	queue   []*segment

	stopOnce sync.Once
	stopped  chan struct{}
}

func newStreamQueue(channels int) *streamQueue {
	return &streamQueue{
		channels: channels,
		stopped:  make(chan struct{}),
	}
}

// push queues samples; the returned channel is closed once the last sample
// has been handed to the mixer.
func (q *streamQueue) push(samples []float32) *segment {
	seg := &segment{samples: samples, done: make(chan struct{})}
	q.mu.Lock()
	q.queue = append(q.queue, seg)
	q.mu.Unlock()
	return seg
}

// drop removes seg if it has not finished playing.
func (q *streamQueue) drop(seg *segment) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.current == seg {
		q.current = nil
		return
	}
	for i, s := range q.queue {
		if s == seg {
			q.queue = append(q.queue[:i], q.queue[i+1:]...)
			return
		}
	}
}

func (q *streamQueue) stop() {
	q.stopOnce.Do(func() { close(q.stopped) })
}

func (q *streamQueue) isStopped() bool {
	select {
	case <-q.stopped:
		return true
	default:
		return false
	}
}

func (q *streamQueue) Stream(samples [][2]float64) (n int, ok bool) {
	if q.isStopped() {
		return 0, false
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	for n < len(samples) {
		if q.current == nil {
			if len(q.queue) == 0 {
				break
			}
			q.current = q.queue[0]
			q.queue = q.queue[1:]
		}

		cur := q.current
		for n < len(samples) && cur.pos < len(cur.samples) {
			if q.channels == 2 && cur.pos+1 < len(cur.samples) {
				samples[n][0] = float64(cur.samples[cur.pos])
				samples[n][1] = float64(cur.samples[cur.pos+1])
				cur.pos += 2
			} else {
				v := float64(cur.samples[cur.pos])
				samples[n][0] = v
				samples[n][1] = v
				cur.pos++
			}
			n++
		}
		if cur.pos >= len(cur.samples) {
			close(cur.done)
			q.current = nil
		}
	}

	// silence until the next segment arrives
	for i := n; i < len(samples); i++ {
		samples[i] = [2]float64{}
	}
	return len(samples), true
}

func (q *streamQueue) Err() error { return nil }
