package pipeline

import (
	"context"
	"iter"
	"sync"
	"sync/atomic"

	"readsel/internal/audio"
	"readsel/internal/tts"
)

// fakeEngine yields one segment per entry of segments. When failAt is within
// [0, len(segments)] the sequence ends with err at that position.
type fakeEngine struct {
	segments [][]float32
	failAt   int
	err      error

	calls atomic.Int32
}

func newFakeEngine(n int) *fakeEngine {
	e := &fakeEngine{failAt: -1}
	for i := 0; i < n; i++ {
		e.segments = append(e.segments, []float32{float32(i), float32(i)})
	}
	return e
}

func (e *fakeEngine) Generate(ctx context.Context, req tts.Request) iter.Seq2[tts.Segment, error] {
	e.calls.Add(1)
	return func(yield func(tts.Segment, error) bool) {
		for i := 0; i <= len(e.segments); i++ {
			if i == e.failAt {
				yield(tts.Segment{}, e.err)
				return
			}
			if i == len(e.segments) {
				return
			}
			if err := ctx.Err(); err != nil {
				yield(tts.Segment{}, err)
				return
			}
			if !yield(tts.Segment{Index: i, Samples: e.segments[i]}, nil) {
				return
			}
		}
	}
}

func (e *fakeEngine) Close() error { return nil }

// fakeDriver records everything written to its streams.
type fakeDriver struct {
	openErr     error
	streamErr   error
	failWriteAt int // -1 never
	writeErr    error
	gate        chan struct{} // when set, every write waits for it

	writing   chan struct{}
	writeOnce sync.Once

	mu            sync.Mutex
	writes        [][]float32
	opened        int
	outputsClosed int
	streamsClosed int
}

func newFakeDriver() *fakeDriver {
	return &fakeDriver{failWriteAt: -1, writing: make(chan struct{})}
}

func (d *fakeDriver) Open() (audio.Output, error) {
	if d.openErr != nil {
		return nil, d.openErr
	}
	d.mu.Lock()
	d.opened++
	d.mu.Unlock()
	return &fakeOutput{d: d}, nil
}

func (d *fakeDriver) written() [][]float32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([][]float32(nil), d.writes...)
}

func (d *fakeDriver) closed() (outputs, streams int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.outputsClosed, d.streamsClosed
}

type fakeOutput struct{ d *fakeDriver }

func (o *fakeOutput) OpenStream(audio.Format) (audio.Stream, error) {
	if o.d.streamErr != nil {
		return nil, o.d.streamErr
	}
	return &fakeStream{d: o.d}, nil
}

func (o *fakeOutput) Close() error {
	o.d.mu.Lock()
	o.d.outputsClosed++
	o.d.mu.Unlock()
	return nil
}

type fakeStream struct {
	d *fakeDriver
	n int
}

func (s *fakeStream) Write(ctx context.Context, samples []float32) error {
	d := s.d
	d.writeOnce.Do(func() { close(d.writing) })
	if d.gate != nil {
		select {
		case <-d.gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if s.n == d.failWriteAt {
		return d.writeErr
	}
	s.n++
	d.mu.Lock()
	d.writes = append(d.writes, samples)
	d.mu.Unlock()
	return nil
}

func (s *fakeStream) Close() error {
	s.d.mu.Lock()
	s.d.streamsClosed++
	s.d.mu.Unlock()
	return nil
}
