package pipeline

import (
	"errors"
	"fmt"
	"time"
)

// Outcome is the result of one run. It is built once both tasks have
// finished and is not modified afterwards.
type Outcome struct {
	RunID       string
	Produced    int
	Consumed    int
	ProducerErr error
	ConsumerErr error
	Elapsed     time.Duration
}

// Success reports whether every generated segment was played and neither
// task failed.
func (o *Outcome) Success() bool {
	return o.ProducerErr == nil && o.ConsumerErr == nil && o.Produced == o.Consumed
}

// Err aggregates the failures of the run. It is nil exactly when Success is
// true.
func (o *Outcome) Err() error {
	if o.Success() {
		return nil
	}
	if o.ProducerErr == nil && o.ConsumerErr == nil {
		return fmt.Errorf("%w: produced %d, consumed %d", ErrChunkCountMismatch, o.Produced, o.Consumed)
	}
	return errors.Join(o.ProducerErr, o.ConsumerErr)
}

func (o *Outcome) String() string {
	status := "ok"
	if !o.Success() {
		status = "failed"
	}
	return fmt.Sprintf("run %s %s: produced=%d consumed=%d elapsed=%s",
		o.RunID, status, o.Produced, o.Consumed, o.Elapsed.Round(time.Millisecond))
}
