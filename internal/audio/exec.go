package audio

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/mattn/go-shellwords"
	"github.com/sirupsen/logrus"
)

// ExecDriver pipes raw float32 LE samples into an external player such as
// aplay or pw-play. The pipe fills up when the player falls behind, which
// makes Write block at playback speed.
type ExecDriver struct {
	command string
	device  string
}

func NewExecDriver(command, device string) (*ExecDriver, error) {
	if strings.TrimSpace(command) == "" {
		command = DefaultPlayerCommand
	}
	if device == "" {
		device = "default"
	}
	if _, err := shellwords.NewParser().Parse(command); err != nil {
		return nil, fmt.Errorf("parse player command: %w", err)
	}
	return &ExecDriver{command: command, device: device}, nil
}

// Args returns the player argv for f.
func (d *ExecDriver) Args(f Format) ([]string, error) {
	args, err := shellwords.NewParser().Parse(d.command)
	if err != nil {
		return nil, fmt.Errorf("parse player command: %w", err)
	}
	if len(args) == 0 {
		return nil, errors.New("player command empty")
	}
	r := strings.NewReplacer(
		"{device}", d.device,
		"{rate}", strconv.Itoa(f.SampleRate),
		"{channels}", strconv.Itoa(f.Channels),
		"{frames}", strconv.Itoa(f.FramesPerBuffer),
	)
	for i, a := range args {
		args[i] = r.Replace(a)
	}
	return args, nil
}

func (d *ExecDriver) Open() (Output, error) {
	if _, err := d.Args(DefaultFormat); err != nil {
		return nil, err
	}
	return &execOutput{driver: d}, nil
}

type execOutput struct {
	driver *ExecDriver

	mu      sync.Mutex
	streams []*execStream
	closed  bool
}

func (o *execOutput) OpenStream(f Format) (Stream, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	args, err := o.driver.Args(f)
	if err != nil {
		return nil, err
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return nil, ErrStreamClosed
	}

	cmd := exec.Command(args[0], args[1:]...)
	stderr := logrus.StandardLogger().WriterLevel(logrus.DebugLevel)
	cmd.Stderr = stderr
	stdin, err := cmd.StdinPipe()
	if err != nil {
		_ = stderr.Close()
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		_ = stderr.Close()
		return nil, fmt.Errorf("start player %s: %w", args[0], err)
	}
	logrus.Debugf("audio: player %q started (%s)", strings.Join(args, " "), f)

	s := &execStream{
		cmd:    cmd,
		stdin:  stdin,
		stderr: stderr,
		chunk:  f.FramesPerBuffer * f.Channels,
	}
	o.streams = append(o.streams, s)
	return s, nil
}

func (o *execOutput) Close() error {
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

type execStream struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stderr io.Closer
	chunk  int
	buf    []byte

	closed  atomic.Bool
	aborted atomic.Bool
	once    sync.Once
	err     error
}

// Write is not safe for concurrent use.
func (s *execStream) Write(ctx context.Context, samples []float32) error {
	if s.closed.Load() {
		return ErrStreamClosed
	}

	for len(samples) > 0 {
		if err := ctx.Err(); err != nil {
			s.aborted.Store(true)
			return err
		}
		n := min(s.chunk, len(samples))
		s.buf = s.buf[:0]
		for _, v := range samples[:n] {
			s.buf = binary.LittleEndian.AppendUint32(s.buf, math.Float32bits(v))
		}
		if _, err := s.stdin.Write(s.buf); err != nil {
			s.aborted.Store(true)
			if s.closed.Load() {
				return ErrStreamClosed
			}
			return fmt.Errorf("write to player: %w", err)
		}
		samples = samples[n:]
	}
	return nil
}

// Close lets the player drain what it has buffered, unless a write was
// interrupted, in which case the player is killed.
func (s *execStream) Close() error {
	s.once.Do(func() {
		s.closed.Store(true)
		_ = s.stdin.Close()
		aborted := s.aborted.Load()
		if aborted && s.cmd.Process != nil {
			_ = s.cmd.Process.Kill()
		}
		err := s.cmd.Wait()
		_ = s.stderr.Close()
		if err != nil && !aborted {
			s.err = fmt.Errorf("player exited: %w", err)
		}
	})
	return s.err
}
