package tts

import (
	"bufio"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-shellwords"
	"github.com/sirupsen/logrus"
)

// KokoroConfig configures the Kokoro worker process.
type KokoroConfig struct {
	// Command launches the worker, e.g. "python3 -u scripts/kokoro_worker.py --device auto".
	Command string
	// Voice is loaded during warm-up so the first request does not pay for it.
	Voice string
	// StartTimeout bounds model loading plus the warm-up request.
	StartTimeout time.Duration
}

// kokoroRequest is written to the worker as one JSON line.
type kokoroRequest struct {
	ID       string  `json:"id"`
	Text     string  `json:"text"`
	Voice    string  `json:"voice"`
	LangCode string  `json:"lang_code"`
	Speed    float64 `json:"speed"`
}

// kokoroLine is one line of worker output. A request produces zero or more
// segment lines followed by exactly one line with Done or Error set.
type kokoroLine struct {
	ID      string `json:"id"`
	Index   int    `json:"index"`
	Samples string `json:"samples"` // base64 float32 LE, empty when no audio was produced
	Done    bool   `json:"done"`
	Error   string `json:"error"`
}

// KokoroEngine drives a long-lived Kokoro worker over a JSON-lines protocol on
// stdin/stdout. Requests are served one at a time.
type KokoroEngine struct {
	cfg KokoroConfig

	mu    sync.Mutex // one request in flight
	cmd   *exec.Cmd
	stdin io.WriteCloser
	lines chan kokoroLine

	readErr   atomic.Value
	closed    atomic.Bool
	closeOnce sync.Once
	quit      chan struct{}
	exited    chan struct{}
}

// NewKokoroEngine starts the worker and waits for a warm-up request to finish.
func NewKokoroEngine(ctx context.Context, cfg KokoroConfig) (*KokoroEngine, error) {
	args, err := shellwords.NewParser().Parse(cfg.Command)
	if err != nil {
		return nil, fmt.Errorf("parse kokoro command: %w", err)
	}
	if len(args) == 0 {
		return nil, errors.New("kokoro command empty")
	}
	if cfg.Voice == "" {
		cfg.Voice = DefaultVoice
	}
	if cfg.StartTimeout <= 0 {
		cfg.StartTimeout = 2 * time.Minute
	}

	cmd := exec.Command(args[0], args[1:]...)
	cmd.Env = append(os.Environ(), "PYTHONUNBUFFERED=1")
	stderr := logrus.StandardLogger().WriterLevel(logrus.DebugLevel)
	cmd.Stderr = stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}

	started := time.Now()
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start kokoro worker: %w", err)
	}

	e := &KokoroEngine{
		cfg:    cfg,
		cmd:    cmd,
		stdin:  stdin,
		lines:  make(chan kokoroLine, 16),
		quit:   make(chan struct{}),
		exited: make(chan struct{}),
	}
	go e.readLoop(stdout, stderr)

	warmCtx, cancel := context.WithTimeout(ctx, cfg.StartTimeout)
	defer cancel()
	if err := e.warmUp(warmCtx); err != nil {
		_ = e.Close()
		return nil, fmt.Errorf("kokoro worker failed to start: %w", err)
	}

	logrus.Infof("kokoro: worker ready in %dms (voice %s)", time.Since(started).Milliseconds(), cfg.Voice)
	return e, nil
}

func (e *KokoroEngine) warmUp(ctx context.Context) error {
	for _, err := range e.Generate(ctx, Request{Text: ".", Voice: e.cfg.Voice, Speed: 1.0}) {
		if err != nil {
			return err
		}
	}
	return nil
}

// readLoop owns the worker's lifetime: it forwards stdout until EOF (or
// Close), then reaps the process. Wait closes the stdout pipe, so it must not
// run before the last line has been read.
func (e *KokoroEngine) readLoop(stdout io.Reader, stderr io.Closer) {
	e.scan(stdout)

	waitErr := e.cmd.Wait()
	_ = stderr.Close()
	if waitErr != nil && e.readErr.Load() == nil {
		e.readErr.Store(waitErr)
	}
	close(e.lines)
	close(e.exited)
}

func (e *KokoroEngine) scan(stdout io.Reader) {
	scanner := bufio.NewScanner(stdout)
	// a segment of several seconds of base64 float32 audio is a long line
	scanner.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)
	for scanner.Scan() {
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var line kokoroLine
		if err := json.Unmarshal(raw, &line); err != nil {
			logrus.Warnf("kokoro: skipping malformed worker line: %v", err)
			continue
		}
		select {
		case e.lines <- line:
		case <-e.quit:
			return
		}
	}
	if err := scanner.Err(); err != nil {
		e.readErr.Store(err)
	}
}

// Generate implements Engine.
func (e *KokoroEngine) Generate(ctx context.Context, req Request) iter.Seq2[Segment, error] {
	return func(yield func(Segment, error) bool) {
		e.mu.Lock()
		defer e.mu.Unlock()

		if e.closed.Load() {
			yield(Segment{}, ErrEngineClosed)
			return
		}

		voice, err := ResolveVoice(req.Voice)
		if err != nil {
			yield(Segment{}, err)
			return
		}
		speed := req.Speed
		if speed <= 0 {
			speed = voice.DefaultSpeed
		}

		id := uuid.NewString()
		payload, err := json.Marshal(kokoroRequest{
			ID:       id,
			Text:     req.Text,
			Voice:    voice.ID,
			LangCode: voice.LangCode,
			Speed:    speed,
		})
		if err != nil {
			yield(Segment{}, err)
			return
		}
		if _, err := e.stdin.Write(append(payload, '\n')); err != nil {
			yield(Segment{}, fmt.Errorf("write kokoro request: %w", err))
			return
		}

		for {
			var line kokoroLine
			var ok bool
			select {
			case <-ctx.Done():
				yield(Segment{}, ctx.Err())
				return
			case line, ok = <-e.lines:
			}
			if !ok {
				yield(Segment{}, e.exitErr())
				return
			}
			if line.ID != id {
				// left over from an abandoned request
				continue
			}
			if line.Error != "" {
				yield(Segment{}, fmt.Errorf("kokoro: %s", strings.TrimSpace(line.Error)))
				return
			}
			if line.Done {
				return
			}

			seg := Segment{Index: line.Index}
			if line.Samples != "" {
				raw, err := base64.StdEncoding.DecodeString(line.Samples)
				if err != nil {
					yield(Segment{}, fmt.Errorf("decode kokoro samples: %w", err))
					return
				}
				if seg.Samples, err = DecodeFloat32LE(raw); err != nil {
					yield(Segment{}, err)
					return
				}
			}
			if !yield(seg, nil) {
				return
			}
		}
	}
}

func (e *KokoroEngine) exitErr() error {
	if e.closed.Load() {
		return ErrEngineClosed
	}
	if v := e.readErr.Load(); v != nil {
		return fmt.Errorf("kokoro worker exited: %w", v.(error))
	}
	return errors.New("kokoro worker exited")
}

// Close stops the worker. It is safe to call more than once.
func (e *KokoroEngine) Close() error {
	e.closeOnce.Do(func() {
		e.closed.Store(true)
		close(e.quit)
		_ = e.stdin.Close()
		if e.cmd.Process == nil {
			return
		}
		_ = e.cmd.Process.Signal(os.Interrupt)
		select {
		case <-e.exited:
		case <-time.After(1200 * time.Millisecond):
			_ = e.cmd.Process.Kill()
			<-e.exited
		}
		logrus.Debug("kokoro: worker stopped")
	})
	return nil
}
