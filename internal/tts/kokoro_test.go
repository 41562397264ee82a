package tts

import (
	"bufio"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	kokoroHelperEnv = "READSEL_KOKORO_HELPER"
	crashSegments   = 40
)

// TestKokoroHelperProcess is not a real test. It is re-executed by the other
// tests in this file as a stand-in Kokoro worker.
func TestKokoroHelperProcess(t *testing.T) {
	if os.Getenv(kokoroHelperEnv) != "1" {
		t.Skip("helper process")
	}

	out := json.NewEncoder(os.Stdout)
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		var req kokoroRequest
		if err := json.Unmarshal(scanner.Bytes(), &req); err != nil {
			continue
		}
		switch {
		case strings.Contains(req.Text, "explode"):
			_ = out.Encode(kokoroLine{ID: req.ID, Error: "model exploded\n"})
			continue
		case strings.Contains(req.Text, "crash"):
			// long lines, a last error, then an abrupt exit with output still in the pipe
			samples := EncodeFloat32LE(make([]float32, 24000))
			for i := range crashSegments {
				_ = out.Encode(kokoroLine{ID: req.ID, Index: i, Samples: base64.StdEncoding.EncodeToString(samples)})
			}
			_ = out.Encode(kokoroLine{ID: req.ID, Error: "CUDA out of memory"})
			os.Exit(3)
		case strings.Contains(req.Text, "slow"):
			time.Sleep(300 * time.Millisecond)
		}
		for i, frag := range Fragments(req.Text) {
			line := kokoroLine{ID: req.ID, Index: i}
			if words := strings.Trim(frag, " .!?;:\n"); words != "" {
				samples := make([]float32, len([]rune(words)))
				for j := range samples {
					samples[j] = float32(req.Speed) / 10
				}
				line.Samples = base64.StdEncoding.EncodeToString(EncodeFloat32LE(samples))
			}
			_ = out.Encode(line)
		}
		_ = out.Encode(kokoroLine{ID: req.ID, Done: true})
	}
	os.Exit(0)
}

func startHelperEngine(t *testing.T) *KokoroEngine {
	t.Helper()
	t.Setenv(kokoroHelperEnv, "1")

	e, err := NewKokoroEngine(context.Background(), KokoroConfig{
		Command:      fmt.Sprintf("%q -test.run=^TestKokoroHelperProcess$", os.Args[0]),
		StartTimeout: 10 * time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	return e
}

func TestKokoroEngineGenerate(t *testing.T) {
	e := startHelperEngine(t)

	segs, err := collect(t, e, Request{Text: "Olá. ... Tchau!", Voice: "pf_dora", Speed: 1.5})
	require.NoError(t, err)
	require.Len(t, segs, 3)

	assert.Equal(t, 0, segs[0].Index)
	assert.Len(t, segs[0].Samples, 3)
	assert.InDelta(t, 0.15, segs[0].Samples[0], 1e-6)
	assert.True(t, segs[1].Empty())
	assert.Len(t, segs[2].Samples, 5)
}

func TestKokoroEngineWorkerError(t *testing.T) {
	e := startHelperEngine(t)

	_, err := collect(t, e, Request{Text: "please explode", Voice: "pf_dora"})
	require.Error(t, err)
	assert.Equal(t, "kokoro: model exploded", err.Error())

	// the worker survives a failed request
	segs, err := collect(t, e, Request{Text: "still here.", Voice: "pf_dora"})
	require.NoError(t, err)
	assert.Len(t, segs, 1)
}

func TestKokoroEngineWorkerCrashKeepsOutput(t *testing.T) {
	for range 5 {
		e := startHelperEngine(t)

		segs, err := collect(t, e, Request{Text: "crash now", Voice: "pf_dora"})
		require.Error(t, err)
		assert.Equal(t, "kokoro: CUDA out of memory", err.Error())
		require.Len(t, segs, crashSegments)
		for i, seg := range segs {
			assert.Equal(t, i, seg.Index)
			assert.Len(t, seg.Samples, 24000)
		}

		// the worker is gone now
		_, err = collect(t, e, Request{Text: "anyone there?", Voice: "pf_dora"})
		require.Error(t, err)
		_ = e.Close()
	}
}

func TestKokoroEngineSkipsAbandonedLines(t *testing.T) {
	e := startHelperEngine(t)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	var got error
	for _, err := range e.Generate(ctx, Request{Text: "slow one. slow two.", Voice: "pf_dora"}) {
		got = err
	}
	require.ErrorIs(t, got, context.DeadlineExceeded)

	segs, err := collect(t, e, Request{Text: "fresh.", Voice: "pf_dora"})
	require.NoError(t, err)
	require.Len(t, segs, 1)
	assert.Len(t, segs[0].Samples, len("fresh"))
}

func TestKokoroEngineUnknownVoice(t *testing.T) {
	e := startHelperEngine(t)

	_, err := collect(t, e, Request{Text: "hi", Voice: "nobody"})
	assert.ErrorIs(t, err, ErrUnknownVoice)
}

func TestKokoroEngineClosed(t *testing.T) {
	e := startHelperEngine(t)
	require.NoError(t, e.Close())
	require.NoError(t, e.Close())

	_, err := collect(t, e, Request{Text: "hi", Voice: "pf_dora"})
	assert.ErrorIs(t, err, ErrEngineClosed)
}

func TestNewKokoroEngineBadCommand(t *testing.T) {
	_, err := NewKokoroEngine(context.Background(), KokoroConfig{Command: ""})
	require.Error(t, err)

	_, err = NewKokoroEngine(context.Background(), KokoroConfig{Command: "/nonexistent/kokoro-worker"})
	require.Error(t, err)
}
