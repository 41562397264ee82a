package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"readsel/internal/pipeline"
	"readsel/internal/selection"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		out  *pipeline.Outcome
		err  error
		want int
	}{
		{"nil outcome", nil, nil, exitOK},
		{"empty input", &pipeline.Outcome{}, nil, exitOK},
		{"all played", &pipeline.Outcome{Produced: 3, Consumed: 3}, nil, exitOK},
		{
			"capture failed", nil,
			fmt.Errorf("capture: %w: wl-paste not found", selection.ErrCaptureUnavailable),
			exitFailure,
		},
		{
			"generation failed",
			&pipeline.Outcome{Produced: 2, Consumed: 2, ProducerErr: fmt.Errorf("%w: boom", pipeline.ErrGeneration)},
			nil, exitFailure,
		},
		{
			"playback failed",
			&pipeline.Outcome{
				Produced:    3,
				Consumed:    1,
				ProducerErr: pipeline.ErrPlaybackStopped,
				ConsumerErr: fmt.Errorf("%w: device gone", pipeline.ErrPlayback),
			},
			nil, exitFailure,
		},
		{"count mismatch", &pipeline.Outcome{Produced: 3, Consumed: 2}, nil, exitFailure},
		{"interrupted before run", nil, fmt.Errorf("speak: %w", context.Canceled), exitInterrupted},
		{
			"interrupted producer",
			&pipeline.Outcome{Produced: 1, Consumed: 1, ProducerErr: context.Canceled},
			nil, exitInterrupted,
		},
		{
			"interrupted both",
			&pipeline.Outcome{Produced: 2, Consumed: 1, ProducerErr: context.Canceled, ConsumerErr: context.Canceled},
			nil, exitInterrupted,
		},
		{"timeout is a failure", nil, context.DeadlineExceeded, exitFailure},
		{"error wins over outcome", &pipeline.Outcome{}, errors.New("journal broken"), exitFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCode(tt.out, tt.err))
		})
	}
}

func TestPrintVoices(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printVoices(&buf, ""))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Greater(t, len(lines), 1)
	assert.True(t, strings.HasPrefix(lines[0], "VOICE"))
	assert.Contains(t, buf.String(), "pf_dora")
	assert.Contains(t, buf.String(), "af_heart")
}

func TestPrintVoicesByLanguage(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printVoices(&buf, "pt-br"))

	out := buf.String()
	assert.Contains(t, out, "pf_dora")
	assert.Contains(t, out, "pm_alex")
	assert.NotContains(t, out, "af_heart")

	assert.Error(t, printVoices(&buf, "klingon"))
}
