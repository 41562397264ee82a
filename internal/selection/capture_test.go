package selection

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCapture(t *testing.T) {
	tests := []struct {
		name    string
		command string
		timeout time.Duration
		want    string
		wantErr error
	}{
		{
			name:    "selected text is trimmed",
			command: `echo "  Olá mundo  "`,
			want:    "Olá mundo",
		},
		{
			name:    "nothing selected",
			command: "sh -c 'exit 1'",
			want:    "",
		},
		{
			name:    "tool missing",
			command: "/nonexistent/wl-paste --primary",
			wantErr: ErrCaptureUnavailable,
		},
		{
			name:    "tool hangs",
			command: "sleep 5",
			timeout: 50 * time.Millisecond,
			wantErr: ErrCaptureUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewCapturer(Config{Command: tt.command, Timeout: tt.timeout})
			require.NoError(t, err)

			got, err := c.Capture(context.Background())
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCaptureCancelled(t *testing.T) {
	c, err := NewCapturer(Config{Command: "sleep 5"})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = c.Capture(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrCaptureUnavailable)
}

func TestNewCapturerDefaults(t *testing.T) {
	c, err := NewCapturer(Config{})
	require.NoError(t, err)
	assert.Equal(t, []string{"wl-paste", "--primary"}, c.args)
	assert.Equal(t, DefaultTimeout, c.timeout)

	_, err = NewCapturer(Config{Command: `"unterminated`})
	assert.Error(t, err)
}
