package pipeline

import "errors"

var (
	// ErrGeneration wraps failures of the speech engine.
	ErrGeneration = errors.New("audio generation failed")
	// ErrPlayback wraps failures to open or write the audio stream.
	ErrPlayback = errors.New("audio playback failed")
	// ErrPlaybackStopped is recorded by the producer when playback ended with
	// an error while generation was still running.
	ErrPlaybackStopped = errors.New("playback stopped before generation finished")
	// ErrChunkCountMismatch means no task reported an error but fewer segments
	// were played than generated.
	ErrChunkCountMismatch = errors.New("played segment count does not match generated count")
)
