package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"time"

	"readsel/internal/audio"
	"readsel/internal/pipeline"
	"readsel/internal/tts"
)

// Plays a few utterances through the default speaker with the tone engine.
// Every sentence becomes a beep, which makes the overlap between generation
// and playback audible without a speech model.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	driver, err := audio.NewSpeakerDriver("default")
	if err != nil {
		log.Fatalf("Failed to create speaker: %v", err)
	}

	engine := &tts.ToneEngine{
		Frequency: 523.25,
		Delay:     150 * time.Millisecond, // pretend generation takes a while
	}
	defer engine.Close()

	p := pipeline.New(driver, pipeline.DefaultOptions())

	// the same engine serves every run
	for _, text := range []string{
		"Bem-vindo. Este é o primeiro parágrafo!",
		"Segunda frase; mais curta.",
		"Fim.",
	} {
		out := p.Run(ctx, engine, tts.Request{Text: text, Voice: tts.DefaultVoice, Speed: 1.0})
		fmt.Println(out)
		if err := out.Err(); err != nil {
			log.Fatalf("Run failed: %v", err)
		}
	}
}
