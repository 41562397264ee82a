package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/sirupsen/logrus"

	"readsel/internal/app"
	"readsel/internal/audio"
	"readsel/internal/config"
	"readsel/internal/journal"
	"readsel/internal/logging"
	"readsel/internal/pipeline"
	"readsel/internal/selection"
	"readsel/internal/telemetry"
	"readsel/internal/tts"
)

var version = "0.1.0-dev"

const (
	exitOK          = 0
	exitFailure     = 1
	exitInterrupted = 130
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		configPath  string
		engineMode  string
		voice       string
		speed       float64
		backend     string
		device      string
		text        string
		history     int
		listVoices  bool
		language    string
		showVersion bool
	)

	flag.StringVar(&configPath, "config", "", "Path to configuration file")
	flag.StringVar(&engineMode, "engine", "", "Speech engine: kokoro or tone")
	flag.StringVar(&voice, "voice", "", "Voice id, e.g. pf_dora")
	flag.Float64Var(&speed, "speed", 0, "Speech speed multiplier")
	flag.StringVar(&backend, "backend", "", "Audio backend: speaker or exec")
	flag.StringVar(&device, "device", "", "Audio output device")
	flag.StringVar(&text, "text", "", "Read this text instead of the primary selection")
	flag.IntVar(&history, "history", 0, "Print the last N runs and exit")
	flag.BoolVar(&listVoices, "voices", false, "List known voices and exit")
	flag.StringVar(&language, "lang", "", "With -voices, only list voices for this language, e.g. pt-br")
	flag.BoolVar(&showVersion, "version", false, "Print version and exit")
	flag.Parse()

	if showVersion {
		fmt.Println(version)
		return exitOK
	}
	if listVoices {
		if err := printVoices(os.Stdout, language); err != nil {
			fmt.Fprintf(os.Stderr, "readsel: %v\n", err)
			return exitFailure
		}
		return exitOK
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "readsel: %v\n", err)
		return exitFailure
	}
	var textGiven bool
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "engine":
			cfg.Engine.Mode = engineMode
		case "voice":
			cfg.Engine.Voice = voice
		case "speed":
			cfg.Engine.Speed = speed
		case "backend":
			cfg.Audio.Backend = backend
		case "device":
			cfg.Audio.Device = device
		case "text":
			textGiven = true
		}
	})
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "readsel: %v\n", err)
		return exitFailure
	}

	logCloser, err := logging.Setup(logrus.StandardLogger(), logging.Options{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		FileLevel:  cfg.Log.FileLevel,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		Compress:   cfg.Log.Compress,
	}, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "readsel: %v\n", err)
		return exitFailure
	}
	defer logCloser.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, telemetry.Options{
		Enabled:      cfg.Telemetry.Enabled,
		ServiceName:  "readsel",
		Version:      version,
		OTLPEndpoint: cfg.Telemetry.OTLPEndpoint,
		OTLPInsecure: cfg.Telemetry.OTLPInsecure,
		TraceFile:    cfg.Telemetry.TraceFile,
	})
	if err != nil {
		logrus.Errorf("telemetry: %v", err)
		return exitFailure
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			logrus.Warnf("telemetry: shutdown: %v", err)
		}
	}()

	runs, err := journal.Open(ctx, cfg.Journal.Path)
	if err != nil {
		logrus.Errorf("journal: %v", err)
		return exitFailure
	}
	defer runs.Close()

	if history > 0 {
		if err := printHistory(ctx, os.Stdout, runs, history); err != nil {
			logrus.Errorf("journal: %v", err)
			return exitFailure
		}
		return exitOK
	}

	driver, err := audio.NewDriver(cfg.AudioConfig())
	if err != nil {
		logrus.Errorf("audio: %v", err)
		return exitFailure
	}
	capturer, err := selection.NewCapturer(cfg.CaptureConfig())
	if err != nil {
		logrus.Errorf("selection: %v", err)
		return exitFailure
	}

	engine, err := newEngine(ctx, cfg)
	if err != nil {
		if exitCode(nil, err) == exitInterrupted || ctx.Err() != nil {
			logrus.Warn("interrupted, shutting down")
			return exitInterrupted
		}
		logrus.Errorf("engine: %v", err)
		return exitFailure
	}
	defer engine.Close()

	a := app.New(capturer, engine, pipeline.New(driver, cfg.PipelineOptions()), runs, app.Options{
		Voice:   cfg.Engine.Voice,
		Speed:   cfg.Engine.Speed,
		MaxRuns: cfg.Journal.MaxRuns,
	})

	var raw *string
	if textGiven {
		raw = &text
	}
	out, err := a.Speak(ctx, raw)
	code := exitCode(out, err)
	switch {
	case code == exitInterrupted:
		logrus.Warn("interrupted, shutting down")
	case err != nil:
		logrus.Errorf("%v", err)
	case code == exitFailure:
		logFailure(out)
	}
	return code
}

// exitCode maps the result of a run to the process exit status. An
// interrupt anywhere in the chain wins over other failures.
func exitCode(out *pipeline.Outcome, err error) int {
	if err == nil && out != nil {
		err = out.Err()
	}
	switch {
	case err == nil:
		return exitOK
	case app.Interrupted(err):
		return exitInterrupted
	default:
		return exitFailure
	}
}

func logFailure(out *pipeline.Outcome) {
	logrus.Error("run failed")
	if out.ProducerErr != nil {
		logrus.Errorf("producer: %v", out.ProducerErr)
	}
	if out.ConsumerErr != nil {
		logrus.Errorf("consumer: %v", out.ConsumerErr)
	}
	if out.ProducerErr == nil && out.ConsumerErr == nil {
		logrus.Errorf("%v", out.Err())
	}
}

func newEngine(ctx context.Context, cfg config.Config) (tts.Engine, error) {
	switch cfg.Engine.Mode {
	case "tone":
		logrus.Info("engine: using tone generator")
		return &tts.ToneEngine{}, nil
	default:
		logrus.Info("engine: starting kokoro worker")
		return tts.NewKokoroEngine(ctx, cfg.KokoroConfig())
	}
}

func printVoices(w io.Writer, language string) error {
	var voices []tts.VoiceProfile
	if language != "" {
		voices = tts.FindVoicesByLanguage(language)
		if len(voices) == 0 {
			return fmt.Errorf("no voices for language %q", language)
		}
	} else {
		for _, id := range tts.ListVoices() {
			v, _ := tts.GetVoice(id)
			voices = append(voices, v)
		}
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "VOICE\tLANGUAGE\tCODE\tGENDER\tDESCRIPTION")
	for _, v := range voices {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", v.ID, v.Language, v.LangCode, v.Gender, v.Description)
	}
	return tw.Flush()
}

func printHistory(ctx context.Context, w io.Writer, runs *journal.Store, limit int) error {
	if !runs.Enabled() {
		return fmt.Errorf("journal disabled (journal.path is empty)")
	}
	entries, err := runs.Recent(ctx, limit)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "STARTED\tRUN\tCHARS\tVOICE\tSEGMENTS\tELAPSED\tSTATUS")
	for _, e := range entries {
		status := "ok"
		if !e.Success {
			status = "failed"
			if e.ConsumerErr != "" {
				status += ": " + e.ConsumerErr
			} else if e.ProducerErr != "" {
				status += ": " + e.ProducerErr
			}
		}
		fmt.Fprintf(tw, "%s\t%.8s\t%d\t%s\t%d/%d\t%s\t%s\n",
			e.StartedAt.Format("2006-01-02 15:04:05"), e.RunID, e.Chars, e.Voice,
			e.Consumed, e.Produced, e.Elapsed.Round(time.Millisecond), status)
	}
	return tw.Flush()
}
