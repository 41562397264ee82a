package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"readsel/internal/audio"
	"readsel/internal/tts"
)

const tracerName = "readsel/internal/pipeline"

// DefaultStartupDelay gives the consumer a head start so the audio stream is
// open before the first segment arrives.
const DefaultStartupDelay = 100 * time.Millisecond

type Options struct {
	Capacity     int
	StartupDelay time.Duration
	Format       audio.Format
}

func DefaultOptions() Options {
	return Options{
		Capacity:     DefaultCapacity,
		StartupDelay: DefaultStartupDelay,
		Format:       audio.DefaultFormat,
	}
}

// Pipeline overlaps speech generation with playback. It holds no engine; the
// caller owns the engine and passes it to every Run.
type Pipeline struct {
	driver audio.Driver
	opts   Options
	tracer trace.Tracer
}

func New(driver audio.Driver, opts Options) *Pipeline {
	if opts.Capacity <= 0 {
		opts.Capacity = DefaultCapacity
	}
	if opts.StartupDelay < 0 {
		opts.StartupDelay = 0
	}
	if opts.Format == (audio.Format{}) {
		opts.Format = audio.DefaultFormat
	}
	return &Pipeline{
		driver: driver,
		opts:   opts,
		tracer: otel.Tracer(tracerName),
	}
}

// Run speaks req and returns once generation and playback have both
// finished. It never retries; failures are reported in the Outcome.
func (p *Pipeline) Run(ctx context.Context, engine tts.Engine, req tts.Request) *Outcome {
	started := time.Now()
	out := &Outcome{RunID: uuid.NewString()}
	log := logrus.WithField("run", out.RunID)

	ctx, span := p.tracer.Start(ctx, "pipeline.run", trace.WithAttributes(
		attribute.String("run.id", out.RunID),
		attribute.Int("text.chars", len([]rune(req.Text))),
		attribute.String("tts.voice", req.Voice),
		attribute.Float64("tts.speed", req.Speed),
		attribute.Int("channel.capacity", p.opts.Capacity),
	))
	defer func() {
		out.Elapsed = time.Since(started)
		endSpan(span, out)
	}()

	output, err := p.driver.Open()
	if err != nil {
		out.ConsumerErr = fmt.Errorf("%w: open audio output: %w", ErrPlayback, err)
		log.Errorf("pipeline: %v", out.ConsumerErr)
		return out
	}
	defer func() {
		if err := output.Close(); err != nil {
			log.Warnf("pipeline: close audio output: %v", err)
		}
	}()

	ch := NewChannel(p.opts.Capacity)
	producer := NewProducer(engine, ch, p.opts.StartupDelay, log)
	consumer := NewConsumer(ch, output, p.opts.Format, log)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		cctx, cspan := p.tracer.Start(gctx, "pipeline.consume")
		defer cspan.End()
		err := consumer.Run(cctx)
		cspan.SetAttributes(attribute.Int("segments.consumed", consumer.Consumed()))
		if err != nil {
			cspan.RecordError(err)
			cspan.SetStatus(codes.Error, err.Error())
		}
		return err
	})

	producerDone := make(chan struct{})
	go func() {
		defer close(producerDone)
		pctx, pspan := p.tracer.Start(gctx, "pipeline.produce")
		defer pspan.End()

		producer.Run(pctx, req)
		pspan.SetAttributes(attribute.Int("segments.produced", producer.Produced()))
		if err := producer.Err(); err != nil {
			pspan.RecordError(err)
			pspan.SetStatus(codes.Error, err.Error())
		}
	}()

	<-producerDone
	_ = g.Wait()

	out.Produced = producer.Produced()
	out.Consumed = consumer.Consumed()
	out.ProducerErr = producer.Err()
	out.ConsumerErr = consumer.Err()

	if out.Success() {
		log.Infof("pipeline: %d segments played", out.Consumed)
	} else if out.ProducerErr == nil && out.ConsumerErr == nil {
		log.Errorf("pipeline: %v", out.Err())
	}
	return out
}

func endSpan(span trace.Span, out *Outcome) {
	span.SetAttributes(
		attribute.Int("segments.produced", out.Produced),
		attribute.Int("segments.consumed", out.Consumed),
		attribute.Int64("elapsed.ms", out.Elapsed.Milliseconds()),
	)
	if err := out.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
