// Package pipeline runs the segmentation, synthesis and playback loop that
// turns a narration fragment stream into spoken audio. Three workers run
// concurrently per narration: the feed adapter pushes fragments onto the text
// channel, the segmenter flushes buffered text into synthesized artifacts,
// and the player renders artifacts in order. Channel closes propagate end of
// stream from one stage to the next.
package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/lumenlabs/scenevoice/internal/bus"
	"github.com/lumenlabs/scenevoice/internal/config"
	"github.com/lumenlabs/scenevoice/internal/narrate"
	"github.com/lumenlabs/scenevoice/internal/playback"
	"github.com/lumenlabs/scenevoice/internal/protocol"
	"github.com/lumenlabs/scenevoice/internal/segcache"
	"github.com/lumenlabs/scenevoice/internal/synth"
)

type Pipeline struct {
	cfg      config.PipelineConfig
	voice    string
	syn      synth.Synthesizer
	backend  playback.Backend
	cache    *segcache.Cache
	events   *bus.Client
	log      *slog.Logger
	degraded bool
	metrics  *pipelineMetrics
	tracer   trace.Tracer
}

// New assembles a pipeline. A nil backend switches the pipeline into degraded
// mode, where artifacts are produced and cleaned up but never played aloud.
// cache and events may be nil.
func New(cfg config.PipelineConfig, voice string, syn synth.Synthesizer, backend playback.Backend, cache *segcache.Cache, events *bus.Client, log *slog.Logger) *Pipeline {
	degraded := false
	if backend == nil {
		backend = playback.NewDegraded(log)
		degraded = true
	}
	return &Pipeline{
		cfg:      cfg,
		voice:    voice,
		syn:      syn,
		backend:  backend,
		cache:    cache,
		events:   events,
		log:      log.With(slog.String("component", "pipeline")),
		degraded: degraded,
		metrics:  newPipelineMetrics(log),
		tracer:   otel.Tracer("scenevoice/pipeline"),
	}
}

// Degraded reports whether playback is unavailable.
func (p *Pipeline) Degraded() bool { return p.degraded }

// Run narrates one scene and blocks until playback has drained and every
// artifact has been removed. Source failures end the stream but never abort
// the run: whatever was buffered is still flushed and played.
func (p *Pipeline) Run(ctx context.Context, src narrate.Source, req narrate.Request) Report {
	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}

	ctx, span := p.tracer.Start(ctx, "pipeline.run",
		trace.WithAttributes(attribute.String("session.id", req.SessionID)))
	defer span.End()

	start := time.Now()
	p.log.Info("narration started", slog.String("session", req.SessionID))
	p.events.Publish(protocol.SubjectNarrationStarted, protocol.NarrationStarted{
		SessionID: req.SessionID,
		Prompt:    req.Prompt,
		Timestamp: start.UTC(),
	})

	textCh := make(chan Fragment, 64)
	audioCh := make(chan Artifact, 16)

	var (
		feedRes feedResult
		segRes  segmentResult
		playRes playResult
	)

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		feedRes = runFeed(ctx, src, req, textCh, p.log)
	}()
	go func() {
		defer wg.Done()
		s := &segmenter{p: p, session: req.SessionID}
		segRes = s.run(ctx, textCh, audioCh)
	}()
	go func() {
		defer wg.Done()
		playRes = p.runPlayer(ctx, audioCh)
	}()
	wg.Wait()

	report := Report{
		SessionID:       req.SessionID,
		Fragments:       feedRes.fragments,
		Segments:        segRes.reports,
		Played:          playRes.played,
		DroppedSegments: segRes.dropped,
		Degraded:        p.degraded,
		Elapsed:         time.Since(start),
	}
	if feedRes.err != nil {
		report.SourceError = feedRes.err.Error()
	}

	p.metrics.add(ctx, p.metrics.fragments, int64(report.Fragments))
	p.metrics.add(ctx, p.metrics.played, int64(report.Played))

	p.events.Publish(protocol.SubjectNarrationCompleted, protocol.NarrationCompleted{
		SessionID: req.SessionID,
		Fragments: report.Fragments,
		Segments:  len(report.Segments),
		Played:    report.Played,
		Dropped:   report.DroppedSegments,
		Degraded:  report.Degraded,
		Elapsed:   report.Elapsed,
		SourceErr: report.SourceError,
		Timestamp: time.Now().UTC(),
	})
	p.log.Info("narration completed",
		slog.String("session", req.SessionID),
		slog.Int("fragments", report.Fragments),
		slog.Int("segments", len(report.Segments)),
		slog.Int("played", report.Played),
		slog.Int("dropped", report.DroppedSegments),
		slog.Bool("degraded", report.Degraded),
		slog.Duration("elapsed", report.Elapsed))

	return report
}
