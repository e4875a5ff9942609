package pipeline

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

type pipelineMetrics struct {
	fragments       metric.Int64Counter
	segments        metric.Int64Counter
	retries         metric.Int64Counter
	cacheHits       metric.Int64Counter
	played          metric.Int64Counter
	droppedSegments metric.Int64Counter
}

func newPipelineMetrics(log *slog.Logger) *pipelineMetrics {
	meter := otel.Meter("scenevoice/pipeline")
	m := &pipelineMetrics{}

	instrument := func(name, desc string) metric.Int64Counter {
		counter, err := meter.Int64Counter(name, metric.WithDescription(desc))
		if err != nil {
			log.Warn("failed to create pipeline metric",
				slog.String("metric", name),
				slog.String("error", err.Error()))
			return nil
		}
		return counter
	}

	m.fragments = instrument("scenevoice.pipeline.fragments", "Narration fragments received from the source")
	m.segments = instrument("scenevoice.pipeline.segments", "Segments flushed to synthesis")
	m.retries = instrument("scenevoice.pipeline.synth_failures", "Failed synthesis attempts")
	m.cacheHits = instrument("scenevoice.pipeline.cache_hits", "Segments served from the audio cache")
	m.played = instrument("scenevoice.pipeline.played", "Segments rendered by the playback backend")
	m.droppedSegments = instrument("scenevoice.pipeline.dropped", "Segments dropped after exhausting retries")

	return m
}

func (m *pipelineMetrics) add(ctx context.Context, counter metric.Int64Counter, n int64) {
	if m == nil || counter == nil {
		return
	}
	counter.Add(ctx, n)
}
