package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lumenlabs/scenevoice/internal/protocol"
	"github.com/lumenlabs/scenevoice/internal/segcache"
	"github.com/lumenlabs/scenevoice/internal/synth"
)

type segmentResult struct {
	reports []SegmentReport
	dropped int
}

// segmenter accumulates fragments and decides when the buffer becomes a
// segment. A failed synthesis keeps the buffer intact, so the next trigger
// retries with the same text plus whatever arrived in the meantime.
type segmenter struct {
	p       *Pipeline
	session string

	buffer   []string
	attempts int
	seq      int
	reports  []SegmentReport
	dropped  int
}

func (s *segmenter) run(ctx context.Context, in <-chan Fragment, out chan<- Artifact) segmentResult {
	defer close(out)

	poll := time.Duration(s.p.cfg.PollIntervalMS) * time.Millisecond
	maxIdle := time.Duration(s.p.cfg.MaxIdleMS) * time.Millisecond
	lastArrival := time.Now()

	for {
		select {
		case frag, ok := <-in:
			if !ok {
				s.finalFlush(ctx, out)
				return segmentResult{reports: s.reports, dropped: s.dropped}
			}
			s.buffer = append(s.buffer, frag.Text)
			lastArrival = time.Now()
			if reason, due := s.due(); due {
				s.flush(ctx, out, reason)
			}
		case <-time.After(poll):
			if len(s.buffer) > 0 && time.Since(lastArrival) >= maxIdle {
				// A failed flush keeps the idle clock running so the retained
				// buffer is retried on the next poll tick, not a full idle
				// window later.
				if s.flush(ctx, out, ReasonIdle) {
					lastArrival = time.Now()
				}
			}
		case <-ctx.Done():
			return segmentResult{reports: s.reports, dropped: s.dropped}
		}
	}
}

func (s *segmenter) text() string {
	return strings.TrimSpace(strings.Join(s.buffer, ""))
}

// due applies the flush policy: sentence-ending punctuation wins over the
// word-count threshold unless the pipeline is configured the other way round.
func (s *segmenter) due() (string, bool) {
	text := s.text()
	if text == "" {
		return "", false
	}
	sentence := endsSentence(text)
	words := s.wordCountDue(text)
	if s.p.cfg.WordCountFirst {
		if words {
			return ReasonWords, true
		}
		if sentence {
			return ReasonSentence, true
		}
	} else {
		if sentence {
			return ReasonSentence, true
		}
		if words {
			return ReasonWords, true
		}
	}
	return "", false
}

// wordCountDue counts the words of the trailing clause only. A buffer like
// "on your left, about two" is mid-clause and keeps waiting for its sentence
// end; counting restarts at each punctuation boundary, so streams that never
// punctuate still flush once the threshold is reached. The idle flush bounds
// latency either way.
func (s *segmenter) wordCountDue(text string) bool {
	tail := strings.TrimRight(text, ".!?,;: ")
	if i := strings.LastIndexAny(tail, ".!?,;:"); i >= 0 {
		tail = tail[i+1:]
	}
	return len(strings.Fields(tail)) >= s.p.cfg.MinWords
}

func endsSentence(text string) bool {
	runes := []rune(text)
	switch runes[len(runes)-1] {
	case '.', '!', '?':
		return true
	}
	return false
}

// finalFlush drains the remaining buffer when the stream has ended. With an
// unlimited retry budget there is nothing left to wait for, so a failure here
// drops the segment rather than looping forever.
func (s *segmenter) finalFlush(ctx context.Context, out chan<- Artifact) {
	for len(s.buffer) > 0 && ctx.Err() == nil {
		if s.flush(ctx, out, ReasonFinal) {
			return
		}
	}
}

// flush synthesizes the current buffer and emits the resulting artifact. It
// returns true when the buffer was cleared (segment emitted or dropped) and
// false when synthesis failed and the buffer is retained for a retry.
func (s *segmenter) flush(ctx context.Context, out chan<- Artifact, reason string) bool {
	text := s.text()
	if text == "" {
		s.buffer = nil
		s.attempts = 0
		return true
	}
	words := len(strings.Fields(text))

	key := segcache.Key(s.p.voice, text)
	clip, hit, err := s.p.cache.Get(ctx, key)
	if err != nil {
		s.p.log.Warn("segment cache lookup failed", slog.String("error", err.Error()))
		hit = false
	}

	if !hit {
		s.attempts++
		clip, err = s.p.syn.Synthesize(ctx, text)
		if err != nil {
			return s.synthFailed(reason, err)
		}
		if err := s.p.cache.Put(ctx, key, clip); err != nil {
			s.p.log.Warn("segment cache store failed", slog.String("error", err.Error()))
		}
	} else {
		s.p.metrics.add(ctx, s.p.metrics.cacheHits, 1)
	}

	path, err := s.materialize(clip)
	if err != nil {
		// Synthesis succeeded but the artifact cannot land on disk; a retry
		// would hit the same filesystem, so the segment is dropped.
		s.p.log.Error("failed to write narration artifact",
			slog.String("session", s.session),
			slog.String("error", err.Error()))
		s.drop()
		return true
	}

	select {
	case out <- Artifact{Seq: s.seq, Text: text, Path: path, Cached: hit}:
	case <-ctx.Done():
		os.Remove(path)
		return true
	}

	s.reports = append(s.reports, SegmentReport{
		Sequence: s.seq,
		Words:    words,
		Reason:   reason,
		Attempts: s.attempts,
		CacheHit: hit,
	})
	s.p.metrics.add(ctx, s.p.metrics.segments, 1)
	s.p.events.Publish(protocol.SubjectNarrationSegment, protocol.SegmentFlushed{
		SessionID: s.session,
		Sequence:  s.seq,
		Words:     words,
		Reason:    reason,
		CacheHit:  hit,
		Timestamp: time.Now().UTC(),
	})
	s.p.log.Debug("segment flushed",
		slog.String("session", s.session),
		slog.Int("sequence", s.seq),
		slog.Int("words", words),
		slog.String("reason", reason),
		slog.Bool("cache_hit", hit))

	s.seq++
	s.buffer = nil
	s.attempts = 0
	return true
}

func (s *segmenter) synthFailed(reason string, err error) bool {
	s.p.metrics.add(context.Background(), s.p.metrics.retries, 1)

	max := s.p.cfg.MaxSynthAttempts
	if reason == ReasonFinal && max == 0 {
		max = s.attempts
	}
	if max > 0 && s.attempts >= max {
		s.p.log.Error("dropping segment after repeated synthesis failures",
			slog.String("session", s.session),
			slog.Int("attempts", s.attempts),
			slog.String("error", err.Error()))
		s.drop()
		return true
	}

	s.p.log.Warn("synthesis failed, retaining buffer for retry",
		slog.String("session", s.session),
		slog.Int("attempt", s.attempts),
		slog.String("error", err.Error()))
	return false
}

func (s *segmenter) drop() {
	s.dropped++
	s.p.metrics.add(context.Background(), s.p.metrics.droppedSegments, 1)
	s.buffer = nil
	s.attempts = 0
}

// materialize writes the clip to a uniquely named WAV file in the pipeline's
// scratch directory. Files are removed by the playback worker once the run
// has drained.
func (s *segmenter) materialize(clip synth.Clip) (string, error) {
	dir := s.p.cfg.TmpDir
	if dir == "" {
		dir = os.TempDir()
	}
	path := filepath.Join(dir, fmt.Sprintf("scenevoice-%s.wav", uuid.NewString()))
	if err := synth.WriteWAVFile(path, clip); err != nil {
		return "", err
	}
	return path, nil
}
