// Package playback selects and drives the external audio player used to
// render synthesized narration. Candidates are probed once at startup in
// preference order; when none responds the caller falls back to a degraded
// backend that only logs.
package playback

import (
	"context"
	"log/slog"
	"time"

	"github.com/lumenlabs/scenevoice/internal/config"
)

// Process is a handle to one in-flight playback invocation.
type Process interface {
	// Wait blocks until the invocation finishes. Playback failures are
	// reported but non-fatal to the pipeline.
	Wait() error
}

// Backend starts playback of one audio file. At most one process per backend
// runs at a time; the caller enforces wait-before-next ordering.
type Backend interface {
	Name() string
	Start(ctx context.Context, path string) (Process, error)
}

const probeTimeout = 3 * time.Second

// Select probes candidates in order and returns the first that responds to
// its probe invocation. It returns nil when no candidate is usable.
func Select(ctx context.Context, players []config.PlayerConfig, log *slog.Logger) Backend {
	for _, p := range players {
		backend, err := newExecBackend(p)
		if err != nil {
			log.Warn("skipping malformed player candidate",
				slog.String("command", p.Command),
				slog.String("error", err.Error()))
			continue
		}
		probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
		err = backend.probe(probeCtx)
		cancel()
		if err != nil {
			log.Debug("player candidate unavailable",
				slog.String("player", backend.Name()),
				slog.String("error", err.Error()))
			continue
		}
		log.Info("selected playback backend", slog.String("player", backend.Name()))
		return backend
	}
	return nil
}
