package playback

import (
	"context"
	"log/slog"
)

type degradedBackend struct {
	log *slog.Logger
}

// NewDegraded returns a backend that records each artifact instead of
// playing it. Used when no player executable is available so the pipeline
// keeps its ordering and cleanup semantics without producing sound.
func NewDegraded(log *slog.Logger) Backend {
	return &degradedBackend{log: log}
}

func (d *degradedBackend) Name() string { return "degraded" }

func (d *degradedBackend) Start(_ context.Context, path string) (Process, error) {
	d.log.Info("degraded playback, skipping audio output", slog.String("artifact", path))
	return noopProcess{}, nil
}

type noopProcess struct{}

func (noopProcess) Wait() error { return nil }
