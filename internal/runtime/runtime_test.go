package runtime

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lumenlabs/scenevoice/internal/config"
)

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestStartFailsOnInvalidSynthCommand(t *testing.T) {
	cfg := config.Default()
	cfg.Cache.Enabled = true
	cfg.Cache.Path = filepath.Join(t.TempDir(), "segments.db")
	cfg.Synth.Mode = "exec"
	cfg.Synth.Command = "say '"

	rt := New(cfg, newLogger())
	err := rt.Start(context.Background())
	if err == nil {
		t.Fatal("expected startup error for malformed synth command")
	}
	if !strings.Contains(err.Error(), "synthesizer") {
		t.Fatalf("unexpected error: %v", err)
	}
}
