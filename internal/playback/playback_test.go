package playback

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/lumenlabs/scenevoice/internal/config"
)

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

// writeScript drops a tiny executable into dir and returns its path.
func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("player scripts require a POSIX shell")
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return path
}

func TestSelectPicksFirstWorkingCandidate(t *testing.T) {
	dir := t.TempDir()
	broken := writeScript(t, dir, "broken-player", "exit 1")
	working := writeScript(t, dir, "working-player", "exit 0")

	backend := Select(context.Background(), []config.PlayerConfig{
		{Command: "definitely-not-installed-player", Probe: "--version"},
		{Command: broken, Probe: "--version"},
		{Command: working, Probe: "--version"},
	}, newLogger())
	if backend == nil {
		t.Fatal("expected a backend to be selected")
	}
	if backend.Name() != working {
		t.Fatalf("expected %q selected, got %q", working, backend.Name())
	}
}

func TestSelectReturnsNilWhenNoneAvailable(t *testing.T) {
	backend := Select(context.Background(), []config.PlayerConfig{
		{Command: "definitely-not-installed-player", Probe: "--version"},
	}, newLogger())
	if backend != nil {
		t.Fatalf("expected nil backend, got %q", backend.Name())
	}
}

func TestExecBackendPlaysFile(t *testing.T) {
	dir := t.TempDir()
	marker := filepath.Join(dir, "played")
	player := writeScript(t, dir, "player", `echo "$@" > `+marker)

	backend, err := newExecBackend(config.PlayerConfig{Command: player + " -q", Probe: "--version"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	proc, err := backend.Start(context.Background(), "/tmp/clip.wav")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := proc.Wait(); err != nil {
		t.Fatalf("wait: %v", err)
	}
	out, err := os.ReadFile(marker)
	if err != nil {
		t.Fatalf("player did not run: %v", err)
	}
	if got := string(out); got != "-q /tmp/clip.wav\n" {
		t.Fatalf("unexpected player args: %q", got)
	}
}

func TestDegradedBackendNeverFails(t *testing.T) {
	backend := NewDegraded(newLogger())
	proc, err := backend.Start(context.Background(), "/tmp/clip.wav")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := proc.Wait(); err != nil {
		t.Fatalf("wait: %v", err)
	}
}
