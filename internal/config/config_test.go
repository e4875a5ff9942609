package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Pipeline.MinWords != 8 {
		t.Fatalf("expected default min_words 8, got %d", cfg.Pipeline.MinWords)
	}
	if cfg.Pipeline.PollIntervalMS != 300 || cfg.Pipeline.MaxIdleMS != 1500 {
		t.Fatalf("unexpected default pipeline timing: %+v", cfg.Pipeline)
	}
	if len(cfg.Playback.Players) == 0 {
		t.Fatal("expected default player candidates")
	}
	if cfg.Playback.Players[0].Command != "mpv --no-terminal" {
		t.Fatalf("unexpected first player candidate: %q", cfg.Playback.Players[0].Command)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scenevoice.yaml")
	body := `
runtime_name: narrator-test
pipeline:
  min_words: 5
  poll_interval_ms: 100
  max_idle_ms: 400
playback:
  enabled: true
  players:
    - command: "mpg123 -q"
      probe: "--version"
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.RuntimeName != "narrator-test" {
		t.Fatalf("expected runtime name override, got %q", cfg.RuntimeName)
	}
	if cfg.Pipeline.MinWords != 5 || cfg.Pipeline.MaxIdleMS != 400 {
		t.Fatalf("expected pipeline overrides, got %+v", cfg.Pipeline)
	}
	if len(cfg.Playback.Players) != 1 {
		t.Fatalf("expected single player override, got %v", cfg.Playback.Players)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("SCENEVOICE_PIPELINE_MIN_WORDS", "12")
	t.Setenv("SCENEVOICE_PIPELINE_WORD_COUNT_FIRST", "true")
	t.Setenv("SCENEVOICE_SYNTH_VOICE", "Puck")
	t.Setenv("SCENEVOICE_BUS_SERVERS", "nats://one:4222, nats://two:4222")
	t.Setenv("SCENEVOICE_CACHE_ENABLED", "true")
	t.Setenv("SCENEVOICE_CACHE_PATH", "./tmp.db")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Pipeline.MinWords != 12 {
		t.Fatalf("expected min_words override, got %d", cfg.Pipeline.MinWords)
	}
	if !cfg.Pipeline.WordCountFirst {
		t.Fatal("expected word_count_first override")
	}
	if cfg.Synth.Voice != "Puck" {
		t.Fatalf("expected voice override, got %q", cfg.Synth.Voice)
	}
	if len(cfg.Bus.Servers) != 2 {
		t.Fatalf("expected 2 servers, got %v", cfg.Bus.Servers)
	}
	if !cfg.Cache.Enabled || cfg.Cache.Path != "./tmp.db" {
		t.Fatalf("expected cache overrides, got %+v", cfg.Cache)
	}
}

func TestGeminiKeyFallback(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "test-key")
	t.Setenv("SCENEVOICE_NARRATOR_MODE", "gemini")
	t.Setenv("SCENEVOICE_SYNTH_MODE", "gemini")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Narrator.APIKey != "test-key" || cfg.Synth.APIKey != "test-key" {
		t.Fatalf("expected GEMINI_API_KEY fallback, got %q / %q", cfg.Narrator.APIKey, cfg.Synth.APIKey)
	}
}

func TestValidateRejectsRemoteWithoutKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("SCENEVOICE_NARRATOR_MODE", "gemini")

	if _, err := Load(""); err == nil {
		t.Fatal("expected validation error for gemini narrator without api key")
	}
}

func TestValidateRejectsIdleBelowPoll(t *testing.T) {
	t.Setenv("SCENEVOICE_PIPELINE_MAX_IDLE_MS", "100")

	if _, err := Load(""); err == nil {
		t.Fatal("expected validation error for max_idle below poll interval")
	}
}
