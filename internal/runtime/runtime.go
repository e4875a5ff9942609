// Package runtime assembles the scenevoice process: telemetry, the optional
// event bus, the segment cache, the vision/narration/synthesis backends and
// the HTTP API, with one graceful shutdown path.
package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lumenlabs/scenevoice/internal/bus"
	"github.com/lumenlabs/scenevoice/internal/config"
	"github.com/lumenlabs/scenevoice/internal/httpapi"
	"github.com/lumenlabs/scenevoice/internal/narrate"
	"github.com/lumenlabs/scenevoice/internal/natsserver"
	"github.com/lumenlabs/scenevoice/internal/pipeline"
	"github.com/lumenlabs/scenevoice/internal/playback"
	"github.com/lumenlabs/scenevoice/internal/prompt"
	"github.com/lumenlabs/scenevoice/internal/segcache"
	"github.com/lumenlabs/scenevoice/internal/synth"
	"github.com/lumenlabs/scenevoice/internal/vision"
)

type Runtime struct {
	cfg         config.Config
	logger      *slog.Logger
	httpServer  *http.Server
	tracerClose func(context.Context) error
	ready       atomic.Bool
	wg          sync.WaitGroup
}

func New(cfg config.Config, logger *slog.Logger) *Runtime {
	return &Runtime{
		cfg:    cfg,
		logger: logger,
	}
}

func (r *Runtime) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	shutdownTelemetry, metricsHandler, err := setupTelemetry(r.cfg, r.logger)
	if err != nil {
		return fmt.Errorf("failed to setup telemetry: %w", err)
	}
	r.tracerClose = shutdownTelemetry

	var (
		embedded  *natsserver.EmbeddedServer
		busClient *bus.Client
	)
	if r.cfg.Bus.Enabled {
		embedded, err = natsserver.Start(r.cfg.Bus, r.logger)
		if err != nil {
			return fmt.Errorf("failed to start embedded NATS server: %w", err)
		}
		busCfg := r.cfg.Bus
		if embedded != nil {
			busCfg.Servers = []string{fmt.Sprintf("nats://127.0.0.1:%d", r.cfg.Bus.Port)}
		}
		busClient, err = bus.Connect(busCfg, r.logger)
		if err != nil {
			if embedded != nil {
				embedded.Shutdown()
			}
			return fmt.Errorf("failed to connect to NATS: %w", err)
		}
	}

	cache, err := segcache.Open(ctx, r.cfg.Cache, r.logger)
	if err != nil {
		busClient.Close()
		if embedded != nil {
			embedded.Shutdown()
		}
		return fmt.Errorf("failed to open segment cache: %w", err)
	}

	synthesizer, err := buildSynth(r.cfg.Synth)
	if err != nil {
		if cerr := cache.Close(); cerr != nil {
			r.logger.Error("segment cache close error", slog.String("error", cerr.Error()))
		}
		busClient.Close()
		if embedded != nil {
			embedded.Shutdown()
		}
		return fmt.Errorf("failed to build synthesizer: %w", err)
	}

	var backend playback.Backend
	if r.cfg.Playback.Enabled {
		backend = playback.Select(ctx, r.cfg.Playback.Players, r.logger)
	}
	if backend == nil {
		r.logger.Warn("no playback backend available, narration runs degraded")
	}

	pipe := pipeline.New(r.cfg.Pipeline, r.cfg.Synth.Voice, synthesizer, backend, cache, busClient, r.logger)

	prompts, err := prompt.LoadOrDefault(r.cfg.Narrator.PromptFile)
	if err != nil {
		r.logger.Warn("prompt file unavailable, using builtin prompt",
			slog.String("path", r.cfg.Narrator.PromptFile),
			slog.String("error", err.Error()))
	}

	api := httpapi.New(buildAnnotator(r.cfg.Vision), buildSource(r.cfg.Narrator), prompts, pipe, r.cfg.Image, r.logger)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", r.handleHealth)
	mux.HandleFunc("/readyz", r.handleReady)
	if metricsHandler != nil {
		mux.Handle("/metrics", metricsHandler)
	}
	api.Register(mux)

	addr := fmt.Sprintf("%s:%d", r.cfg.HTTP.Bind, r.cfg.HTTP.Port)
	r.httpServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if err := r.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			r.logger.Error("http server failed", slog.String("error", err.Error()))
		}
	}()

	r.ready.Store(true)
	r.logger.Info("runtime started",
		slog.String("addr", addr),
		slog.String("vision", r.cfg.Vision.Mode),
		slog.String("narrator", r.cfg.Narrator.Mode),
		slog.String("synth", r.cfg.Synth.Mode),
		slog.Bool("degraded", pipe.Degraded()))

	<-ctx.Done()
	r.logger.Info("runtime stopping")
	r.ready.Store(false)

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := r.httpServer.Shutdown(shutdownCtx); err != nil {
		r.logger.Error("http shutdown error", slog.String("error", err.Error()))
	}
	r.wg.Wait()

	busClient.Close()
	if embedded != nil {
		embedded.Shutdown()
	}
	if err := cache.Close(); err != nil {
		r.logger.Error("segment cache close error", slog.String("error", err.Error()))
	}

	if r.tracerClose != nil {
		if err := r.tracerClose(shutdownCtx); err != nil {
			r.logger.Error("telemetry shutdown error", slog.String("error", err.Error()))
		}
	}

	return nil
}

func buildAnnotator(cfg config.VisionConfig) vision.Annotator {
	switch cfg.Mode {
	case "google":
		return vision.NewGoogleAnnotator(cfg.Endpoint, cfg.APIKey, cfg.MaxLabels)
	default:
		return vision.NewMockAnnotator(vision.Annotation{}, nil)
	}
}

func buildSource(cfg config.NarratorConfig) narrate.Source {
	switch cfg.Mode {
	case "gemini":
		return narrate.NewGeminiSource(cfg.Endpoint, cfg.APIKey, cfg.Model)
	default:
		return narrate.NewMockSource([]string{
			"This is a quiet indoor scene.", " Nothing requires your attention.",
		}, 50*time.Millisecond, nil)
	}
}

func buildSynth(cfg config.SynthConfig) (synth.Synthesizer, error) {
	switch cfg.Mode {
	case "gemini":
		return synth.NewGeminiSynth(cfg.Endpoint, cfg.APIKey, cfg.Model, cfg.Voice, cfg.SampleRate, cfg.Channels), nil
	case "exec":
		return synth.NewExecSynth(cfg.Command, cfg.Voice, cfg.SampleRate, cfg.Channels)
	default:
		return synth.NewMockSynth(cfg.SampleRate, cfg.Channels), nil
	}
}

func (r *Runtime) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (r *Runtime) handleReady(w http.ResponseWriter, _ *http.Request) {
	if r.ready.Load() {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
		return
	}
	w.WriteHeader(http.StatusServiceUnavailable)
	_, _ = w.Write([]byte("not ready"))
}
