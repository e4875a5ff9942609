// Package httpapi exposes the scene description and narration endpoints.
package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"

	"github.com/lumenlabs/scenevoice/internal/config"
	"github.com/lumenlabs/scenevoice/internal/imaging"
	"github.com/lumenlabs/scenevoice/internal/narrate"
	"github.com/lumenlabs/scenevoice/internal/pipeline"
	"github.com/lumenlabs/scenevoice/internal/prompt"
	"github.com/lumenlabs/scenevoice/internal/vision"
)

const maxUploadBytes = 16 << 20

// Handler serves the v1 API. Narration runs are serialized: audio output is a
// shared device, so a second narrate request while one is in flight gets 409.
type Handler struct {
	annotator vision.Annotator
	source    narrate.Source
	prompts   *prompt.Library
	pipeline  *pipeline.Pipeline
	image     config.ImageConfig
	log       *slog.Logger

	narrating atomic.Bool
}

func New(annotator vision.Annotator, source narrate.Source, prompts *prompt.Library, pipe *pipeline.Pipeline, image config.ImageConfig, log *slog.Logger) *Handler {
	return &Handler{
		annotator: annotator,
		source:    source,
		prompts:   prompts,
		pipeline:  pipe,
		image:     image,
		log:       log.With(slog.String("component", "httpapi")),
	}
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/v1/describe", h.handleDescribe)
	mux.HandleFunc("/v1/narrate", h.handleNarrate)
}

type describeResponse struct {
	Description string            `json:"description"`
	Vision      vision.Annotation `json:"vision"`
	AIError     string            `json:"ai_error,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *Handler) handleDescribe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
		return
	}

	image, ok := h.readImage(w, r)
	if !ok {
		return
	}

	ann, err := h.annotator.Annotate(r.Context(), image)
	if err != nil {
		h.log.Error("vision annotation failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "vision annotation failed"})
		return
	}

	resp := describeResponse{Vision: ann}
	resp.Description, err = h.collectDescription(r.Context(), image, h.prompts.ScenePrompt(ann))
	if err != nil {
		h.log.Warn("description stream failed", slog.String("error", err.Error()))
		resp.AIError = err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleNarrate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
		return
	}
	if !h.narrating.CompareAndSwap(false, true) {
		writeJSON(w, http.StatusConflict, errorResponse{Error: "narration already in progress"})
		return
	}
	defer h.narrating.Store(false)

	image, ok := h.readImage(w, r)
	if !ok {
		return
	}

	// Vision grounding is best effort here: a failed annotation degrades to
	// the builtin prompt instead of blocking narration.
	promptText := prompt.DefaultScenePrompt
	ann, err := h.annotator.Annotate(r.Context(), image)
	if err != nil {
		h.log.Warn("vision annotation failed, narrating without scene facts",
			slog.String("error", err.Error()))
	} else {
		promptText = h.prompts.ScenePrompt(ann)
	}

	report := h.pipeline.Run(r.Context(), h.source, narrate.Request{
		ImageJPEG: image,
		Prompt:    promptText,
	})
	writeJSON(w, http.StatusOK, report)
}

// readImage extracts and downscales the multipart "image" part. It writes the
// error response itself and reports success through the bool.
func (h *Handler) readImage(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "expected multipart form with an image part"})
		return nil, false
	}
	file, _, err := r.FormFile("image")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing image part"})
		return nil, false
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "failed to read image"})
		return nil, false
	}
	if len(data) == 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "empty image"})
		return nil, false
	}

	scaled, err := imaging.Downscale(data, imaging.Options{
		MaxWidth:    h.image.MaxWidth,
		MaxHeight:   h.image.MaxHeight,
		JPEGQuality: h.image.JPEGQuality,
	})
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "unsupported image format"})
		return nil, false
	}
	return scaled, true
}

func (h *Handler) collectDescription(ctx context.Context, image []byte, promptText string) (string, error) {
	var sb strings.Builder
	err := h.source.Stream(ctx, narrate.Request{ImageJPEG: image, Prompt: promptText}, func(f narrate.Fragment) error {
		sb.WriteString(f.Text)
		return nil
	})
	return strings.TrimSpace(sb.String()), err
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
