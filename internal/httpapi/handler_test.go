package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"image"
	"image/jpeg"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/lumenlabs/scenevoice/internal/config"
	"github.com/lumenlabs/scenevoice/internal/narrate"
	"github.com/lumenlabs/scenevoice/internal/pipeline"
	"github.com/lumenlabs/scenevoice/internal/playback"
	"github.com/lumenlabs/scenevoice/internal/prompt"
	"github.com/lumenlabs/scenevoice/internal/synth"
	"github.com/lumenlabs/scenevoice/internal/vision"
)

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func multipartImage(t *testing.T) (*bytes.Buffer, string) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 32, 32))
	var encoded bytes.Buffer
	if err := jpeg.Encode(&encoded, img, nil); err != nil {
		t.Fatalf("encode test image: %v", err)
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("image", "scene.jpg")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := fw.Write(encoded.Bytes()); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	mw.Close()
	return &body, mw.FormDataContentType()
}

func newHandler(t *testing.T, annotator vision.Annotator, source narrate.Source) *Handler {
	t.Helper()
	cfg := config.Default()
	cfg.Pipeline.PollIntervalMS = 10
	cfg.Pipeline.MaxIdleMS = 100
	cfg.Pipeline.TmpDir = t.TempDir()

	pipe := pipeline.New(cfg.Pipeline, "Kore",
		synth.NewMockSynth(24000, 1), playback.NewMockBackend(), nil, nil, newLogger())
	prompts, _ := prompt.LoadOrDefault("")
	return New(annotator, source, prompts, pipe, cfg.Image, newLogger())
}

func serve(h *Handler, req *http.Request) *httptest.ResponseRecorder {
	mux := http.NewServeMux()
	h.Register(mux)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestDescribeReturnsDescription(t *testing.T) {
	ann := vision.Annotation{Labels: []vision.Label{{Description: "park", Score: 0.92}}}
	h := newHandler(t,
		vision.NewMockAnnotator(ann, nil),
		narrate.NewMockSource([]string{"A sunny", " park with benches."}, 0, nil))

	body, contentType := multipartImage(t)
	req := httptest.NewRequest(http.MethodPost, "/v1/describe", body)
	req.Header.Set("Content-Type", contentType)

	rec := serve(h, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	var resp describeResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Description != "A sunny park with benches." {
		t.Errorf("description: %q", resp.Description)
	}
	if len(resp.Vision.Labels) != 1 || resp.Vision.Labels[0].Description != "park" {
		t.Errorf("vision labels: %+v", resp.Vision.Labels)
	}
	if resp.AIError != "" {
		t.Errorf("unexpected ai_error: %q", resp.AIError)
	}
}

func TestDescribeWithoutImageIsBadRequest(t *testing.T) {
	h := newHandler(t,
		vision.NewMockAnnotator(vision.Annotation{}, nil),
		narrate.NewMockSource(nil, 0, nil))

	req := httptest.NewRequest(http.MethodPost, "/v1/describe", bytes.NewReader(nil))
	rec := serve(h, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status %d, want 400", rec.Code)
	}
}

func TestDescribeVisionFailure(t *testing.T) {
	h := newHandler(t,
		vision.NewMockAnnotator(vision.Annotation{}, errors.New("quota exceeded")),
		narrate.NewMockSource(nil, 0, nil))

	body, contentType := multipartImage(t)
	req := httptest.NewRequest(http.MethodPost, "/v1/describe", body)
	req.Header.Set("Content-Type", contentType)

	rec := serve(h, req)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status %d, want 500", rec.Code)
	}
}

func TestDescribeReportsSourceError(t *testing.T) {
	h := newHandler(t,
		vision.NewMockAnnotator(vision.Annotation{}, nil),
		narrate.NewMockSource([]string{"partial"}, 0, errors.New("model overloaded")))

	body, contentType := multipartImage(t)
	req := httptest.NewRequest(http.MethodPost, "/v1/describe", body)
	req.Header.Set("Content-Type", contentType)

	rec := serve(h, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	var resp describeResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Description != "partial" {
		t.Errorf("description: %q", resp.Description)
	}
	if resp.AIError != "model overloaded" {
		t.Errorf("ai_error: %q", resp.AIError)
	}
}

func TestNarrateReturnsReport(t *testing.T) {
	h := newHandler(t,
		vision.NewMockAnnotator(vision.Annotation{}, nil),
		narrate.NewMockSource([]string{"Clear path ahead."}, 0, nil))

	body, contentType := multipartImage(t)
	req := httptest.NewRequest(http.MethodPost, "/v1/narrate", body)
	req.Header.Set("Content-Type", contentType)

	rec := serve(h, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	var report pipeline.Report
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if report.SessionID == "" {
		t.Error("expected session id in report")
	}
	if len(report.Segments) != 1 || report.Played != 1 {
		t.Errorf("report: %+v", report)
	}
}

func TestNarrateRejectsConcurrentRuns(t *testing.T) {
	h := newHandler(t,
		vision.NewMockAnnotator(vision.Annotation{}, nil),
		narrate.NewMockSource([]string{"Slow scene."}, 300*time.Millisecond, nil))

	first := make(chan int, 1)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		body, contentType := multipartImage(t)
		req := httptest.NewRequest(http.MethodPost, "/v1/narrate", body)
		req.Header.Set("Content-Type", contentType)
		first <- serve(h, req).Code
	}()

	time.Sleep(100 * time.Millisecond)
	body, contentType := multipartImage(t)
	req := httptest.NewRequest(http.MethodPost, "/v1/narrate", body)
	req.Header.Set("Content-Type", contentType)
	rec := serve(h, req)
	if rec.Code != http.StatusConflict {
		t.Errorf("concurrent narrate status %d, want 409", rec.Code)
	}

	wg.Wait()
	if code := <-first; code != http.StatusOK {
		t.Errorf("first narrate status %d, want 200", code)
	}
}

func TestNarrateMethodNotAllowed(t *testing.T) {
	h := newHandler(t,
		vision.NewMockAnnotator(vision.Annotation{}, nil),
		narrate.NewMockSource(nil, 0, nil))

	req := httptest.NewRequest(http.MethodGet, "/v1/narrate", nil)
	rec := serve(h, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status %d, want 405", rec.Code)
	}
}
