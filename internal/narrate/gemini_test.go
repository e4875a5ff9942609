package narrate

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func sseBody() string {
	return `data: {"candidates":[{"content":{"parts":[{"text":"Watch out "}]}}]}

data: {"candidates":[{"content":{"parts":[{"text":"for the step."}]}}]}

data: [DONE]
`
}

func TestGeminiSourceStreamsFragments(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("alt") != "sse" {
			t.Errorf("expected alt=sse, got %q", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = w.Write([]byte(sseBody()))
	}))
	t.Cleanup(srv.Close)

	src := NewGeminiSource(srv.URL, "key", "gemini-2.5-flash-lite")
	var got []string
	err := src.Stream(context.Background(), Request{ImageJPEG: []byte("jpeg"), Prompt: "describe"}, func(f Fragment) error {
		got = append(got, f.Text)
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0] != "Watch out " || got[1] != "for the step." {
		t.Fatalf("unexpected fragments: %q", got)
	}
}

func TestGeminiSourceConsumerErrorAborts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(sseBody()))
	}))
	t.Cleanup(srv.Close)

	src := NewGeminiSource(srv.URL, "key", "gemini-2.5-flash-lite")
	wantErr := errors.New("stop")
	calls := 0
	err := src.Stream(context.Background(), Request{}, func(Fragment) error {
		calls++
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected consumer error, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected stream to stop after first fragment, got %d calls", calls)
	}
}

func TestGeminiSourceHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "no", http.StatusForbidden)
	}))
	t.Cleanup(srv.Close)

	src := NewGeminiSource(srv.URL, "key", "gemini-2.5-flash-lite")
	if err := src.Stream(context.Background(), Request{}, func(Fragment) error { return nil }); err == nil {
		t.Fatal("expected error for http failure")
	}
}
