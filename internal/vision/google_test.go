package vision

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestGoogleAnnotatorParsesResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/images:annotate" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("key") != "secret" {
			t.Errorf("missing api key")
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"responses": [{
				"labelAnnotations": [{"description": "street", "score": 0.97}],
				"localizedObjectAnnotations": [{"name": "Bicycle", "score": 0.88}],
				"fullTextAnnotation": {"text": "STOP"},
				"safeSearchAnnotation": {"adult": "VERY_UNLIKELY", "violence": "UNLIKELY"}
			}]
		}`))
	}))
	t.Cleanup(srv.Close)

	ann, err := NewGoogleAnnotator(srv.URL, "secret", 10).Annotate(context.Background(), []byte("jpeg"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ann.Labels) != 1 || ann.Labels[0].Description != "street" {
		t.Fatalf("unexpected labels: %+v", ann.Labels)
	}
	if len(ann.Objects) != 1 || ann.Objects[0].Name != "Bicycle" {
		t.Fatalf("unexpected objects: %+v", ann.Objects)
	}
	if ann.OCRText != "STOP" {
		t.Fatalf("unexpected ocr text: %q", ann.OCRText)
	}
	if ann.SafeSearch == nil || ann.SafeSearch.Adult != "VERY_UNLIKELY" {
		t.Fatalf("unexpected safe search: %+v", ann.SafeSearch)
	}
}

func TestGoogleAnnotatorSurfacesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"responses": [{"error": {"message": "quota exceeded"}}]}`))
	}))
	t.Cleanup(srv.Close)

	if _, err := NewGoogleAnnotator(srv.URL, "secret", 10).Annotate(context.Background(), []byte("jpeg")); err == nil {
		t.Fatal("expected annotation error")
	}
}

func TestGoogleAnnotatorSurfacesHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	if _, err := NewGoogleAnnotator(srv.URL, "secret", 10).Annotate(context.Background(), []byte("jpeg")); err == nil {
		t.Fatal("expected http error")
	}
}
