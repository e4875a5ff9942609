package vision

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

type googleAnnotator struct {
	endpoint  string
	apiKey    string
	maxLabels int
	client    *http.Client
}

// NewGoogleAnnotator builds an Annotator backed by the Cloud Vision
// images:annotate REST endpoint.
func NewGoogleAnnotator(endpoint, apiKey string, maxLabels int) Annotator {
	if maxLabels <= 0 {
		maxLabels = 10
	}
	return &googleAnnotator{
		endpoint:  endpoint,
		apiKey:    apiKey,
		maxLabels: maxLabels,
		client:    http.DefaultClient,
	}
}

type annotateRequest struct {
	Requests []annotateEntry `json:"requests"`
}

type annotateEntry struct {
	Image    annotateImage     `json:"image"`
	Features []annotateFeature `json:"features"`
}

type annotateImage struct {
	Content string `json:"content"`
}

type annotateFeature struct {
	Type       string `json:"type"`
	MaxResults int    `json:"maxResults,omitempty"`
}

type annotateResponse struct {
	Responses []annotateResult `json:"responses"`
}

type annotateResult struct {
	LabelAnnotations []struct {
		Description string  `json:"description"`
		Score       float64 `json:"score"`
	} `json:"labelAnnotations"`
	LocalizedObjectAnnotations []struct {
		Name  string  `json:"name"`
		Score float64 `json:"score"`
	} `json:"localizedObjectAnnotations"`
	FullTextAnnotation *struct {
		Text string `json:"text"`
	} `json:"fullTextAnnotation"`
	SafeSearchAnnotation *SafeSearch `json:"safeSearchAnnotation"`
	Error                *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (g *googleAnnotator) Annotate(ctx context.Context, imageJPEG []byte) (Annotation, error) {
	payload := annotateRequest{
		Requests: []annotateEntry{{
			Image: annotateImage{Content: base64.StdEncoding.EncodeToString(imageJPEG)},
			Features: []annotateFeature{
				{Type: "LABEL_DETECTION", MaxResults: g.maxLabels},
				{Type: "OBJECT_LOCALIZATION"},
				{Type: "TEXT_DETECTION"},
				{Type: "SAFE_SEARCH_DETECTION"},
			},
		}},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return Annotation{}, err
	}

	url := fmt.Sprintf("%s/v1/images:annotate?key=%s", g.endpoint, g.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Annotation{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return Annotation{}, fmt.Errorf("vision request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return Annotation{}, fmt.Errorf("vision returned status %s", resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Annotation{}, err
	}
	var parsed annotateResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return Annotation{}, fmt.Errorf("decode vision response: %w", err)
	}
	if len(parsed.Responses) == 0 {
		return Annotation{}, fmt.Errorf("vision response contained no results")
	}
	result := parsed.Responses[0]
	if result.Error != nil {
		return Annotation{}, fmt.Errorf("vision annotation failed: %s", result.Error.Message)
	}

	ann := Annotation{
		Labels:  make([]Label, 0, len(result.LabelAnnotations)),
		Objects: make([]Object, 0, len(result.LocalizedObjectAnnotations)),
	}
	for _, l := range result.LabelAnnotations {
		ann.Labels = append(ann.Labels, Label{Description: l.Description, Score: l.Score})
	}
	for _, o := range result.LocalizedObjectAnnotations {
		ann.Objects = append(ann.Objects, Object{Name: o.Name, Score: o.Score})
	}
	if result.FullTextAnnotation != nil {
		ann.OCRText = result.FullTextAnnotation.Text
	}
	ann.SafeSearch = result.SafeSearchAnnotation
	return ann, nil
}
