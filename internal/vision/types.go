package vision

import "context"

// Label is a whole-image classification result.
type Label struct {
	Description string  `json:"description"`
	Score       float64 `json:"score"`
}

// Object is a localized object detection result.
type Object struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

// SafeSearch carries explicit-content likelihood flags.
type SafeSearch struct {
	Adult    string `json:"adult,omitempty"`
	Spoof    string `json:"spoof,omitempty"`
	Medical  string `json:"medical,omitempty"`
	Violence string `json:"violence,omitempty"`
	Racy     string `json:"racy,omitempty"`
}

// Annotation is the structured grounding extracted from one image.
type Annotation struct {
	Labels     []Label     `json:"labels"`
	Objects    []Object    `json:"objects"`
	OCRText    string      `json:"ocr_text"`
	SafeSearch *SafeSearch `json:"safe_search,omitempty"`
}

// Annotator extracts structured scene facts from an image.
type Annotator interface {
	Annotate(ctx context.Context, imageJPEG []byte) (Annotation, error)
}
