package vision

import "context"

type mockAnnotator struct {
	ann Annotation
	err error
}

// NewMockAnnotator returns a fixed annotation, for tests and offline runs.
func NewMockAnnotator(ann Annotation, err error) Annotator {
	return &mockAnnotator{ann: ann, err: err}
}

func (m *mockAnnotator) Annotate(_ context.Context, _ []byte) (Annotation, error) {
	if m.err != nil {
		return Annotation{}, m.err
	}
	return m.ann, nil
}
