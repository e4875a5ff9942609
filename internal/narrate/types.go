package narrate

import "context"

// Fragment is one chunk of narration text in arrival order.
type Fragment struct {
	Text string
}

// Request describes one scene to narrate.
type Request struct {
	SessionID string
	ImageJPEG []byte
	Prompt    string
}

// Source streams narration fragments for a scene. Implementations call
// consumer once per fragment, in order, and return once the stream ends.
// A consumer error aborts the stream and is returned unchanged.
type Source interface {
	Stream(ctx context.Context, req Request, consumer func(Fragment) error) error
}
