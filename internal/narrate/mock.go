package narrate

import (
	"context"
	"time"
)

type mockSource struct {
	fragments []string
	delay     time.Duration
	err       error
}

// NewMockSource replays a fixed fragment sequence with an optional delay
// between fragments, then returns err (nil for a clean end of stream).
func NewMockSource(fragments []string, delay time.Duration, err error) Source {
	return &mockSource{fragments: fragments, delay: delay, err: err}
}

func (m *mockSource) Stream(ctx context.Context, _ Request, consumer func(Fragment) error) error {
	for _, text := range m.fragments {
		if m.delay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(m.delay):
			}
		}
		if err := consumer(Fragment{Text: text}); err != nil {
			return err
		}
	}
	return m.err
}
