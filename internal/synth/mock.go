package synth

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrMockSynthesis is the default failure returned by a failing MockSynth.
var ErrMockSynthesis = errors.New("mock synthesis failure")

// MockSynth produces a short silent clip per call. FailFirst makes the first
// N calls fail so retry behavior can be exercised.
type MockSynth struct {
	SampleRate int
	Channels   int
	Delay      time.Duration
	FailFirst  int
	Err        error

	mu    sync.Mutex
	calls int
	texts []string
}

func NewMockSynth(sampleRate, channels int) *MockSynth {
	return &MockSynth{SampleRate: sampleRate, Channels: channels}
}

func (m *MockSynth) Synthesize(ctx context.Context, text string) (Clip, error) {
	if m.Delay > 0 {
		select {
		case <-ctx.Done():
			return Clip{}, ctx.Err()
		case <-time.After(m.Delay):
		}
	}

	m.mu.Lock()
	m.calls++
	failing := m.calls <= m.FailFirst
	if !failing {
		m.texts = append(m.texts, text)
	}
	m.mu.Unlock()

	if failing {
		err := m.Err
		if err == nil {
			err = ErrMockSynthesis
		}
		return Clip{}, err
	}

	// 100ms of silence.
	samples := m.SampleRate / 10 * m.Channels
	return Clip{
		PCM:        make([]byte, samples*2),
		SampleRate: m.SampleRate,
		Channels:   m.Channels,
		BitDepth:   16,
	}, nil
}

// Calls reports how many synthesis attempts were made.
func (m *MockSynth) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Texts reports the texts of successful syntheses in order.
func (m *MockSynth) Texts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.texts...)
}
