package playback

import (
	"context"
	"sync"
	"time"
)

// MockBackend records playback order for tests. PlayDelay simulates audio
// duration; StartErr makes every Start fail.
type MockBackend struct {
	PlayDelay time.Duration
	StartErr  error
	WaitErr   error

	mu      sync.Mutex
	started []string
	active  int
	overlap bool
}

func NewMockBackend() *MockBackend { return &MockBackend{} }

func (m *MockBackend) Name() string { return "mock" }

func (m *MockBackend) Start(_ context.Context, path string) (Process, error) {
	if m.StartErr != nil {
		return nil, m.StartErr
	}
	m.mu.Lock()
	m.started = append(m.started, path)
	m.active++
	if m.active > 1 {
		m.overlap = true
	}
	m.mu.Unlock()
	return &mockProcess{backend: m}, nil
}

// Started reports artifact paths in the order playback began.
func (m *MockBackend) Started() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.started...)
}

// Overlapped reports whether two playback processes were ever live at once.
func (m *MockBackend) Overlapped() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.overlap
}

type mockProcess struct {
	backend *MockBackend
	once    sync.Once
}

func (p *mockProcess) Wait() error {
	p.once.Do(func() {
		if p.backend.PlayDelay > 0 {
			time.Sleep(p.backend.PlayDelay)
		}
		p.backend.mu.Lock()
		p.backend.active--
		p.backend.mu.Unlock()
	})
	return p.backend.WaitErr
}
