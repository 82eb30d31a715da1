package core

import (
	"context"
	"sync"

	"github.com/agenthands/chrono/internal/stream"
)

type MockDriver struct {
	mu       sync.Mutex
	Err      error
	Opened   []string
	Handlers []stream.Handler
	Streams  []*MockStream
}

func (m *MockDriver) Open(ctx context.Context, sessionID string, h stream.Handler) (stream.Stream, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Opened = append(m.Opened, sessionID)
	if m.Err != nil {
		return nil, m.Err
	}
	s := &MockStream{done: make(chan struct{})}
	m.Handlers = append(m.Handlers, h)
	m.Streams = append(m.Streams, s)
	return s, nil
}

type MockStream struct {
	once   sync.Once
	done   chan struct{}
	Closes int
}

func (s *MockStream) Close() error {
	s.Closes++
	s.once.Do(func() { close(s.done) })
	return nil
}

func (s *MockStream) Done() <-chan struct{} { return s.done }
