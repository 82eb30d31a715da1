package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/agenthands/chrono/internal/core/model"
	"github.com/agenthands/chrono/internal/stream"
)

var ErrNoSession = errors.New("no research session started")

// Session keeps at most one live research stream. Starting a new session
// closes the previous stream first; events of a replaced or closed stream
// are ignored.
type Session struct {
	mu     sync.Mutex
	driver stream.Driver
	opts   []EngineOption
	logger *slog.Logger

	id       string
	gen      uint64
	engine   *Engine
	stream   stream.Stream
	closed   bool
	onChange func(Snapshot)
}

type SessionOption func(*Session)

func WithEngineOptions(opts ...EngineOption) SessionOption {
	return func(s *Session) { s.opts = append(s.opts, opts...) }
}

func WithSessionLogger(l *slog.Logger) SessionOption {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithOnChange registers a listener called with a fresh snapshot after every
// applied event. It runs with the session lock held and must not call back
// into the session.
func WithOnChange(fn func(Snapshot)) SessionOption {
	return func(s *Session) { s.onChange = fn }
}

func NewSession(driver stream.Driver, opts ...SessionOption) *Session {
	s := &Session{driver: driver, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	s.engine = s.newEngine()
	return s
}

func (s *Session) newEngine() *Engine {
	opts := append([]EngineOption{WithLogger(s.logger)}, s.opts...)
	return NewEngine(opts...)
}

// Start opens the stream of sessionID with a fresh engine.
func (s *Session) Start(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	prev := s.stream
	s.stream = nil
	s.gen++
	gen := s.gen
	s.id = sessionID
	s.closed = false
	s.engine = s.newEngine()
	s.mu.Unlock()

	if prev != nil {
		prev.Close()
	}

	h := &sessionHandler{s: s, gen: gen}
	st, err := s.driver.Open(ctx, sessionID, h)
	if err != nil {
		s.mu.Lock()
		if s.gen == gen {
			s.engine.OnConnectionError(err)
			s.notify()
		}
		s.mu.Unlock()
		return fmt.Errorf("failed to start session %s: %w", sessionID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen || s.closed {
		st.Close()
		return nil
	}
	s.stream = st
	return nil
}

// Close stops the live stream. Reconciled state stays readable. Close is
// idempotent.
func (s *Session) Close() error {
	s.mu.Lock()
	st := s.stream
	s.stream = nil
	s.closed = true
	s.mu.Unlock()
	if st != nil {
		return st.Close()
	}
	return nil
}

func (s *Session) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Snapshot()
}

// Done is closed when the live stream stops delivering. It returns nil when
// no stream is open.
func (s *Session) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stream == nil {
		return nil
	}
	return s.stream.Done()
}

func (s *Session) notify() {
	if s.onChange != nil {
		s.onChange(s.engine.Snapshot())
	}
}

// apply runs fn against the engine unless the stream generation is stale or
// the session was closed.
func (s *Session) apply(gen uint64, event string, fn func(*Engine)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen || s.closed {
		s.logger.Debug("ignoring event from closed stream", "event", event)
		return
	}
	before := s.engine.Revision()
	fn(s.engine)
	if s.engine.Revision() != before {
		s.notify()
	}
}

type sessionHandler struct {
	s   *Session
	gen uint64
}

func (h *sessionHandler) OnProgress(d model.ProgressData) {
	h.s.apply(h.gen, stream.EventProgress, func(e *Engine) { e.OnProgress(d) })
}

func (h *sessionHandler) OnSkeleton(d model.SkeletonData) {
	h.s.apply(h.gen, stream.EventSkeleton, func(e *Engine) { e.OnSkeleton(d) })
}

func (h *sessionHandler) OnNodeDetail(d model.NodeDetailEvent) {
	h.s.apply(h.gen, stream.EventNodeDetail, func(e *Engine) { e.OnNodeDetail(d) })
}

func (h *sessionHandler) OnSynthesis(d model.SynthesisData) {
	h.s.apply(h.gen, stream.EventSynthesis, func(e *Engine) { e.OnSynthesis(d) })
}

func (h *sessionHandler) OnComplete(d model.CompleteData) {
	h.s.apply(h.gen, stream.EventComplete, func(e *Engine) { e.OnComplete(d) })
}

func (h *sessionHandler) OnResearchError(d model.ResearchError) {
	h.s.apply(h.gen, stream.EventResearchError, func(e *Engine) { e.OnResearchError(d) })
}

func (h *sessionHandler) OnConnectionError(err error) {
	h.s.apply(h.gen, "connection_error", func(e *Engine) { e.OnConnectionError(err) })
}
