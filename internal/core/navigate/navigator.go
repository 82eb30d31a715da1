// Package navigate sequences jumps to a node: select it, wait one frame for
// the render, scroll it into view, hold a highlight, then clear it.
package navigate

import (
	"log/slog"
	"sync"
	"time"

	"github.com/agenthands/chrono/internal/sched"
)

const (
	DefaultFrameDelay    = 16 * time.Millisecond
	DefaultHighlightHold = 2 * time.Second
)

// Target is the identifier-addressable render surface.
type Target interface {
	Select(id string)
	ScrollTo(id string)
	Highlight(id string)
	ClearHighlight(id string)
}

type Option func(*Navigator)

func WithFrameDelay(d time.Duration) Option {
	return func(n *Navigator) { n.frame = d }
}

func WithHighlightHold(d time.Duration) Option {
	return func(n *Navigator) { n.hold = d }
}

func WithLogger(l *slog.Logger) Option {
	return func(n *Navigator) { n.logger = l }
}

type Navigator struct {
	mu     sync.Mutex
	target Target
	sched  sched.Scheduler
	frame  time.Duration
	hold   time.Duration
	logger *slog.Logger

	gen         uint64
	pending     sched.Handle
	highlighted string
	closed      bool
}

func New(target Target, s sched.Scheduler, opts ...Option) *Navigator {
	n := &Navigator{
		target: target,
		sched:  s,
		frame:  DefaultFrameDelay,
		hold:   DefaultHighlightHold,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// NavigateTo starts a sequence for id, cancelling any sequence in flight.
// A highlight left over from the cancelled sequence is cleared first.
func (n *Navigator) NavigateTo(id string) {
	n.mu.Lock()
	if n.closed || id == "" {
		n.mu.Unlock()
		return
	}
	sched.Cancel(n.pending)
	n.gen++
	gen := n.gen
	stale := n.highlighted
	n.highlighted = ""
	n.pending = n.sched.Schedule(n.frame, func() { n.scroll(gen, id) })
	n.mu.Unlock()

	if stale != "" {
		n.target.ClearHighlight(stale)
	}
	n.logger.Debug("navigate", "id", id)
	n.target.Select(id)
}

func (n *Navigator) scroll(gen uint64, id string) {
	n.mu.Lock()
	if n.closed || gen != n.gen {
		n.mu.Unlock()
		return
	}
	n.highlighted = id
	n.pending = n.sched.Schedule(n.hold, func() { n.clear(gen, id) })
	n.mu.Unlock()

	n.target.ScrollTo(id)
	n.target.Highlight(id)
}

func (n *Navigator) clear(gen uint64, id string) {
	n.mu.Lock()
	if n.closed || gen != n.gen {
		n.mu.Unlock()
		return
	}
	n.highlighted = ""
	n.pending = nil
	n.mu.Unlock()

	n.target.ClearHighlight(id)
}

// Highlighted returns the node currently holding the highlight.
func (n *Navigator) Highlighted() (string, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.highlighted, n.highlighted != ""
}

// Close cancels any pending step. Later calls to NavigateTo are ignored.
func (n *Navigator) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return
	}
	n.closed = true
	sched.Cancel(n.pending)
	n.pending = nil
}
