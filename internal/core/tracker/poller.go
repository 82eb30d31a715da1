package tracker

import (
	"context"
	"sync"
	"time"
)

// DefaultBandMargin excludes the outer fifth of the viewport at the top and
// at the bottom.
const DefaultBandMargin = 0.2

// Poller is an Observer that tests node bounds against the centered band
// whenever Poll is called. Polls are serialized and observers are called
// with the lock held, so changes arrive in the order they were computed.
// Observer callbacks must not call back into the Poller.
type Poller struct {
	mu       sync.Mutex
	geometry Geometry
	margin   float64
	watches  map[int]*watch
	nextID   int
}

type watch struct {
	ids     []string
	visible map[string]bool
	fn      func([]Change)
}

func NewPoller(g Geometry, margin float64) *Poller {
	if margin < 0 || margin >= 0.5 {
		margin = DefaultBandMargin
	}
	return &Poller{geometry: g, margin: margin, watches: map[int]*watch{}}
}

// Band returns the vertical span that counts as visible.
func (p *Poller) Band() (top, bottom float64) {
	h := p.geometry.ViewportHeight()
	return h * p.margin, h * (1 - p.margin)
}

func (p *Poller) Observe(ids []string, fn func([]Change)) (stop func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nextID++
	key := p.nextID
	w := &watch{ids: append([]string(nil), ids...), visible: map[string]bool{}, fn: fn}
	p.watches[key] = w
	p.pollWatch(w)

	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.watches, key)
	}
}

// Poll re-tests every observed node and reports changes.
func (p *Poller) Poll() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, w := range p.watches {
		p.pollWatch(w)
	}
}

func (p *Poller) pollWatch(w *watch) {
	top, bottom := p.Band()
	var changes []Change
	for _, id := range w.ids {
		r, ok := p.geometry.Bounds(id)
		in := ok && r.Bottom > top && r.Top < bottom
		if in != w.visible[id] {
			w.visible[id] = in
			changes = append(changes, Change{ID: id, Visible: in})
		}
	}
	if len(changes) > 0 {
		w.fn(changes)
	}
}

// Run polls on every tick until ctx is done.
func (p *Poller) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Poll()
		}
	}
}
