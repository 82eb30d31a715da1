// Package filter holds the live filter and search state of a timeline view
// and the cursor over search matches.
package filter

import (
	"sync"
	"time"

	"github.com/agenthands/chrono/internal/core/model"
	"github.com/agenthands/chrono/internal/core/views"
	"github.com/agenthands/chrono/internal/sched"
)

const DefaultDebounce = 300 * time.Millisecond

// Result is the outcome of the latest recomputation.
type Result struct {
	State   views.FilterState `json:"state"`
	Visible []string          `json:"visible"`
	Matches []string          `json:"matches"`
	// Cursor indexes Matches; it is 0 when there are no matches.
	Cursor  int    `json:"cursor"`
	Current string `json:"current,omitempty"`
	// Pending is the typed query not yet applied.
	Pending string `json:"pending,omitempty"`
}

type Controller struct {
	mu       sync.Mutex
	sched    sched.Scheduler
	debounce time.Duration
	onChange func(Result)

	state   views.FilterState
	nodes   []model.TimelineNode
	visible []string
	matches []string
	cursor  int

	pending    string
	hasPending bool
	timer      sched.Handle
	gen        uint64
	closed     bool
}

type Option func(*Controller)

func WithDebounce(d time.Duration) Option {
	return func(c *Controller) { c.debounce = d }
}

// WithOnChange registers a listener for every recomputation, including
// ones fired by the debounce timer. It is called without the lock held.
func WithOnChange(fn func(Result)) Option {
	return func(c *Controller) { c.onChange = fn }
}

func NewController(s sched.Scheduler, opts ...Option) *Controller {
	if s == nil {
		s = sched.Timers{}
	}
	c := &Controller{
		sched:    s,
		debounce: DefaultDebounce,
		state:    views.DefaultFilter(),
		visible:  []string{},
		matches:  []string{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// update runs fn under the lock, recomputes, and notifies.
func (c *Controller) update(resetCursor bool, fn func() bool) Result {
	c.mu.Lock()
	if c.closed {
		r := c.result()
		c.mu.Unlock()
		return r
	}
	if fn != nil && !fn() {
		r := c.result()
		c.mu.Unlock()
		return r
	}
	c.recompute(resetCursor)
	r := c.result()
	notify := c.onChange
	c.mu.Unlock()

	if notify != nil {
		notify(r)
	}
	return r
}

func (c *Controller) recompute(resetCursor bool) {
	c.visible = views.Visible(c.nodes, c.state)
	c.matches = views.Matches(c.nodes, c.state)
	if resetCursor || c.cursor >= len(c.matches) {
		c.cursor = 0
	}
}

func (c *Controller) result() Result {
	r := Result{
		State:   c.state,
		Visible: append([]string{}, c.visible...),
		Matches: append([]string{}, c.matches...),
		Cursor:  c.cursor,
	}
	if c.state.YearRange != nil {
		yr := *c.state.YearRange
		r.State.YearRange = &yr
	}
	if len(c.matches) > 0 {
		r.Current = c.matches[c.cursor]
	}
	if c.hasPending {
		r.Pending = c.pending
	}
	return r
}

// SetNodes replaces the node snapshot. The cursor is kept while it still
// points into the match list.
func (c *Controller) SetNodes(nodes []model.TimelineNode) Result {
	return c.update(false, func() bool {
		c.nodes = nodes
		return true
	})
}

// SetFilter replaces the whole filter state and drops any pending query.
func (c *Controller) SetFilter(f views.FilterState) Result {
	return c.update(true, func() bool {
		c.cancelPending()
		if f.YearRange != nil {
			yr := normalizeRange(*f.YearRange)
			f.YearRange = &yr
		}
		c.state = f
		return true
	})
}

func (c *Controller) SetSignificance(s views.SignificanceSet) Result {
	return c.update(true, func() bool {
		c.state.Significance = s
		return true
	})
}

// ToggleSignificance flips one level. Removing the last active level is
// refused.
func (c *Controller) ToggleSignificance(l model.Significance) Result {
	return c.update(true, func() bool {
		if !l.Valid() {
			return false
		}
		if c.state.Significance.Has(l) {
			if c.state.Significance.Len() <= 1 {
				return false
			}
			c.state.Significance = c.state.Significance.Without(l)
		} else {
			c.state.Significance = c.state.Significance.With(l)
		}
		return true
	})
}

func (c *Controller) SetPhase(phase string) Result {
	return c.update(true, func() bool {
		c.state.Phase = phase
		return true
	})
}

// SetYearRange sets an inclusive range; nil clears it.
func (c *Controller) SetYearRange(r *views.YearRange) Result {
	return c.update(true, func() bool {
		if r == nil {
			c.state.YearRange = nil
			return true
		}
		yr := normalizeRange(*r)
		c.state.YearRange = &yr
		return true
	})
}

func normalizeRange(r views.YearRange) views.YearRange {
	if r.Min > r.Max {
		r.Min, r.Max = r.Max, r.Min
	}
	return r
}

// Reset restores the default filter, pinning the year range to bounds.
func (c *Controller) Reset(bounds views.YearRange, hasBounds bool) Result {
	return c.update(true, func() bool {
		c.cancelPending()
		c.state = views.ResetFilter(bounds, hasBounds)
		return true
	})
}

// Search schedules a query update after the debounce period. Each call
// restarts the period.
func (c *Controller) Search(query string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.cancelPending()
	c.gen++
	gen := c.gen
	c.pending, c.hasPending = query, true
	c.timer = c.sched.Schedule(c.debounce, func() { c.applyPending(gen) })
}

func (c *Controller) applyPending(gen uint64) {
	c.update(true, func() bool {
		if gen != c.gen || !c.hasPending {
			return false
		}
		c.state.Query = c.pending
		c.pending, c.hasPending = "", false
		c.timer = nil
		return true
	})
}

// SearchNow applies a query immediately, dropping any pending one.
func (c *Controller) SearchNow(query string) Result {
	return c.update(true, func() bool {
		c.cancelPending()
		c.state.Query = query
		return true
	})
}

func (c *Controller) cancelPending() {
	sched.Cancel(c.timer)
	c.timer = nil
	c.gen++
	c.pending, c.hasPending = "", false
}

func (c *Controller) step(delta int) (string, bool) {
	var id string
	r := c.update(false, func() bool {
		n := len(c.matches)
		if n == 0 {
			return false
		}
		c.cursor = ((c.cursor+delta)%n + n) % n
		id = c.matches[c.cursor]
		return true
	})
	if id == "" {
		return r.Current, r.Current != ""
	}
	return id, true
}

// Next moves the cursor forward, wrapping to the first match.
func (c *Controller) Next() (string, bool) { return c.step(1) }

// Prev moves the cursor back, wrapping to the last match.
func (c *Controller) Prev() (string, bool) { return c.step(-1) }

func (c *Controller) Result() Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.result()
}

func (c *Controller) State() views.FilterState {
	return c.Result().State
}

// Close cancels the pending query; later calls leave the state unchanged.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelPending()
	c.closed = true
}
