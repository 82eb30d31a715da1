// Package tracker picks the node closest to the viewport center among the
// nodes currently inside the centered band. The result is ambient display
// state only.
package tracker

import (
	"math"
	"sync"
)

// Rect is the vertical extent of a rendered node, in viewport coordinates.
type Rect struct {
	Top    float64 `json:"top"`
	Bottom float64 `json:"bottom"`
}

func (r Rect) Center() float64 { return (r.Top + r.Bottom) / 2 }

// Geometry exposes the rendered layout.
type Geometry interface {
	ViewportHeight() float64
	Bounds(id string) (Rect, bool)
}

// Change reports that a node entered or left the centered band.
type Change struct {
	ID      string `json:"id"`
	Visible bool   `json:"visible"`
}

// Observer produces visibility changes for a set of node identifiers. The
// returned function stops observation.
type Observer interface {
	Observe(ids []string, fn func([]Change)) (stop func())
}

type Tracker struct {
	mu       sync.Mutex
	geometry Geometry
	visible  map[string]bool
	active   string
	onActive func(id string, ok bool)
}

func New(g Geometry, onActive func(id string, ok bool)) *Tracker {
	return &Tracker{geometry: g, visible: map[string]bool{}, onActive: onActive}
}

// Apply folds changes into the tracked set and re-selects the active node.
func (t *Tracker) Apply(changes []Change) (string, bool) {
	t.mu.Lock()
	for _, c := range changes {
		if c.Visible {
			t.visible[c.ID] = true
		} else {
			delete(t.visible, c.ID)
		}
	}
	prev := t.active
	t.active = t.closest()
	id := t.active
	notify := t.onActive
	t.mu.Unlock()

	if notify != nil && id != prev {
		notify(id, id != "")
	}
	return id, id != ""
}

func (t *Tracker) closest() string {
	if len(t.visible) == 0 {
		return ""
	}
	center := t.geometry.ViewportHeight() / 2
	best, bestDist := "", math.Inf(1)
	for id := range t.visible {
		r, ok := t.geometry.Bounds(id)
		if !ok {
			continue
		}
		d := math.Abs(r.Center() - center)
		// ties go to the smaller identifier so map order never matters
		if d < bestDist || (d == bestDist && id < best) {
			best, bestDist = id, d
		}
	}
	return best
}

// Reset forgets the tracked set, as when the node list changes.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.visible = map[string]bool{}
	t.active = ""
}

func (t *Tracker) Active() (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.active, t.active != ""
}

// Track wires an observer to the tracker for ids, resetting the tracked set.
func (t *Tracker) Track(o Observer, ids []string) (stop func()) {
	t.Reset()
	return o.Observe(ids, func(changes []Change) { t.Apply(changes) })
}
