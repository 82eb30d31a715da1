package tracker

import "sync"

// Layout is a Geometry fed by reports from the rendering layer.
type Layout struct {
	mu     sync.RWMutex
	height float64
	rects  map[string]Rect
}

func NewLayout() *Layout {
	return &Layout{rects: map[string]Rect{}}
}

// Update replaces the viewport height and the reported node bounds.
func (l *Layout) Update(height float64, rects map[string]Rect) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.height = height
	l.rects = make(map[string]Rect, len(rects))
	for id, r := range rects {
		l.rects[id] = r
	}
}

func (l *Layout) ViewportHeight() float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.height
}

func (l *Layout) Bounds(id string) (Rect, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	r, ok := l.rects[id]
	return r, ok
}
