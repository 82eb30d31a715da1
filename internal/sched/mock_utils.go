package sched

import (
	"sort"
	"sync"
	"time"
)

// Manual is a Scheduler driven by Advance, for tests. Actions run on the
// goroutine calling Advance, in due-time order.
type Manual struct {
	mu    sync.Mutex
	now   time.Duration
	seq   int
	tasks []*manualTask
}

type manualTask struct {
	due       time.Duration
	seq       int
	action    func()
	cancelled bool
	fired     bool
	owner     *Manual
}

func NewManual() *Manual {
	return &Manual{}
}

func (m *Manual) Schedule(delay time.Duration, action func()) Handle {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	t := &manualTask{due: m.now + delay, seq: m.seq, action: action, owner: m}
	m.tasks = append(m.tasks, t)
	return t
}

func (t *manualTask) Cancel() bool {
	t.owner.mu.Lock()
	defer t.owner.mu.Unlock()
	if t.cancelled || t.fired {
		return false
	}
	t.cancelled = true
	return true
}

// Advance moves the clock forward and runs every action that falls due,
// including actions scheduled by actions within the window.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now + d
	m.mu.Unlock()

	for {
		m.mu.Lock()
		next := m.nextDue(target)
		if next == nil {
			m.now = target
			m.mu.Unlock()
			return
		}
		m.now = next.due
		next.fired = true
		m.mu.Unlock()
		next.action()
	}
}

func (m *Manual) nextDue(target time.Duration) *manualTask {
	pending := m.tasks[:0]
	for _, t := range m.tasks {
		if !t.cancelled && !t.fired {
			pending = append(pending, t)
		}
	}
	m.tasks = pending
	sort.Slice(m.tasks, func(i, j int) bool {
		if m.tasks[i].due != m.tasks[j].due {
			return m.tasks[i].due < m.tasks[j].due
		}
		return m.tasks[i].seq < m.tasks[j].seq
	})
	if len(m.tasks) == 0 || m.tasks[0].due > target {
		return nil
	}
	return m.tasks[0]
}

// Pending counts actions that are neither fired nor cancelled.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, t := range m.tasks {
		if !t.cancelled && !t.fired {
			n++
		}
	}
	return n
}
