package server

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"github.com/agenthands/chrono/internal/config"
	"github.com/agenthands/chrono/internal/core"
	"github.com/agenthands/chrono/internal/core/connections"
	"github.com/agenthands/chrono/internal/core/filter"
	"github.com/agenthands/chrono/internal/core/model"
	"github.com/agenthands/chrono/internal/core/navigate"
	"github.com/agenthands/chrono/internal/core/tracker"
	"github.com/agenthands/chrono/internal/core/views"
	"github.com/agenthands/chrono/internal/sched"
	"github.com/agenthands/chrono/internal/stream"
)

// Derived holds the view computations of one snapshot.
type Derived struct {
	PhaseGroups []views.PhaseGroup `json:"phase_groups"`
	Phases      []string           `json:"phases"`
	DenseGroups []views.DenseGroup `json:"dense_groups"`
	YearBounds  *views.YearRange   `json:"year_bounds,omitempty"`
	Span        string             `json:"span"`
	Separators  []views.Separator  `json:"separators"`
	Threads     [][]string         `json:"threads"`

	conns connections.Map
}

func derive(snap core.Snapshot) Derived {
	groups := views.PhaseGroups(snap.Nodes)
	d := Derived{
		PhaseGroups: groups,
		Phases:      views.PhaseNames(groups),
		DenseGroups: views.DenseGroups(snap.Nodes),
		Span:        views.SpanLabel(snap.Nodes),
		Separators:  views.Separators(snap.Nodes),
		Threads:     connections.Threads(snap.Connections(), snap.Nodes),
		conns:       connections.Build(snap.Connections(), snap.Nodes),
	}
	if b, ok := views.YearBounds(snap.Nodes); ok {
		d.YearBounds = &b
	}
	return d
}

func (d Derived) bounds() (views.YearRange, bool) {
	if d.YearBounds == nil {
		return views.YearRange{}, false
	}
	return *d.YearBounds, true
}

// Frame is one update pushed to feed subscribers.
type Frame struct {
	Type        string               `json:"type"`
	Target      string               `json:"target,omitempty"`
	SessionID   string               `json:"session_id,omitempty"`
	Revision    uint64               `json:"revision"`
	State       core.State           `json:"state"`
	Progress    string               `json:"progress,omitempty"`
	Failure     *core.Failure        `json:"failure,omitempty"`
	Nodes       []model.TimelineNode `json:"nodes"`
	Filter      filter.Result        `json:"filter"`
	Ambient     tracker.AmbientInfo  `json:"ambient"`
	Selected    string               `json:"selected,omitempty"`
	Highlighted string               `json:"highlighted,omitempty"`
}

const (
	FrameTimeline  = "timeline"
	FrameFilter    = "filter"
	FrameActive    = "active"
	FrameSelect    = "select"
	FrameScroll    = "scroll"
	FrameHighlight = "highlight"
)

// State is the client state of one rendering surface: the live session and
// everything derived from it.
type State struct {
	logger    *slog.Logger
	session   *core.Session
	filter    *filter.Controller
	layout    *tracker.Layout
	poller    *tracker.Poller
	tracker   *tracker.Tracker
	navigator *navigate.Navigator
	feed      *Feed

	mu          sync.RWMutex
	sessionID   string
	snap        core.Snapshot
	derived     Derived
	ids         []string
	stopTrack   func()
	selected    string
	highlighted string
	proposals   map[string]*model.ResearchProposal
}

func NewState(cfg *config.Config, driver stream.Driver, s sched.Scheduler, feed *Feed, logger *slog.Logger) (*State, error) {
	policy, err := core.ParseSourcePolicy(cfg.Sources.Policy)
	if err != nil {
		return nil, err
	}
	st := &State{
		logger:    logger,
		feed:      feed,
		layout:    tracker.NewLayout(),
		proposals: make(map[string]*model.ResearchProposal),
		snap:      core.NewEngine().Snapshot(),
	}
	st.derived = derive(st.snap)
	st.poller = tracker.NewPoller(st.layout, cfg.Tracker.BandMargin)
	st.tracker = tracker.New(st.layout, func(string, bool) { st.publish(FrameActive, "") })
	st.filter = filter.NewController(s,
		filter.WithDebounce(cfg.Debounce()),
		filter.WithOnChange(func(filter.Result) { st.publish(FrameFilter, "") }),
	)
	st.navigator = navigate.New(st, s,
		navigate.WithFrameDelay(cfg.FrameDelay()),
		navigate.WithHighlightHold(cfg.HighlightHold()),
		navigate.WithLogger(logger),
	)
	st.session = core.NewSession(driver,
		core.WithSessionLogger(logger),
		core.WithEngineOptions(core.WithSourcePolicy(policy)),
		core.WithOnChange(st.onSnapshot),
	)
	return st, nil
}

// onSnapshot runs under the session lock; it must not call the session.
func (st *State) onSnapshot(snap core.Snapshot) {
	d := derive(snap)
	ids := snap.IDs()

	st.mu.Lock()
	st.snap = snap
	st.derived = d
	retrack := !slices.Equal(ids, st.ids)
	var stop func()
	if retrack {
		st.ids = ids
		stop, st.stopTrack = st.stopTrack, nil
	}
	st.mu.Unlock()

	if retrack {
		if stop != nil {
			stop()
		}
		next := st.tracker.Track(st.poller, ids)
		st.mu.Lock()
		st.stopTrack = next
		st.mu.Unlock()
	}
	st.filter.SetNodes(snap.Nodes)
	st.publish(FrameTimeline, "")
}

func (st *State) RememberProposal(id string, p model.ResearchProposal) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.proposals[id] = &p
}

// Start replaces the live stream. The stream outlives the calling request.
func (st *State) Start(sessionID string) error {
	st.mu.Lock()
	st.sessionID = sessionID
	st.mu.Unlock()
	return st.session.Start(context.Background(), sessionID)
}

func (st *State) Stop() error {
	return st.session.Close()
}

func (st *State) Snapshot() core.Snapshot {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.snap
}

func (st *State) Derived() Derived {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.derived
}

func (st *State) Connections(id string) connections.NodeConnections {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.derived.conns.Lookup(id)
}

func (st *State) HasNode(id string) bool {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return slices.Contains(st.ids, id)
}

func (st *State) Export() model.Export {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.snap.Export(st.proposals[st.sessionID])
}

func (st *State) ResetFilter() filter.Result {
	return st.filter.Reset(st.Derived().bounds())
}

// Viewport records rendered geometry and re-evaluates the active node.
func (st *State) Viewport(height float64, rects map[string]tracker.Rect) tracker.AmbientInfo {
	st.layout.Update(height, rects)
	st.poller.Poll()
	return st.ambient()
}

func (st *State) ambient() tracker.AmbientInfo {
	active, _ := st.tracker.Active()
	st.mu.RLock()
	defer st.mu.RUnlock()
	return tracker.Ambient(st.snap.Nodes, st.derived.PhaseGroups, active)
}

func (st *State) Frame(kind, target string) Frame {
	amb := st.ambient()
	res := st.filter.Result()
	st.mu.RLock()
	defer st.mu.RUnlock()
	return Frame{
		Type:        kind,
		Target:      target,
		SessionID:   st.sessionID,
		Revision:    st.snap.Revision,
		State:       st.snap.State,
		Progress:    st.snap.ProgressMessage(),
		Failure:     st.snap.Failure,
		Nodes:       st.snap.Nodes,
		Filter:      res,
		Ambient:     amb,
		Selected:    st.selected,
		Highlighted: st.highlighted,
	}
}

func (st *State) publish(kind, target string) {
	if st.feed == nil {
		return
	}
	st.feed.Publish(st.Frame(kind, target))
}

// Select, ScrollTo, Highlight and ClearHighlight make State the render
// target of its navigator.
func (st *State) Select(id string) {
	st.mu.Lock()
	st.selected = id
	st.mu.Unlock()
	st.publish(FrameSelect, id)
}

func (st *State) ScrollTo(id string) {
	st.publish(FrameScroll, id)
}

func (st *State) Highlight(id string) {
	st.mu.Lock()
	st.highlighted = id
	st.mu.Unlock()
	st.publish(FrameHighlight, id)
}

func (st *State) ClearHighlight(id string) {
	st.mu.Lock()
	if st.highlighted == id {
		st.highlighted = ""
	}
	st.mu.Unlock()
	st.publish(FrameHighlight, "")
}

func (st *State) Close() {
	st.navigator.Close()
	st.filter.Close()
	st.session.Close()
	st.mu.Lock()
	stop := st.stopTrack
	st.stopTrack = nil
	st.mu.Unlock()
	if stop != nil {
		stop()
	}
}
