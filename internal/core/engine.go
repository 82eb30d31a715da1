package core

import (
	"fmt"
	"log/slog"

	"github.com/agenthands/chrono/internal/core/model"
)

type SourcePolicy string

const (
	// SourcesAppend appends every detail's sources, so a redelivered detail
	// event appends its sources again.
	SourcesAppend SourcePolicy = "append"
	// SourcesDedupe appends only sources not already on the node.
	SourcesDedupe SourcePolicy = "dedupe"
)

func ParseSourcePolicy(s string) (SourcePolicy, error) {
	switch SourcePolicy(s) {
	case "", SourcesAppend:
		return SourcesAppend, nil
	case SourcesDedupe:
		return SourcesDedupe, nil
	}
	return "", fmt.Errorf("unknown source policy %q", s)
}

type State string

const (
	StateIdle      State = "idle"
	StateStreaming State = "streaming"
	StateComplete  State = "complete"
	StateFailed    State = "failed"
)

type FailureKind string

const (
	FailureTransport FailureKind = "transport"
	FailureResearch  FailureKind = "research"
)

type Failure struct {
	Kind    FailureKind `json:"kind"`
	Code    string      `json:"code,omitempty"`
	Message string      `json:"message"`
}

// Engine owns the canonical node sequence of one research session and
// applies stream events to it. It is the only writer of that sequence.
// Engine is not safe for concurrent use; Session serializes access.
type Engine struct {
	nodes    []model.TimelineNode
	index    map[string]int
	progress model.ProgressData

	synthesis *model.SynthesisData
	complete  *model.CompleteData
	failure   *Failure
	state     State
	revision  uint64

	policy SourcePolicy
	logger *slog.Logger
}

type EngineOption func(*Engine)

func WithSourcePolicy(p SourcePolicy) EngineOption {
	return func(e *Engine) { e.policy = p }
}

func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{
		index:  map[string]int{},
		state:  StateIdle,
		policy: SourcesAppend,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) terminal() bool {
	return e.state == StateComplete || e.state == StateFailed
}

// accept marks the engine as streaming and reports whether an event may be
// applied. Events after a terminal event are ignored.
func (e *Engine) accept(event string) bool {
	if e.terminal() {
		e.logger.Debug("ignoring event after terminal state", "event", event, "state", e.state)
		return false
	}
	e.state = StateStreaming
	return true
}

func (e *Engine) changed() { e.revision++ }

func (e *Engine) OnProgress(d model.ProgressData) {
	if !e.accept("progress") {
		return
	}
	e.progress = d
	if d.Phase == model.PhaseDetail {
		for i := range e.nodes {
			if e.nodes[i].Status == model.StatusSkeleton {
				e.nodes[i].Status = model.StatusLoading
			}
		}
	}
	e.changed()
}

// OnSkeleton replaces the node list with the incoming snapshot. A node whose
// identifier already carries detail keeps its status and detail, and its
// accumulated sources; a loading node stays loading.
func (e *Engine) OnSkeleton(d model.SkeletonData) {
	if !e.accept("skeleton") {
		return
	}
	nodes := make([]model.TimelineNode, 0, len(d.Nodes))
	index := make(map[string]int, len(d.Nodes))
	for _, in := range d.Nodes {
		if in.ID == "" {
			e.logger.Warn("dropping skeleton node without id", "title", in.Title)
			continue
		}
		if _, dup := index[in.ID]; dup {
			e.logger.Warn("dropping duplicate skeleton node", "node_id", in.ID)
			continue
		}
		n := in.Clone()
		n.Details = nil
		n.Status = model.StatusSkeleton
		if n.Sources == nil {
			n.Sources = []string{}
		}
		if i, ok := e.index[in.ID]; ok {
			n = overlay(n, e.nodes[i])
		}
		index[n.ID] = len(nodes)
		nodes = append(nodes, n)
	}
	e.nodes = nodes
	e.index = index
	e.changed()
}

// overlay carries the enrichment of prev onto the re-described node.
func overlay(n, prev model.TimelineNode) model.TimelineNode {
	if n.Status.Advances(prev.Status) {
		n.Status = prev.Status
	}
	if prev.Details != nil {
		n.Details = prev.Details.Clone()
	}
	sources := append([]string(nil), prev.Sources...)
	seen := make(map[string]bool, len(sources))
	for _, s := range sources {
		seen[s] = true
	}
	for _, s := range n.Sources {
		if !seen[s] {
			seen[s] = true
			sources = append(sources, s)
		}
	}
	n.Sources = sources
	return n
}

// OnNodeDetail enriches one node. A detail for an unknown identifier is a
// no-op.
func (e *Engine) OnNodeDetail(d model.NodeDetailEvent) {
	if !e.accept("node_detail") {
		return
	}
	i, ok := e.index[d.NodeID]
	if !ok {
		e.logger.Warn("detail for unknown node", "node_id", d.NodeID)
		return
	}
	n := &e.nodes[i]
	details := d.Details
	n.Details = details.Clone()
	n.Status = model.StatusComplete
	n.Sources = e.mergeSources(n.Sources, details.Sources)
	e.changed()
}

func (e *Engine) mergeSources(have, add []string) []string {
	out := append([]string(nil), have...)
	if e.policy != SourcesDedupe {
		return append(out, add...)
	}
	seen := make(map[string]bool, len(have))
	for _, s := range have {
		seen[s] = true
	}
	for _, s := range add {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

// OnSynthesis overwrites any earlier synthesis.
func (e *Engine) OnSynthesis(d model.SynthesisData) {
	if !e.accept("synthesis") {
		return
	}
	e.synthesis = d.Clone()
	e.changed()
}

func (e *Engine) OnComplete(d model.CompleteData) {
	if !e.accept("complete") {
		return
	}
	e.complete = &d
	e.progress = model.ProgressData{}
	e.state = StateComplete
	e.changed()
}

func (e *Engine) OnResearchError(d model.ResearchError) {
	e.fail(Failure{Kind: FailureResearch, Code: d.Error, Message: d.Message})
}

func (e *Engine) OnConnectionError(err error) {
	msg := "connection lost"
	if err != nil {
		msg = err.Error()
	}
	e.fail(Failure{Kind: FailureTransport, Message: msg})
}

// fail records a terminal failure. Reconciled nodes are kept as they are.
func (e *Engine) fail(f Failure) {
	if e.terminal() {
		return
	}
	e.logger.Error("research stream failed", "kind", f.Kind, "code", f.Code, "message", f.Message)
	e.failure = &f
	e.state = StateFailed
	e.changed()
}

func (e *Engine) Node(id string) (model.TimelineNode, bool) {
	i, ok := e.index[id]
	if !ok {
		return model.TimelineNode{}, false
	}
	return e.nodes[i].Clone(), true
}

func (e *Engine) Revision() uint64 { return e.revision }

func (e *Engine) State() State { return e.state }

// Snapshot returns a deep copy of the engine state.
func (e *Engine) Snapshot() Snapshot {
	s := Snapshot{
		Revision:  e.revision,
		State:     e.state,
		Nodes:     model.CloneNodes(e.nodes),
		Progress:  e.progress,
		Synthesis: e.synthesis.Clone(),
	}
	if s.Nodes == nil {
		s.Nodes = []model.TimelineNode{}
	}
	if e.complete != nil {
		c := *e.complete
		s.Complete = &c
	}
	if e.failure != nil {
		f := *e.failure
		s.Failure = &f
	}
	return s
}
