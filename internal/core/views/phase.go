// Package views computes derived, read-only views over a node snapshot.
// Every function is pure and recomputes from scratch.
package views

import (
	"github.com/agenthands/chrono/internal/core/model"
)

// PhaseGroup covers nodes[StartIndex..EndIndex], both inclusive.
type PhaseGroup struct {
	Name       string `json:"name"`
	StartIndex int    `json:"start_index"`
	EndIndex   int    `json:"end_index"`
	TimeRange  string `json:"time_range"`
}

// effectivePhases resolves the phase of every node. A node without a phase
// inherits the running phase; leading nodes take the first named phase.
func effectivePhases(nodes []model.TimelineNode) []string {
	out := make([]string, len(nodes))
	current, first := "", -1
	for i, n := range nodes {
		if n.PhaseName != "" {
			current = n.PhaseName
			if first < 0 {
				first = i
			}
		}
		out[i] = current
	}
	for i := 0; i < first; i++ {
		out[i] = nodes[first].PhaseName
	}
	return out
}

// PhaseGroups partitions the node sequence into contiguous phase runs. It
// returns nil when no node carries a phase name.
func PhaseGroups(nodes []model.TimelineNode) []PhaseGroup {
	phases := effectivePhases(nodes)
	if len(phases) == 0 || phases[0] == "" {
		return nil
	}
	var groups []PhaseGroup
	start := 0
	for i := 1; i <= len(nodes); i++ {
		if i < len(nodes) && phases[i] == phases[start] {
			continue
		}
		groups = append(groups, phaseGroup(phases[start], start, i-1, nodes))
		start = i
	}
	return groups
}

func phaseGroup(name string, start, end int, nodes []model.TimelineNode) PhaseGroup {
	startYear, endYear := nodes[start].YearLabel(), nodes[end].YearLabel()
	timeRange := startYear
	if startYear != endYear {
		timeRange = startYear + " - " + endYear
	}
	return PhaseGroup{Name: name, StartIndex: start, EndIndex: end, TimeRange: timeRange}
}

// PhaseAt returns the group containing index i.
func PhaseAt(groups []PhaseGroup, i int) (PhaseGroup, bool) {
	for _, g := range groups {
		if i >= g.StartIndex && i <= g.EndIndex {
			return g, true
		}
	}
	return PhaseGroup{}, false
}

// PhaseNames lists distinct phase names in first-seen order.
func PhaseNames(groups []PhaseGroup) []string {
	seen := map[string]bool{}
	var names []string
	for _, g := range groups {
		if !seen[g.Name] {
			seen[g.Name] = true
			names = append(names, g.Name)
		}
	}
	return names
}
