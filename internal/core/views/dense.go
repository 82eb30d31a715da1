package views

import (
	"github.com/agenthands/chrono/internal/core/model"
)

// MinDenseRun is the shortest run of non-revolutionary nodes worth
// collapsing.
const MinDenseRun = 4

type DenseGroup struct {
	StartIndex int      `json:"start_index"`
	EndIndex   int      `json:"end_index"`
	NodeIDs    []string `json:"node_ids"`
}

// DenseGroups finds runs of at least MinDenseRun consecutive
// non-revolutionary nodes. A revolutionary node or a phase change ends a
// run; shorter runs are not grouped.
func DenseGroups(nodes []model.TimelineNode) []DenseGroup {
	phases := effectivePhases(nodes)
	var groups []DenseGroup
	runStart := -1

	flush := func(end int) {
		if runStart >= 0 && end-runStart+1 >= MinDenseRun {
			ids := make([]string, 0, end-runStart+1)
			for _, n := range nodes[runStart : end+1] {
				ids = append(ids, n.ID)
			}
			groups = append(groups, DenseGroup{StartIndex: runStart, EndIndex: end, NodeIDs: ids})
		}
		runStart = -1
	}

	for i, n := range nodes {
		if n.Significance == model.SignificanceRevolutionary {
			flush(i - 1)
			continue
		}
		if runStart >= 0 && phases[i] != phases[i-1] {
			flush(i - 1)
		}
		if runStart < 0 {
			runStart = i
		}
	}
	flush(len(nodes) - 1)
	return groups
}

// DenseGroupOf returns the group containing the node id.
func DenseGroupOf(groups []DenseGroup, id string) (DenseGroup, bool) {
	for _, g := range groups {
		for _, nid := range g.NodeIDs {
			if nid == id {
				return g, true
			}
		}
	}
	return DenseGroup{}, false
}
