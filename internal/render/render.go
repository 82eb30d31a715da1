// Package render draws a timeline snapshot for the terminal.
package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/agenthands/chrono/internal/core"
	"github.com/agenthands/chrono/internal/core/connections"
	"github.com/agenthands/chrono/internal/core/model"
	"github.com/agenthands/chrono/internal/core/views"
)

type Options struct {
	// Collapse folds dense runs into one line.
	Collapse bool
	Filter   views.FilterState
	// Connections lists synthesis connections after the timeline.
	Connections bool
}

func DefaultOptions() Options {
	return Options{Collapse: true, Filter: views.DefaultFilter(), Connections: true}
}

func Timeline(title string, snap core.Snapshot, opts Options) string {
	var b strings.Builder

	header := styleTitle.Render(title)
	if span := views.SpanLabel(snap.Nodes); span != "" {
		header += "  " + styleDim.Render(span)
	}
	b.WriteString(header + "  " + status(snap) + "\n")

	visible := map[string]bool{}
	for _, id := range views.Visible(snap.Nodes, opts.Filter) {
		visible[id] = true
	}
	phases := views.PhaseGroups(snap.Nodes)
	separators := map[int]string{}
	for _, s := range views.Separators(snap.Nodes) {
		separators[s.InsertBeforeIndex] = s.Label
	}
	dense := map[int]views.DenseGroup{}
	if opts.Collapse {
		for _, g := range views.DenseGroups(snap.Nodes) {
			dense[g.StartIndex] = g
		}
	}

	for i := 0; i < len(snap.Nodes); i++ {
		for _, g := range phases {
			if g.StartIndex == i {
				b.WriteString("\n" + stylePhase.Render(g.Name))
				if g.TimeRange != "" {
					b.WriteString(" " + styleDim.Render("("+g.TimeRange+")"))
				}
				b.WriteString("\n")
			}
		}
		if label, ok := separators[i]; ok {
			b.WriteString(styleSeparator.Render("  ── "+label+" ──") + "\n")
		}
		if g, ok := dense[i]; ok {
			if n := countVisible(g.NodeIDs, visible); n > 0 {
				first, last := snap.Nodes[g.StartIndex].YearLabel(), snap.Nodes[g.EndIndex].YearLabel()
				b.WriteString(styleDim.Render(fmt.Sprintf("  %s %d events %s–%s", iconDense, n, first, last)) + "\n")
			}
			i = g.EndIndex
			continue
		}
		n := snap.Nodes[i]
		if !visible[n.ID] {
			continue
		}
		b.WriteString(nodeLine(n) + "\n")
	}

	if opts.Connections {
		if conns := snap.Connections(); len(conns) > 0 {
			b.WriteString("\n" + styleTitle.Render("Connections") + "\n")
			m := connections.Build(conns, snap.Nodes)
			for _, n := range snap.Nodes {
				for _, out := range m.Lookup(n.ID).Outgoing {
					b.WriteString(fmt.Sprintf("  %s → %s  %s\n", n.Title, out.TargetTitle,
						styleDim.Render(string(out.Type)+": "+out.Relationship)))
				}
			}
		}
	}
	if snap.Synthesis != nil && snap.Synthesis.Summary != "" {
		b.WriteString("\n" + styleTitle.Render("Summary") + "\n  " + snap.Synthesis.Summary + "\n")
	}
	return b.String()
}

func countVisible(ids []string, visible map[string]bool) int {
	n := 0
	for _, id := range ids {
		if visible[id] {
			n++
		}
	}
	return n
}

func nodeLine(n model.TimelineNode) string {
	return fmt.Sprintf("  %s  %s %s", n.YearLabel(), statusIcon(n.Status), significance(n.Significance).Render(n.Title))
}

func significance(s model.Significance) lipgloss.Style {
	switch s {
	case model.SignificanceRevolutionary:
		return styleRevolutionary
	case model.SignificanceHigh:
		return styleHigh
	default:
		return styleMedium
	}
}

func statusIcon(s model.NodeStatus) string {
	switch s {
	case model.StatusComplete:
		return styleDone.Render(iconComplete)
	case model.StatusLoading:
		return iconLoading
	default:
		return iconSkeleton
	}
}

func status(snap core.Snapshot) string {
	switch snap.State {
	case core.StateComplete:
		if snap.Complete != nil {
			return styleDone.Render(fmt.Sprintf("complete %d/%d", snap.Complete.DetailCompleted, snap.Complete.TotalNodes))
		}
		return styleDone.Render("complete")
	case core.StateFailed:
		if snap.Failure != nil {
			return styleFailure.Render("failed: " + snap.Failure.Message)
		}
		return styleFailure.Render("failed")
	case core.StateStreaming:
		return styleDim.Render(snap.ProgressMessage())
	default:
		return ""
	}
}
