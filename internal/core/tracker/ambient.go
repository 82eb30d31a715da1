package tracker

import (
	"github.com/agenthands/chrono/internal/core/model"
	"github.com/agenthands/chrono/internal/core/views"
)

// AmbientInfo drives the current year and phase indicators.
type AmbientInfo struct {
	ActiveID string `json:"active_id,omitempty"`
	Year     string `json:"year,omitempty"`
	Phase    string `json:"phase,omitempty"`
	Span     string `json:"span,omitempty"`
}

func Ambient(nodes []model.TimelineNode, groups []views.PhaseGroup, activeID string) AmbientInfo {
	info := AmbientInfo{Span: views.SpanLabel(nodes)}
	if activeID == "" {
		return info
	}
	for i, n := range nodes {
		if n.ID != activeID {
			continue
		}
		info.ActiveID = activeID
		info.Year = n.YearLabel()
		if g, ok := views.PhaseAt(groups, i); ok {
			info.Phase = g.Name
		}
		break
	}
	return info
}
