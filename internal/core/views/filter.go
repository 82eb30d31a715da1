package views

import (
	"encoding/json"
	"fmt"

	"github.com/agenthands/chrono/internal/core/model"
)

// SignificanceSet is a set of significance levels. The empty set means
// "every level".
type SignificanceSet uint8

func sigBit(s model.Significance) SignificanceSet {
	switch s {
	case model.SignificanceRevolutionary:
		return 1
	case model.SignificanceHigh:
		return 2
	case model.SignificanceMedium:
		return 4
	}
	return 0
}

func AllSignificance() SignificanceSet { return 7 }

func NewSignificanceSet(levels ...model.Significance) SignificanceSet {
	var s SignificanceSet
	for _, l := range levels {
		s |= sigBit(l)
	}
	return s
}

func (s SignificanceSet) normalized() SignificanceSet {
	if s&AllSignificance() == 0 {
		return AllSignificance()
	}
	return s & AllSignificance()
}

func (s SignificanceSet) Has(l model.Significance) bool {
	b := sigBit(l)
	return b != 0 && s.normalized()&b != 0
}

func (s SignificanceSet) With(l model.Significance) SignificanceSet {
	return s.normalized() | sigBit(l)
}

func (s SignificanceSet) Without(l model.Significance) SignificanceSet {
	return s.normalized() &^ sigBit(l)
}

func (s SignificanceSet) Len() int {
	n := 0
	for _, l := range model.Significances {
		if s.Has(l) {
			n++
		}
	}
	return n
}

func (s SignificanceSet) Levels() []model.Significance {
	levels := make([]model.Significance, 0, 3)
	for _, l := range model.Significances {
		if s.Has(l) {
			levels = append(levels, l)
		}
	}
	return levels
}

func (s SignificanceSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Levels())
}

func (s *SignificanceSet) UnmarshalJSON(b []byte) error {
	var levels []model.Significance
	if err := json.Unmarshal(b, &levels); err != nil {
		return err
	}
	for _, l := range levels {
		if !l.Valid() {
			return fmt.Errorf("unknown significance %q", l)
		}
	}
	*s = NewSignificanceSet(levels...).normalized()
	return nil
}

// FilterState holds independent constraints; a node passes when it
// satisfies every constraint that is set.
type FilterState struct {
	Significance SignificanceSet `json:"significance"`
	Phase        string          `json:"phase,omitempty"`
	YearRange    *YearRange      `json:"year_range,omitempty"`
	Query        string          `json:"query"`
}

func DefaultFilter() FilterState {
	return FilterState{Significance: AllSignificance()}
}

// ResetFilter restores every level, clears phase and query, and pins the
// year range to the current bounds when there are any.
func ResetFilter(bounds YearRange, hasBounds bool) FilterState {
	f := DefaultFilter()
	if hasBounds {
		b := bounds
		f.YearRange = &b
	}
	return f
}

// IsDefault reports whether no constraint narrows the node list.
func (f FilterState) IsDefault(bounds YearRange, hasBounds bool) bool {
	if f.Significance.Len() != len(model.Significances) || f.Phase != "" || f.Query != "" {
		return false
	}
	if f.YearRange != nil && hasBounds && *f.YearRange != bounds {
		return false
	}
	return true
}

// Passes evaluates the filter predicate. A node without a phase passes any
// phase constraint; a node without a parseable year passes any year range.
func Passes(n model.TimelineNode, f FilterState) bool {
	if !f.Significance.Has(n.Significance) {
		return false
	}
	if f.Phase != "" && n.PhaseName != "" && n.PhaseName != f.Phase {
		return false
	}
	if f.YearRange != nil {
		if y, ok := n.Year(); ok && !f.YearRange.Contains(y) {
			return false
		}
	}
	return true
}

// Visible returns the identifiers of nodes passing the filter, in order.
func Visible(nodes []model.TimelineNode, f FilterState) []string {
	ids := []string{}
	for _, n := range nodes {
		if Passes(n, f) {
			ids = append(ids, n.ID)
		}
	}
	return ids
}

// Matches returns the identifiers of filter-visible nodes matching the
// query, in order. An empty query matches nothing.
func Matches(nodes []model.TimelineNode, f FilterState) []string {
	ids := []string{}
	if f.Query == "" {
		return ids
	}
	q := fold(f.Query)
	for _, n := range nodes {
		if Passes(n, f) && matchesFolded(n, q) {
			ids = append(ids, n.ID)
		}
	}
	return ids
}
