package model

import (
	"strconv"
	"strings"
)

type Significance string

const (
	SignificanceRevolutionary Significance = "revolutionary"
	SignificanceHigh          Significance = "high"
	SignificanceMedium        Significance = "medium"
)

// Significances lists every level, most severe first.
var Significances = []Significance{SignificanceRevolutionary, SignificanceHigh, SignificanceMedium}

// Rank orders significance levels: revolutionary > high > medium.
// Unknown levels rank zero.
func (s Significance) Rank() int {
	switch s {
	case SignificanceRevolutionary:
		return 3
	case SignificanceHigh:
		return 2
	case SignificanceMedium:
		return 1
	}
	return 0
}

func (s Significance) Valid() bool { return s.Rank() > 0 }

type NodeStatus string

const (
	StatusSkeleton NodeStatus = "skeleton"
	// StatusLoading is local only; the server never sends it.
	StatusLoading  NodeStatus = "loading"
	StatusComplete NodeStatus = "complete"
)

func (s NodeStatus) rank() int {
	switch s {
	case StatusSkeleton:
		return 1
	case StatusLoading:
		return 2
	case StatusComplete:
		return 3
	}
	return 0
}

// Advances reports whether moving from s to next is a forward transition.
func (s NodeStatus) Advances(next NodeStatus) bool {
	return next.rank() > s.rank()
}

type NodeDetail struct {
	KeyFeatures []string `json:"key_features"`
	Impact      string   `json:"impact"`
	KeyPeople   []string `json:"key_people"`
	Context     string   `json:"context"`
	Sources     []string `json:"sources"`
}

func (d *NodeDetail) Clone() *NodeDetail {
	if d == nil {
		return nil
	}
	c := *d
	c.KeyFeatures = append([]string(nil), d.KeyFeatures...)
	c.KeyPeople = append([]string(nil), d.KeyPeople...)
	c.Sources = append([]string(nil), d.Sources...)
	return &c
}

type TimelineNode struct {
	ID           string       `json:"id"`
	Date         string       `json:"date"`
	Title        string       `json:"title"`
	Subtitle     string       `json:"subtitle,omitempty"`
	Significance Significance `json:"significance"`
	Description  string       `json:"description"`
	Sources      []string     `json:"sources"`
	Status       NodeStatus   `json:"status"`
	Details      *NodeDetail  `json:"details,omitempty"`
	PhaseName    string       `json:"phase_name,omitempty"`
}

func (n TimelineNode) Clone() TimelineNode {
	c := n
	c.Sources = append([]string(nil), n.Sources...)
	c.Details = n.Details.Clone()
	return c
}

// Year parses the leading four digits of the node date. ok is false when
// the date does not start with a year.
func (n TimelineNode) Year() (int, bool) {
	return ParseYear(n.Date)
}

func ParseYear(date string) (int, bool) {
	date = strings.TrimSpace(date)
	if len(date) < 4 {
		return 0, false
	}
	y, err := strconv.Atoi(date[:4])
	if err != nil {
		return 0, false
	}
	return y, true
}

// YearLabel is the first four characters of the date, as displayed.
func (n TimelineNode) YearLabel() string {
	if len(n.Date) < 4 {
		return n.Date
	}
	return n.Date[:4]
}

func CloneNodes(nodes []TimelineNode) []TimelineNode {
	if nodes == nil {
		return nil
	}
	out := make([]TimelineNode, len(nodes))
	for i, n := range nodes {
		out[i] = n.Clone()
	}
	return out
}
